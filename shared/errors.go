package shared

import (
	"errors"
	"fmt"
)

var (
	ErrPartialGroup   = errors.New("input length is not a multiple of 8")
	ErrLocked         = errors.New("output directory is locked by another run")
	ErrPlaneMismatch  = errors.New("bit-plane mismatch")
	ErrNotEnoughSpace = errors.New("not enough disk space")
)

// SourceError is returned when the input image cannot be read.
// Nothing has been written when it is returned.
type SourceError struct {
	Path string
	Err  error
}

func (err *SourceError) Error() string {
	return fmt.Sprintf("source read failure (%v): %v", err.Path, err.Err)
}

func (err *SourceError) Unwrap() error { return err.Err }

// OutputError is returned when a plane file cannot be created, written or closed.
// Planes with a lower index may already be on disk.
type OutputError struct {
	Path  string
	Index int
	Err   error
}

func (err *OutputError) Error() string {
	if err.Index < 0 {
		return fmt.Sprintf("output write failure (%v): %v", err.Path, err.Err)
	}
	return fmt.Sprintf("output write failure, plane %d (%v): %v", err.Index, err.Path, err.Err)
}

func (err *OutputError) Unwrap() error { return err.Err }
