package persistence

import (
	"bufio"
	"fmt"
	"github.com/spacemeshos/bitplane/shared"
	"io"
	"os"
)

// FileWriter writes a single plane file. The file is created, or truncated if it exists.
type FileWriter struct {
	file  *os.File
	buf   *bufio.Writer
	index int
}

// A compile time check to ensure that FileWriter fully implements the io.Writer interface.
var _ io.Writer = (*FileWriter)(nil)

// NewFileWriter opens filename for writing plane index. Use a negative index for
// files which are not planes.
func NewFileWriter(filename string, index int) (*FileWriter, error) {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, shared.OwnerReadWrite)
	if err != nil {
		return nil, &shared.OutputError{Path: filename, Index: index, Err: err}
	}
	return &FileWriter{
		file:  f,
		buf:   bufio.NewWriter(f),
		index: index,
	}, nil
}

func (w *FileWriter) Write(b []byte) (int, error) {
	n, err := w.buf.Write(b)
	if err != nil {
		return n, w.wrap(err)
	}
	return n, nil
}

func (w *FileWriter) Flush() error {
	if err := w.buf.Flush(); err != nil {
		return w.wrap(fmt.Errorf("failed to flush disk writer: %w", err))
	}

	return nil
}

// Close flushes the buffered data and closes the file. The file is closed even
// when the flush fails.
func (w *FileWriter) Close() (os.FileInfo, error) {
	if w.file == nil {
		return nil, w.wrap(os.ErrClosed)
	}

	flushErr := w.buf.Flush()
	w.buf = nil

	var info os.FileInfo
	var statErr error
	if flushErr == nil {
		info, statErr = w.file.Stat()
	}

	closeErr := w.file.Close()
	name := w.file.Name()
	w.file = nil

	for _, err := range []error{flushErr, statErr, closeErr} {
		if err != nil {
			return nil, &shared.OutputError{Path: name, Index: w.index, Err: err}
		}
	}

	return info, nil
}

func (w *FileWriter) Name() string {
	if w.file == nil {
		return ""
	}
	return w.file.Name()
}

func (w *FileWriter) wrap(err error) error {
	return &shared.OutputError{Path: w.Name(), Index: w.index, Err: err}
}

// WriteFile writes data to filename, replacing any prior content.
func WriteFile(filename string, index int, data []byte) (os.FileInfo, error) {
	w, err := NewFileWriter(filename, index)
	if err != nil {
		return nil, err
	}

	if _, err := w.Write(data); err != nil {
		_, _ = w.Close()
		return nil, err
	}

	return w.Close()
}
