package config

import (
	"github.com/spacemeshos/bitplane/shared"
)

// PlanesLayout describes the output planes derived from an input of a given size.
type PlanesLayout struct {
	NumPlanes int
	PlaneSize int64

	// TrailingBits is the number of bits per plane that do not complete a group.
	// They are dropped in truncate mode and zero-padded in pad mode.
	TrailingBits int
}

func (l PlanesLayout) TotalSize() uint64 {
	return uint64(l.NumPlanes) * uint64(l.PlaneSize)
}

func DerivePlanesLayout(cfg Config, inputSize int64) PlanesLayout {
	planeSize := inputSize / shared.GroupSize
	trailing := int(inputSize % shared.GroupSize)
	if trailing > 0 && cfg.Partial == PartialPad {
		planeSize++
	}

	return PlanesLayout{
		NumPlanes:    shared.NumPlanes,
		PlaneSize:    planeSize,
		TrailingBits: trailing,
	}
}
