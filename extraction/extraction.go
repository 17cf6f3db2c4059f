// Package extraction splits a byte-wide memory image into its eight bit-planes.
//
// Plane i holds bit i of every input byte, in input order, packed eight per
// output byte: the bit of input byte 8k+j becomes bit j of plane byte k.
package extraction

import (
	"bufio"
	"bytes"
	"fmt"
	"github.com/spacemeshos/bitplane/bitstream"
	"github.com/spacemeshos/bitplane/config"
	"github.com/spacemeshos/bitplane/shared"
	"io"
)

type (
	Config      = config.Config
	PartialMode = config.PartialMode
	Logger      = shared.Logger
)

// ExtractPlane packs bit idx of every byte of image into a new plane buffer.
// A trailing partial group is dropped, zero-padded or rejected according to mode.
func ExtractPlane(image []byte, idx uint, mode PartialMode) ([]byte, error) {
	if idx >= shared.NumPlanes {
		return nil, fmt.Errorf("invalid bit index; expected: < %d, given: %d", shared.NumPlanes, idx)
	}
	if mode == config.PartialReject && len(image)%shared.GroupSize != 0 {
		return nil, fmt.Errorf("%w: length %d", shared.ErrPartialGroup, len(image))
	}

	// An image shorter than one group yields a nil plane in truncate mode.
	buf := new(bytes.Buffer)
	if len(image) >= shared.GroupSize {
		buf.Grow(len(image)/shared.GroupSize + 1)
	}
	w := bitstream.NewWriter(buf)
	for _, b := range image {
		if err := w.WriteBit(bitstream.BitOf(b, idx)); err != nil {
			return nil, err
		}
	}

	if err := finish(w, mode); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// SplitStream consumes r incrementally and writes plane i to ws[i], keeping one
// accumulator per plane. It returns the number of input bytes consumed.
// In reject mode the error is only detected at the end of the input, after
// the complete groups were written.
func SplitStream(r io.Reader, ws []io.Writer, mode PartialMode) (int64, error) {
	if len(ws) != shared.NumPlanes {
		return 0, fmt.Errorf("invalid number of plane writers; expected: %d, given: %d", shared.NumPlanes, len(ws))
	}

	bws := make([]*bitstream.BitWriter, len(ws))
	for i, w := range ws {
		bws[i] = bitstream.NewWriter(w)
	}

	br := bufio.NewReader(r)
	var n int64
	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, err
		}
		n++

		for idx, bw := range bws {
			if err := bw.WriteBit(bitstream.BitOf(b, uint(idx))); err != nil {
				return n, err
			}
		}
	}

	if mode == config.PartialReject && n%shared.GroupSize != 0 {
		return n, fmt.Errorf("%w: length %d", shared.ErrPartialGroup, n)
	}

	for _, bw := range bws {
		if err := finish(bw, mode); err != nil {
			return n, err
		}
	}

	return n, nil
}

func finish(w *bitstream.BitWriter, mode PartialMode) error {
	if w.Pending() == 0 {
		return nil
	}
	if mode == config.PartialPad {
		return w.Flush(bitstream.Zero)
	}
	w.Discard()
	return nil
}
