package bitstream

import (
	"io"
)

// BitReader reads bits from an io.Reader.
type BitReader struct {
	stream    io.Reader
	pending   [1]byte
	alignment uint8
}

// NewReader returns a new instance of BitReader.
func NewReader(r io.Reader) *BitReader {
	b := new(BitReader)
	b.stream = r
	b.alignment = 8
	return b
}

// ReadByte reads the next single byte from the stream, regardless of the alignment.
// If the byte is split, the LSB pattern is followed in bit-groups.
func (br *BitReader) ReadByte() (byte, error) {
	if br.alignment == 8 {
		if err := br.fill(); err != nil {
			return 0, err
		}
		return br.pending[0], nil
	}

	// The byte stream is not aligned.
	// Use the current byte LS bits, combined with the next byte LS bits as MS bits.

	current := br.pending[0]
	if err := br.fill(); err != nil {
		return 0, err
	}

	// Use the next pending byte LS bits to fill MS bits.
	current |= br.pending[0] << (8 - br.alignment)

	// Remove the used LS bits from the next pending byte.
	br.pending[0] >>= br.alignment

	return current, nil
}

// ReadBit reads the next single bit from the stream, LSB first.
func (br *BitReader) ReadBit() (Bit, error) {
	if br.alignment == 8 {
		if err := br.fill(); err != nil {
			return Zero, err
		}
		br.alignment = 0
	}
	br.alignment++

	// Read LS bit.
	lsb := Bit(br.pending[0]&1 == 1)

	// Remove LS bit.
	br.pending[0] >>= 1

	return lsb, nil
}

// fill loads the next byte into pending. io.EOF is returned only when no byte was read.
func (br *BitReader) fill() error {
	n, err := io.ReadFull(br.stream, br.pending[:])
	if n == 1 {
		return nil
	}
	br.pending[0] = 0
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return err
}
