package bitstream

import (
	"io"
)

// BitWriter writes bits to an io.Writer.
type BitWriter struct {
	stream    io.Writer
	pending   [1]byte
	alignment uint8
}

// NewWriter returns a new instance of BitWriter.
func NewWriter(w io.Writer) *BitWriter {
	bw := new(BitWriter)
	bw.stream = w
	bw.alignment = 0 // less-significant bit
	return bw
}

// WriteByte writes a single byte to the stream, regardless of the alignment.
// If the byte is to be split due to alignment, the LSB pattern is followed in bit-groups.
func (bw *BitWriter) WriteByte(byte byte) error {
	// Fill the pending byte MS bits with LS bits.
	bw.pending[0] |= byte << bw.alignment

	if err := bw.emit(); err != nil {
		return err
	}

	// Fill the new pending byte LS bits with MS bits.
	if bw.alignment > 0 {
		bw.pending[0] = byte >> (8 - bw.alignment)
	}

	return nil
}

// WriteBit writes a single bit to the stream, LSB first.
func (bw *BitWriter) WriteBit(bit Bit) error {
	if bit {
		bw.pending[0] |= 1 << bw.alignment
	}

	bw.alignment++

	if bw.alignment == 8 {
		if err := bw.emit(); err != nil {
			return err
		}
		bw.alignment = 0
	}

	return nil
}

// Flush flushes the currently pending byte to the stream by filling it with bit.
func (bw *BitWriter) Flush(bit Bit) error {
	for bw.alignment != 0 {
		if err := bw.WriteBit(bit); err != nil {
			return err
		}
	}

	return nil
}

// Pending returns the number of bits held in the pending byte.
func (bw *BitWriter) Pending() int {
	return int(bw.alignment)
}

// Discard drops the pending bits without writing them.
func (bw *BitWriter) Discard() {
	bw.pending[0] = 0
	bw.alignment = 0
}

func (bw *BitWriter) emit() error {
	n, err := bw.stream.Write(bw.pending[:])
	if err != nil {
		return err
	}
	if n != 1 {
		return io.ErrShortWrite
	}
	bw.pending[0] = 0
	return nil
}
