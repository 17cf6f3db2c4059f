// Package bitstream provides wrappers for io.Writer and io.Reader to allow
// bit-granularity access to the stream, following the LSB pattern, where
// least-significant bits are written/read first.
//
// The writer is the bit-plane accumulator: every new bit becomes the next
// higher bit of the pending byte, so after 8 writes the first bit is bit 0
// and the last bit is bit 7 of the emitted byte.
package bitstream

type Bit bool

const (
	Zero Bit = false
	One  Bit = true
)

// BitOf returns bit idx of b, where bit 0 is the least-significant bit.
func BitOf(b byte, idx uint) Bit {
	return (b>>idx)&1 == 1
}
