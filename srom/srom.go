// Package srom decodes the serial ROM image of an Alpha 21164 CPU into the
// instruction cache fill data it loads at reset, and annotates a disassembly
// of that data with the PALcode hardware instructions it contains.
package srom

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/spacemeshos/bitplane/shared"
)

const (
	// LineSize is the number of SROM bytes shifted into one icache fill line.
	LineSize = 25

	// LineWords is the number of little-endian words read from a line.
	// The last byte of a line does not take part in a word.
	LineWords = 6

	// DecodedWords is the number of instruction words a line decodes into.
	DecodedWords = 4
)

type (
	Line    [LineWords]uint32
	Decoded [DecodedWords]uint32
)

// dfillMap maps each decoded instruction bit to its position in a line.
var dfillMap = func() (m [DecodedWords * 32]int) {
	for i := 0; i < 32; i++ {
		m[i] = 42 + 2*i
		m[32+i] = 43 + 2*i
		m[64+i] = 128 + 2*i
		m[96+i] = 129 + 2*i
	}
	return m
}()

// ParseLines splits data into lines. remainder is the number of trailing
// bytes that did not fill a line.
func ParseLines(data []byte) (lines []Line, remainder int) {
	lines = make([]Line, 0, len(data)/LineSize)
	for len(data) >= LineSize {
		var line Line
		for i := range line {
			line[i] = binary.LittleEndian.Uint32(data[i*4:])
		}
		lines = append(lines, line)
		data = data[LineSize:]
	}
	return lines, len(data)
}

// DecodeLine gathers the instruction bits of line.
func DecodeLine(line Line) Decoded {
	var out Decoded
	for outIdx, inIdx := range dfillMap {
		if (line[inIdx>>5]>>(inIdx&0x1F))&1 == 1 {
			out[outIdx>>5] |= 1 << (outIdx & 0x1F)
		}
	}
	return out
}

// FormatLine renders a line and its decoded words, as hex, on one text line.
func FormatLine(line Line, decoded Decoded) string {
	var sb strings.Builder
	for _, w := range line {
		fmt.Fprintf(&sb, "0x%08x ", w)
	}
	sb.WriteString(" --")
	for _, w := range decoded {
		fmt.Fprintf(&sb, " 0x%08x", w)
	}
	return sb.String()
}

type Decoder struct {
	logger shared.Logger
}

func NewDecoder() *Decoder {
	return &Decoder{logger: shared.NoopLogger{}}
}

func (d *Decoder) SetLogger(logger shared.Logger) {
	d.logger = logger
}

// Decode returns the instruction words of every complete line of data,
// little-endian, in line order.
func (d *Decoder) Decode(data []byte) []byte {
	lines, remainder := ParseLines(data)
	if remainder != 0 {
		d.logger.Warning("SROM image length %d is not a multiple of %d; ignoring %d trailing bytes",
			len(data), LineSize, remainder)
	}

	out := make([]byte, 0, len(lines)*DecodedWords*4)
	for _, line := range lines {
		decoded := DecodeLine(line)
		d.logger.Debug("%v", FormatLine(line, decoded))
		for _, w := range decoded {
			out = binary.LittleEndian.AppendUint32(out, w)
		}
	}
	return out
}
