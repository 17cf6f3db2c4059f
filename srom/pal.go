package srom

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var ErrUnknownInstruction = errors.New("unknown PALcode instruction")

// palMarker precedes the mnemonic of the implementation-specific PAL
// instructions (opcodes 0x19 to 0x1F) in objdump output.
const palMarker = "\tpal1"

var regNames = [32]string{
	"v0", "t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7", "s0", "s1", "s2", "s3", "s4", "s5", "s6",
	"a0", "a1", "a2", "a3", "a4", "a5", "t8", "t9", "t10", "t11", "ra", "pv", "at", "gp", "sp",
	"zero",
}

// 21164 internal processor registers.
var iprNames = map[uint16]string{
	// Ibox.
	0x100: "ISR",
	0x101: "ITB_TAG",
	0x102: "ITB_PTE",
	0x103: "ITB_ASN",
	0x104: "ITB_PTE_TEMP",
	0x105: "ITB_IA",
	0x106: "ITB_IAP",
	0x107: "ITB_IS",
	0x108: "SIRR",
	0x109: "ASTRR",
	0x10A: "ASTER",
	0x10B: "EXC_ADDR",
	0x10C: "EXC_SUM",
	0x10D: "EXC_MASK",
	0x10E: "PAL_BASE",
	0x10F: "ICM",
	0x110: "IPLR",
	0x111: "INTID",
	0x112: "IFAULT_VA_FORM",
	0x113: "IVPTBR",
	0x115: "HWINT_CLR",
	0x116: "SL_XMIT",
	0x117: "SL_RCV",
	0x118: "ICSR",
	0x119: "IC_FLUSH_CTL",
	0x11A: "ICPERR_STAT",
	0x11C: "PMCTR",

	// Mbox.
	0x200: "DTB_ASN",
	0x201: "DTB_CM",
	0x202: "DTB_TAG",
	0x203: "DTB_PTE",
	0x204: "DTB_PTE_TEMP",
	0x205: "MM_STAT",
	0x206: "VA",
	0x207: "VA_FORM",
	0x208: "MVPTBR",
	0x209: "DTB_IAP",
	0x20A: "DTB_IA",
	0x20B: "DTB_IS",
	0x20C: "ALT_MODE",
	0x20D: "CC",
	0x20E: "CC_CTL",
	0x20F: "MCSR",
	0x210: "DC_FLUSH",
	0x212: "DC_PERR_STAT",
	0x213: "DC_TEST_CTL",
	0x214: "DC_TEST_TAG",
	0x215: "DC_TEST_TAG_TEMP",
	0x216: "DC_MODE",
	0x217: "MAF_MODE",
}

const (
	palTempFirst = 0x140
	palTempLast  = 0x157
)

// IPRName returns the name of the internal processor register at index,
// or "UNKNOWN".
func IPRName(index uint16) string {
	if index >= palTempFirst && index <= palTempLast {
		return fmt.Sprintf("PALtemp%d", index-palTempFirst)
	}
	if name, ok := iprNames[index]; ok {
		return name
	}
	return "UNKNOWN"
}

// DecodeInstruction describes a PAL instruction given as "<mnemonic> <arg>",
// where arg is hex with a 0x prefix or decimal.
func DecodeInstruction(instruction string) (string, error) {
	fields := strings.Fields(instruction)
	if len(fields) < 2 {
		return "", fmt.Errorf("invalid instruction %q; expected: mnemonic and argument", instruction)
	}
	mnemonic, arg := fields[0], fields[1]

	var (
		value uint64
		err   error
	)
	if hex, ok := strings.CutPrefix(arg, "0x"); ok {
		value, err = strconv.ParseUint(hex, 16, 32)
	} else {
		value, err = strconv.ParseUint(arg, 10, 32)
	}
	if err != nil {
		return "", fmt.Errorf("invalid argument of %q: %w", instruction, err)
	}

	ipr := IPRName(uint16(value))
	reg := regNames[(value>>16)&0x1F]

	switch mnemonic {
	case "pal19":
		return fmt.Sprintf("HW_MFPR: read %v to %v", ipr, reg), nil
	case "pal1b":
		return "HW_LD", nil
	case "pal1d":
		return fmt.Sprintf("HW_MTPR: write %v to %v", reg, ipr), nil
	case "pal1e":
		return "HW_REI", nil
	case "pal1f":
		return "HW_ST", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownInstruction, mnemonic)
	}
}

// Annotate copies the objdump listing r to w, appending the decoded form of
// every PAL instruction as a comment. It returns the number of annotated lines.
func (d *Decoder) Annotate(r io.Reader, w io.Writer) (int, error) {
	bw := bufio.NewWriter(w)
	scanner := bufio.NewScanner(r)

	var n int
	for scanner.Scan() {
		line := scanner.Text()

		x := strings.Index(line, palMarker)
		if x < 0 {
			if _, err := fmt.Fprintln(bw, line); err != nil {
				return n, err
			}
			continue
		}

		instruction := line[x:]
		d.logger.Debug("decoding %q", instruction)
		decoded, err := DecodeInstruction(instruction)
		if err != nil {
			return n, err
		}
		if _, err := fmt.Fprintf(bw, "%v ; %v\n", line, decoded); err != nil {
			return n, err
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return n, err
	}

	return n, bw.Flush()
}
