package ads7924

import (
	"encoding/binary"

	"ads7924-go/x/conv"
)

// Format selects how a channel value is delivered to readers.
type Format uint8

const (
	FormatBinary  Format = iota // 2 bytes, host byte order
	FormatDecimal               // ASCII decimal, NUL terminated
	FormatHex                   // 3 upper-case hex digits, NUL terminated
)

// MaxFormatted is the longest representation AppendFormat produces.
const MaxFormatted = 5 // "4095\x00"

func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "OUT_BIN"
	case FormatDecimal:
		return "OUT_DEC"
	case FormatHex:
		return "OUT_HEX"
	default:
		return "unknown"
	}
}

// ParseFormat accepts "bin", "dec" or "hex".
func ParseFormat(s string) (Format, bool) {
	switch s {
	case "bin":
		return FormatBinary, true
	case "dec":
		return FormatDecimal, true
	case "hex":
		return FormatHex, true
	}
	return 0, false
}

// AppendFormat appends v rendered in format f to dst.
func AppendFormat(dst []byte, v uint16, f Format) []byte {
	var tmp [MaxFormatted]byte
	switch f {
	case FormatDecimal:
		dst = append(dst, conv.Utoa(tmp[:], uint64(v))...)
		return append(dst, 0)
	case FormatHex:
		dst = append(dst, conv.Hex(tmp[:], uint32(v), 3)...)
		return append(dst, 0)
	default:
		return binary.NativeEndian.AppendUint16(dst, v)
	}
}
