package conv

const hexd = "0123456789ABCDEF"

// Hex writes n as upper-case hex without 0x, zero-padded to digits.
// Higher nibbles beyond digits are dropped. Returns the used tail of buf.
func Hex(buf []byte, n uint32, digits int) []byte {
	if digits <= 0 || len(buf) < digits {
		return buf[:0]
	}
	i := len(buf)
	for j := 0; j < digits; j++ {
		i--
		buf[i] = hexd[n&0xF]
		n >>= 4
	}
	return buf[i:]
}

// U32Hex writes 8-digit uppercase hex without 0x, zero-padded.
func U32Hex(buf []byte, n uint32) []byte { return Hex(buf, n, 8) }
