package conv

// Bits8 writes v as eight '0'/'1' characters, most significant bit first.
func Bits8(buf []byte, v uint8) []byte {
	if len(buf) < 8 {
		return buf[:0]
	}
	i := len(buf) - 8
	for j := 0; j < 8; j++ {
		if v&(0x80>>j) != 0 {
			buf[i+j] = '1'
		} else {
			buf[i+j] = '0'
		}
	}
	return buf[i:]
}
