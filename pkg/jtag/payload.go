package jtag

// Payloads are shifted least significant bit first within each byte and least
// significant byte first across the slice, which is also the order register
// contents come back in.

// Uint converts v into a payload of ceil(bits/8) bytes.
func Uint(v uint64, bits int) []byte {
	buf := make([]byte, (bits+7)/8)
	for i := range buf {
		buf[i] = byte(v)
		v >>= 8
	}
	return buf
}

// Bit returns bit i of buf. Bits past the end of buf read as zero, which is
// how short payloads are padded.
func Bit(buf []byte, i int) bool {
	if i/8 >= len(buf) {
		return false
	}
	return buf[i/8]>>(uint(i)%8)&1 == 1
}

// SetBit sets bit i of buf.
func SetBit(buf []byte, i int) {
	buf[i/8] |= 1 << (uint(i) % 8)
}

// ToUint packs up to the first 8 bytes of buf into an integer.
func ToUint(buf []byte) uint64 {
	var v uint64
	for i := len(buf) - 1; i >= 0; i-- {
		if i >= 8 {
			continue
		}
		v = v<<8 | uint64(buf[i])
	}
	return v
}
