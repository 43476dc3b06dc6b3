// Package codecio reads and writes the file formats used by the tools:
// MSB-first packed bits, IEEE-754 doubles for LLRs and soft decisions,
// and raw little-endian int16 samples.
package codecio

// Pack packs unpacked bits into bytes, first bit in the MSB. A partial
// last byte is zero filled.
func Pack(bits []byte) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b&1 != 0 {
			out[i/8] |= 0x80 >> (i % 8)
		}
	}
	return out
}

// Unpack returns the first n bits of packed, MSB first.
func Unpack(packed []byte, n int) []byte {
	bits := make([]byte, n)
	for i := range bits {
		if i/8 < len(packed) {
			bits[i] = packed[i/8] >> (7 - i%8) & 1
		}
	}
	return bits
}
