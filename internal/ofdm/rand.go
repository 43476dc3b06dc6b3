package ofdm

// Rand fills r with the modem's deterministic pseudo random sequence,
// a 15-bit linear congruential generator seeded with 1. Test frames on
// both ends of a link are generated from it, so it must never change.
func Rand(r []uint16) {
	seed := uint32(1)
	for i := range r {
		seed = (1103515245*seed + 12345) % 32768
		r[i] = uint16(seed)
	}
}

// GeneratePayloadBits returns n known test payload bits.
func GeneratePayloadBits(n int) []byte {
	r := make([]uint16, n)
	Rand(r)
	bits := make([]byte, n)
	for i, v := range r {
		if v > 16384 {
			bits[i] = 1
		}
	}
	return bits
}
