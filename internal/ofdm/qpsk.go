package ofdm

import "math"

// qpskPoints holds the Gray-coded QPSK constellation with unit energy,
// indexed by the 2-bit symbol value (first bit is the MSB).
var qpskPoints = [4]complex128{
	complex(1/math.Sqrt2, 1/math.Sqrt2),   // 00
	complex(-1/math.Sqrt2, 1/math.Sqrt2),  // 01
	complex(1/math.Sqrt2, -1/math.Sqrt2),  // 10
	complex(-1/math.Sqrt2, -1/math.Sqrt2), // 11
}

// QPSKPoints returns the constellation used by the modem, indexed by
// symbol value.
func QPSKPoints() [4]complex128 { return qpskPoints }

// QPSKMod maps two bits to a constellation point.
func QPSKMod(b0, b1 byte) complex128 {
	return qpskPoints[int(b0&1)<<1|int(b1&1)]
}

// QPSKDemod makes a hard decision on a received symbol.
func QPSKDemod(s complex128) (b0, b1 byte) {
	if imag(s) < 0 {
		b0 = 1
	}
	if real(s) < 0 {
		b1 = 1
	}
	return b0, b1
}

// MapBits maps unpacked bits, two per symbol, to constellation points.
func MapBits(bits []byte) []complex128 {
	syms := make([]complex128, len(bits)/2)
	for i := range syms {
		syms[i] = QPSKMod(bits[2*i], bits[2*i+1])
	}
	return syms
}

// DemapSymbols makes hard decisions on a slice of symbols.
func DemapSymbols(syms []complex128) []byte {
	bits := make([]byte, 2*len(syms))
	for i, s := range syms {
		bits[2*i], bits[2*i+1] = QPSKDemod(s)
	}
	return bits
}
