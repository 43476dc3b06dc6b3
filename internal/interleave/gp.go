// Package interleave spreads the symbols of a codeword across a block with
// a golden-prime permutation: symbol i moves to (b*i) mod n, where b is the
// first prime above n/phi that does not divide n.
package interleave

import "math"

const phi = 1.618033988749895

// Prime returns the permutation step for a block of n symbols.
func Prime(n int) int {
	if n < 2 {
		return 1
	}
	b := int(math.Ceil(float64(n) / phi))
	for ; ; b++ {
		if isPrime(b) && n%b != 0 {
			return b
		}
	}
}

func isPrime(p int) bool {
	if p < 2 {
		return false
	}
	for d := 2; d*d <= p; d++ {
		if p%d == 0 {
			return false
		}
	}
	return true
}

// Interleave returns src permuted so that src[i] lands at (b*i) mod n.
func Interleave[T any](src []T) []T {
	n := len(src)
	b := Prime(n)
	dst := make([]T, n)
	for i, v := range src {
		dst[(b*i)%n] = v
	}
	return dst
}

// Deinterleave undoes Interleave.
func Deinterleave[T any](src []T) []T {
	n := len(src)
	b := Prime(n)
	dst := make([]T, n)
	for i := range dst {
		dst[i] = src[(b*i)%n]
	}
	return dst
}
