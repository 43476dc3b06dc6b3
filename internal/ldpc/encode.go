package ldpc

import "fmt"

// Encode computes the M parity bits for K data bits. Parity bit i closes
// check i given parity bit i-1, so the parity part is a running XOR
// over the data part of each check.
func (c *Code) Encode(data []byte) ([]byte, error) {
	if len(data) != c.K {
		return nil, fmt.Errorf("%w: got %d data bits, want %d", ErrDataLength, len(data), c.K)
	}
	parity := make([]byte, c.M)
	var acc byte
	for i := 0; i < c.M; i++ {
		for _, v := range c.checks.of(i) {
			if v < c.K {
				acc ^= data[v] & 1
			}
		}
		parity[i] = acc
	}
	return parity, nil
}

// Codeword returns the data bits followed by their parity bits.
func (c *Code) Codeword(data []byte) ([]byte, error) {
	parity, err := c.Encode(data)
	if err != nil {
		return nil, err
	}
	cw := make([]byte, 0, c.N)
	cw = append(cw, data...)
	return append(cw, parity...), nil
}

// KnownBitLLR is the LLR given to data bits the receiver knows are 1.
const KnownBitLLR = -10.0

// Framing shortens a code: only the first DataBits data bits carry
// payload, the rest are fixed to 1 and never transmitted.
type Framing struct {
	Code     *Code
	DataBits int
}

// WithDataBits returns a framing that uses n of the code's K data bits.
func (c *Code) WithDataBits(n int) (Framing, error) {
	if n <= 0 || n > c.K {
		return Framing{}, fmt.Errorf("%w: %d data bits for %s", ErrDataLength, n, c.Name)
	}
	return Framing{Code: c, DataBits: n}, nil
}

// CodedBits returns the number of transmitted bits per codeword.
func (f Framing) CodedBits() int { return f.DataBits + f.Code.M }

// Unused returns the number of fixed data bits.
func (f Framing) Unused() int { return f.Code.K - f.DataBits }

// Encode returns the transmitted bits for DataBits payload bits: the
// payload followed by the parity.
func (f Framing) Encode(data []byte) ([]byte, error) {
	if len(data) != f.DataBits {
		return nil, fmt.Errorf("%w: got %d data bits, want %d", ErrDataLength, len(data), f.DataBits)
	}
	full := make([]byte, f.Code.K)
	copy(full, data)
	for i := f.DataBits; i < f.Code.K; i++ {
		full[i] = 1
	}
	parity, err := f.Code.Encode(full)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, f.CodedBits())
	out = append(out, data...)
	return append(out, parity...), nil
}

// Expand inserts the known LLRs of the fixed data bits into CodedBits
// received LLRs, giving N decoder inputs.
func (f Framing) Expand(llr []float64) ([]float64, error) {
	if len(llr) != f.CodedBits() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrLLRLength, len(llr), f.CodedBits())
	}
	full := make([]float64, f.Code.N)
	copy(full, llr[:f.DataBits])
	for i := f.DataBits; i < f.Code.K; i++ {
		full[i] = KnownBitLLR
	}
	copy(full[f.Code.K:], llr[f.DataBits:])
	return full, nil
}

// Decode decodes CodedBits received LLRs. The result's Bits hold the full
// N bit codeword; the payload is Bits[:DataBits].
func (f Framing) Decode(llr []float64, maxIter int) (DecodeResult, error) {
	full, err := f.Expand(llr)
	if err != nil {
		return DecodeResult{}, err
	}
	return f.Code.Decode(full, maxIter)
}
