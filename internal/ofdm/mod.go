package ofdm

import (
	"fmt"
	"math"
)

// ModulateBits turns exactly BitsPerFrame unpacked bits into exactly
// SamplesPerFrame complex baseband samples.
func (m *Modem) ModulateBits(bits []byte) ([]complex128, error) {
	if m.closed {
		return nil, ErrClosed
	}
	if len(bits) != m.cfg.BitsPerFrame() {
		return nil, fmt.Errorf("%w: modulate got %d bits, want %d", ErrBitCount, len(bits), m.cfg.BitsPerFrame())
	}
	return m.modulateSymbols(MapBits(bits)), nil
}

// ModulateSymbols modulates SymsPerFrame already mapped frame symbols,
// unique word and text included.
func (m *Modem) ModulateSymbols(syms []complex128) ([]complex128, error) {
	if m.closed {
		return nil, ErrClosed
	}
	if len(syms) != m.cfg.SymsPerFrame() {
		return nil, fmt.Errorf("%w: modulate got %d symbols, want %d", ErrBitCount, len(syms), m.cfg.SymsPerFrame())
	}
	return m.modulateSymbols(syms), nil
}

// Modulate assembles a frame from payload and text bits and modulates it.
// txt may be nil, in which case the text bits are zero.
func (m *Modem) Modulate(payload, txt []byte) ([]complex128, error) {
	if m.closed {
		return nil, ErrClosed
	}
	bits, err := m.AssembleFrame(payload, txt)
	if err != nil {
		return nil, err
	}
	return m.modulateSymbols(MapBits(bits)), nil
}

func (m *Modem) modulateSymbols(syms []complex128) []complex128 {
	nc := m.cfg.Nc

	// Row 0 is the pilot row, data rows leave the edge carriers empty
	copy(m.txSyms[0], m.pilots)
	for r := 1; r < m.cfg.Ns; r++ {
		row := m.txSyms[r]
		row[0], row[nc+1] = 0, 0
		copy(row[1:nc+1], syms[(r-1)*nc:r*nc])
	}

	if m.dpsk {
		for r := 1; r < m.cfg.Ns; r++ {
			for c := 1; c <= nc; c++ {
				m.txSyms[r][c] *= m.txSyms[r-1][c]
			}
		}
	}

	out := make([]complex128, m.spf)
	for r, row := range m.txSyms {
		dst := out[r*m.symLen : (r+1)*m.symLen]
		m.dft.inverse(m.txRow, m.txBins, row)

		// Add cyclic prefix
		copy(dst, m.txRow[m.m-m.ncp:])
		copy(dst[m.ncp:], m.txRow)
	}

	if m.bpfOn {
		clip(out, Clip/AmpScale)
		m.txBPF.filter(out)
	}
	return out
}

// ToShorts converts modulator output to 16 bit samples: the real part is
// scaled and saturated.
func ToShorts(samples []complex128, scale float64) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := math.Round(real(s) * scale)
		switch {
		case v > math.MaxInt16:
			v = math.MaxInt16
		case v < math.MinInt16:
			v = math.MinInt16
		}
		out[i] = int16(v)
	}
	return out
}

// FromShorts converts 16 bit samples to the demodulator's complex input
// by dividing by scale.
func FromShorts(samples []int16, scale float64) []complex128 {
	out := make([]complex128, len(samples))
	inv := 1 / scale
	for i, s := range samples {
		out[i] = complex(float64(s)*inv, 0)
	}
	return out
}
