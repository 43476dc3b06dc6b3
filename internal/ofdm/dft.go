package ofdm

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// dft transforms single OFDM symbols between the carrier and time domains.
// The symbol length is generally not a power of two, so the work is done
// by gonum's mixed-radix complex FFT. A dft is not safe for concurrent use.
type dft struct {
	fft  *fourier.CmplxFFT
	m    int
	freq []complex128
	time []complex128
}

func newDFT(m int) *dft {
	return &dft{
		fft:  fourier.NewCmplxFFT(m),
		m:    m,
		freq: make([]complex128, m),
		time: make([]complex128, m),
	}
}

// inverse places carrier values at the given bins and returns the
// time-domain symbol scaled by 1/M into dst.
func (d *dft) inverse(dst []complex128, bins []int, carriers []complex128) {
	clear(d.freq)
	for i, b := range bins {
		d.freq[b] = carriers[i]
	}
	d.fft.Sequence(d.time, d.freq)

	scale := complex(1/float64(d.m), 0)
	for i := range d.time {
		dst[i] = d.time[i] * scale
	}
}

// forward transforms M time samples and returns the values at the given
// bins into dst. No scaling is applied, so a unit carrier sent through
// inverse comes back with unit magnitude.
func (d *dft) forward(dst []complex128, bins []int, samples []complex128) {
	copy(d.time, samples[:d.m])
	d.fft.Coefficients(d.freq, d.time)
	for i, b := range bins {
		dst[i] = d.freq[b]
	}
}
