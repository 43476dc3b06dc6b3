package ofdm

import (
	"math"
	"math/cmplx"
	"sync"
)

// Transmit band-pass filter: a Hamming windowed-sinc low-pass prototype,
// shifted up to the TX centre frequency. The prototype is computed once
// per process and only ever read afterwards.
const (
	bpfTaps   = 100
	bpfCutoff = 700.0 // Hz, half bandwidth of the prototype
	bpfFs     = 8000.0
)

var (
	bpfOnce      sync.Once
	bpfPrototype []float64
)

func bpfCoeffs() []float64 {
	bpfOnce.Do(func() {
		h := make([]float64, bpfTaps)
		fc := bpfCutoff / bpfFs
		mid := float64(bpfTaps-1) / 2
		var sum float64
		for n := range h {
			x := float64(n) - mid
			v := 2 * fc
			if x != 0 {
				v = math.Sin(2*math.Pi*fc*x) / (math.Pi * x)
			}
			v *= 0.54 - 0.46*math.Cos(2*math.Pi*float64(n)/float64(bpfTaps-1))
			h[n] = v
			sum += v
		}
		// unity gain at the passband centre
		for n := range h {
			h[n] /= sum
		}
		bpfPrototype = h
	})
	return bpfPrototype
}

// bandPass is a complex FIR whose history persists across frames.
type bandPass struct {
	taps []complex128
	hist []complex128 // circular delay line
	pos  int
}

func newBandPass(centre, fs float64) *bandPass {
	proto := bpfCoeffs()
	f := &bandPass{
		taps: make([]complex128, len(proto)),
		hist: make([]complex128, len(proto)),
	}
	w := 2 * math.Pi * centre / fs
	for n, h := range proto {
		f.taps[n] = complex(h, 0) * cmplx.Rect(1, w*float64(n))
	}
	return f
}

// filter runs the samples through the filter in place.
func (f *bandPass) filter(x []complex128) {
	n := len(f.taps)
	for i, in := range x {
		f.hist[f.pos] = in
		var acc complex128
		idx := f.pos
		for k := 0; k < n; k++ {
			acc += f.taps[k] * f.hist[idx]
			idx--
			if idx < 0 {
				idx = n - 1
			}
		}
		x[i] = acc
		f.pos = (f.pos + 1) % n
	}
}

// clip limits the magnitude of each sample to level, keeping its phase.
func clip(x []complex128, level float64) {
	for i, s := range x {
		if a := cmplx.Abs(s); a > level {
			x[i] = s * complex(level/a, 0)
		}
	}
}
