package ofdm

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

// ErrInputSize is returned when a receive call is not given exactly Nin
// samples.
var ErrInputSize = errors.New("wrong input sample count")

// timingResult is the outcome of one pilot correlation search.
type timingResult struct {
	offset  int     // best candidate relative to the search start
	mx      float64 // normalized metric of the best candidate
	valid   bool    // metric above threshold
	present bool    // window contains signal energy
}

// estTiming correlates the buffer against the pilot row at each of n
// candidate offsets starting at start. A candidate scores the pilot at
// its offset plus the pilot one frame later. The metric is normalized so
// that a clean frame scores close to 1.
func (m *Modem) estTiming(x []complex128, start, n int) timingResult {
	ps := m.pilotSamples
	np := len(ps)

	winLen := n + m.spf + np
	var acc float64
	for _, s := range x[start : start+winLen] {
		acc += real(s)*real(s) + imag(s)*imag(s)
	}
	if acc < 1e-12 {
		return timingResult{}
	}
	avLevel := 2 * math.Sqrt(m.pilotEnergy*acc/float64(winLen)*float64(np))

	var best float64
	res := timingResult{present: true}
	for i := 0; i < n; i++ {
		st := x[start+i:]
		en := x[start+i+m.spf:]
		var cs, ce complex128
		for k, p := range ps {
			pc := cmplx.Conj(p)
			cs += st[k] * pc
			ce += en[k] * pc
		}
		if v := cmplx.Abs(cs) + cmplx.Abs(ce); v > best {
			best = v
			res.offset = i
		}
	}
	res.mx = best / avLevel
	res.valid = res.mx > m.cfg.TimingMxThresh
	return res
}

// estFreqOffset estimates the coarse frequency offset from the phase
// advance between the two halves of the pilot rows at t and t+spf.
func (m *Modem) estFreqOffset(x []complex128, t int) float64 {
	ps := m.pilotSamples
	half := len(ps) / 2

	var p1, p2, p3, p4 complex128
	for k := 0; k < half; k++ {
		p1 += x[t+k] * cmplx.Conj(ps[k])
		p2 += x[t+half+k] * cmplx.Conj(ps[half+k])
		p3 += x[t+m.spf+k] * cmplx.Conj(ps[k])
		p4 += x[t+m.spf+half+k] * cmplx.Conj(ps[half+k])
	}
	metric := cmplx.Conj(p1)*p2 + cmplx.Conj(p3)*p4
	return cmplx.Phase(metric) * m.cfg.Fs / (2 * math.Pi * float64(half))
}

// SearchResult reports a coarse timing and frequency acquisition attempt.
type SearchResult struct {
	Offset   int     // candidate frame start, samples into the search window
	Valid    bool    // the candidate passed the timing threshold
	TimingMx float64 // normalized timing metric
	FoffHz   float64 // coarse frequency offset, valid candidates only
	Nin      int     // samples required by the next call
}

// SyncSearch shifts Nin samples into the receive buffer and searches one
// frame's worth of offsets for a pilot pair. A valid candidate sets the
// next Nin so the candidate frame lands on the demodulation position.
func (m *Modem) SyncSearch(rx []complex128) (SearchResult, error) {
	if m.closed {
		return SearchResult{}, ErrClosed
	}
	if len(rx) != m.nin {
		return SearchResult{}, fmt.Errorf("%w: got %d samples, want %d", ErrInputSize, len(rx), m.nin)
	}
	m.shiftIn(rx)

	f := m.framePos()
	tr := m.estTiming(m.rxbuf, f, m.spf)
	m.timingMx = tr.mx
	m.timingValid = tr.valid

	res := SearchResult{Offset: tr.offset, Valid: tr.valid, TimingMx: tr.mx}
	m.nin = m.spf
	if tr.valid {
		res.FoffHz = m.estFreqOffset(m.rxbuf, f+tr.offset)
		m.coarseFoffEstHz = res.FoffHz
		if m.foffEstEn {
			m.foffEstHz = res.FoffHz
		}
		m.nin = m.spf + tr.offset
		m.timingEst = 0
		m.samplePoint = m.ncp
	}
	res.Nin = m.nin
	return res, nil
}

// framePos is where the pilot row of the frame under demodulation starts.
func (m *Modem) framePos() int { return m.symLen + m.spf }

func (m *Modem) shiftIn(rx []complex128) {
	n := len(rx)
	copy(m.rxbuf, m.rxbuf[n:])
	copy(m.rxbuf[len(m.rxbuf)-n:], rx)
}

// derotate removes the estimated frequency offset from the receive buffer
// into the work buffer.
func (m *Modem) derotate() []complex128 {
	if m.foffEstHz == 0 {
		copy(m.work, m.rxbuf)
		return m.work
	}
	w := -2 * math.Pi * m.foffEstHz / m.cfg.Fs
	for i, s := range m.rxbuf {
		m.work[i] = s * cmplx.Rect(1, w*float64(i))
	}
	return m.work
}
