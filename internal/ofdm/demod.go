package ofdm

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/stat"
)

// DemodResult is one demodulated frame.
type DemodResult struct {
	Symbols  []complex128 // Nc*(Ns-1) phase corrected data symbols
	Amps     []float64    // channel amplitude estimate per symbol
	Bits     []byte       // hard decisions, BitsPerFrame unpacked bits
	UWErrors int          // unique word bit errors
	MeanAmp  float64      // smoothed mean symbol amplitude
	Nin      int          // samples required by the next call
}

// Demodulate shifts Nin samples into the receive buffer and demodulates
// the frame at the demodulation position.
func (m *Modem) Demodulate(rx []complex128) (DemodResult, error) {
	if m.closed {
		return DemodResult{}, ErrClosed
	}
	if len(rx) != m.nin {
		return DemodResult{}, fmt.Errorf("%w: got %d samples, want %d", ErrInputSize, len(rx), m.nin)
	}
	m.shiftIn(rx)
	x := m.derotate()
	f := m.framePos()
	nc := m.cfg.Nc

	// Fine timing around the current estimate
	if m.timingEn {
		w := m.cfg.FtWindowWidth
		tr := m.estTiming(x, f+m.timingEst-w/2, w)
		m.timingMx = tr.mx
		m.timingValid = tr.valid
		if tr.present {
			m.timingEst += tr.offset - w/2
			lim := m.symLen / 2
			m.timingEst = max(-lim, min(lim, m.timingEst))
		}
		m.samplePoint = max(m.timingEst+m.ncp/4, m.samplePoint)
		m.samplePoint = min(m.timingEst+m.ncp, m.samplePoint)
	}

	// DFT of every row we look at: pilots around the frame plus data rows
	rel := make([]int, len(m.rowSyms))
	rel[rowPrevPilot] = -m.spf
	rel[rowThisPilot] = 0
	for r := 1; r < m.cfg.Ns; r++ {
		rel[rowFirstData+r-1] = r * m.symLen
	}
	rel[m.rowNextPilot()] = m.spf
	rel[m.rowFuturePilot()] = 2 * m.spf
	for i, off := range rel {
		st := f + off + m.samplePoint
		m.dft.forward(m.rowSyms[i], m.rxBins, x[st:st+m.m])
	}

	// Fine frequency update, used from the next frame on
	if m.foffEstEn {
		m.foffEstHz += m.cfg.FoffEstGain * m.fineFreqError() * m.cfg.Fs / (2 * math.Pi * float64(m.spf))
	}

	est := m.estimateChannel()
	res := DemodResult{
		Symbols: make([]complex128, m.cfg.SymsPerFrame()),
		Amps:    make([]float64, m.cfg.SymsPerFrame()),
	}
	for r := 0; r < m.cfg.Ns-1; r++ {
		row := m.rowSyms[rowFirstData+r]
		prev := m.rowSyms[rowFirstData+r-1]
		for c := 1; c <= nc; c++ {
			s := row[c]
			switch {
			case m.dpsk:
				if a := cmplx.Abs(prev[c]); a > 0 {
					s *= cmplx.Conj(prev[c]) / complex(a, 0)
				}
			case m.phaseEstEn:
				s *= est.rot[c]
			}
			i := r*nc + c - 1
			res.Symbols[i] = s
			res.Amps[i] = est.amp[c]
		}
	}
	res.Bits = DemapSymbols(res.Symbols)
	res.UWErrors = m.layout.uwErrors(res.Bits)
	m.uwErrors = res.UWErrors

	m.updateSNR(res.Symbols, res.Amps)
	res.MeanAmp = m.meanAmp

	// Track clock offset one sample at a time
	m.nin = m.spf
	if m.timingEn {
		switch {
		case m.timingEst > 1:
			m.nin = m.spf + 1
			m.timingEst--
			m.samplePoint--
		case m.timingEst < -1:
			m.nin = m.spf - 1
			m.timingEst++
			m.samplePoint++
		}
	}
	m.clockCount += m.nin - m.spf
	m.frames++
	res.Nin = m.nin
	return res, nil
}

// updateSNR smooths the signal and noise variance of the corrected
// symbols against their nearest constellation points.
func (m *Modem) updateSNR(syms []complex128, amps []float64) {
	frameAmp := stat.Mean(amps, nil)

	sig := make([]float64, len(syms))
	noise := make([]float64, len(syms))
	for i, s := range syms {
		b0, b1 := QPSKDemod(s)
		ideal := QPSKMod(b0, b1) * complex(amps[i], 0)
		d := s - ideal
		sig[i] = real(s)*real(s) + imag(s)*imag(s)
		noise[i] = real(d)*real(d) + imag(d)*imag(d)
	}
	sv, nv := stat.Mean(sig, nil), stat.Mean(noise, nil)

	if m.frames == 0 {
		m.sigVar, m.noiseVar, m.meanAmp = sv, nv, frameAmp
		return
	}
	m.sigVar = 0.9*m.sigVar + 0.1*sv
	m.noiseVar = 0.9*m.noiseVar + 0.1*nv
	m.meanAmp = 0.9*m.meanAmp + 0.1*frameAmp
}
