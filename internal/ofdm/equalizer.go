package ofdm

import "math/cmplx"

// Indexes into Modem.rowSyms.
const (
	rowPrevPilot = 0
	rowThisPilot = 1
	rowFirstData = 2
)

func (m *Modem) rowNextPilot() int   { return m.cfg.Ns + 1 }
func (m *Modem) rowFuturePilot() int { return m.cfg.Ns + 2 }

// channelEstimate holds the per-carrier pilot based channel estimate.
type channelEstimate struct {
	rot []complex128 // unit phasor removing each carrier's phase
	amp []float64
}

// estimateChannel averages pilots over the carrier and its two neighbours.
// HighBW uses this and the next pilot row; LowBW adds the previous and the
// future pilot rows.
func (m *Modem) estimateChannel() channelEstimate {
	nc := m.cfg.Nc
	rows := []int{rowThisPilot, m.rowNextPilot()}
	if m.phaseBW == LowBW {
		rows = append(rows, rowPrevPilot, m.rowFuturePilot())
	}

	est := channelEstimate{
		rot: make([]complex128, nc+2),
		amp: make([]float64, nc+2),
	}
	for c := 1; c <= nc; c++ {
		var sum complex128
		terms := 0
		for _, r := range rows {
			for k := c - 1; k <= c+1; k++ {
				// pilots are real, multiplying removes the BPSK sign
				sum += m.rowSyms[r][k] * m.pilots[k]
				terms++
			}
		}

		est.amp[c] = cmplx.Abs(sum) / float64(terms)
		est.rot[c] = 1
		if a := cmplx.Abs(sum); a > 0 {
			est.rot[c] = cmplx.Conj(sum) / complex(a, 0)
		}
	}
	return est
}

// fineFreqError returns the phase advance, in radians, of the pilots across
// one frame.
func (m *Modem) fineFreqError() float64 {
	this := m.rowSyms[rowThisPilot]
	next := m.rowSyms[m.rowNextPilot()]
	var sum complex128
	for c := range this {
		sum += cmplx.Conj(this[c]) * next[c]
	}
	return cmplx.Phase(sum)
}
