package ofdm

import "math"

// Stats is a snapshot of the demodulator's estimates.
type Stats struct {
	Sync           SyncState
	SNR3kDB        float64 // SNR in a 3 kHz noise bandwidth
	EsNoDB         float64
	ClockOffsetPPM float64
	TimingMx       float64
	TimingEst      int
	SamplePoint    int
	FoffHz         float64
	CoarseFoffHz   float64
	UWErrors       int
	Frames         int
	Nin            int
	PhaseBandwidth PhaseBandwidth
	MeanAmp        float64
	SyncGoodFrames int
	SyncBadFrames  int
}

// Stats returns the current estimates. It has no side effects.
func (m *Modem) Stats() Stats {
	s := Stats{
		Sync:           m.sync.State,
		TimingMx:       m.timingMx,
		TimingEst:      m.timingEst,
		SamplePoint:    m.samplePoint,
		FoffHz:         m.foffEstHz,
		CoarseFoffHz:   m.coarseFoffEstHz,
		UWErrors:       m.uwErrors,
		Frames:         m.frames,
		Nin:            m.nin,
		PhaseBandwidth: m.phaseBW,
		MeanAmp:        m.meanAmp,
		SyncGoodFrames: m.sync.Good,
		SyncBadFrames:  m.sync.Bad,
	}

	esno := m.sigVar / (m.noiseVar + 1e-12)
	if esno < 1e-12 {
		esno = 1e-12
	}
	s.EsNoDB = 10 * math.Log10(esno)
	s.SNR3kDB = s.EsNoDB + 10*math.Log10(float64(m.cfg.Nc)*m.cfg.Rs/3000)

	if m.frames > 0 {
		s.ClockOffsetPPM = 1e6 * float64(m.clockCount) / float64(m.frames*m.spf)
	}
	return s
}
