// Package ofdm implements the 700D pilot-aided QPSK OFDM modem.
package ofdm

import (
	"errors"

	"github.com/charmbracelet/log"
)

// ErrClosed is returned by operations on a closed Modem.
var ErrClosed = errors.New("modem closed")

// Modem holds the complete state of one modulator/demodulator pair.
// A Modem is not safe for concurrent use; run one per goroutine.
type Modem struct {
	cfg    Config
	log    *log.Logger
	layout *frameLayout
	rules  SyncRules

	m, ncp, symLen, spf int
	txBins, rxBins      []int
	dft                 *dft
	pilots              []complex128 // BPSK pilot per carrier
	pilotSamples        []complex128 // time-domain pilot row with cyclic prefix
	pilotEnergy         float64

	// receive buffer, oldest sample first
	rxbuf []complex128
	work  []complex128 // de-rotated copy of rxbuf
	nin   int

	// transmit options
	dpsk   bool
	txBPF  *bandPass
	bpfOn  bool
	txRow  []complex128
	txSyms [][]complex128

	// estimator enables
	timingEn   bool
	foffEstEn  bool
	phaseEstEn bool

	// running estimates
	timingEst       int // pilot row start relative to the frame position
	samplePoint     int // DFT window start relative to the frame position
	timingValid     bool
	timingMx        float64
	coarseFoffEstHz float64
	foffEstHz       float64
	phaseBW         PhaseBandwidth
	phaseBWMode     PhaseBandwidthMode
	sigVar          float64
	noiseVar        float64
	meanAmp         float64
	rowSyms         [][]complex128 // per-row carrier values of the last demod

	// sync machinery
	policy     SyncPolicy
	sync       SyncStatus
	uwErrors   int
	frames     int // frames demodulated
	clockCount int // accumulated nin-spf
	closed     bool
}

// New creates a modem from cfg. It fails with a wrapped ErrConfig when the
// configuration is inconsistent.
func New(cfg Config) (*Modem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	layout, err := newFrameLayout(cfg)
	if err != nil {
		return nil, err
	}

	m := &Modem{
		cfg:         cfg,
		log:         log.Default(),
		layout:      layout,
		rules:       DefaultSyncRules(),
		m:           cfg.M(),
		ncp:         cfg.Ncp(),
		symLen:      cfg.SymbolLen(),
		spf:         cfg.SamplesPerFrame(),
		txBins:      cfg.carrierBins(cfg.TxCentre),
		rxBins:      cfg.carrierBins(cfg.RxCentre),
		dft:         newDFT(cfg.M()),
		pilots:      pilotCarriers(cfg.Nc + 2),
		rxbuf:       make([]complex128, cfg.RxBufLen()),
		work:        make([]complex128, cfg.RxBufLen()),
		nin:         cfg.SamplesPerFrame(),
		timingEn:    true,
		foffEstEn:   true,
		phaseEstEn:  true,
		phaseBW:     HighBW,
		phaseBWMode: PhaseBWAuto,
		policy:      SyncAuto,
		samplePoint: cfg.Ncp(),
		txRow:       make([]complex128, cfg.M()),
		meanAmp:     1,
	}

	m.pilotSamples = pilotTemplate(m.dft, m.rxBins, m.pilots, m.ncp)
	for _, s := range m.pilotSamples {
		m.pilotEnergy += real(s)*real(s) + imag(s)*imag(s)
	}

	m.txSyms = make([][]complex128, cfg.Ns)
	for r := range m.txSyms {
		m.txSyms[r] = make([]complex128, cfg.Nc+2)
	}
	m.rowSyms = make([][]complex128, cfg.Ns+3)
	for r := range m.rowSyms {
		m.rowSyms[r] = make([]complex128, cfg.Nc+2)
	}
	return m, nil
}

// Close releases the modem's buffers. Further calls return ErrClosed.
func (m *Modem) Close() {
	m.rxbuf = nil
	m.work = nil
	m.txSyms = nil
	m.rowSyms = nil
	m.closed = true
}

// Config returns the configuration the modem was created with.
func (m *Modem) Config() Config { return m.cfg }

// Nin returns how many samples the next Demodulate, SyncSearch or Receive
// call must be given.
func (m *Modem) Nin() int { return m.nin }

// SyncState returns the current frame sync state.
func (m *Modem) SyncState() SyncState { return m.sync.State }

// SetLogger directs state transition debug logging to l.
func (m *Modem) SetLogger(l *log.Logger) {
	if l == nil {
		l = log.Default()
	}
	m.log = l
}

// SetSyncRules replaces the sync state machine thresholds.
func (m *Modem) SetSyncRules(r SyncRules) { m.rules = r }

// SetTimingEnable turns fine timing estimation on or off.
func (m *Modem) SetTimingEnable(on bool) { m.timingEn = on }

// SetFoffEstEnable turns frequency offset estimation on or off.
func (m *Modem) SetFoffEstEnable(on bool) { m.foffEstEn = on }

// SetPhaseEstEnable turns per-carrier phase correction on or off. When off,
// symbols pass through raw; amplitudes are still estimated.
func (m *Modem) SetPhaseEstEnable(on bool) { m.phaseEstEn = on }

// SetFoffEstHz overrides the current frequency offset estimate.
func (m *Modem) SetFoffEstHz(hz float64) { m.foffEstHz = hz }

// SetDPSK selects differential modulation on both directions.
func (m *Modem) SetDPSK(on bool) { m.dpsk = on }

// SetTxBPF enables the transmit clipper and band-pass filter.
func (m *Modem) SetTxBPF(on bool) {
	m.bpfOn = on
	if on && m.txBPF == nil {
		m.txBPF = newBandPass(m.cfg.TxCentre, m.cfg.Fs)
	}
}

// SetPhaseBandwidth sets the phase estimator bandwidth.
func (m *Modem) SetPhaseBandwidth(bw PhaseBandwidth) { m.phaseBW = bw }

// SetPhaseBandwidthMode controls whether sync transitions may change the
// phase estimator bandwidth.
func (m *Modem) SetPhaseBandwidthMode(mode PhaseBandwidthMode) { m.phaseBWMode = mode }

// PhaseBandwidth returns the phase estimator bandwidth in use.
func (m *Modem) PhaseBandwidth() PhaseBandwidth { return m.phaseBW }

// SetSyncPolicy sets the fall-out policy. SyncUnsync immediately forces
// the modem back to Searching and leaves the policy as it was.
func (m *Modem) SetSyncPolicy(p SyncPolicy) {
	if p != SyncUnsync {
		m.policy = p
		return
	}
	m.applySync(SyncEvent{Policy: SyncUnsync})
}

// SyncPolicy returns the fall-out policy in effect.
func (m *Modem) SyncPolicy() SyncPolicy { return m.policy }

// RunSyncStateMachine feeds the unique word error count of the last frame
// to the sync state machine and returns the resulting state. While
// searching, the timing validity of the last SyncSearch drives it instead.
func (m *Modem) RunSyncStateMachine(uwErrors int) SyncState {
	m.uwErrors = uwErrors
	return m.applySync(SyncEvent{
		TimingValid: m.timingValid,
		UWErrors:    uwErrors,
		Policy:      m.policy,
	})
}

func (m *Modem) applySync(ev SyncEvent) SyncState {
	from := m.sync.State
	m.sync = m.rules.Next(m.sync, ev)
	to := m.sync.State

	if from != to {
		m.phaseBW = nextBandwidth(m.phaseBW, m.phaseBWMode, from, to)
		if to == Searching {
			m.nin = m.spf
			m.timingEst = 0
			m.samplePoint = m.ncp
		}
		m.log.Debug("sync state", "from", from, "to", to, "uw_errors", ev.UWErrors, "phase_bw", m.phaseBW)
	}
	return to
}
