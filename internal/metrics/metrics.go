// Package metrics exports modem and decoder statistics to Prometheus.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lifegpc/libcodec2-MSVC/internal/interldpc"
	"github.com/lifegpc/libcodec2-MSVC/internal/ofdm"
)

// Metrics holds the receiver collectors.
type Metrics struct {
	syncState  prometheus.Gauge
	interSync  prometheus.Gauge
	snr        prometheus.Gauge
	clockPPM   prometheus.Gauge
	foff       prometheus.Gauge
	timingMx   prometheus.Gauge
	frames     prometheus.Counter
	uwErrors   prometheus.Counter
	syncLosses prometheus.Counter
	iterations prometheus.Histogram
	codewords  *prometheus.CounterVec
	rawBER     prometheus.Gauge
	codedBER   prometheus.Gauge

	mu        sync.Mutex
	lastState ofdm.SyncState
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		syncState: f.NewGauge(prometheus.GaugeOpts{
			Name: "ofdm_sync_state",
			Help: "Modem sync state (0 search, 1 trial, 2 synced)",
		}),
		interSync: f.NewGauge(prometheus.GaugeOpts{
			Name: "ofdm_interleaver_sync_state",
			Help: "Interleaver sync state (0 search, 1 trial, 2 synced)",
		}),
		snr: f.NewGauge(prometheus.GaugeOpts{
			Name: "ofdm_snr_3k_db",
			Help: "Estimated SNR in a 3 kHz bandwidth",
		}),
		clockPPM: f.NewGauge(prometheus.GaugeOpts{
			Name: "ofdm_clock_offset_ppm",
			Help: "Estimated sample clock offset between transmitter and receiver",
		}),
		foff: f.NewGauge(prometheus.GaugeOpts{
			Name: "ofdm_freq_offset_hz",
			Help: "Estimated carrier frequency offset",
		}),
		timingMx: f.NewGauge(prometheus.GaugeOpts{
			Name: "ofdm_timing_metric",
			Help: "Normalized pilot correlation of the last frame",
		}),
		frames: f.NewCounter(prometheus.CounterOpts{
			Name: "ofdm_frames_demodulated_total",
			Help: "Frames demodulated",
		}),
		uwErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "ofdm_unique_word_errors_total",
			Help: "Unique word bit errors across demodulated frames",
		}),
		syncLosses: f.NewCounter(prometheus.CounterOpts{
			Name: "ofdm_sync_losses_total",
			Help: "Transitions from synced back to search",
		}),
		iterations: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "ldpc_decode_iterations",
			Help:    "Belief propagation iterations per codeword",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200},
		}),
		codewords: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ldpc_codewords_total",
			Help: "Decoded codewords by outcome",
		}, []string{"result"}),
		rawBER: f.NewGauge(prometheus.GaugeOpts{
			Name: "ldpc_raw_ber",
			Help: "Uncoded bit error rate against the test codeword",
		}),
		codedBER: f.NewGauge(prometheus.GaugeOpts{
			Name: "ldpc_coded_ber",
			Help: "Decoded bit error rate against the test codeword",
		}),
	}
}

// ObserveFrame records one Receive result together with the modem stats.
func (m *Metrics) ObserveFrame(f ofdm.RxFrame, st ofdm.Stats) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastState == ofdm.Synced && f.State == ofdm.Searching {
		m.syncLosses.Inc()
	}
	m.lastState = f.State
	m.syncState.Set(float64(f.State))
	if f.Demodulated {
		m.frames.Inc()
		m.uwErrors.Add(float64(f.UWErrors))
	}
	m.snr.Set(st.SNR3kDB)
	m.clockPPM.Set(st.ClockOffsetPPM)
	m.foff.Set(st.FoffHz)
	m.timingMx.Set(st.TimingMx)
}

// ObserveBlock records a decoded interleaver block.
func (m *Metrics) ObserveBlock(b *interldpc.Block) {
	m.interSync.Set(float64(b.State))
	for _, cw := range b.Codewords {
		m.iterations.Observe(float64(cw.Iterations))
		if cw.Converged {
			m.codewords.WithLabelValues("converged").Inc()
		} else {
			m.codewords.WithLabelValues("failed").Inc()
		}
	}
}

// ObserveCounters records the test frame error rates.
func (m *Metrics) ObserveCounters(c interldpc.Counters) {
	m.rawBER.Set(c.RawBER())
	m.codedBER.Set(c.CodedBER())
}
