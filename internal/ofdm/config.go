package ofdm

import (
	"errors"
	"fmt"
	"math"
)

// ErrConfig is returned (wrapped) when a Config is internally inconsistent.
var ErrConfig = errors.New("invalid modem config")

// Output scaling for 16 bit sample conversion.
const (
	AmpScale = 2e5 * 1.1491 / 1.06 // scale complex output to int16 range
	Clip     = 32767 * 0.35        // clipper level, keeps PAPR near 8 dB
)

// Config holds the immutable modem parameters. Derived quantities are
// computed by methods rather than stored.
type Config struct {
	Fs       float64 // sample rate (Hz)
	Rs       float64 // modulation symbol rate (Hz), excluding cyclic prefix
	Tcp      float64 // cyclic prefix duration (s)
	TxCentre float64 // TX centre audio frequency (Hz)
	RxCentre float64 // RX centre audio frequency (Hz)

	Nc      int // number of data carriers
	Ns      int // symbols per frame, including the pilot row
	Bps     int // bits per symbol
	TxtBits int // auxiliary text bits per frame

	// UW is the unique word bit pattern, UWBits() long. Nil selects
	// the default pattern.
	UW []byte

	TimingMxThresh float64 // minimum normalized timing metric for a valid candidate
	FtWindowWidth  int     // fine timing search window, samples (odd)
	FoffEstGain    float64 // smoothing gain of the fine frequency estimator
}

// DefaultConfig returns the 700D reference configuration.
func DefaultConfig() Config {
	return Config{
		Fs:             8000,
		Rs:             1 / 0.018,
		Tcp:            0.002,
		TxCentre:       1500,
		RxCentre:       1500,
		Nc:             17,
		Ns:             8,
		Bps:            2,
		TxtBits:        4,
		TimingMxThresh: 0.30,
		FtWindowWidth:  11,
		FoffEstGain:    0.1,
	}
}

// M returns the number of samples per symbol, excluding the cyclic prefix.
func (c Config) M() int { return int(math.Round(c.Fs / c.Rs)) }

// Ncp returns the cyclic prefix length in samples.
func (c Config) Ncp() int { return int(math.Round(c.Tcp * c.Fs)) }

// SymbolLen returns the samples per symbol including the cyclic prefix.
func (c Config) SymbolLen() int { return c.M() + c.Ncp() }

// SamplesPerFrame returns the nominal number of samples per modem frame.
func (c Config) SamplesPerFrame() int { return c.Ns * c.SymbolLen() }

// MaxSamplesPerFrame is the largest nin the demodulator can ask for.
func (c Config) MaxSamplesPerFrame() int { return 2 * c.SamplesPerFrame() }

// RowsPerFrame returns the data rows per frame.
func (c Config) RowsPerFrame() int { return c.Ns - 1 }

// SymsPerFrame returns the data symbols per frame.
func (c Config) SymsPerFrame() int { return c.RowsPerFrame() * c.Nc }

// BitsPerFrame returns the modem bits per frame, UW and text included.
func (c Config) BitsPerFrame() int { return c.SymsPerFrame() * c.Bps }

// UWBits returns the number of unique word bits per frame.
func (c Config) UWBits() int { return c.RowsPerFrame()*c.Bps - c.TxtBits }

// PayloadBitsPerFrame returns the bits left for payload (codeword) data.
func (c Config) PayloadBitsPerFrame() int {
	return c.BitsPerFrame() - c.UWBits() - c.TxtBits
}

// PayloadSymsPerFrame returns the payload symbols per frame.
func (c Config) PayloadSymsPerFrame() int { return c.PayloadBitsPerFrame() / c.Bps }

// RxBufLen returns the receive buffer length in samples.
func (c Config) RxBufLen() int { return 3*c.SamplesPerFrame() + 3*c.SymbolLen() }

// centreBin returns the DFT bin of the middle carrier for the given centre.
func (c Config) centreBin(centre float64) int {
	return int(math.Round(centre * float64(c.M()) / c.Fs))
}

// carrierBins returns the DFT bins of the Nc+2 carriers (pilots included).
func (c Config) carrierBins(centre float64) []int {
	bins := make([]int, c.Nc+2)
	first := c.centreBin(centre) - (c.Nc+1)/2
	for i := range bins {
		bins[i] = first + i
	}
	return bins
}

// uwPattern returns the configured unique word or the default one.
func (c Config) uwPattern() []byte {
	if c.UW != nil {
		return c.UW
	}
	uw := make([]byte, c.UWBits())
	for i := range uw {
		uw[i] = defaultUW[i%len(defaultUW)]
	}
	return uw
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	switch {
	case c.Nc <= 0:
		return fmt.Errorf("%w: carrier count %d", ErrConfig, c.Nc)
	case c.Ns < 2:
		return fmt.Errorf("%w: symbols per frame %d", ErrConfig, c.Ns)
	case c.Fs <= 0 || c.Rs <= 0:
		return fmt.Errorf("%w: sample rate %g, symbol rate %g", ErrConfig, c.Fs, c.Rs)
	case c.Bps != 2:
		return fmt.Errorf("%w: %d bits per symbol, only QPSK is supported", ErrConfig, c.Bps)
	case c.Tcp < 0:
		return fmt.Errorf("%w: negative cyclic prefix", ErrConfig)
	}

	m := c.M()
	if m < 2 || c.Ncp() >= m {
		return fmt.Errorf("%w: symbol length %d with cyclic prefix %d", ErrConfig, m, c.Ncp())
	}
	if c.TxtBits < 0 || c.TxtBits%c.Bps != 0 {
		return fmt.Errorf("%w: text bits %d", ErrConfig, c.TxtBits)
	}
	if c.UWBits() <= 0 || c.UWBits()%c.Bps != 0 {
		return fmt.Errorf("%w: %d unique word bits", ErrConfig, c.UWBits())
	}
	if c.UW != nil && len(c.UW) != c.UWBits() {
		return fmt.Errorf("%w: unique word has %d bits, want %d", ErrConfig, len(c.UW), c.UWBits())
	}
	if c.Nc+2 > len(pilotValues) {
		return fmt.Errorf("%w: %d carriers exceeds pilot table", ErrConfig, c.Nc)
	}
	for _, centre := range []float64{c.TxCentre, c.RxCentre} {
		bins := c.carrierBins(centre)
		if bins[0] < 1 || bins[len(bins)-1] >= m/2 {
			return fmt.Errorf("%w: carriers around %g Hz do not fit in (0, Fs/2)", ErrConfig, centre)
		}
	}
	if c.TimingMxThresh <= 0 || c.TimingMxThresh > 1 {
		return fmt.Errorf("%w: timing threshold %g", ErrConfig, c.TimingMxThresh)
	}
	if c.FtWindowWidth <= 0 || c.FtWindowWidth%2 == 0 || c.FtWindowWidth >= c.SymbolLen() {
		return fmt.Errorf("%w: fine timing window %d", ErrConfig, c.FtWindowWidth)
	}
	if c.FoffEstGain < 0 || c.FoffEstGain > 1 {
		return fmt.Errorf("%w: frequency estimator gain %g", ErrConfig, c.FoffEstGain)
	}
	return nil
}
