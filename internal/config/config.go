// Package config loads the YAML configuration shared by the tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/lifegpc/libcodec2-MSVC/internal/fec"
	"github.com/lifegpc/libcodec2-MSVC/internal/ldpc"
	"github.com/lifegpc/libcodec2-MSVC/internal/ofdm"
)

// ErrInvalid is returned (wrapped) for values that cannot be used.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete tool configuration.
type Config struct {
	Modem  ModemConfig  `yaml:"modem"`
	LDPC   LDPCConfig   `yaml:"ldpc"`
	FEC    FECConfig    `yaml:"fec"`
	Server ServerConfig `yaml:"server"`
	Audio  AudioConfig  `yaml:"audio"`
	Log    LogConfig    `yaml:"log"`
}

// ModemConfig mirrors ofdm.Config plus the runtime modem options.
type ModemConfig struct {
	Fs             float64 `yaml:"fs"`
	Rs             float64 `yaml:"rs"`
	Tcp            float64 `yaml:"tcp"`
	TxCentre       float64 `yaml:"tx_centre"`
	RxCentre       float64 `yaml:"rx_centre"`
	Nc             int     `yaml:"nc"`
	Ns             int     `yaml:"ns"`
	TxtBits        int     `yaml:"txt_bits"`
	UW             string  `yaml:"uw"` // e.g. "1100101011", empty for the default
	TimingMxThresh float64 `yaml:"timing_mx_thresh"`
	FtWindowWidth  int     `yaml:"ft_window_width"`
	FoffEstGain    float64 `yaml:"foff_est_gain"`

	DPSK           bool   `yaml:"dpsk"`
	TxBPF          bool   `yaml:"tx_bpf"`
	SyncPolicy     string `yaml:"sync_policy"`       // auto or manual
	PhaseBandwidth string `yaml:"phase_est_bw_mode"` // auto or locked
}

// LDPCConfig selects the code and the interleaver.
type LDPCConfig struct {
	Code             string  `yaml:"code"`
	InterleaveFrames int     `yaml:"interleave_frames"`
	MaxIter          int     `yaml:"max_iter"`
	DecType          string  `yaml:"dec_type"` // sum-product or min-sum
	EsNo             float64 `yaml:"esno"`
	Discard          bool    `yaml:"discard"`
}

// FECConfig sets the Reed-Solomon shards of data packets.
type FECConfig struct {
	DataShards   int `yaml:"data_shards"`
	ParityShards int `yaml:"parity_shards"`
}

// ServerConfig configures the live stats server.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// AudioConfig configures sample input and output.
type AudioConfig struct {
	Scale float64 `yaml:"scale"` // int16 full scale
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the 700D configuration.
func Default() *Config {
	d := ofdm.DefaultConfig()
	return &Config{
		Modem: ModemConfig{
			Fs:             d.Fs,
			Rs:             d.Rs,
			Tcp:            d.Tcp,
			TxCentre:       d.TxCentre,
			RxCentre:       d.RxCentre,
			Nc:             d.Nc,
			Ns:             d.Ns,
			TxtBits:        d.TxtBits,
			TimingMxThresh: d.TimingMxThresh,
			FtWindowWidth:  d.FtWindowWidth,
			FoffEstGain:    d.FoffEstGain,
			SyncPolicy:     "auto",
			PhaseBandwidth: "auto",
		},
		LDPC: LDPCConfig{
			Code:             ldpc.Default,
			InterleaveFrames: 1,
			DecType:          ldpc.SumProduct.String(),
			EsNo:             ldpc.DefaultEsNo,
			Discard:          true,
		},
		FEC: FECConfig{
			DataShards:   fec.DefaultDataShards,
			ParityShards: fec.DefaultParityShards,
		},
		Server: ServerConfig{Listen: ":8073"},
		Audio:  AudioConfig{Scale: 32768},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads a YAML file over the defaults, so absent keys keep their
// default values.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	oc, err := c.OFDM()
	if err != nil {
		return err
	}
	if err := oc.Validate(); err != nil {
		return err
	}
	if _, err := c.SyncPolicy(); err != nil {
		return err
	}
	if _, err := c.PhaseBandwidthMode(); err != nil {
		return err
	}
	if _, err := c.Code(); err != nil {
		return err
	}
	if c.LDPC.InterleaveFrames < 1 {
		return fmt.Errorf("%w: ldpc.interleave_frames %d", ErrInvalid, c.LDPC.InterleaveFrames)
	}
	if c.FEC.DataShards < 1 || c.FEC.ParityShards < 0 {
		return fmt.Errorf("%w: fec shards %d+%d", ErrInvalid, c.FEC.DataShards, c.FEC.ParityShards)
	}
	if c.Audio.Scale <= 0 {
		return fmt.Errorf("%w: audio.scale %g", ErrInvalid, c.Audio.Scale)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
	}
	return nil
}

// OFDM returns the modem parameters.
func (c *Config) OFDM() (ofdm.Config, error) {
	m := c.Modem
	oc := ofdm.Config{
		Fs:             m.Fs,
		Rs:             m.Rs,
		Tcp:            m.Tcp,
		TxCentre:       m.TxCentre,
		RxCentre:       m.RxCentre,
		Nc:             m.Nc,
		Ns:             m.Ns,
		Bps:            2,
		TxtBits:        m.TxtBits,
		TimingMxThresh: m.TimingMxThresh,
		FtWindowWidth:  m.FtWindowWidth,
		FoffEstGain:    m.FoffEstGain,
	}
	if m.UW != "" {
		oc.UW = make([]byte, len(m.UW))
		for i, ch := range m.UW {
			switch ch {
			case '0':
			case '1':
				oc.UW[i] = 1
			default:
				return ofdm.Config{}, fmt.Errorf("%w: modem.uw %q is not a bit string", ErrInvalid, m.UW)
			}
		}
	}
	return oc, nil
}

// SyncPolicy parses modem.sync_policy.
func (c *Config) SyncPolicy() (ofdm.SyncPolicy, error) {
	switch strings.ToLower(c.Modem.SyncPolicy) {
	case "auto", "":
		return ofdm.SyncAuto, nil
	case "manual":
		return ofdm.SyncManual, nil
	}
	return 0, fmt.Errorf("%w: modem.sync_policy %q", ErrInvalid, c.Modem.SyncPolicy)
}

// PhaseBandwidthMode parses modem.phase_est_bw_mode.
func (c *Config) PhaseBandwidthMode() (ofdm.PhaseBandwidthMode, error) {
	switch strings.ToLower(c.Modem.PhaseBandwidth) {
	case "auto", "":
		return ofdm.PhaseBWAuto, nil
	case "locked":
		return ofdm.PhaseBWLocked, nil
	}
	return 0, fmt.Errorf("%w: modem.phase_est_bw_mode %q", ErrInvalid, c.Modem.PhaseBandwidth)
}

// Code returns a copy of the configured LDPC code with the decoder
// options applied.
func (c *Config) Code() (*ldpc.Code, error) {
	base, err := ldpc.CodeByName(c.LDPC.Code)
	if err != nil {
		return nil, err
	}
	code := *base
	switch strings.ToLower(c.LDPC.DecType) {
	case "sum-product", "":
		code.DecType = ldpc.SumProduct
	case "min-sum":
		code.DecType = ldpc.MinSum
	default:
		return nil, fmt.Errorf("%w: ldpc.dec_type %q", ErrInvalid, c.LDPC.DecType)
	}
	if c.LDPC.MaxIter > 0 {
		code.MaxIter = c.LDPC.MaxIter
	}
	return &code, nil
}

// NewModem creates a modem with the configured options applied.
func (c *Config) NewModem() (*ofdm.Modem, error) {
	oc, err := c.OFDM()
	if err != nil {
		return nil, err
	}
	m, err := ofdm.New(oc)
	if err != nil {
		return nil, err
	}
	policy, err := c.SyncPolicy()
	if err != nil {
		return nil, err
	}
	mode, err := c.PhaseBandwidthMode()
	if err != nil {
		return nil, err
	}
	m.SetSyncPolicy(policy)
	m.SetPhaseBandwidthMode(mode)
	m.SetDPSK(c.Modem.DPSK)
	m.SetTxBPF(c.Modem.TxBPF)
	return m, nil
}

// Logger returns a logger at the configured level.
func (c *Config) Logger() *log.Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if lvl, err := log.ParseLevel(c.Log.Level); err == nil {
		l.SetLevel(lvl)
	}
	return l
}
