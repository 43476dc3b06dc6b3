package ofdm

import (
	"errors"
	"testing"
)

func TestDefaultConfig_Derived(t *testing.T) {
	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	tests := []struct {
		name string
		got  int
		want int
	}{
		{"M", c.M(), 144},
		{"Ncp", c.Ncp(), 16},
		{"SymbolLen", c.SymbolLen(), 160},
		{"SamplesPerFrame", c.SamplesPerFrame(), 1280},
		{"MaxSamplesPerFrame", c.MaxSamplesPerFrame(), 2560},
		{"BitsPerFrame", c.BitsPerFrame(), 238},
		{"UWBits", c.UWBits(), 10},
		{"PayloadBitsPerFrame", c.PayloadBitsPerFrame(), 224},
		{"RxBufLen", c.RxBufLen(), 4320},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
		}
	}

	bins := c.carrierBins(c.TxCentre)
	if bins[0] != 18 || bins[len(bins)-1] != 36 {
		t.Errorf("carrier bins %d..%d, want 18..36", bins[0], bins[len(bins)-1])
	}
}

func TestConfigValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero carriers", func(c *Config) { c.Nc = 0 }},
		{"one symbol", func(c *Config) { c.Ns = 1 }},
		{"zero sample rate", func(c *Config) { c.Fs = 0 }},
		{"16QAM", func(c *Config) { c.Bps = 4 }},
		{"prefix too long", func(c *Config) { c.Tcp = 0.02 }},
		{"odd text bits", func(c *Config) { c.TxtBits = 3 }},
		{"no room for unique word", func(c *Config) { c.TxtBits = 14 }},
		{"unique word length", func(c *Config) { c.UW = []byte{1, 0, 1} }},
		{"carriers above nyquist", func(c *Config) { c.RxCentre = 3900 }},
		{"carriers below dc", func(c *Config) { c.TxCentre = 100 }},
		{"too many carriers", func(c *Config) { c.Nc = 70 }},
		{"zero threshold", func(c *Config) { c.TimingMxThresh = 0 }},
		{"even window", func(c *Config) { c.FtWindowWidth = 10 }},
		{"negative gain", func(c *Config) { c.FoffEstGain = -0.1 }},
	}

	for _, tt := range tests {
		c := DefaultConfig()
		tt.mutate(&c)
		err := c.Validate()
		if !errors.Is(err, ErrConfig) {
			t.Errorf("%s: Validate() = %v, want ErrConfig", tt.name, err)
		}
		if _, err := New(c); !errors.Is(err, ErrConfig) {
			t.Errorf("%s: New() = %v, want ErrConfig", tt.name, err)
		}
	}
}

func TestConfig_CustomUW(t *testing.T) {
	c := DefaultConfig()
	c.UW = []byte{0, 1, 0, 1, 0, 1, 0, 1, 0, 1}
	m, err := New(c)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	bits, err := m.AssembleFrame(make([]byte, c.PayloadBitsPerFrame()), nil)
	if err != nil {
		t.Fatalf("AssembleFrame: %v", err)
	}
	if n := m.layout.uwErrors(bits); n != 0 {
		t.Errorf("assembled frame has %d unique word errors", n)
	}
}
