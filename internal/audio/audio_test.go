package audio

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestChunker_ExactReads(t *testing.T) {
	n := 0
	c := chunker{next: func() ([]float32, error) {
		chunk := make([]float32, FramesPerBuf)
		for i := range chunk {
			chunk[i] = float32(n)
			n++
		}
		return chunk, nil
	}}

	// nin style reads that do not line up with the device buffer
	want := 0.0
	for _, size := range []int{1280, 1281, 1279, 7, 1440} {
		got, err := c.read(size)
		if err != nil {
			t.Fatalf("read(%d): %v", size, err)
		}
		if len(got) != size {
			t.Fatalf("read(%d) returned %d samples", size, len(got))
		}
		for _, s := range got {
			if s != want {
				t.Fatalf("sample %v, want %v", s, want)
			}
			want++
		}
	}
}

func TestChunker_Error(t *testing.T) {
	boom := errors.New("boom")
	c := chunker{next: func() ([]float32, error) { return nil, boom }}
	if _, err := c.read(10); !errors.Is(err, boom) {
		t.Errorf("got %v", err)
	}
}

func TestFileSourceSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewFileSink(&buf, 32768)
	if err := sink.Write([]float64{0.5, -0.25, 2, -2}); err != nil {
		t.Fatal(err)
	}
	if err := sink.Flush(); err != nil {
		t.Fatal(err)
	}

	src := NewFileSource(&buf, 32768)
	got, err := src.Read(4)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0.5, -0.25, 32767.0 / 32768, -1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: %v, want %v", i, got[i], want[i])
		}
	}
	if _, err := src.Read(1); err != io.EOF {
		t.Errorf("read past the end: %v", err)
	}
}

func TestFprintDevices(t *testing.T) {
	var sb strings.Builder
	FprintDevices(&sb, []DeviceInfo{
		{Name: "mic", MaxInputChannels: 1, DefaultSampleRate: 48000, IsDefaultInput: true},
		{Name: "spk", MaxOutputChannels: 2, DefaultSampleRate: 44100},
	})
	out := sb.String()
	if !strings.Contains(out, "mic (in:1 out:0 rate:48000) [DEFAULT IN]") || !strings.Contains(out, "1: spk") {
		t.Errorf("unexpected listing:\n%s", out)
	}
	sb.Reset()
	FprintDevices(&sb, nil)
	if !strings.Contains(sb.String(), "no devices") {
		t.Error("empty listing")
	}
}
