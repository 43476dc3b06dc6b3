// Package audio connects the modem to a sound card through PortAudio.
// Capture hands out exactly the number of samples the demodulator asks
// for, whatever the device buffer size.
package audio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const (
	// FramesPerBuf is the device buffer size: one modem symbol at 8 kHz.
	FramesPerBuf = 160
	NumChannels  = 1
)

// ErrNotOpen is returned when a stream is used before it is opened.
var ErrNotOpen = errors.New("stream not opened")

// Init initializes PortAudio.
func Init() error {
	return portaudio.Initialize()
}

// Terminate cleans up PortAudio.
func Terminate() error {
	return portaudio.Terminate()
}

// Source delivers real samples scaled to [-1, 1).
type Source interface {
	Read(n int) ([]float64, error)
}

// Sink consumes real samples scaled to [-1, 1).
type Sink interface {
	Write(samples []float64) error
}

// chunker turns fixed size device reads into reads of any size.
type chunker struct {
	next    func() ([]float32, error)
	pending []float32
}

func (c *chunker) read(n int) ([]float64, error) {
	out := make([]float64, 0, n)
	for len(out) < n {
		if len(c.pending) == 0 {
			chunk, err := c.next()
			if err != nil {
				return nil, err
			}
			c.pending = chunk
		}
		k := min(n-len(out), len(c.pending))
		for _, s := range c.pending[:k] {
			out = append(out, float64(s))
		}
		c.pending = c.pending[k:]
	}
	return out, nil
}

// Capture reads from the default input device.
type Capture struct {
	mu     sync.Mutex
	stream *portaudio.Stream
	buf    []float32
	c      chunker
}

// OpenCapture opens and starts the default input device at rate Hz.
func OpenCapture(rate float64) (*Capture, error) {
	a := &Capture{buf: make([]float32, FramesPerBuf)}
	stream, err := portaudio.OpenDefaultStream(NumChannels, 0, rate, FramesPerBuf, a.buf)
	if err != nil {
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	a.stream = stream
	a.c.next = a.readChunk
	return a, nil
}

func (a *Capture) readChunk() ([]float32, error) {
	if a.stream == nil {
		return nil, ErrNotOpen
	}
	if err := a.stream.Read(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	out := make([]float32, len(a.buf))
	copy(out, a.buf)
	return out, nil
}

// Read blocks until n samples have been captured.
func (a *Capture) Read(n int) ([]float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.c.read(n)
}

// Close stops and closes the stream.
func (a *Capture) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stream == nil {
		return nil
	}
	err := errors.Join(a.stream.Stop(), a.stream.Close())
	a.stream = nil
	return err
}

// Playback writes to the default output device.
type Playback struct {
	mu     sync.Mutex
	stream *portaudio.Stream
	buf    []float32
}

// OpenPlayback opens and starts the default output device at rate Hz.
func OpenPlayback(rate float64) (*Playback, error) {
	p := &Playback{buf: make([]float32, FramesPerBuf)}
	stream, err := portaudio.OpenDefaultStream(0, NumChannels, rate, FramesPerBuf, p.buf)
	if err != nil {
		return nil, fmt.Errorf("open output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("start output stream: %w", err)
	}
	p.stream = stream
	return p, nil
}

// Write plays samples in FramesPerBuf chunks, zero padding the last one.
func (p *Playback) Write(samples []float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil {
		return ErrNotOpen
	}
	for i := 0; i < len(samples); i += FramesPerBuf {
		clear(p.buf)
		for j, s := range samples[i:min(i+FramesPerBuf, len(samples))] {
			p.buf[j] = float32(s)
		}
		if err := p.stream.Write(); err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}
	return nil
}

// Close stops and closes the stream.
func (p *Playback) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil {
		return nil
	}
	err := errors.Join(p.stream.Stop(), p.stream.Close())
	p.stream = nil
	return err
}
