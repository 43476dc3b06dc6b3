package audio

import (
	"fmt"
	"io"

	"github.com/gordonklaus/portaudio"
)

// DeviceInfo holds audio device information.
type DeviceInfo struct {
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	IsDefaultInput    bool
	IsDefaultOutput   bool
}

// ListDevices returns all available audio devices.
func ListDevices() ([]DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	var in, out string
	if d, err := portaudio.DefaultInputDevice(); err == nil {
		in = d.Name
	}
	if d, err := portaudio.DefaultOutputDevice(); err == nil {
		out = d.Name
	}

	result := make([]DeviceInfo, 0, len(devices))
	for _, d := range devices {
		result = append(result, DeviceInfo{
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			MaxOutputChannels: d.MaxOutputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
			IsDefaultInput:    d.Name == in,
			IsDefaultOutput:   d.Name == out,
		})
	}
	return result, nil
}

// FprintDevices lists devices to w, marking the defaults.
func FprintDevices(w io.Writer, devices []DeviceInfo) {
	fmt.Fprintln(w, "Audio Devices:")
	if len(devices) == 0 {
		fmt.Fprintln(w, "  (no devices found)")
		return
	}
	for i, d := range devices {
		mark := ""
		switch {
		case d.IsDefaultInput && d.IsDefaultOutput:
			mark = " [DEFAULT]"
		case d.IsDefaultInput:
			mark = " [DEFAULT IN]"
		case d.IsDefaultOutput:
			mark = " [DEFAULT OUT]"
		}
		fmt.Fprintf(w, "  %d: %s (in:%d out:%d rate:%.0f)%s\n",
			i, d.Name, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate, mark)
	}
}
