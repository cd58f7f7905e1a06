package audio

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// ErrNoInputDevice is returned when no device can record.
var ErrNoInputDevice = errors.New("no suitable audio input device found")

// Device describes a PortAudio device.
type Device struct {
	Name            string  `json:"name"`
	HostAPI         string  `json:"hostApi"`
	MaxInput        int     `json:"maxInput"`
	MaxOutput       int     `json:"maxOutput"`
	DefaultSampleHz float64 `json:"defaultSampleRate"`
	IsDefaultInput  bool    `json:"defaultInput"`
	IsDefaultOutput bool    `json:"defaultOutput"`
}

// ListDevices returns every device across host APIs sorted by host and name.
func ListDevices() ([]Device, error) {
	hosts, err := portaudio.HostApis()
	if err != nil {
		return nil, fmt.Errorf("host apis: %w", err)
	}

	defaultInput := defaultInputIndex()
	devices := make([]Device, 0, len(hosts)*4)
	for _, host := range hosts {
		for _, d := range host.Devices {
			devices = append(devices, Device{
				Name:            d.Name,
				HostAPI:         host.Name,
				MaxInput:        d.MaxInputChannels,
				MaxOutput:       d.MaxOutputChannels,
				DefaultSampleHz: d.DefaultSampleRate,
				IsDefaultInput:  d.Index == defaultInput,
				IsDefaultOutput: host.DefaultOutputDevice != nil && d.Index == host.DefaultOutputDevice.Index,
			})
		}
	}

	sort.Slice(devices, func(i, j int) bool {
		if devices[i].HostAPI == devices[j].HostAPI {
			return devices[i].Name < devices[j].Name
		}
		return devices[i].HostAPI < devices[j].HostAPI
	})
	return devices, nil
}

func defaultInputIndex() int {
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		return def.Index
	}
	return -1
}

func defaultHostInputIndex() int {
	if host, err := portaudio.DefaultHostApi(); err == nil && host != nil && host.DefaultInputDevice != nil {
		return host.DefaultInputDevice.Index
	}
	return -1
}

// findDevice resolves a configured name, or picks the most likely loopback
// or default input when name is empty.
func findDevice(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}
	if name != "" {
		return matchDevice(devices, name)
	}
	if dev := pickBestDevice(devices, defaultInputIndex(), defaultHostInputIndex()); dev != nil {
		return dev, nil
	}
	return nil, ErrNoInputDevice
}

func matchDevice(devices []*portaudio.DeviceInfo, name string) (*portaudio.DeviceInfo, error) {
	needle := strings.ToLower(name)
	for _, d := range devices {
		if d == nil || d.MaxInputChannels == 0 {
			continue
		}
		if strings.Contains(strings.ToLower(d.Name), needle) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("audio device %q not found", name)
}

var loopbackKeywords = []string{"monitor", "loopback", "stereo mix", "what u hear", "mix"}

// pickBestDevice scores inputs, preferring the defaults and anything that
// looks like a loopback of the system output.
func pickBestDevice(devices []*portaudio.DeviceInfo, defaultInput, defaultHost int) *portaudio.DeviceInfo {
	var (
		best      *portaudio.DeviceInfo
		bestScore int
	)
	for _, d := range devices {
		if d == nil || d.MaxInputChannels <= 0 {
			continue
		}
		score := d.MaxInputChannels
		if d.Index == defaultInput {
			score += 50
		}
		if d.Index == defaultHost {
			score += 40
		}
		lower := strings.ToLower(d.Name)
		for _, kw := range loopbackKeywords {
			if strings.Contains(lower, kw) {
				score += 20
				break
			}
		}
		if strings.Contains(lower, "default") {
			score += 10
		}
		if best == nil || score > bestScore ||
			(score == bestScore && strings.ToLower(d.Name) < strings.ToLower(best.Name)) {
			best, bestScore = d, score
		}
	}
	return best
}
