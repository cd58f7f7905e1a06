package audio

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/guidoenr/harmonic/internal/audio/graph"
	"github.com/guidoenr/harmonic/internal/log"
)

// Capture is a live PortAudio input exposed as a graph node. Each input
// buffer is mixed to mono and emitted to the connected sinks.
type Capture struct {
	*graph.Bus

	stream   *portaudio.Stream
	device   *portaudio.DeviceInfo
	channels int
	mono     []float32

	closeOnce sync.Once
	closeErr  error
}

// CaptureConfig controls how a Capture is opened.
type CaptureConfig struct {
	DeviceName string
	BufferSize int
	Channels   int
}

const defaultBufferSize = 1024

// NewCapture opens and starts an input stream. PortAudio must already be
// initialised.
func NewCapture(cfg CaptureConfig) (*Capture, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}

	device, err := findDevice(cfg.DeviceName)
	if err != nil {
		return nil, err
	}
	channels := cfg.Channels
	if channels <= 0 {
		channels = 1
	}
	if channels > device.MaxInputChannels {
		channels = device.MaxInputChannels
	}

	c := &Capture{
		Bus:      graph.NewBus(device.DefaultSampleRate),
		device:   device,
		channels: channels,
		mono:     make([]float32, 0, cfg.BufferSize),
	}

	framesPerBuffer := cfg.BufferSize
	if framesPerBuffer < 64 {
		framesPerBuffer = portaudio.FramesPerBufferUnspecified
	}

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      device.DefaultSampleRate,
		FramesPerBuffer: framesPerBuffer,
	}, c.process)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	c.stream = stream

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("start stream: %w", err)
	}
	log.Infof("capturing from %q at %.0f Hz (%d ch)", device.Name, device.DefaultSampleRate, channels)
	return c, nil
}

// DeviceName reports the input device in use.
func (c *Capture) DeviceName() string {
	if c.device == nil {
		return ""
	}
	return c.device.Name
}

// Close stops the stream. Stopping an already stopped stream is not an
// error, and repeated calls return the first result.
func (c *Capture) Close() error {
	c.closeOnce.Do(func() {
		defer c.Reset()
		if c.stream == nil {
			return
		}
		if err := c.stream.Stop(); err != nil && !isInvalidStreamState(err) {
			c.closeErr = err
			_ = c.stream.Close()
			return
		}
		c.closeErr = c.stream.Close()
	})
	return c.closeErr
}

// process runs on the PortAudio callback thread.
func (c *Capture) process(in []float32) {
	c.mono = graph.Mixdown(in, c.channels, c.mono)
	c.Emit(c.mono)
}

// isInvalidStreamState matches the errors PortAudio reports when stopping a
// stream that is not running.
func isInvalidStreamState(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, portaudio.StreamIsStopped) {
		return true
	}
	return strings.Contains(err.Error(), "PaErrorCode -9986")
}
