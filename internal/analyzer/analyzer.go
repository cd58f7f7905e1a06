package analyzer

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"github.com/guidoenr/harmonic/internal/audio/graph"
	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/window"
)

var (
	// ErrNoSource is returned when an analyser is built without an audio node.
	ErrNoSource = errors.New("analyzer: audio source is required")
	// ErrInvalidFFTSize is returned for sizes that are not a power of two in [32, 32768].
	ErrInvalidFFTSize = errors.New("analyzer: fft size must be a power of two in [32, 32768]")
)

// Snapshot holds the buffers refreshed by Update. The slices are reused on
// every call; readers must not keep them beyond the current frame.
type Snapshot struct {
	Frequency  []uint8
	TimeDomain []float32
}

// Config controls the analysis node.
type Config struct {
	FFTSize     int
	MinDecibels float64
	MaxDecibels float64
	Smoothing   float64
}

// DefaultConfig returns the standard analyser settings.
func DefaultConfig() Config {
	return Config{
		FFTSize:     2048,
		MinDecibels: -100,
		MaxDecibels: -10,
		Smoothing:   0.85,
	}
}

// Analyser taps an audio node and exposes byte-scaled frequency magnitudes
// and normalised time-domain samples, one refresh per frame.
type Analyser struct {
	node       graph.Node
	ring       *graph.Ring
	fftSize    int
	minDb      float64
	maxDb      float64
	smoothing  float64
	sampleRate float64

	snapshot Snapshot
	buffer   []complex128
	window   []float64
	smoothed []float64

	mu     sync.Mutex
	closed bool
}

// New connects an analyser to node. A zero FFTSize or an all-zero decibel
// range take the defaults; Smoothing is used as given.
func New(node graph.Node, cfg Config) (*Analyser, error) {
	if node == nil {
		return nil, ErrNoSource
	}
	def := DefaultConfig()
	if cfg.FFTSize == 0 {
		cfg.FFTSize = def.FFTSize
	}
	if cfg.MinDecibels == 0 && cfg.MaxDecibels == 0 {
		cfg.MinDecibels, cfg.MaxDecibels = def.MinDecibels, def.MaxDecibels
	}
	if cfg.FFTSize < 32 || cfg.FFTSize > 32768 || !isPow2(cfg.FFTSize) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidFFTSize, cfg.FFTSize)
	}
	if cfg.MinDecibels >= cfg.MaxDecibels {
		return nil, fmt.Errorf("analyzer: min decibels %.1f must be below max %.1f", cfg.MinDecibels, cfg.MaxDecibels)
	}
	if cfg.Smoothing < 0 || cfg.Smoothing > 1 {
		return nil, fmt.Errorf("analyzer: smoothing %.3f outside [0, 1]", cfg.Smoothing)
	}

	size := cfg.FFTSize
	a := &Analyser{
		node:       node,
		ring:       graph.NewRing(size),
		fftSize:    size,
		minDb:      cfg.MinDecibels,
		maxDb:      cfg.MaxDecibels,
		smoothing:  cfg.Smoothing,
		sampleRate: node.SampleRate(),
		snapshot: Snapshot{
			Frequency:  make([]uint8, size/2),
			TimeDomain: make([]float32, size),
		},
		buffer:   make([]complex128, size),
		window:   blackman(size),
		smoothed: make([]float64, size/2),
	}

	if err := node.Connect(a.ring); err != nil {
		return nil, fmt.Errorf("connect analyser: %w", err)
	}
	return a, nil
}

// Update pulls the latest samples into the snapshot and recomputes the
// spectrum. Call it at most once per frame.
func (a *Analyser) Update() *Snapshot {
	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return &a.snapshot
	}

	td := a.snapshot.TimeDomain
	a.ring.Latest(td)

	for i, s := range td {
		a.buffer[i] = complex(float64(s)*a.window[i], 0)
	}
	spectrum := fft.FFT(a.buffer)

	n := float64(a.fftSize)
	scale := 255.0 / (a.maxDb - a.minDb)
	for k := range a.snapshot.Frequency {
		mag := cmplx.Abs(spectrum[k]) / n
		if math.IsNaN(mag) || math.IsInf(mag, 0) {
			mag = 0
		}
		a.smoothed[k] = a.smoothing*a.smoothed[k] + (1-a.smoothing)*mag
		a.snapshot.Frequency[k] = toByte(a.smoothed[k], a.minDb, scale)
	}
	return &a.snapshot
}

// Snapshot returns the buffers of the most recent Update.
func (a *Analyser) Snapshot() *Snapshot { return &a.snapshot }

// RMSLevel is the root mean square of the latest time-domain buffer.
func (a *Analyser) RMSLevel() float64 {
	td := a.snapshot.TimeDomain
	if len(td) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range td {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(td)))
}

func (a *Analyser) FFTSize() int           { return a.fftSize }
func (a *Analyser) FrequencyBinCount() int { return a.fftSize / 2 }
func (a *Analyser) SampleRate() float64    { return a.sampleRate }

// Close disconnects the analyser from its node. Disconnecting an edge that
// is already gone is not an error.
func (a *Analyser) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if err := a.node.Disconnect(a.ring); err != nil && !errors.Is(err, graph.ErrNotConnected) {
		return fmt.Errorf("disconnect analyser: %w", err)
	}
	return nil
}

func toByte(mag, minDb, scale float64) uint8 {
	if !(mag > 0) {
		return 0
	}
	v := math.Floor((20*math.Log10(mag) - minDb) * scale)
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}

func blackman(size int) []float64 {
	w := make([]float64, size)
	for i := range w {
		w[i] = 1
	}
	return window.Blackman(w)
}

func isPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func clamp(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
