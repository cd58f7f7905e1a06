// Package graph holds the pure-Go audio graph primitives shared by the
// capture, playback and analysis packages.
package graph

import (
	"errors"
	"sync"
)

// ErrNotConnected is returned when disconnecting a sink that is not attached.
var ErrNotConnected = errors.New("graph: sink not connected")

// Sink receives blocks of mono float32 samples. Implementations must copy
// what they keep; the slice is reused by the producer.
type Sink interface {
	Write(samples []float32)
}

// Resetter is implemented by sinks that keep sample history, such as Ring.
type Resetter interface {
	Reset()
}

// Node produces mono samples for connected sinks.
type Node interface {
	SampleRate() float64
	Connect(s Sink) error
	Disconnect(s Sink) error
}

// Bus is a concurrency-safe fan-out Node. Producers embed it and call Emit
// from their audio callback.
type Bus struct {
	mu         sync.RWMutex
	sampleRate float64
	sinks      []Sink
}

// NewBus returns a Bus reporting the given sample rate.
func NewBus(sampleRate float64) *Bus {
	return &Bus{sampleRate: sampleRate}
}

func (b *Bus) SampleRate() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sampleRate
}

// SetSampleRate updates the reported rate, e.g. when a new track opens.
func (b *Bus) SetSampleRate(rate float64) {
	b.mu.Lock()
	b.sampleRate = rate
	b.mu.Unlock()
}

// Connect attaches s. Connecting the same sink twice is a no-op.
func (b *Bus) Connect(s Sink) error {
	if s == nil {
		return errors.New("graph: nil sink")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.sinks {
		if existing == s {
			return nil
		}
	}
	b.sinks = append(b.sinks, s)
	return nil
}

// Disconnect detaches s, returning ErrNotConnected if it was not attached.
func (b *Bus) Disconnect(s Sink) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, existing := range b.sinks {
		if existing == s {
			b.sinks = append(b.sinks[:i], b.sinks[i+1:]...)
			return nil
		}
	}
	return ErrNotConnected
}

// Connected reports the number of attached sinks.
func (b *Bus) Connected() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sinks)
}

// Emit pushes samples to every connected sink.
func (b *Bus) Emit(samples []float32) {
	if len(samples) == 0 {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.sinks {
		s.Write(samples)
	}
}

// Reset clears every connected sink that keeps history, so readers see
// silence once the producer stops emitting.
func (b *Bus) Reset() {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.sinks {
		if r, ok := s.(Resetter); ok {
			r.Reset()
		}
	}
}

// Mixdown averages interleaved channels into dst, growing it as needed.
func Mixdown(interleaved []float32, channels int, dst []float32) []float32 {
	if channels <= 1 {
		dst = append(dst[:0], interleaved...)
		return dst
	}
	frames := len(interleaved) / channels
	if cap(dst) < frames {
		dst = make([]float32, frames)
	}
	dst = dst[:frames]
	inv := 1 / float32(channels)
	for i := range dst {
		base := i * channels
		sum := float32(0)
		for ch := 0; ch < channels; ch++ {
			sum += interleaved[base+ch]
		}
		dst[i] = sum * inv
	}
	return dst
}
