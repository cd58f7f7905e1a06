package analyzer

import (
	"errors"
	"math"
	"testing"

	"github.com/guidoenr/harmonic/internal/audio/graph"
)

func TestAverage(t *testing.T) {
	vals := []float64{0.2, 0.4, 0.6, 0.8}
	want := 0.5
	if got := average(vals); math.Abs(got-want) > 1e-6 {
		t.Fatalf("average=%f want=%f", got, want)
	}
}

func TestClamp(t *testing.T) {
	if clamp(2, 0, 1) != 1 {
		t.Fatalf("expected clamp high to be 1")
	}
	if clamp(-1, 0, 1) != 0 {
		t.Fatalf("expected clamp low to be 0")
	}
	if clamp(0.5, 0, 1) != 0.5 {
		t.Fatalf("expected clamp middle to be unchanged")
	}
}

func TestBufferLengthsFollowFFTSize(t *testing.T) {
	for size := 256; size <= 8192; size *= 2 {
		cfg := DefaultConfig()
		cfg.FFTSize = size
		a, err := New(graph.NewBus(44_100), cfg)
		if err != nil {
			t.Fatalf("New(%d): %v", size, err)
		}
		snap := a.Update()
		if len(snap.Frequency) != size/2 {
			t.Fatalf("fft=%d frequency len=%d want %d", size, len(snap.Frequency), size/2)
		}
		if len(snap.TimeDomain) != size {
			t.Fatalf("fft=%d time-domain len=%d want %d", size, len(snap.TimeDomain), size)
		}
		if a.FrequencyBinCount() != size/2 {
			t.Fatalf("bin count=%d", a.FrequencyBinCount())
		}
	}
}

func TestNewRejectsInvalidInput(t *testing.T) {
	if _, err := New(nil, DefaultConfig()); !errors.Is(err, ErrNoSource) {
		t.Fatalf("nil node err=%v want ErrNoSource", err)
	}
	cfg := DefaultConfig()
	cfg.FFTSize = 1000
	if _, err := New(graph.NewBus(44_100), cfg); !errors.Is(err, ErrInvalidFFTSize) {
		t.Fatalf("fft 1000 err=%v want ErrInvalidFFTSize", err)
	}
	cfg = DefaultConfig()
	cfg.MinDecibels = 0
	if _, err := New(graph.NewBus(44_100), cfg); err == nil {
		t.Fatalf("expected inverted decibel range to fail")
	}
}

func TestSilenceProducesZeroSpectrum(t *testing.T) {
	bus := graph.NewBus(44_100)
	a, err := New(bus, DefaultConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	bus.Emit(make([]float32, 4096))
	snap := a.Update()
	for i, v := range snap.Frequency {
		if v != 0 {
			t.Fatalf("bin %d = %d, want 0 for silence", i, v)
		}
	}
	if rms := a.RMSLevel(); rms != 0 {
		t.Fatalf("rms=%f want 0", rms)
	}
}

func TestSinePeaksAtExpectedBin(t *testing.T) {
	const (
		rate = 48_000.0
		size = 2048
		bin  = 64
	)
	bus := graph.NewBus(rate)
	cfg := DefaultConfig()
	cfg.Smoothing = 0
	a, err := New(bus, cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	freq := bin * rate / size
	samples := make([]float32, size)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / rate))
	}
	bus.Emit(samples)
	snap := a.Update()

	peak := 0
	for i, v := range snap.Frequency {
		if v > snap.Frequency[peak] {
			peak = i
		}
	}
	if peak != bin {
		t.Fatalf("peak bin=%d want %d", peak, bin)
	}
	if snap.Frequency[peak] < 200 {
		t.Fatalf("full-scale sine too quiet: %d", snap.Frequency[peak])
	}
	if rms := a.RMSLevel(); math.Abs(rms-math.Sqrt(0.5)) > 0.01 {
		t.Fatalf("rms=%f want ~0.707", rms)
	}
}

func TestCloseDisconnectsAndIsIdempotent(t *testing.T) {
	bus := graph.NewBus(44_100)
	a, err := New(bus, DefaultConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if bus.Connected() != 1 {
		t.Fatalf("connected=%d want 1", bus.Connected())
	}

	// Simulate the host tearing the edge down first.
	if err := bus.Disconnect(a.ring); err != nil {
		t.Fatalf("manual disconnect: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close after detach should be silent, got %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if snap := a.Update(); len(snap.TimeDomain) != a.FFTSize() {
		t.Fatalf("update after close returned unexpected snapshot")
	}
}

func TestComputeLevels(t *testing.T) {
	freq := make([]uint8, 1024)
	if got := ComputeLevels(freq, 44_100); got != (Levels{}) {
		t.Fatalf("silent levels=%+v", got)
	}
	for i := 0; i < 12; i++ {
		freq[i] = 255
	}
	got := ComputeLevels(freq, 44_100)
	if got.Bass <= got.Treble || got.Bass == 0 {
		t.Fatalf("expected bass-heavy levels, got %+v", got)
	}
	if ComputeLevels(nil, 44_100) != (Levels{}) {
		t.Fatalf("empty spectrum should be zero")
	}
}
