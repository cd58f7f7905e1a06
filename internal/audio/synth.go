package audio

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/guidoenr/harmonic/internal/audio/graph"
)

// SynthConfig shapes the synthetic signal.
type SynthConfig struct {
	SampleRate float64
	BlockSize  int
	BPM        float64
	Seed       int64
}

// Synth is a graph node that plays a looping kick, bass, pad and hi-hat
// pattern. It drives the visualizer when no device or file is available.
type Synth struct {
	*graph.Bus

	rate   float64
	block  int
	beatHz float64
	rng    *rand.Rand
	n      int64
	buf    []float32

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSynth fills zero fields with 44.1 kHz, 1024-sample blocks and 120 BPM.
// A zero seed uses the clock.
func NewSynth(cfg SynthConfig) *Synth {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = 1024
	}
	if cfg.BPM <= 0 {
		cfg.BPM = 120
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Synth{
		Bus:    graph.NewBus(cfg.SampleRate),
		rate:   cfg.SampleRate,
		block:  cfg.BlockSize,
		beatHz: cfg.BPM / 60,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Generate fills dst with the next samples of the pattern.
func (s *Synth) Generate(dst []float32) {
	for i := range dst {
		t := float64(s.n) / s.rate
		s.n++

		beat := t * s.beatHz
		sinceBeat := (beat - math.Floor(beat)) / s.beatHz
		kick := math.Exp(-sinceBeat*14) * math.Sin(2*math.Pi*(48+90*math.Exp(-sinceBeat*40))*sinceBeat)

		swell := 0.5 + 0.5*math.Sin(2*math.Pi*0.07*t)
		bass := 0.22 * swell * math.Sin(2*math.Pi*55*t)
		pad := 0.12 * (0.6 + 0.4*math.Sin(2*math.Pi*0.19*t+0.5)) *
			(math.Sin(2*math.Pi*440*t) + 0.5*math.Sin(2*math.Pi*660*t))

		off := beat + 0.5
		sinceOff := (off - math.Floor(off)) / s.beatHz
		hat := 0.08 * math.Exp(-sinceOff*60) * (s.rng.Float64()*2 - 1)

		v := 0.7*kick + bass + pad + hat
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		dst[i] = float32(v)
	}
}

// Start emits one block per block period until ctx ends or Close is called.
func (s *Synth) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)
}

func (s *Synth) run(ctx context.Context) {
	defer s.wg.Done()
	period := time.Duration(float64(s.block) / s.rate * float64(time.Second))
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	s.buf = make([]float32, s.block)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Generate(s.buf)
			s.Emit(s.buf)
		}
	}
}

// Close stops the emitter and waits for it to exit.
func (s *Synth) Close() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	return nil
}
