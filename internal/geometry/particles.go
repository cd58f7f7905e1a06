package geometry

import (
	"math"
	"math/rand/v2"
	"time"
)

// ParticleConfig shapes the Lissajous tracer field. Seed 0 seeds from the
// clock; BeatDecay outside (0,1) takes 0.92.
type ParticleConfig struct {
	Count         int
	BaseAmplitude float64
	Size          float64
	ColorA        string
	ColorB        string
	BeatDecay     float64
	Seed          uint64
}

func DefaultParticleConfig() ParticleConfig {
	return ParticleConfig{
		Count:         800,
		BaseAmplitude: 4,
		Size:          28,
		ColorA:        "#ffd6ff",
		ColorB:        "#80c2ff",
		BeatDecay:     0.92,
	}
}

// Particles traces points along per-point Lissajous curves whose amplitude
// follows a random frequency bin and a smoothed beat envelope.
type Particles struct {
	points  *Points
	phases  []float64
	rates   []float64
	weights []float64
	base    float64
	decay   float64
	beat    float64
	time    float64
	closed  bool
}

func NewParticles(cfg ParticleConfig) *Particles {
	def := DefaultParticleConfig()
	if cfg.Count == 0 {
		cfg.Count = def.Count
	}
	if cfg.BaseAmplitude <= 0 {
		cfg.BaseAmplitude = def.BaseAmplitude
	}
	if cfg.Size <= 0 {
		cfg.Size = def.Size
	}
	if cfg.ColorA == "" {
		cfg.ColorA = def.ColorA
	}
	if cfg.ColorB == "" {
		cfg.ColorB = def.ColorB
	}
	if cfg.BeatDecay <= 0 || cfg.BeatDecay >= 1 {
		cfg.BeatDecay = def.BeatDecay
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	count := max(32, cfg.Count)
	p := &Particles{
		phases:  make([]float64, count*3),
		rates:   make([]float64, count*3),
		weights: make([]float64, count),
		base:    cfg.BaseAmplitude,
		decay:   cfg.BeatDecay,
		points: &Points{
			Node:      Node{Name: "lissajous-orbits", Visible: true},
			Positions: make([]float32, count*3),
			Gradient:  make([]float32, count),
			Jitter:    make([]float32, count),
			Size:      float32(cfg.Size),
			ColorA:    Hex(cfg.ColorA),
			ColorB:    Hex(cfg.ColorB),
		},
	}
	for i := 0; i < count; i++ {
		p.phases[i*3] = rng.Float64() * 2 * math.Pi
		p.phases[i*3+1] = rng.Float64() * 2 * math.Pi
		p.phases[i*3+2] = rng.Float64() * 2 * math.Pi
		p.weights[i] = rng.Float64()
		p.points.Gradient[i] = float32(rng.Float64())
		p.points.Jitter[i] = float32(1 + 0.25*math.Sin(p.phases[i*3]+p.phases[i*3+1]+p.phases[i*3+2]))
	}
	for i := 0; i < count; i++ {
		p.rates[i*3] = 1 + rng.Float64()*2
		p.rates[i*3+1] = 2 + rng.Float64()*3
		p.rates[i*3+2] = 3 + rng.Float64()*3
	}
	return p
}

// Update advances time, folds the beat strength into the envelope and
// repositions every point.
func (p *Particles) Update(sig Signal, dt float64) {
	if p.closed {
		return
	}
	if dt > 0 {
		p.time += dt
	}
	strength := sig.BeatStrength
	if math.IsNaN(strength) || math.IsInf(strength, 0) {
		strength = 0
	}
	p.beat = p.beat*p.decay + strength*(1-p.decay)

	pos := p.points.Positions
	grad := p.points.Gradient
	for i := range p.weights {
		phaseX := p.phases[i*3] + p.time*p.rates[i*3]
		phaseY := p.phases[i*3+1] + p.time*p.rates[i*3+1]
		phaseZ := p.phases[i*3+2] + p.time*p.rates[i*3+2]

		m := float64(sampleByte(sig.Frequency, int(math.Floor(p.weights[i]*512))))
		amp := p.base * (0.75 + m*1.5 + p.beat*0.6)

		pos[i*3] = float32(math.Sin(phaseX) * amp)
		pos[i*3+1] = float32(math.Sin(phaseY*0.5+p.beat*2) * amp * 0.8)
		pos[i*3+2] = float32(math.Cos(phaseZ) * amp)
		grad[i] = float32(math.Min(1, 0.2+m*0.6+p.beat*0.2))
	}
	p.points.Beat = float32(p.beat)
	p.points.Time = float32(p.time)
}

// Beat is the smoothed beat envelope.
func (p *Particles) Beat() float64 { return p.beat }

func (p *Particles) Object() Object { return p.points }

// Points exposes the concrete sprite field.
func (p *Particles) Points() *Points { return p.points }

func (p *Particles) Close() error {
	p.closed = true
	return nil
}
