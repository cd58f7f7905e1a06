package analyzer

import "time"

const energyEpsilon = 1e-5

// BeatState is the per-frame output of the beat detector.
type BeatState struct {
	IsBeat        bool    `json:"isBeat"`
	Strength      float64 `json:"strength"`
	InstantEnergy float64 `json:"instantEnergy"`
	AverageEnergy float64 `json:"averageEnergy"`
}

// BeatConfig tunes the detector. Zero values take the defaults.
type BeatConfig struct {
	HistorySize     int
	Sensitivity     float64
	MinimumInterval time.Duration
}

// BeatDetector flags energy onsets against a rolling average of recent frames.
type BeatDetector struct {
	history     []float64
	cursor      int
	written     int
	sensitivity float64
	minInterval float64
	elapsed     float64
	state       BeatState
}

// NewBeatDetector builds a detector with a history of HistorySize frames.
func NewBeatDetector(cfg BeatConfig) *BeatDetector {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 43
	}
	if cfg.Sensitivity <= 0 {
		cfg.Sensitivity = 1.35
	}
	if cfg.MinimumInterval <= 0 {
		cfg.MinimumInterval = 200 * time.Millisecond
	}
	d := &BeatDetector{
		history:     make([]float64, cfg.HistorySize),
		sensitivity: cfg.Sensitivity,
		minInterval: cfg.MinimumInterval.Seconds(),
	}
	d.Reset()
	return d
}

// Update consumes one frame of time-domain samples. No beat fires until the
// history has been filled once.
func (d *BeatDetector) Update(samples []float32, deltaTime float64) BeatState {
	instant := meanSquare(samples)
	avg := average(d.history)
	if deltaTime > 0 {
		d.elapsed += deltaTime
	}

	warm := d.written >= len(d.history)
	isBeat := warm && instant > avg*d.sensitivity && d.elapsed >= d.minInterval

	strength := 0.0
	if isBeat {
		d.elapsed = 0
		strength = clamp((instant-avg)/max(avg, energyEpsilon), 0, 1)
	}

	d.history[d.cursor] = instant
	d.cursor = (d.cursor + 1) % len(d.history)
	if d.written < len(d.history) {
		d.written++
	}

	d.state = BeatState{
		IsBeat:        isBeat,
		Strength:      strength,
		InstantEnergy: instant,
		AverageEnergy: avg,
	}
	return d.state
}

// State returns the result of the last Update.
func (d *BeatDetector) State() BeatState { return d.state }

// Reset clears the history and restarts the refractory timer so the first
// eligible frame may fire.
func (d *BeatDetector) Reset() {
	for i := range d.history {
		d.history[i] = 0
	}
	d.cursor = 0
	d.written = 0
	d.elapsed = d.minInterval
	d.state = BeatState{}
}

func meanSquare(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return sum / float64(len(samples))
}
