package params

import (
	"math"
	"testing"

	"github.com/guidoenr/harmonic/internal/analyzer"
)

func TestSilenceDecaysTowardsRest(t *testing.T) {
	p := Defaults()
	p.BloomGain = 2
	p.FogGain = 0.5
	for i := 0; i < 600; i++ {
		p.Apply(analyzer.Levels{}, analyzer.BeatState{}, 1.0/60.0)
	}
	if math.Abs(p.BloomGain-1) > 1e-3 || math.Abs(p.FogGain-1) > 1e-3 {
		t.Fatalf("gains did not settle: bloom=%f fog=%f", p.BloomGain, p.FogGain)
	}
}

func TestEnergyFollowsLevels(t *testing.T) {
	tests := []struct {
		name   string
		levels analyzer.Levels
		min    float64
		max    float64
	}{
		{name: "quiet", levels: analyzer.Levels{Bass: 0.01, Overall: 0.01}, min: 0.04, max: 0.06},
		{name: "bass heavy", levels: analyzer.Levels{Bass: 0.8, Mid: 0.2, Overall: 0.4}, min: 0.55, max: 0.65},
		{name: "saturated", levels: analyzer.Levels{Bass: 1, Mid: 1, Treble: 1, Overall: 1}, min: 0.99, max: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Defaults()
			for i := 0; i < 60; i++ {
				p.Apply(tt.levels, analyzer.BeatState{}, 1.0/60.0)
			}
			if p.Energy < tt.min || p.Energy > tt.max {
				t.Fatalf("energy = %f, want [%f, %f]", p.Energy, tt.min, tt.max)
			}
		})
	}
}

func TestBeatRaisesPulseAndBloom(t *testing.T) {
	p := Defaults()
	levels := analyzer.Levels{Bass: 0.9, Mid: 0.4, Treble: 0.2, Overall: 0.5}
	p.Apply(levels, analyzer.BeatState{IsBeat: true, Strength: 0.8}, 1.0/60.0)
	if p.Pulse != 1 {
		t.Fatalf("pulse = %f, want 1", p.Pulse)
	}
	if p.BloomGain <= 1 {
		t.Fatalf("bloom gain %f did not rise on a loud beat", p.BloomGain)
	}

	p.Apply(levels, analyzer.BeatState{}, 1.0/60.0)
	if p.Pulse >= 1 {
		t.Fatalf("pulse did not decay: %f", p.Pulse)
	}
}

func TestFogGainStaysInRange(t *testing.T) {
	p := Defaults()
	for i := 0; i < 200; i++ {
		p.Apply(analyzer.Levels{Bass: 1, Mid: 1, Treble: 1, Overall: 1}, analyzer.BeatState{}, 1.0/60.0)
	}
	if p.FogGain < 0.5 || p.FogGain > 1.2 {
		t.Fatalf("fog gain %f outside [0.5, 1.2]", p.FogGain)
	}
	if p.Exposure < 0.6 || p.Exposure > 1.6 {
		t.Fatalf("exposure %f outside [0.6, 1.6]", p.Exposure)
	}
}
