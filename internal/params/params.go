// Package params smooths band levels and beats into scene-wide values the
// visualizer applies on top of its fixed configuration: bloom gain, fog
// density and exposure.
package params

import (
	"math"

	"github.com/guidoenr/harmonic/internal/analyzer"
)

// Parameters are multipliers around 1.0 except for Energy, Pulse and the
// influence weights. Energy is the smoothed loudness in [0,1]; Pulse jumps
// to 1 on a strong beat and decays.
type Parameters struct {
	Energy          float64
	BloomGain       float64
	FogGain         float64
	Exposure        float64
	Pulse           float64
	BeatSensitivity float64
	BassInfluence   float64
	MidInfluence    float64
	TrebleInfluence float64
}

// Defaults returns the resting state reached after a stretch of silence.
func Defaults() Parameters {
	return Parameters{
		BloomGain:       1.0,
		FogGain:         1.0,
		Exposure:        1.0,
		BeatSensitivity: 1.2,
		BassInfluence:   0.9,
		MidInfluence:    0.15,
		TrebleInfluence: 0.08,
	}
}

// Apply folds one frame of levels and beat state into the parameters.
func (p *Parameters) Apply(levels analyzer.Levels, beat analyzer.BeatState, delta float64) {
	if levels == (analyzer.Levels{}) && beat.Strength == 0 {
		p.applySilenceDecay(delta)
		return
	}

	// low end dominates the perceived energy
	energy := clamp(levels.Bass*0.7+levels.Mid*0.2+levels.Treble*0.1*(1+p.TrebleInfluence), 0.05, 1)
	p.Energy = lerp(p.Energy, energy, 0.4)

	p.BloomGain = lerp(p.BloomGain, 0.85+levels.Bass*p.BassInfluence*0.5+beat.Strength*0.4, 0.5)
	p.FogGain = lerp(p.FogGain, clamp(1.1-energy*0.6, 0.5, 1.2), 0.2)
	p.Exposure = clamp(p.Exposure*0.6+0.4+levels.Overall*0.3+levels.Mid*p.MidInfluence+beat.Strength*0.2, 0.6, 1.6)

	threshold := 0.16 / math.Max(0.1, p.BeatSensitivity)
	if beat.IsBeat && beat.Strength > threshold {
		p.Pulse = 1
	} else {
		p.Pulse *= math.Pow(0.9, delta*60)
	}
}

func (p *Parameters) applySilenceDecay(delta float64) {
	decay := math.Pow(0.92, delta*60)

	p.Energy *= decay
	p.Pulse *= decay
	p.BloomGain = p.BloomGain*decay + 1.0*(1-decay)
	p.FogGain = p.FogGain*decay + 1.0*(1-decay)
	p.Exposure = lerp(p.Exposure, 1.0, 0.1)
}

func lerp(current, target, factor float64) float64 {
	return current*(1-factor) + target*factor
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
