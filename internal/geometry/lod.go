package geometry

import "math"

// Level is a coarse detail tier chosen from the drawing surface size.
type Level int

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
)

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	default:
		return "high"
	}
}

// Thresholds are pixel counts above which detail drops a tier.
type Thresholds struct {
	Medium float64
	Low    float64
}

// DefaultThresholds returns the 2M / 4M pixel boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{Medium: 2_000_000, Low: 4_000_000}
}

// LOD is evaluated once at construction and never per frame.
type LOD struct {
	Level            Level
	VertexMultiplier float64
	PixelCount       float64
}

// DetectLOD picks the tier for a surface of width×height CSS pixels at the
// given device pixel ratio. Zero thresholds take the defaults.
func DetectLOD(width, height int, dpr float64, th Thresholds) LOD {
	def := DefaultThresholds()
	if th.Medium <= 0 {
		th.Medium = def.Medium
	}
	if th.Low <= 0 {
		th.Low = def.Low
	}
	pixels := float64(width) * float64(height) * math.Max(1, dpr)
	switch {
	case pixels > th.Low:
		return LOD{Level: LevelLow, VertexMultiplier: 0.35, PixelCount: pixels}
	case pixels > th.Medium:
		return LOD{Level: LevelMedium, VertexMultiplier: 0.6, PixelCount: pixels}
	default:
		return LOD{Level: LevelHigh, VertexMultiplier: 1, PixelCount: pixels}
	}
}

// Pick returns the value matching the tier.
func Pick[T any](l Level, high, medium, low T) T {
	switch l {
	case LevelHigh:
		return high
	case LevelMedium:
		return medium
	default:
		return low
	}
}

// MembraneFor returns the membrane settings for a tier.
func MembraneFor(lod LOD) MembraneConfig {
	cfg := DefaultMembraneConfig()
	cfg.RadialSegments = Pick(lod.Level, 140, 96, 64)
	cfg.AngularSegments = Pick(lod.Level, 260, 180, 120)
	cfg.Amplitude = 4 * lod.VertexMultiplier
	return cfg
}

// LatticeFor returns the lattice settings for a tier.
func LatticeFor(lod LOD) LatticeConfig {
	cfg := DefaultLatticeConfig()
	cfg.RadialCount = Pick(lod.Level, 18, 14, 10)
	cfg.AxialCount = Pick(lod.Level, 64, 48, 32)
	cfg.Radius = 5.5
	cfg.Height = 14
	return cfg
}

// ParticlesFor returns the particle settings for a tier.
func ParticlesFor(lod LOD) ParticleConfig {
	cfg := DefaultParticleConfig()
	cfg.Count = Pick(lod.Level, 1400, 950, 650)
	cfg.BaseAmplitude = 5 * lod.VertexMultiplier
	return cfg
}
