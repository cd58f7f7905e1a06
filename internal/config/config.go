// Package config loads the visualizer configuration from YAML, applies
// environment overrides and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for the configuration surface.
const (
	DefaultFFTSize         = 2048
	DefaultMinDecibels     = -100.0
	DefaultMaxDecibels     = -10.0
	DefaultSmoothing       = 0.85
	DefaultHistorySize     = 43
	DefaultSensitivity     = 1.35
	DefaultMinimumInterval = 200 * time.Millisecond
	DefaultCameraPreset    = "auto-orbit"
	DefaultBloomStrength   = 1.2
	DefaultBloomRadius     = 0.85
	DefaultBloomThreshold  = 0.2
	DefaultMaxPixelRatio   = 2.5
	DefaultBeatDecay       = 0.92
	DefaultMediumPixels    = 2_000_000
	DefaultLowPixels       = 4_000_000
	DefaultTargetFPS       = 60
	DefaultBackend         = "terminal"
	DefaultWebPort         = 8080
	DefaultBufferSize      = 4096
	DefaultVolume          = 0.8

	minFFTSize = 32
	maxFFTSize = 32768
)

// Config is the root of harmonic.yaml.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	AutoStart bool            `yaml:"auto_start"`
	Analyser  AnalyserConfig  `yaml:"analyser"`
	Beat      BeatConfig      `yaml:"beat"`
	Camera    CameraConfig    `yaml:"camera"`
	Render    RenderConfig    `yaml:"render"`
	Bloom     BloomConfig     `yaml:"bloom"`
	LOD       LODConfig       `yaml:"lod"`
	Particles ParticlesConfig `yaml:"particles"`
	Audio     AudioConfig     `yaml:"audio"`
	Web       WebConfig       `yaml:"web"`
}

// AnalyserConfig configures signal acquisition.
type AnalyserConfig struct {
	FFTSize     int     `yaml:"fft_size"`
	MinDecibels float64 `yaml:"min_decibels"`
	MaxDecibels float64 `yaml:"max_decibels"`
	Smoothing   float64 `yaml:"smoothing"`
}

// BeatConfig configures the energy beat detector.
type BeatConfig struct {
	HistorySize     int           `yaml:"history_size"`
	Sensitivity     float64       `yaml:"sensitivity"`
	MinimumInterval time.Duration `yaml:"minimum_interval"`
}

// CameraConfig selects the initial camera preset.
type CameraConfig struct {
	Preset string `yaml:"preset"`
}

// RenderConfig configures the output surface.
type RenderConfig struct {
	Backend       string  `yaml:"backend"`
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	TargetFPS     float64 `yaml:"target_fps"`
	PixelRatio    float64 `yaml:"pixel_ratio"`
	MaxPixelRatio float64 `yaml:"max_pixel_ratio"`
	StatusBar     bool    `yaml:"status_bar"`
	Color         bool    `yaml:"color"`
	Palette       string  `yaml:"palette"`
}

// BloomConfig configures the bloom pass.
type BloomConfig struct {
	Strength  float64 `yaml:"strength"`
	Radius    float64 `yaml:"radius"`
	Threshold float64 `yaml:"threshold"`
}

// LODConfig holds the pixel-count thresholds between detail tiers.
type LODConfig struct {
	MediumPixels float64 `yaml:"medium_pixels"`
	LowPixels    float64 `yaml:"low_pixels"`
}

// ParticlesConfig tunes the particle field.
type ParticlesConfig struct {
	BeatDecay float64 `yaml:"beat_decay"`
	Seed      int64   `yaml:"seed"`
}

// AudioConfig configures the host audio sources.
type AudioConfig struct {
	Device     string  `yaml:"device"`
	BufferSize int     `yaml:"buffer_size"`
	Volume     float64 `yaml:"volume"`
}

// WebConfig configures the local status server.
type WebConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:  "info",
		AutoStart: true,
		Analyser: AnalyserConfig{
			FFTSize:     DefaultFFTSize,
			MinDecibels: DefaultMinDecibels,
			MaxDecibels: DefaultMaxDecibels,
			Smoothing:   DefaultSmoothing,
		},
		Beat: BeatConfig{
			HistorySize:     DefaultHistorySize,
			Sensitivity:     DefaultSensitivity,
			MinimumInterval: DefaultMinimumInterval,
		},
		Camera: CameraConfig{Preset: DefaultCameraPreset},
		Render: RenderConfig{
			Backend:       DefaultBackend,
			Width:         1280,
			Height:        720,
			TargetFPS:     DefaultTargetFPS,
			PixelRatio:    1,
			MaxPixelRatio: DefaultMaxPixelRatio,
			StatusBar:     true,
			Color:         true,
			Palette:       "default",
		},
		Bloom: BloomConfig{
			Strength:  DefaultBloomStrength,
			Radius:    DefaultBloomRadius,
			Threshold: DefaultBloomThreshold,
		},
		LOD: LODConfig{
			MediumPixels: DefaultMediumPixels,
			LowPixels:    DefaultLowPixels,
		},
		Particles: ParticlesConfig{BeatDecay: DefaultBeatDecay},
		Audio: AudioConfig{
			BufferSize: DefaultBufferSize,
			Volume:     DefaultVolume,
		},
		Web: WebConfig{Port: DefaultWebPort},
	}
}

// Load reads the configuration at path on top of the defaults. An empty path
// searches harmonic.yaml in the working directory and falls back to the
// defaults when it is absent. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat("harmonic.yaml"); err == nil {
			path = "harmonic.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	a := c.Analyser
	if a.FFTSize < minFFTSize || a.FFTSize > maxFFTSize || a.FFTSize&(a.FFTSize-1) != 0 {
		return fmt.Errorf("analyser.fft_size must be a power of two in [%d, %d], got %d", minFFTSize, maxFFTSize, a.FFTSize)
	}
	if a.MinDecibels >= a.MaxDecibels {
		return fmt.Errorf("analyser.min_decibels (%.1f) must be below max_decibels (%.1f)", a.MinDecibels, a.MaxDecibels)
	}
	if a.Smoothing < 0 || a.Smoothing > 1 {
		return fmt.Errorf("analyser.smoothing must be within [0, 1], got %.3f", a.Smoothing)
	}
	if c.Beat.HistorySize <= 0 {
		return errors.New("beat.history_size must be positive")
	}
	if c.Beat.Sensitivity <= 0 {
		return errors.New("beat.sensitivity must be positive")
	}
	if c.Beat.MinimumInterval <= 0 {
		return fmt.Errorf("beat.minimum_interval must be positive, got %v", c.Beat.MinimumInterval)
	}
	if c.Render.TargetFPS <= 0 {
		return fmt.Errorf("render.target_fps must be positive, got %.2f", c.Render.TargetFPS)
	}
	if c.Render.MaxPixelRatio < 1 {
		return fmt.Errorf("render.max_pixel_ratio must be at least 1, got %.2f", c.Render.MaxPixelRatio)
	}
	if c.LOD.MediumPixels <= 0 || c.LOD.LowPixels < c.LOD.MediumPixels {
		return errors.New("lod thresholds must satisfy 0 < medium_pixels <= low_pixels")
	}
	if c.Particles.BeatDecay < 0 || c.Particles.BeatDecay >= 1 {
		return fmt.Errorf("particles.beat_decay must be within [0, 1), got %.3f", c.Particles.BeatDecay)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		return fmt.Errorf("audio.volume must be within [0, 1], got %.2f", c.Audio.Volume)
	}
	if c.Web.Enabled && (c.Web.Port <= 0 || c.Web.Port > 65535) {
		return fmt.Errorf("web.port out of range: %d", c.Web.Port)
	}
	return nil
}

// applyEnvOverrides reads HARMONIC_* variables. Malformed values are ignored.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("HARMONIC_LOG_LEVEL"); ok {
		c.LogLevel = val
	}
	if val, ok := os.LookupEnv("HARMONIC_BACKEND"); ok {
		c.Render.Backend = strings.ToLower(val)
	}
	if val, ok := os.LookupEnv("HARMONIC_CAMERA_PRESET"); ok {
		c.Camera.Preset = val
	}
	if val, ok := os.LookupEnv("HARMONIC_FFT_SIZE"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Analyser.FFTSize = n
		}
	}
	if val, ok := os.LookupEnv("HARMONIC_AUTO_START"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.AutoStart = b
		}
	}
	if val, ok := os.LookupEnv("HARMONIC_WEB_PORT"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Web.Port = n
			c.Web.Enabled = true
		}
	}
	if val, ok := os.LookupEnv("HARMONIC_AUDIO_DEVICE"); ok {
		c.Audio.Device = val
	}
}
