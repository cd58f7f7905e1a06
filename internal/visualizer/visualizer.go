// Package visualizer wires signal analysis, beat detection, geometry, the
// camera rig and the render pipeline into one frame loop.
package visualizer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/guidoenr/harmonic/internal/analyzer"
	"github.com/guidoenr/harmonic/internal/audio/graph"
	"github.com/guidoenr/harmonic/internal/camera"
	"github.com/guidoenr/harmonic/internal/config"
	"github.com/guidoenr/harmonic/internal/geometry"
	"github.com/guidoenr/harmonic/internal/log"
	"github.com/guidoenr/harmonic/internal/params"
	"github.com/guidoenr/harmonic/internal/render"
)

var (
	// ErrNoSurface is returned by New without a surface.
	ErrNoSurface = errors.New("visualizer: surface is required")
	// ErrNoAudioSource is returned by New without an analyser or source node.
	ErrNoAudioSource = errors.New("visualizer: analyser or audio source is required")
)

const (
	fogColor   = "#050312"
	fogDensity = 0.045
	// frame deltas above this are treated as a stall, not motion
	maxFrameDelta = 0.25
)

// Resumer is an audio context that may start suspended.
type Resumer interface {
	Suspended() bool
	Resume(ctx context.Context) error
}

// Options configure New. Surface and one of Analyser or Source are
// required.
type Options struct {
	Surface     render.Surface
	Analyser    *analyzer.Analyser
	Source      graph.Node
	Context     Resumer
	Scheduler   FrameScheduler
	Input       camera.Input
	Config      *config.Config
	ProfilePath string
}

// Status is a point-in-time summary for status bars and the web API.
type Status struct {
	Running bool               `json:"running"`
	Preset  string             `json:"preset"`
	Mode    string             `json:"mode"`
	LOD     string             `json:"lod"`
	Width   int                `json:"width"`
	Height  int                `json:"height"`
	FPS     float64            `json:"fps"`
	Frames  uint64             `json:"frames"`
	RMS     float64            `json:"rms"`
	Energy  float64            `json:"energy"`
	Pulse   float64            `json:"pulse"`
	Beat    analyzer.BeatState `json:"beat"`
	Levels  analyzer.Levels    `json:"levels"`
}

// Visualizer owns every per-frame resource. Resize, preset and mode changes
// take the same lock as a frame, so they land between frames.
type Visualizer struct {
	mu sync.Mutex

	cfg       config.Config
	surface   render.Surface
	analyser  *analyzer.Analyser
	beat      *analyzer.BeatDetector
	lod       geometry.LOD
	scene     *render.Scene
	membrane  *geometry.Membrane
	lattice   *geometry.Lattice
	particles *geometry.Particles
	renderer  *render.Renderer
	composer  *render.Composer
	camera    *camera.Controller
	input     camera.Input
	params    params.Parameters
	scheduler FrameScheduler
	profiler  *profiler

	handle       FrameHandle
	running      bool
	closed       bool
	last         time.Time
	mode         Mode
	beatState    analyzer.BeatState
	levels       analyzer.Levels
	frames       uint64
	fps          float64
	lastErrLog   time.Time
	removeResize func()
	quit         chan struct{}
	quitOnce     sync.Once
}

// New builds the full pipeline against opts.Surface. With AutoStart set
// (the default) the first frame is requested before New returns.
func New(ctx context.Context, opts Options) (*Visualizer, error) {
	if opts.Surface == nil {
		return nil, ErrNoSurface
	}
	if opts.Analyser == nil && opts.Source == nil {
		return nil, ErrNoAudioSource
	}
	cfg := config.Default()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if opts.Context != nil && opts.Context.Suspended() {
		if err := opts.Context.Resume(ctx); err != nil {
			return nil, fmt.Errorf("resume audio context: %w", err)
		}
	}

	v := &Visualizer{
		cfg:       cfg,
		surface:   opts.Surface,
		input:     opts.Input,
		scheduler: opts.Scheduler,
		params:    params.Defaults(),
		mode:      ModeAll,
		quit:      make(chan struct{}),
	}
	if v.input == nil {
		v.input = camera.NewBus()
	}
	if v.scheduler == nil {
		v.scheduler = NewFrameLoop(cfg.Render.TargetFPS)
	}

	ownsAnalyser := false
	v.analyser = opts.Analyser
	if v.analyser == nil {
		a, err := analyzer.New(opts.Source, analyzer.Config{
			FFTSize:     cfg.Analyser.FFTSize,
			MinDecibels: cfg.Analyser.MinDecibels,
			MaxDecibels: cfg.Analyser.MaxDecibels,
			Smoothing:   cfg.Analyser.Smoothing,
		})
		if err != nil {
			return nil, err
		}
		v.analyser = a
		ownsAnalyser = true
	}
	fail := func(err error) (*Visualizer, error) {
		if ownsAnalyser {
			_ = v.analyser.Close()
		}
		return nil, err
	}

	v.beat = analyzer.NewBeatDetector(analyzer.BeatConfig{
		HistorySize:     cfg.Beat.HistorySize,
		Sensitivity:     cfg.Beat.Sensitivity,
		MinimumInterval: cfg.Beat.MinimumInterval,
	})

	renderer, err := render.NewRenderer(opts.Surface, render.RendererConfig{
		MaxPixelRatio: cfg.Render.MaxPixelRatio,
	})
	if err != nil {
		return fail(err)
	}
	v.renderer = renderer
	width, height := renderer.Size()

	v.lod = geometry.DetectLOD(width, height, renderer.PixelRatio(), geometry.Thresholds{
		Medium: cfg.LOD.MediumPixels,
		Low:    cfg.LOD.LowPixels,
	})
	log.Debugf("lod %s for %dx%d @ %.2f", v.lod.Level, width, height, renderer.PixelRatio())

	v.scene = render.NewScene()
	v.scene.SetFog(fogColor, fogDensity)
	v.membrane = geometry.NewMembrane(geometry.MembraneFor(v.lod))
	v.lattice = geometry.NewLattice(geometry.LatticeFor(v.lod))
	pc := geometry.ParticlesFor(v.lod)
	pc.BeatDecay = cfg.Particles.BeatDecay
	pc.Seed = uint64(cfg.Particles.Seed)
	v.particles = geometry.NewParticles(pc)
	v.scene.Add(v.membrane.Object(), v.lattice.Object(), v.particles.Object())

	preset, err := camera.ParsePreset(cfg.Camera.Preset)
	if err != nil {
		return fail(err)
	}
	v.camera, err = camera.NewController(preset, width, height, v.input, camera.Options{
		FPS: int(cfg.Render.TargetFPS),
	})
	if err != nil {
		return fail(fmt.Errorf("camera: %w", err))
	}

	v.composer = render.NewComposer(renderer, render.BloomPass{
		Strength:  cfg.Bloom.Strength,
		Radius:    cfg.Bloom.Radius,
		Threshold: cfg.Bloom.Threshold,
	})
	v.profiler = newProfiler(opts.ProfilePath)
	v.removeResize = opts.Surface.OnResize(v.Resize)

	if cfg.AutoStart {
		v.Start()
	}
	return v, nil
}

// Start requests frames until Stop. Calling it while running does nothing.
func (v *Visualizer) Start() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.running || v.closed {
		return
	}
	v.running = true
	v.last = time.Time{}
	v.handle = v.scheduler.RequestFrame(v.frame)
}

// Stop cancels the pending frame. Calling it while stopped does nothing.
func (v *Visualizer) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopLocked()
}

func (v *Visualizer) stopLocked() {
	if !v.running {
		return
	}
	v.running = false
	v.scheduler.CancelFrame(v.handle)
	v.handle = 0
}

// Running reports whether frames are being requested.
func (v *Visualizer) Running() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.running
}

// Quit is closed when the surface reports that the user closed it.
func (v *Visualizer) Quit() <-chan struct{} { return v.quit }

func (v *Visualizer) frame(now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.running || v.closed {
		return
	}

	err := v.safeRender(now)
	switch {
	case errors.Is(err, render.ErrRendererQuit):
		v.stopLocked()
		v.quitOnce.Do(func() { close(v.quit) })
		return
	case err != nil:
		v.logFrameError(now, err)
	}
	if v.running {
		v.handle = v.scheduler.RequestFrame(v.frame)
	}
}

func (v *Visualizer) safeRender(now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("frame panic: %v", r)
		}
	}()
	return v.renderFrame(now)
}

// logFrameError reports at most one frame error per second.
func (v *Visualizer) logFrameError(now time.Time, err error) {
	if !v.lastErrLog.IsZero() && now.Sub(v.lastErrLog) < time.Second {
		return
	}
	v.lastErrLog = now
	log.Errorf("frame: %v", err)
}

func (v *Visualizer) renderFrame(now time.Time) error {
	delta := 0.0
	if !v.last.IsZero() {
		delta = now.Sub(v.last).Seconds()
	}
	v.last = now
	if delta < 0 {
		delta = 0
	}
	if delta > maxFrameDelta {
		delta = maxFrameDelta
	}

	v.profiler.beginFrame()
	snap := v.analyser.Update()
	v.profiler.markSection("analyse")

	v.beatState = v.beat.Update(snap.TimeDomain, delta)
	v.levels = analyzer.ComputeLevels(snap.Frequency, v.analyser.SampleRate())
	v.params.Apply(v.levels, v.beatState, delta)
	v.applyParams()
	v.profiler.markSection("beat")

	sig := geometry.Signal{
		TimeDomain:   snap.TimeDomain,
		Frequency:    snap.Frequency,
		BeatStrength: v.beatState.Strength,
	}
	v.membrane.Update(sig, delta)
	v.lattice.Update(sig, delta)
	v.particles.Update(sig, delta)
	v.profiler.markSection("geometry")

	v.camera.Update(delta)
	v.profiler.markSection("camera")

	if delta > 0 {
		instant := 1 / delta
		if v.fps == 0 {
			v.fps = instant
		} else {
			v.fps = v.fps*0.9 + instant*0.1
		}
	}
	v.frames++
	v.renderer.SetStatus(v.statusLine())

	_, err := v.composer.Render(v.scene, v.camera.Camera())
	v.profiler.markSection("render")
	v.profiler.endFrame()
	return err
}

func (v *Visualizer) applyParams() {
	v.composer.Bloom.Strength = v.cfg.Bloom.Strength * v.params.BloomGain
	v.composer.Exposure = v.params.Exposure
	if v.scene.Fog != nil {
		v.scene.Fog.Density = fogDensity * v.params.FogGain
	}
	v.particles.Points().Pulse = float32(v.params.Pulse)
}

func (v *Visualizer) statusLine() string {
	var b strings.Builder
	b.Grow(128)
	b.WriteString(string(v.camera.Preset()))
	b.WriteString(" | mode=")
	b.WriteString(string(v.mode))
	b.WriteString(" lod=")
	b.WriteString(v.lod.Level.String())
	b.WriteString(" | bass ")
	appendFloat(&b, v.levels.Bass, 2)
	b.WriteString(" mid ")
	appendFloat(&b, v.levels.Mid, 2)
	b.WriteString(" treble ")
	appendFloat(&b, v.levels.Treble, 2)
	b.WriteString(" beat ")
	appendFloat(&b, v.beatState.Strength, 2)
	b.WriteString(" energy ")
	appendFloat(&b, v.params.Energy, 2)
	b.WriteString(" fps ")
	appendFloat(&b, v.fps, 1)
	return b.String()
}

func appendFloat(b *strings.Builder, value float64, precision int) {
	var buf [32]byte
	b.Write(strconv.AppendFloat(buf[:0], value, 'f', precision, 64))
}

// Resize applies a new CSS size to the renderer, the camera and the
// composer buffers together. Non-positive sizes are ignored.
func (v *Visualizer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.renderer.SetSize(width, height)
	v.camera.Resize(width, height)
	v.composer.SetSize(v.renderer.DrawingBufferSize())
}

// SetCameraPreset switches the camera rig by name.
func (v *Visualizer) SetCameraPreset(name string) error {
	p, err := camera.ParsePreset(name)
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	if err := v.camera.SetPreset(p); err != nil {
		return err
	}
	log.Debugf("camera preset -> %s", p)
	return nil
}

// CameraPreset is the active preset.
func (v *Visualizer) CameraPreset() camera.Preset {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.camera.Preset()
}

// SetMode shows one generator, or all of them for ModeAll. Hidden
// generators keep their buffers.
func (v *Visualizer) SetMode(name string) error {
	m, err := ParseMode(name)
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mode = m
	geometry.SetVisible(v.membrane.Object(), m == ModeAll || m == ModeMembrane)
	geometry.SetVisible(v.lattice.Object(), m == ModeAll || m == ModeLattice)
	geometry.SetVisible(v.particles.Object(), m == ModeAll || m == ModeParticles)
	return nil
}

// Mode is the active visualization mode.
func (v *Visualizer) Mode() Mode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mode
}

func (v *Visualizer) Scene() *render.Scene         { return v.scene }
func (v *Visualizer) Renderer() *render.Renderer   { return v.renderer }
func (v *Visualizer) Analyser() *analyzer.Analyser { return v.analyser }
func (v *Visualizer) Input() camera.Input          { return v.input }
func (v *Visualizer) LOD() geometry.LOD            { return v.lod }

// Beat is the last frame's beat state.
func (v *Visualizer) Beat() analyzer.BeatState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.beatState
}

func (v *Visualizer) Status() Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	w, h := v.renderer.Size()
	return Status{
		Running: v.running,
		Preset:  string(v.camera.Preset()),
		Mode:    string(v.mode),
		LOD:     v.lod.Level.String(),
		Width:   w,
		Height:  h,
		FPS:     v.fps,
		Frames:  v.frames,
		RMS:     v.analyser.RMSLevel(),
		Energy:  v.params.Energy,
		Pulse:   v.params.Pulse,
		Beat:    v.beatState,
		Levels:  v.levels,
	}
}

// Close stops the loop and releases everything New built. The surface
// itself belongs to the caller. Repeated calls return nil.
func (v *Visualizer) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.stopLocked()
	v.closed = true

	var errs []error
	for _, g := range []geometry.Generator{v.membrane, v.lattice, v.particles} {
		if err := g.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := v.analyser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("analyser: %w", err))
	}
	if err := v.composer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("composer: %w", err))
	}
	if err := v.renderer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("renderer: %w", err))
	}
	if v.removeResize != nil {
		v.removeResize()
		v.removeResize = nil
	}
	if err := v.camera.Close(); err != nil {
		errs = append(errs, fmt.Errorf("camera: %w", err))
	}
	if err := v.profiler.Close(); err != nil {
		errs = append(errs, fmt.Errorf("profiler: %w", err))
	}
	return errors.Join(errs...)
}
