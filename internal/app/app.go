// Package app hosts the visualizer: it opens the surface and the audio
// source, routes keys to the camera and transport, and runs the frame loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/guidoenr/harmonic/internal/audio"
	"github.com/guidoenr/harmonic/internal/audio/graph"
	"github.com/guidoenr/harmonic/internal/camera"
	"github.com/guidoenr/harmonic/internal/config"
	"github.com/guidoenr/harmonic/internal/log"
	"github.com/guidoenr/harmonic/internal/playback"
	"github.com/guidoenr/harmonic/internal/render"
	"github.com/guidoenr/harmonic/internal/visualizer"
	"github.com/guidoenr/harmonic/internal/web"
)

// Source selects what feeds the analyser.
type Source int

const (
	// SourcePlayback plays Tracks through the output device.
	SourcePlayback Source = iota
	// SourceCapture listens to a PortAudio input.
	SourceCapture
	// SourceSynth uses the built-in synthetic pattern.
	SourceSynth
)

func (s Source) String() string {
	switch s {
	case SourcePlayback:
		return "playback"
	case SourceCapture:
		return "capture"
	default:
		return "synth"
	}
}

// Options configure New.
type Options struct {
	Config      *config.Config
	Source      Source
	Tracks      []string
	Mode        string
	ProfilePath string
	// LogPath receives logs while the terminal backend owns the screen.
	// Empty discards them.
	LogPath string
}

// App ties together the audio source, the visualizer and the optional
// status server.
type App struct {
	cfg  config.Config
	opts Options
	ctx  context.Context

	input     *camera.Bus
	surface   render.Surface
	loop      *visualizer.FrameLoop
	vis       *visualizer.Visualizer
	transport *playback.Transport
	server    *web.Server

	player   *audio.Player
	capture  *audio.Capture
	synth    *audio.Synth
	paActive bool

	logFile   *os.File
	removeKey func()
	quit      chan struct{}
	quitOnce  sync.Once
	closeOnce sync.Once
	closeErr  error
}

// New builds every component. On error everything already opened is
// released.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := config.Default()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if opts.Source == SourcePlayback && len(opts.Tracks) == 0 {
		return nil, playback.ErrEmptyQueue
	}

	a := &App{
		cfg:   cfg,
		opts:  opts,
		ctx:   ctx,
		input: camera.NewBus(),
		loop:  visualizer.NewFrameLoop(cfg.Render.TargetFPS),
		quit:  make(chan struct{}),
	}
	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	node, resumer, err := a.openSource()
	if err != nil {
		return err
	}

	surface, err := newSurface(a.cfg.Render, a.input)
	if err != nil {
		return err
	}
	a.surface = surface
	if w, ok := surface.(render.Window); ok {
		a.loop.AddPoller(w.Poll)
	}
	if isTerminal(a.cfg.Render) {
		a.redirectLogs()
	}

	a.vis, err = visualizer.New(ctx, visualizer.Options{
		Surface:     surface,
		Source:      node,
		Context:     resumer,
		Scheduler:   a.loop,
		Input:       a.input,
		Config:      &a.cfg,
		ProfilePath: a.opts.ProfilePath,
	})
	if err != nil {
		return err
	}
	if a.opts.Mode != "" {
		if err := a.vis.SetMode(a.opts.Mode); err != nil {
			return err
		}
	}
	a.removeKey = a.input.Subscribe(a.handleKey)

	if a.cfg.Web.Enabled {
		var tv web.Transport
		if a.transport != nil {
			tv = a.transport
		}
		a.server = web.NewServer(a.vis, tv)
	}
	return nil
}

// openSource returns the node the analyser reads from and, for playback,
// the output context to resume.
func (a *App) openSource() (graph.Node, visualizer.Resumer, error) {
	switch a.opts.Source {
	case SourcePlayback:
		out, err := audio.NewContext(audio.ContextOptions{SampleRate: 44100, Channels: 2})
		if err != nil {
			return nil, nil, err
		}
		a.player = audio.NewPlayer(out)
		a.transport = playback.New(a.player, a.opts.Tracks, playback.Options{
			Resumer: out,
			Volume:  a.cfg.Audio.Volume,
		})
		a.transport.OnChange(func(s playback.State) {
			log.Debugf("transport: %s playing=%v volume=%.2f", s.Track, s.Playing, s.Volume)
		})
		return a.player, out, nil
	case SourceCapture:
		if err := audio.Initialize(); err != nil {
			return nil, nil, fmt.Errorf("init portaudio: %w", err)
		}
		a.paActive = true
		capture, err := audio.NewCapture(audio.CaptureConfig{
			DeviceName: a.cfg.Audio.Device,
			BufferSize: a.cfg.Audio.BufferSize,
			Channels:   2,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("audio capture: %w", err)
		}
		a.capture = capture
		return capture, nil, nil
	default:
		a.synth = audio.NewSynth(audio.SynthConfig{Seed: a.cfg.Particles.Seed})
		log.Infof("audio disabled, using synthetic generator")
		return a.synth, nil, nil
	}
}

// redirectLogs keeps log lines from tearing the terminal frame.
func (a *App) redirectLogs() {
	if a.opts.LogPath == "" {
		log.SetOutput(io.Discard)
		return
	}
	f, err := os.OpenFile(a.opts.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Warnf("log file disabled: %v", err)
		log.SetOutput(io.Discard)
		return
	}
	a.logFile = f
	log.SetOutput(f)
}

// Visualizer exposes the running visualizer.
func (a *App) Visualizer() *visualizer.Visualizer { return a.vis }

// Transport is nil unless the source is playback.
func (a *App) Transport() *playback.Transport { return a.transport }

// Run drives frames on the calling goroutine until ctx ends, Esc is
// pressed or the window is closed. Quitting is not an error.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.ctx = runCtx

	if a.synth != nil {
		a.synth.Start(runCtx)
	}
	if a.transport != nil {
		go func() {
			_ = a.transport.Run(runCtx)
		}()
		_ = a.transport.Play(runCtx)
	}
	if a.server != nil {
		go func() {
			if err := a.server.Start(runCtx, a.cfg.Web.Port); err != nil {
				log.Errorf("status server: %v", err)
			}
		}()
	}
	if isTerminal(a.cfg.Render) {
		startKeyboard(runCtx, a.input)
	}

	go func() {
		select {
		case <-a.quit:
		case <-a.vis.Quit():
		case <-runCtx.Done():
		}
		cancel()
	}()

	a.vis.Start()
	err := a.loop.Run(runCtx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) requestQuit() {
	a.quitOnce.Do(func() { close(a.quit) })
}

// Close releases everything in reverse order of construction. It is safe
// to call more than once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		var errs []error
		if a.removeKey != nil {
			a.removeKey()
		}
		if a.transport != nil {
			a.transport.Pause()
		}
		if a.vis != nil {
			errs = append(errs, a.vis.Close())
		}
		if a.surface != nil {
			errs = append(errs, a.surface.Close())
		}
		if a.synth != nil {
			errs = append(errs, a.synth.Close())
		}
		if a.player != nil {
			errs = append(errs, a.player.Close())
		}
		if a.capture != nil {
			errs = append(errs, a.capture.Close())
		}
		if a.paActive {
			audio.Terminate()
		}
		if a.logFile != nil {
			log.SetOutput(os.Stderr)
			errs = append(errs, a.logFile.Close())
		} else if isTerminal(a.cfg.Render) {
			log.SetOutput(os.Stderr)
		}
		a.closeErr = errors.Join(errs...)
	})
	return a.closeErr
}
