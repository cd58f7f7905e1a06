package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/guidoenr/harmonic/internal/app"
	"github.com/guidoenr/harmonic/internal/audio"
	"github.com/guidoenr/harmonic/internal/audio/decode"
	"github.com/guidoenr/harmonic/internal/camera"
	"github.com/guidoenr/harmonic/internal/config"
	"github.com/guidoenr/harmonic/internal/log"
	"github.com/guidoenr/harmonic/internal/playback"
	"github.com/guidoenr/harmonic/internal/render"
	"github.com/spf13/cobra"
)

var version = "dev"

type cliFlags struct {
	configPath string
	backend    string
	preset     string
	mode       string
	palette    string
	device     string
	profile    string
	logLevel   string
	logFile    string
	fps        float64
	width      int
	height     int
	webPort    int
	debug      bool
	noAudio    bool
	noStatus   bool
}

func main() {
	if err := newRootCmd(&cliFlags{}).Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

func newRootCmd(flags *cliFlags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "visualizer",
		Short:         "Audio-reactive 3D visualizer for music playback and live input",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "YAML configuration file (default ./harmonic.yaml when present)")
	pf.StringVar(&flags.backend, "backend", "", "Render backend: "+strings.Join(app.Backends(), "|"))
	pf.StringVar(&flags.preset, "preset", "", "Initial camera preset (auto-orbit|free-fly|orthographic)")
	pf.StringVar(&flags.mode, "mode", "", "Visualization mode (all|membrane|lattice|particles)")
	pf.Float64Var(&flags.fps, "fps", 0, "Target frames per second")
	pf.IntVar(&flags.width, "width", 0, "Window width for sdl, gl and headless backends")
	pf.IntVar(&flags.height, "height", 0, "Window height for sdl, gl and headless backends")
	pf.StringVarP(&flags.device, "device", "d", "", "PortAudio input device (substring match)")
	pf.IntVar(&flags.webPort, "web-port", 0, "Serve the status page on this port")
	pf.StringVar(&flags.profile, "profile", "", "Append per-frame timings to this CSV file")
	pf.BoolVar(&flags.debug, "debug", false, "Shorthand for --log-level debug")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (debug|info|warn|error)")
	pf.StringVar(&flags.logFile, "log-file", "", "Write logs here while the terminal backend is active")
	pf.StringVar(&flags.palette, "palette", "", "Terminal glyph palette: "+strings.Join(render.PaletteNames(), "|"))
	pf.BoolVar(&flags.noStatus, "no-status", false, "Hide the status bar")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "play <file|dir|playlist>...",
			Short: "Play local audio files and visualize them",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				tracks, err := playback.Collect(args)
				if err != nil {
					return err
				}
				if len(tracks) == 0 {
					return fmt.Errorf("no playable files (supported: %s)", strings.Join(decode.Extensions(), ", "))
				}
				return run(cmd, flags, app.SourcePlayback, tracks)
			},
		},
		newListenCmd(flags),
		&cobra.Command{
			Use:   "demo",
			Short: "Visualize the built-in synthetic signal",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, flags, app.SourceSynth, nil)
			},
		},
		&cobra.Command{
			Use:   "devices",
			Short: "List audio devices",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return listDevices(cmd.OutOrStdout())
			},
		},
	)
	return rootCmd
}

func newListenCmd(flags *cliFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Visualize a live input such as a microphone or loopback device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			source := app.SourceCapture
			if flags.noAudio {
				source = app.SourceSynth
			}
			return run(cmd, flags, source, nil)
		},
	}
	cmd.Flags().BoolVar(&flags.noAudio, "no-audio", false, "Use the synthetic signal instead of an input device")
	return cmd
}

// loadConfig layers the flags the user actually set over the config file.
func loadConfig(cmd *cobra.Command, flags *cliFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	changed := cmd.Flags().Changed

	if changed("backend") {
		cfg.Render.Backend = strings.ToLower(flags.backend)
	}
	if changed("preset") {
		preset, err := camera.ParsePreset(flags.preset)
		if err != nil {
			return nil, err
		}
		cfg.Camera.Preset = string(preset)
	}
	if changed("fps") {
		cfg.Render.TargetFPS = flags.fps
	}
	if changed("width") {
		cfg.Render.Width = flags.width
	}
	if changed("height") {
		cfg.Render.Height = flags.height
	}
	if changed("device") {
		cfg.Audio.Device = flags.device
	}
	if changed("web-port") {
		cfg.Web.Enabled = flags.webPort > 0
		cfg.Web.Port = flags.webPort
	}
	if changed("palette") {
		cfg.Render.Palette = flags.palette
	}
	if changed("no-status") {
		cfg.Render.StatusBar = !flags.noStatus
	}
	if changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if flags.debug {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(cmd *cobra.Command, flags *cliFlags, source app.Source, tracks []string) error {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}
	if level, ok := log.ParseLevel(cfg.LogLevel); ok {
		log.SetLevel(level)
	} else {
		log.Warnf("unknown log level %q, keeping %s", cfg.LogLevel, log.GetLevel())
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, app.Options{
		Config:      cfg,
		Source:      source,
		Tracks:      tracks,
		Mode:        flags.mode,
		ProfilePath: flags.profile,
		LogPath:     flags.logFile,
	})
	if err != nil {
		return err
	}

	runErr := a.Run(ctx)
	if err := a.Close(); err != nil {
		log.Warnf("cleanup error: %v", err)
	}
	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	return nil
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#B7A8FF"))
	defaultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7CFFB2"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8A84B8"))
)

func listDevices(w io.Writer) error {
	if err := audio.Initialize(); err != nil {
		return fmt.Errorf("initialize PortAudio: %w", err)
	}
	defer audio.Terminate()

	devices, err := audio.ListDevices()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, headerStyle.Render("Audio devices"))
	host := ""
	for _, dev := range devices {
		if dev.HostAPI != host {
			host = dev.HostAPI
			fmt.Fprintf(w, "\n%s\n", headerStyle.Render(host))
		}
		name := dev.Name
		switch {
		case dev.IsDefaultInput:
			name = defaultStyle.Render(name + " (default input)")
		case dev.IsDefaultOutput:
			name = defaultStyle.Render(name + " (default output)")
		}
		fmt.Fprintf(w, "  %s\n", name)
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("    in:%d out:%d %.0f Hz", dev.MaxInput, dev.MaxOutput, dev.DefaultSampleHz)))
	}
	return nil
}
