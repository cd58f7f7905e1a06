package app

import (
	"fmt"
	"strings"

	"github.com/guidoenr/harmonic/internal/camera"
	"github.com/guidoenr/harmonic/internal/config"
	"github.com/guidoenr/harmonic/internal/render"
)

// Backends lists the surface names accepted by render.backend in this build.
func Backends() []string {
	names := []string{"terminal"}
	if render.SupportsSDL() {
		names = append(names, "sdl")
	}
	if render.SupportsGL() {
		names = append(names, "gl")
	}
	return append(names, "headless")
}

// newSurface opens the configured backend. Keyboard and pointer events from
// windows are published on input.
func newSurface(cfg config.RenderConfig, input *camera.Bus) (render.Surface, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "terminal":
		return render.NewTerminal(render.TerminalConfig{
			Palette:   cfg.Palette,
			UseANSI:   cfg.Color,
			StatusBar: cfg.StatusBar,
		}), nil
	case "sdl":
		return render.NewSDLWindow(render.WindowConfig{
			Title:  "harmonic",
			Width:  cfg.Width,
			Height: cfg.Height,
			Input:  input,
		})
	case "gl", "opengl":
		return render.NewGLWindow(render.WindowConfig{
			Title:  "harmonic",
			Width:  cfg.Width,
			Height: cfg.Height,
			Input:  input,
		})
	case "headless":
		return render.NewHeadless(cfg.Width, cfg.Height, cfg.PixelRatio), nil
	default:
		return nil, fmt.Errorf("unknown render backend %q (want one of %s)", cfg.Backend, strings.Join(Backends(), ", "))
	}
}

func isTerminal(cfg config.RenderConfig) bool {
	b := strings.ToLower(cfg.Backend)
	return b == "" || b == "terminal"
}
