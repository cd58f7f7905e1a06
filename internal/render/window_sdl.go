//go:build sdl

package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/guidoenr/harmonic/internal/camera"
	"github.com/veandco/go-sdl2/sdl"
)

type sdlWindow struct {
	mu          sync.Mutex
	thread      *osThread
	window      *sdl.Window
	renderer    *sdl.Renderer
	texture     *sdl.Texture
	texWidth    int
	texHeight   int
	width       int
	height      int
	ratio       float64
	windowTitle string
	input       *camera.Bus
	quit        bool
	closed      bool
	listeners   resizeListeners
}

// NewSDLWindow opens a resizable SDL window that shows frames through a
// streaming texture and publishes its input on cfg.Input.
func NewSDLWindow(cfg WindowConfig) (Window, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 1280, 720
	}
	if cfg.Title == "" {
		cfg.Title = "harmonic"
	}
	w := &sdlWindow{
		thread: startThread(),
		width:  cfg.Width,
		height: cfg.Height,
		ratio:  1,
		input:  cfg.Input,
	}
	err := w.thread.call(func() error {
		if err := sdl.InitSubSystem(sdl.INIT_VIDEO); err != nil {
			return err
		}
		window, err := sdl.CreateWindow(
			cfg.Title,
			sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
			int32(cfg.Width), int32(cfg.Height),
			sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE|sdl.WINDOW_ALLOW_HIGHDPI,
		)
		if err != nil {
			sdl.QuitSubSystem(sdl.INIT_VIDEO)
			return err
		}
		w.window = window
		renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
		if err != nil {
			window.Destroy()
			sdl.QuitSubSystem(sdl.INIT_VIDEO)
			return err
		}
		w.renderer = renderer
		if ow, _, err := renderer.GetOutputSize(); err == nil && ow > 0 {
			w.ratio = float64(ow) / float64(cfg.Width)
		}
		return nil
	})
	if err != nil {
		w.thread.stop()
		return nil, fmt.Errorf("sdl window: %w", err)
	}
	return w, nil
}

func (w *sdlWindow) ClientSize() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

func (w *sdlWindow) PixelRatio() float64 { return w.ratio }

func (w *sdlWindow) OnResize(fn func(int, int)) func() { return w.listeners.add(fn) }

// Poll drains the SDL event queue, turning window events into resizes and
// input events into camera events.
func (w *sdlWindow) Poll() {
	var resized bool
	var rw, rh int
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	_ = w.thread.call(func() error {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch event := event.(type) {
			case *sdl.QuitEvent:
				w.quit = true
			case *sdl.WindowEvent:
				if event.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
					w.width, w.height = int(event.Data1), int(event.Data2)
					rw, rh, resized = w.width, w.height, true
				}
			case *sdl.MouseMotionEvent:
				if event.State&sdl.ButtonLMask() != 0 {
					w.publish(camera.Event{Kind: camera.PointerDrag, DX: float64(event.XRel), DY: float64(event.YRel)})
				}
			case *sdl.MouseWheelEvent:
				w.publish(camera.Event{Kind: camera.Scroll, DY: -float64(event.Y)})
			case *sdl.KeyboardEvent:
				if event.Repeat != 0 {
					continue
				}
				key := strings.ToLower(sdl.GetKeyName(event.Keysym.Sym))
				if event.Type == sdl.KEYDOWN {
					w.publish(camera.Event{Kind: camera.KeyDown, Key: key})
				} else if event.Type == sdl.KEYUP {
					w.publish(camera.Event{Kind: camera.KeyUp, Key: key})
				}
			}
		}
		return nil
	})
	w.mu.Unlock()
	if resized {
		w.listeners.notify(rw, rh)
	}
}

func (w *sdlWindow) publish(ev camera.Event) {
	if w.input != nil {
		w.input.Publish(ev)
	}
}

// Present uploads the frame into the streaming texture and shows it. The
// status line becomes the window title.
func (w *sdlWindow) Present(f *Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrSurfaceClosed
	}
	if w.quit {
		return ErrRendererQuit
	}
	if f.Width <= 0 || f.Height <= 0 || len(f.Pixels) < f.Width*f.Height*4 {
		return nil
	}
	return w.thread.call(func() error {
		if w.texture == nil || w.texWidth != f.Width || w.texHeight != f.Height {
			if w.texture != nil {
				w.texture.Destroy()
				w.texture = nil
			}
			tex, err := w.renderer.CreateTexture(
				sdl.PIXELFORMAT_ABGR8888,
				sdl.TEXTUREACCESS_STREAMING,
				int32(f.Width), int32(f.Height),
			)
			if err != nil {
				return err
			}
			w.texture = tex
			w.texWidth, w.texHeight = f.Width, f.Height
		}
		if f.Status != "" && f.Status != w.windowTitle {
			_ = w.window.SetTitle(f.Status)
			w.windowTitle = f.Status
		}
		if err := w.texture.Update(nil, f.Pixels, f.Width*4); err != nil {
			return err
		}
		if err := w.renderer.Clear(); err != nil {
			return err
		}
		if err := w.renderer.Copy(w.texture, nil, nil); err != nil {
			return err
		}
		w.renderer.Present()
		return nil
	})
}

func (w *sdlWindow) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.thread.call(func() error {
		if w.texture != nil {
			w.texture.Destroy()
			w.texture = nil
		}
		if w.renderer != nil {
			w.renderer.Destroy()
			w.renderer = nil
		}
		if w.window != nil {
			w.window.Destroy()
			w.window = nil
		}
		sdl.QuitSubSystem(sdl.INIT_VIDEO)
		return nil
	})
	w.thread.stop()
	return err
}

func SupportsSDL() bool { return true }
