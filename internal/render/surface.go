package render

import (
	"errors"
	"sync"

	"github.com/guidoenr/harmonic/internal/camera"
)

// ErrRendererQuit is returned by Present when the user closed the window.
var ErrRendererQuit = errors.New("renderer quit requested")

// ErrSurfaceClosed is returned by Present after Close.
var ErrSurfaceClosed = errors.New("render surface closed")

// Frame is one composed image in RGBA8, row-major from the top-left.
type Frame struct {
	Pixels []uint8
	Width  int
	Height int
	Status string
}

// Surface is the drawable the visualizer presents to.
type Surface interface {
	// ClientSize is the size in CSS pixels.
	ClientSize() (width, height int)
	PixelRatio() float64
	OnResize(fn func(width, height int)) (remove func())
	Present(f *Frame) error
	Close() error
}

// Window is a surface with its own event pump, run once per frame on the
// thread that owns it.
type Window interface {
	Surface
	Poll()
}

// WindowConfig configures the SDL and GL windows.
type WindowConfig struct {
	Title  string
	Width  int
	Height int
	Input  *camera.Bus
}

type resizeListeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(int, int)
}

func (l *resizeListeners) add(fn func(int, int)) func() {
	l.mu.Lock()
	if l.fns == nil {
		l.fns = make(map[int]func(int, int))
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

func (l *resizeListeners) notify(w, h int) {
	l.mu.Lock()
	fns := make([]func(int, int), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn(w, h)
	}
}

func (l *resizeListeners) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}

// Headless keeps the last presented frame in memory. It backs tests and
// embedding hosts that read pixels themselves.
type Headless struct {
	mu        sync.Mutex
	width     int
	height    int
	ratio     float64
	frames    int
	last      Frame
	closed    bool
	listeners resizeListeners
}

func NewHeadless(width, height int, pixelRatio float64) *Headless {
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	return &Headless{width: width, height: height, ratio: pixelRatio}
}

func (h *Headless) ClientSize() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.width, h.height
}

func (h *Headless) PixelRatio() float64 { return h.ratio }

func (h *Headless) OnResize(fn func(int, int)) func() { return h.listeners.add(fn) }

// SetSize changes the client size and notifies resize listeners.
func (h *Headless) SetSize(width, height int) {
	h.mu.Lock()
	h.width, h.height = width, height
	h.mu.Unlock()
	h.listeners.notify(width, height)
}

// Listeners reports how many resize listeners are registered.
func (h *Headless) Listeners() int { return h.listeners.count() }

func (h *Headless) Present(f *Frame) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrSurfaceClosed
	}
	h.frames++
	h.last.Width, h.last.Height, h.last.Status = f.Width, f.Height, f.Status
	h.last.Pixels = append(h.last.Pixels[:0], f.Pixels...)
	return nil
}

// Frames counts successful presents.
func (h *Headless) Frames() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frames
}

// Last returns a copy of the most recent frame.
func (h *Headless) Last() Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.last
	out.Pixels = append([]uint8(nil), h.last.Pixels...)
	return out
}

func (h *Headless) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}
