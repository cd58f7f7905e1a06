package render

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/guidoenr/harmonic/internal/camera"
	"github.com/guidoenr/harmonic/internal/geometry"
)

var (
	// ErrNoSurface is returned when a renderer is built without a surface.
	ErrNoSurface = errors.New("render: surface is required")
	// ErrRendererClosed is returned by Render after Close.
	ErrRendererClosed = errors.New("render: renderer closed")
)

// RendererConfig tunes the drawing buffer. A zero PixelRatio uses the
// surface's ratio; the result is capped at MaxPixelRatio (default 2.5).
type RendererConfig struct {
	PixelRatio    float64
	MaxPixelRatio float64
	ClearColor    string
}

// Renderer rasterises scenes into targets sized to the drawing buffer and
// hands composed frames to its surface.
type Renderer struct {
	mu      sync.Mutex
	surface Surface
	ratio   float64
	width   int
	height  int
	clear   geometry.Color
	status  string
	closed  bool
}

func NewRenderer(s Surface, cfg RendererConfig) (*Renderer, error) {
	if s == nil {
		return nil, ErrNoSurface
	}
	if cfg.MaxPixelRatio <= 0 {
		cfg.MaxPixelRatio = 2.5
	}
	if cfg.ClearColor == "" {
		cfg.ClearColor = "#010104"
	}
	ratio := cfg.PixelRatio
	if ratio <= 0 {
		ratio = s.PixelRatio()
	}
	if ratio <= 0 {
		ratio = 1
	}
	ratio = math.Min(ratio, cfg.MaxPixelRatio)

	w, h := s.ClientSize()
	if w <= 0 || h <= 0 {
		w, h = 1280, 720
	}
	return &Renderer{
		surface: s,
		ratio:   ratio,
		width:   w,
		height:  h,
		clear:   geometry.Hex(cfg.ClearColor),
	}, nil
}

// SetSize sets the size in CSS pixels; the drawing buffer follows at the
// pixel ratio.
func (r *Renderer) SetSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.mu.Lock()
	r.width, r.height = width, height
	r.mu.Unlock()
}

func (r *Renderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

// DrawingBufferSize is the size in device pixels.
func (r *Renderer) DrawingBufferSize() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return max(1, int(math.Floor(float64(r.width)*r.ratio))), max(1, int(math.Floor(float64(r.height)*r.ratio)))
}

func (r *Renderer) PixelRatio() float64 { return r.ratio }

func (r *Renderer) ClearColor() geometry.Color { return r.clear }

func (r *Renderer) Surface() Surface { return r.surface }

// SetStatus sets the text attached to the next presented frames.
func (r *Renderer) SetStatus(s string) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
}

func (r *Renderer) statusText() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Render draws scene from cam into target. The scene background replaces
// the clear colour.
func (r *Renderer) Render(scene *Scene, cam *camera.Camera, target *Target) error {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrRendererClosed
	}
	if scene == nil || cam == nil || target == nil {
		return fmt.Errorf("render: scene, camera and target are required")
	}
	bg := r.clear
	if scene.Background != (geometry.Color{}) {
		bg = scene.Background
	}
	target.Clear(bg)

	ras := newRaster(target, scene, cam)
	for _, obj := range scene.Objects() {
		ras.draw(obj)
	}
	return nil
}

// Present hands a frame to the surface.
func (r *Renderer) Present(f *Frame) error {
	return r.surface.Present(f)
}

// Close stops further rendering. The surface belongs to the caller.
func (r *Renderer) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

// parallelRows runs fn for every row on a pool of GOMAXPROCS workers.
func parallelRows(height int, fn func(y int)) {
	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > height {
		numWorkers = height
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	var wg sync.WaitGroup
	rowJobs := make(chan int, numWorkers)
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for y := range rowJobs {
				fn(y)
			}
		}()
	}
	for y := 0; y < height; y++ {
		rowJobs <- y
	}
	close(rowJobs)
	wg.Wait()
}
