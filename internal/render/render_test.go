package render

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/guidoenr/harmonic/internal/camera"
	"github.com/guidoenr/harmonic/internal/geometry"
)

func testCamera(w, h int) *camera.Camera {
	cam := camera.NewPerspective(60, float64(w)/float64(h), 0.1, 200)
	cam.Position = mgl64.Vec3{0, 10, 18}
	cam.Target = mgl64.Vec3{}
	cam.Up = mgl64.Vec3{0, 1, 0}
	return cam
}

func TestRendererPixelRatio(t *testing.T) {
	tests := []struct {
		name  string
		dpr   float64
		ratio float64
		bw    int
		bh    int
	}{
		{"capped", 3, 2.5, 2000, 1500},
		{"retina", 2, 2, 1600, 1200},
		{"default", 0, 1, 800, 600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRenderer(NewHeadless(800, 600, tt.dpr), RendererConfig{})
			if err != nil {
				t.Fatalf("NewRenderer: %v", err)
			}
			if r.PixelRatio() != tt.ratio {
				t.Fatalf("ratio = %v, want %v", r.PixelRatio(), tt.ratio)
			}
			if w, h := r.DrawingBufferSize(); w != tt.bw || h != tt.bh {
				t.Fatalf("buffer = %dx%d, want %dx%d", w, h, tt.bw, tt.bh)
			}
		})
	}
}

func TestRendererRequiresSurface(t *testing.T) {
	if _, err := NewRenderer(nil, RendererConfig{}); !errors.Is(err, ErrNoSurface) {
		t.Fatalf("err = %v, want ErrNoSurface", err)
	}
}

func TestRendererZeroClientSize(t *testing.T) {
	r, err := NewRenderer(NewHeadless(0, 0, 1), RendererConfig{})
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	if w, h := r.Size(); w != 1280 || h != 720 {
		t.Fatalf("size = %dx%d, want 1280x720", w, h)
	}
	r.SetSize(-1, 10)
	if w, h := r.Size(); w != 1280 || h != 720 {
		t.Fatalf("non-positive resize applied: %dx%d", w, h)
	}
}

func TestComposerFollowsResize(t *testing.T) {
	r, err := NewRenderer(NewHeadless(64, 32, 1), RendererConfig{})
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	c := NewComposer(r, DefaultBloom())
	if w, h := c.Size(); w != 64 || h != 32 {
		t.Fatalf("initial composer size = %dx%d", w, h)
	}

	r.SetSize(100, 50)
	c.SetSize(r.DrawingBufferSize())
	scene, bloom := c.PassSizes()
	if scene != [2]int{100, 50} {
		t.Fatalf("scene pass = %v", scene)
	}
	if bloom != [2]int{50, 25} {
		t.Fatalf("bloom pass = %v", bloom)
	}
}

func TestComposerEmptySceneShowsBackground(t *testing.T) {
	surface := NewHeadless(64, 48, 1)
	r, err := NewRenderer(surface, RendererConfig{})
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	r.SetStatus("silent")
	c := NewComposer(r, DefaultBloom())

	frame, err := c.Render(NewScene(), testCamera(64, 48))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if frame.Width != 64 || frame.Height != 48 {
		t.Fatalf("frame = %dx%d", frame.Width, frame.Height)
	}
	want := []uint8{4, 3, 10, 255}
	for i := 0; i < len(frame.Pixels); i += 4 {
		if !bytes.Equal(frame.Pixels[i:i+4], want) {
			t.Fatalf("pixel %d = %v, want %v", i/4, frame.Pixels[i:i+4], want)
		}
	}
	if surface.Frames() != 1 {
		t.Fatalf("presented %d frames", surface.Frames())
	}
	if last := surface.Last(); last.Status != "silent" {
		t.Fatalf("status = %q", last.Status)
	}
}

func TestComposerDrawsGeometry(t *testing.T) {
	surface := NewHeadless(96, 64, 1)
	r, _ := NewRenderer(surface, RendererConfig{})
	c := NewComposer(r, DefaultBloom())

	scene := NewScene()
	scene.SetFog("#04030a", 0.01)
	membrane := geometry.NewMembrane(geometry.MembraneConfig{RadialSegments: 16, AngularSegments: 32})
	lattice := geometry.NewLattice(geometry.LatticeConfig{RadialCount: 6, AxialCount: 8})
	particles := geometry.NewParticles(geometry.ParticleConfig{Count: 64, Seed: 7})
	scene.Add(membrane.Object(), lattice.Object(), particles.Object())

	sig := geometry.Signal{
		TimeDomain:   make([]float32, 256),
		Frequency:    make([]uint8, 128),
		BeatStrength: 1,
	}
	for i := range sig.TimeDomain {
		sig.TimeDomain[i] = float32(math.Sin(float64(i) / 8))
	}
	for i := range sig.Frequency {
		sig.Frequency[i] = uint8(255 - i)
	}
	for _, g := range []geometry.Generator{membrane, lattice, particles} {
		g.Update(sig, 1.0/60)
	}

	frame, err := c.Render(scene, testCamera(96, 64))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	lit := 0
	for i := 0; i < len(frame.Pixels); i += 4 {
		if frame.Pixels[i] != 4 || frame.Pixels[i+1] != 3 || frame.Pixels[i+2] != 10 {
			lit++
		}
	}
	if lit == 0 {
		t.Fatal("expected geometry to cover some pixels")
	}
}

func TestPulseSwellsSprites(t *testing.T) {
	litFor := func(pulse float32) int {
		r, _ := NewRenderer(NewHeadless(64, 48, 1), RendererConfig{})
		c := NewComposer(r, BloomPass{})
		scene := NewScene()
		scene.Add(&geometry.Points{
			Node:      geometry.Node{Name: "dot", Visible: true},
			Positions: []float32{0, 0, 0},
			Size:      200,
			Pulse:     pulse,
			ColorA:    geometry.Hex("#ffffff"),
			ColorB:    geometry.Hex("#ffffff"),
		})
		frame, err := c.Render(scene, testCamera(64, 48))
		if err != nil {
			t.Fatalf("Render: %v", err)
		}
		lit := 0
		for i := 0; i < len(frame.Pixels); i += 4 {
			if frame.Pixels[i] != 4 || frame.Pixels[i+1] != 3 || frame.Pixels[i+2] != 10 {
				lit++
			}
		}
		return lit
	}

	rest, pulsed := litFor(0), litFor(1)
	if rest == 0 {
		t.Fatal("sprite drew nothing at rest")
	}
	if pulsed <= rest {
		t.Fatalf("pulse did not swell the sprite: %d lit pixels at rest, %d pulsed", rest, pulsed)
	}
}

func TestRenderAfterClose(t *testing.T) {
	r, _ := NewRenderer(NewHeadless(16, 16, 1), RendererConfig{})
	c := NewComposer(r, DefaultBloom())
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := c.Render(NewScene(), testCamera(16, 16)); !errors.Is(err, ErrRendererClosed) {
		t.Fatalf("err = %v, want ErrRendererClosed", err)
	}
}

func TestGaussianKernelNormalised(t *testing.T) {
	for _, radius := range []float64{0, 0.65, 2} {
		k := gaussian(blurRadius(radius))
		var sum float32
		for _, w := range k {
			sum += w
		}
		if math.Abs(float64(sum)-1) > 1e-5 {
			t.Fatalf("radius %v: kernel sums to %v", radius, sum)
		}
	}
}

func TestSceneFindAndRemove(t *testing.T) {
	scene := NewScene()
	m := geometry.NewMembrane(geometry.DefaultMembraneConfig())
	scene.Add(m.Object())
	name := geometry.NameOf(m.Object())
	if scene.Find(name) == nil {
		t.Fatalf("Find(%q) = nil", name)
	}
	scene.Remove(m.Object())
	if len(scene.Objects()) != 0 {
		t.Fatalf("objects after remove = %d", len(scene.Objects()))
	}
}

func TestHeadlessResizeListeners(t *testing.T) {
	h := NewHeadless(10, 10, 1)
	var got [2]int
	remove := h.OnResize(func(w, hh int) { got = [2]int{w, hh} })
	if h.Listeners() != 1 {
		t.Fatalf("listeners = %d", h.Listeners())
	}
	h.SetSize(30, 20)
	if got != [2]int{30, 20} {
		t.Fatalf("listener got %v", got)
	}
	remove()
	remove()
	if h.Listeners() != 0 {
		t.Fatalf("listeners after remove = %d", h.Listeners())
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := h.Present(&Frame{}); !errors.Is(err, ErrSurfaceClosed) {
		t.Fatalf("Present after close = %v", err)
	}
}

func TestTerminalPresent(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(TerminalConfig{Out: &buf, Width: 20, Height: 6, StatusBar: true})
	if w, h := term.ClientSize(); w != 20 || h != 10 {
		t.Fatalf("client size = %dx%d, want 20x10", w, h)
	}

	frame := &Frame{Width: 20, Height: 10, Pixels: bytes.Repeat([]byte{255}, 20*10*4), Status: "beat 0.42"}
	if err := term.Present(frame); err != nil {
		t.Fatalf("Present: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "\x1b[?1049h") {
		t.Fatalf("missing alt-screen enter: %q", out[:min(len(out), 16)])
	}
	if strings.Count(out, strings.Repeat("█", 20)) != 5 {
		t.Fatalf("expected 5 full rows of blocks in %q", out)
	}
	if !strings.Contains(out, "beat 0.42") {
		t.Fatalf("status bar missing from %q", out)
	}

	if err := term.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !strings.Contains(buf.String(), "\x1b[?1049l") {
		t.Fatal("alt-screen not restored")
	}
	if err := term.Present(frame); !errors.Is(err, ErrSurfaceClosed) {
		t.Fatalf("Present after close = %v", err)
	}
}

func TestRGBToANSI(t *testing.T) {
	tests := []struct {
		r, g, b float64
		want    int
	}{
		{0, 0, 0, 232},
		{1, 1, 1, 255},
		{1, 0, 0, 196},
		{0, 0, 1, 21},
	}
	for _, tt := range tests {
		if got := rgbToANSI(tt.r, tt.g, tt.b); got != tt.want {
			t.Fatalf("rgbToANSI(%v,%v,%v) = %d, want %d", tt.r, tt.g, tt.b, got, tt.want)
		}
	}
}
