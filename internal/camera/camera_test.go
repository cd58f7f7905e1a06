package camera

import (
	"math"
	"testing"
)

const frame = 1.0 / 60.0

type countingInput struct {
	bus      *Bus
	released int
}

func (c *countingInput) Subscribe(fn func(Event)) func() {
	cancel := c.bus.Subscribe(fn)
	done := false
	return func() {
		if !done {
			done = true
			c.released++
		}
		cancel()
	}
}

func TestParsePresetAliases(t *testing.T) {
	cases := map[string]Preset{
		"auto-orbit":   PresetAutoOrbit,
		"autoOrbit":    PresetAutoOrbit,
		"orbit":        PresetAutoOrbit,
		"free-fly":     PresetFreeFly,
		"freeFly":      PresetFreeFly,
		"fly":          PresetFreeFly,
		"orthographic": PresetOrthographic,
		"ortho":        PresetOrthographic,
	}
	for in, want := range cases {
		got, err := ParsePreset(in)
		if err != nil || got != want {
			t.Fatalf("ParsePreset(%q)=%q,%v want %q", in, got, err, want)
		}
	}
	if _, err := ParsePreset("dolly"); err == nil {
		t.Fatalf("expected unknown preset to fail")
	}
}

func TestPresetNextCycles(t *testing.T) {
	p := PresetAutoOrbit
	for range Presets() {
		p = p.Next()
	}
	if p != PresetAutoOrbit {
		t.Fatalf("cycle ended on %q", p)
	}
}

func TestSwitchReleasesSubscriptions(t *testing.T) {
	in := &countingInput{bus: NewBus()}
	c, err := NewController(PresetAutoOrbit, 800, 600, in, Options{})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	if err := c.SetPreset(PresetFreeFly); err != nil {
		t.Fatalf("switch to free-fly: %v", err)
	}
	if err := c.SetPreset(PresetAutoOrbit); err != nil {
		t.Fatalf("switch back: %v", err)
	}
	if in.released != 2 {
		t.Fatalf("released=%d want 2", in.released)
	}
	if in.bus.Active() != 1 {
		t.Fatalf("active=%d want 1", in.bus.Active())
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if in.bus.Active() != 0 {
		t.Fatalf("active after close=%d want 0", in.bus.Active())
	}
}

func TestSamePresetIsNoop(t *testing.T) {
	bus := NewBus()
	c, err := NewController(PresetOrthographic, 800, 600, bus, Options{})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	cam := c.Camera()
	if err := c.SetPreset(PresetOrthographic); err != nil {
		t.Fatalf("set same preset: %v", err)
	}
	if c.Camera() != cam {
		t.Fatalf("same preset rebuilt the camera")
	}
	if err := c.SetPreset("bogus"); err == nil {
		t.Fatalf("expected unknown preset to fail")
	}
	if c.Preset() != PresetOrthographic || bus.Active() != 1 {
		t.Fatalf("failed switch changed state: preset=%q active=%d", c.Preset(), bus.Active())
	}
}

func TestResizeIsExact(t *testing.T) {
	for _, p := range []Preset{PresetAutoOrbit, PresetFreeFly} {
		c, err := NewController(p, 800, 600, NewBus(), Options{})
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		cam := c.Camera()
		c.Resize(1920, 1080)
		if cam.Aspect != 1920.0/1080.0 {
			t.Fatalf("%s aspect=%v want %v", p, cam.Aspect, 1920.0/1080.0)
		}
		if c.Camera() != cam {
			t.Fatalf("%s resize rebuilt the camera", p)
		}
	}

	c, err := NewController(PresetOrthographic, 800, 600, NewBus(), Options{})
	if err != nil {
		t.Fatalf("ortho: %v", err)
	}
	c.Resize(1000, 500)
	cam := c.Camera()
	if cam.Left != -18 || cam.Right != 18 || cam.Top != 9 || cam.Bottom != -9 {
		t.Fatalf("ortho bounds=%v/%v/%v/%v", cam.Left, cam.Right, cam.Top, cam.Bottom)
	}
}

func TestSwitchUsesLatestSize(t *testing.T) {
	c, err := NewController(PresetAutoOrbit, 800, 600, NewBus(), Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	c.Resize(1600, 400)
	if err := c.SetPreset(PresetFreeFly); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if got := c.Camera().Aspect; got != 4 {
		t.Fatalf("aspect after switch=%v want 4", got)
	}
}

func TestAutoOrbitRotatesWithinBounds(t *testing.T) {
	bus := NewBus()
	c, err := NewController(PresetAutoOrbit, 800, 600, bus, Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	start := c.Camera().Position
	for i := 0; i < 120; i++ {
		c.Update(frame)
	}
	pos := c.Camera().Position
	if pos.ApproxEqual(start) {
		t.Fatalf("auto-rotate did not move the camera")
	}
	if d := pos.Len(); d < 9 || d > 45 {
		t.Fatalf("distance %f outside [9, 45]", d)
	}

	bus.Publish(Event{Kind: Scroll, DY: -200})
	for i := 0; i < 600; i++ {
		c.Update(frame)
	}
	if d := c.Camera().Position.Len(); d < 9-1e-9 || d > 9.5 {
		t.Fatalf("dolly-in distance=%f want ~9", d)
	}
}

func TestFreeFlyMovesForward(t *testing.T) {
	bus := NewBus()
	c, err := NewController(PresetFreeFly, 800, 600, bus, Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	bus.Publish(Event{Kind: KeyDown, Key: "w"})
	for i := 0; i < 60; i++ {
		c.Update(frame)
	}
	bus.Publish(Event{Kind: KeyUp, Key: "w"})
	pos := c.Camera().Position
	if pos.Z() >= 24 {
		t.Fatalf("z=%f, expected forward motion along -Z", pos.Z())
	}
	if math.Abs(pos.X()) > 1e-9 {
		t.Fatalf("x drifted to %f", pos.X())
	}
}

func TestOrthographicZoomClamps(t *testing.T) {
	bus := NewBus()
	c, err := NewController(PresetOrthographic, 800, 600, bus, Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	bus.Publish(Event{Kind: Scroll, DY: -500})
	for i := 0; i < 600; i++ {
		c.Update(frame)
	}
	if z := c.Camera().Zoom; z > 6 || z < 5.9 {
		t.Fatalf("zoom=%f want ~6", z)
	}
	bus.Publish(Event{Kind: Scroll, DY: 500})
	for i := 0; i < 600; i++ {
		c.Update(frame)
	}
	if z := c.Camera().Zoom; z < 0.5 || z > 0.6 {
		t.Fatalf("zoom=%f want ~0.5", z)
	}
}

func TestTimedKeysRelease(t *testing.T) {
	bus := NewBus()
	ctl := bindControls(bus)
	defer ctl.close()
	bus.Publish(Event{Kind: KeyDown, Key: "w", Hold: 0.05})
	if !ctl.drain(0.03).keys["w"] {
		t.Fatalf("key missing on first frame")
	}
	if !ctl.drain(0.03).keys["w"] {
		t.Fatalf("key missing on second frame")
	}
	if ctl.drain(0.03).keys["w"] {
		t.Fatalf("key still held after hold expired")
	}
}

func TestViewCentresTarget(t *testing.T) {
	for _, p := range Presets() {
		c, err := NewController(p, 800, 600, NewBus(), Options{})
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		cam := c.Camera()
		look := cam.Position.Add(cam.Forward().Mul(10))
		clip := cam.ViewProjection().Mul4x1(look.Vec4(1))
		if math.Abs(clip.X()/clip.W()) > 1e-6 || math.Abs(clip.Y()/clip.W()) > 1e-6 {
			t.Fatalf("%s: forward point not centred: %v", p, clip)
		}
	}
}

func TestBusCancelIdempotent(t *testing.T) {
	bus := NewBus()
	got := 0
	cancel := bus.Subscribe(func(Event) { got++ })
	bus.Publish(Event{Kind: KeyDown, Key: "x"})
	cancel()
	cancel()
	bus.Publish(Event{Kind: KeyDown, Key: "x"})
	if got != 1 || bus.Active() != 0 {
		t.Fatalf("got=%d active=%d", got, bus.Active())
	}
}
