package camera

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/harmonica"
	"github.com/go-gl/mathgl/mgl64"
)

// Preset names one of the camera rigs.
type Preset string

const (
	PresetAutoOrbit    Preset = "auto-orbit"
	PresetFreeFly      Preset = "free-fly"
	PresetOrthographic Preset = "orthographic"
)

// Presets lists every rig in switch order.
func Presets() []Preset {
	return []Preset{PresetAutoOrbit, PresetFreeFly, PresetOrthographic}
}

// ParsePreset resolves a preset name or one of its aliases.
func ParsePreset(name string) (Preset, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "auto-orbit", "autoorbit", "auto_orbit", "orbit":
		return PresetAutoOrbit, nil
	case "free-fly", "freefly", "free_fly", "fly":
		return PresetFreeFly, nil
	case "orthographic", "ortho":
		return PresetOrthographic, nil
	default:
		return "", fmt.Errorf("unknown camera preset %q", name)
	}
}

// Next cycles through Presets.
func (p Preset) Next() Preset {
	all := Presets()
	for i, q := range all {
		if q == p {
			return all[(i+1)%len(all)]
		}
	}
	return all[0]
}

// Rig drives one camera from input. Each rig owns its input subscription
// until Close.
type Rig interface {
	Preset() Preset
	Camera() *Camera
	Update(dt float64)
	Resize(width, height int)
	Close() error
}

// Options tune every rig. Zero values take the defaults.
type Options struct {
	Target           mgl64.Vec3
	InitialPosition  *mgl64.Vec3
	OrbitDistance    float64
	MovementSpeed    float64
	OrthographicSize float64
	FPS              int
}

func (o Options) withDefaults() Options {
	if o.OrbitDistance <= 0 {
		o.OrbitDistance = 18
	}
	if o.MovementSpeed <= 0 {
		o.MovementSpeed = 20
	}
	if o.OrthographicSize <= 0 {
		o.OrthographicSize = 18
	}
	if o.FPS <= 0 {
		o.FPS = 60
	}
	return o
}

func (o Options) start(def mgl64.Vec3) mgl64.Vec3 {
	if o.InitialPosition != nil {
		return *o.InitialPosition
	}
	return def
}

// springFor maps a per-frame damping factor onto a critically damped spring.
func springFor(fps int, damping float64) harmonica.Spring {
	return harmonica.NewSpring(harmonica.FPS(fps), damping*75, 1.0)
}

type springAxis struct {
	spring harmonica.Spring
	pos    float64
	vel    float64
}

func newSpringAxis(s harmonica.Spring, pos float64) springAxis {
	return springAxis{spring: s, pos: pos}
}

func (a *springAxis) step(target float64) float64 {
	a.pos, a.vel = a.spring.Update(a.pos, a.vel, target)
	return a.pos
}

func aspectOf(width, height int) float64 {
	return float64(width) / float64(height)
}

func build(p Preset, width, height int, in Input, opts Options) (Rig, error) {
	switch p {
	case PresetAutoOrbit:
		return newOrbitRig(width, height, in, opts), nil
	case PresetFreeFly:
		return newFreeFlyRig(width, height, in, opts), nil
	case PresetOrthographic:
		return newOrthoRig(width, height, in, opts), nil
	default:
		return nil, fmt.Errorf("unknown camera preset %q", string(p))
	}
}

// Controller keeps exactly one rig alive and swaps it on demand.
type Controller struct {
	input  Input
	opts   Options
	width  int
	height int
	preset Preset
	rig    Rig
}

// NewController builds the initial rig for a width×height surface.
func NewController(p Preset, width, height int, in Input, opts Options) (*Controller, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid camera viewport %dx%d", width, height)
	}
	opts = opts.withDefaults()
	rig, err := build(p, width, height, in, opts)
	if err != nil {
		return nil, err
	}
	return &Controller{
		input:  in,
		opts:   opts,
		width:  width,
		height: height,
		preset: p,
		rig:    rig,
	}, nil
}

// SetPreset closes the current rig and builds p at the current size.
// Selecting the active preset does nothing.
func (c *Controller) SetPreset(p Preset) error {
	if p == c.preset {
		return nil
	}
	switch p {
	case PresetAutoOrbit, PresetFreeFly, PresetOrthographic:
	default:
		return fmt.Errorf("unknown camera preset %q", string(p))
	}
	_ = c.rig.Close()
	rig, err := build(p, c.width, c.height, c.input, c.opts)
	if err != nil {
		return err
	}
	c.rig = rig
	c.preset = p
	return nil
}

func (c *Controller) Preset() Preset    { return c.preset }
func (c *Controller) Camera() *Camera   { return c.rig.Camera() }
func (c *Controller) Update(dt float64) { c.rig.Update(dt) }

// Resize records the size for future rigs and updates the active one.
func (c *Controller) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.width, c.height = width, height
	c.rig.Resize(width, height)
}

// Size is the viewport the rigs are bound to.
func (c *Controller) Size() (int, int) { return c.width, c.height }

func (c *Controller) Close() error {
	return c.rig.Close()
}
