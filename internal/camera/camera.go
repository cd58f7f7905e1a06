package camera

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Kind selects the projection model.
type Kind int

const (
	KindPerspective Kind = iota
	KindOrthographic
)

// Camera is the view a rig drives. Look-at cameras derive their view from
// Position, Target and Up; free-look cameras from Position and Orientation.
type Camera struct {
	Kind        Kind
	Position    mgl64.Vec3
	Target      mgl64.Vec3
	Up          mgl64.Vec3
	Orientation mgl64.Quat
	FreeLook    bool

	FOV    float64
	Aspect float64
	Near   float64
	Far    float64

	Left   float64
	Right  float64
	Top    float64
	Bottom float64
	Zoom   float64
}

// NewPerspective builds a look-at perspective camera; fov is vertical, in
// degrees.
func NewPerspective(fov, aspect, near, far float64) *Camera {
	return &Camera{
		Kind:        KindPerspective,
		Up:          mgl64.Vec3{0, 1, 0},
		Orientation: mgl64.QuatIdent(),
		FOV:         fov,
		Aspect:      aspect,
		Near:        near,
		Far:         far,
		Zoom:        1,
	}
}

// NewOrthographic builds a look-at orthographic camera.
func NewOrthographic(left, right, top, bottom, near, far float64) *Camera {
	return &Camera{
		Kind:        KindOrthographic,
		Up:          mgl64.Vec3{0, 1, 0},
		Orientation: mgl64.QuatIdent(),
		Left:        left,
		Right:       right,
		Top:         top,
		Bottom:      bottom,
		Near:        near,
		Far:         far,
		Zoom:        1,
	}
}

// View returns the world-to-camera matrix.
func (c *Camera) View() mgl64.Mat4 {
	if c.FreeLook {
		p := c.Position
		return c.Orientation.Conjugate().Mat4().Mul4(mgl64.Translate3D(-p.X(), -p.Y(), -p.Z()))
	}
	return mgl64.LookAtV(c.Position, c.Target, c.Up)
}

// Projection returns the camera-to-clip matrix.
func (c *Camera) Projection() mgl64.Mat4 {
	if c.Kind == KindOrthographic {
		zoom := c.Zoom
		if zoom <= 0 {
			zoom = 1
		}
		return mgl64.Ortho(c.Left/zoom, c.Right/zoom, c.Bottom/zoom, c.Top/zoom, c.Near, c.Far)
	}
	return mgl64.Perspective(mgl64.DegToRad(c.FOV), c.Aspect, c.Near, c.Far)
}

// ViewProjection is Projection × View.
func (c *Camera) ViewProjection() mgl64.Mat4 {
	return c.Projection().Mul4(c.View())
}

// Forward is the unit direction the camera looks along.
func (c *Camera) Forward() mgl64.Vec3 {
	if c.FreeLook {
		return c.Orientation.Rotate(mgl64.Vec3{0, 0, -1})
	}
	d := c.Target.Sub(c.Position)
	if d.Len() == 0 {
		return mgl64.Vec3{0, 0, -1}
	}
	return d.Normalize()
}
