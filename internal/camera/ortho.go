package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	orthoDamping   = 0.1
	orthoZoomSpeed = 1.2
	orthoMinZoom   = 0.5
	orthoMaxZoom   = 6
)

// orthoRig is a fixed-angle orthographic view: drags pan, scrolls zoom.
type orthoRig struct {
	cam    *Camera
	ctl    *controls
	size   float64
	target mgl64.Vec3
	width  int
	height int
	offset mgl64.Vec3
	panX   springAxis
	panY   springAxis
	zoom   springAxis
	goalX  float64
	goalY  float64
	goalZ  float64
}

func newOrthoRig(width, height int, in Input, opts Options) *orthoRig {
	size := opts.OrthographicSize
	aspect := aspectOf(width, height)
	cam := NewOrthographic(-size*aspect/2, size*aspect/2, size/2, -size/2, -200, 400)
	cam.Target = opts.Target
	cam.Position = opts.start(mgl64.Vec3{0, 12, 24})

	spring := springFor(opts.FPS, orthoDamping)
	return &orthoRig{
		cam:    cam,
		ctl:    bindControls(in),
		size:   size,
		target: cam.Target,
		width:  width,
		height: height,
		offset: cam.Position.Sub(cam.Target),
		panX:   newSpringAxis(spring, 0),
		panY:   newSpringAxis(spring, 0),
		zoom:   newSpringAxis(spring, 1),
		goalZ:  1,
	}
}

func (o *orthoRig) Preset() Preset  { return PresetOrthographic }
func (o *orthoRig) Camera() *Camera { return o.cam }

func (o *orthoRig) Update(dt float64) {
	in := o.ctl.drain(dt)
	zoom := o.cam.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	w := float64(max(1, o.width))
	h := float64(max(1, o.height))
	o.goalX -= in.dragX * (o.cam.Right - o.cam.Left) / zoom / w
	o.goalY += in.dragY * (o.cam.Top - o.cam.Bottom) / zoom / h
	if in.scroll != 0 {
		o.goalZ /= math.Pow(math.Pow(0.95, orthoZoomSpeed), -in.scroll)
	}
	o.goalZ = clampf(o.goalZ, orthoMinZoom, orthoMaxZoom)

	px := o.panX.step(o.goalX)
	py := o.panY.step(o.goalY)
	o.cam.Zoom = clampf(o.zoom.step(o.goalZ), orthoMinZoom, orthoMaxZoom)

	forward := o.offset.Mul(-1).Normalize()
	right := forward.Cross(mgl64.Vec3{0, 1, 0}).Normalize()
	up := right.Cross(forward)
	target := o.target.Add(right.Mul(px)).Add(up.Mul(py))
	o.cam.Target = target
	o.cam.Position = target.Add(o.offset)
}

// Resize recomputes the frustum bounds from the new aspect.
func (o *orthoRig) Resize(width, height int) {
	o.width, o.height = width, height
	aspect := aspectOf(width, height)
	o.cam.Left = -o.size * aspect / 2
	o.cam.Right = o.size * aspect / 2
	o.cam.Top = o.size / 2
	o.cam.Bottom = -o.size / 2
}

func (o *orthoRig) Close() error {
	o.ctl.close()
	return nil
}
