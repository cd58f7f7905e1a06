package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	orbitDamping     = 0.08
	orbitAutoRotate  = 0.6
	orbitZoomScale   = 0.95
	orbitPolarMargin = 1e-3
)

// orbitRig circles the target automatically; drags rotate and scrolls dolly
// within [0.5, 2.5] × the orbit distance.
type orbitRig struct {
	cam     *Camera
	ctl     *controls
	height  int
	minDist float64
	maxDist float64
	theta   springAxis
	phi     springAxis
	radius  springAxis
	goalT   float64
	goalP   float64
	goalR   float64
}

func newOrbitRig(width, height int, in Input, opts Options) *orbitRig {
	d := opts.OrbitDistance
	cam := NewPerspective(60, aspectOf(width, height), 0.1, 200)
	cam.Target = opts.Target
	cam.Position = opts.start(mgl64.Vec3{d, d * 0.35, d})

	offset := cam.Position.Sub(cam.Target)
	r := offset.Len()
	theta := math.Atan2(offset.X(), offset.Z())
	phi := 0.0
	if r > 0 {
		phi = math.Acos(clampf(offset.Y()/r, -1, 1))
	}
	spring := springFor(opts.FPS, orbitDamping)
	return &orbitRig{
		cam:     cam,
		ctl:     bindControls(in),
		height:  height,
		minDist: d * 0.5,
		maxDist: d * 2.5,
		theta:   newSpringAxis(spring, theta),
		phi:     newSpringAxis(spring, phi),
		radius:  newSpringAxis(spring, r),
		goalT:   theta,
		goalP:   phi,
		goalR:   clampf(r, d*0.5, d*2.5),
	}
}

func (o *orbitRig) Preset() Preset  { return PresetAutoOrbit }
func (o *orbitRig) Camera() *Camera { return o.cam }

func (o *orbitRig) Update(dt float64) {
	in := o.ctl.drain(dt)
	h := float64(max(1, o.height))

	o.goalT -= 2 * math.Pi * in.dragX / h
	o.goalP -= 2 * math.Pi * in.dragY / h
	if dt > 0 {
		o.goalT -= 2 * math.Pi / 60 * orbitAutoRotate * dt
	}
	o.goalP = clampf(o.goalP, orbitPolarMargin, math.Pi-orbitPolarMargin)
	if in.scroll != 0 {
		o.goalR *= math.Pow(orbitZoomScale, -in.scroll)
	}
	o.goalR = clampf(o.goalR, o.minDist, o.maxDist)

	theta := o.theta.step(o.goalT)
	phi := clampf(o.phi.step(o.goalP), orbitPolarMargin, math.Pi-orbitPolarMargin)
	r := clampf(o.radius.step(o.goalR), o.minDist, o.maxDist)

	sinPhi, cosPhi := math.Sincos(phi)
	sinT, cosT := math.Sincos(theta)
	o.cam.Position = o.cam.Target.Add(mgl64.Vec3{
		r * sinPhi * sinT,
		r * cosPhi,
		r * sinPhi * cosT,
	})
}

func (o *orbitRig) Resize(width, height int) {
	o.height = height
	o.cam.Aspect = aspectOf(width, height)
}

func (o *orbitRig) Close() error {
	o.ctl.close()
	return nil
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
