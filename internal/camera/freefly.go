package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	flyRollSpeed  = math.Pi / 12
	flyLookPerPx  = 0.004
	flyVelDamping = 0.12
)

// freeFlyRig moves with WASD (plane), R/F (up/down), rolls with Q/E and
// looks with arrows or drags. Velocity eases towards the key target.
type freeFlyRig struct {
	cam   *Camera
	ctl   *controls
	speed float64
	vel   [3]springAxis
}

func newFreeFlyRig(width, height int, in Input, opts Options) *freeFlyRig {
	cam := NewPerspective(65, aspectOf(width, height), 0.05, 400)
	cam.Position = opts.start(mgl64.Vec3{0, 8, 24})
	cam.FreeLook = true

	spring := springFor(opts.FPS, flyVelDamping)
	return &freeFlyRig{
		cam:   cam,
		ctl:   bindControls(in),
		speed: opts.MovementSpeed,
		vel: [3]springAxis{
			newSpringAxis(spring, 0),
			newSpringAxis(spring, 0),
			newSpringAxis(spring, 0),
		},
	}
}

func (f *freeFlyRig) Preset() Preset  { return PresetFreeFly }
func (f *freeFlyRig) Camera() *Camera { return f.cam }

func (f *freeFlyRig) Update(dt float64) {
	if dt <= 0 {
		return
	}
	in := f.ctl.drain(dt)

	move := mgl64.Vec3{
		in.axis("a", "d"),
		in.axis("f", "r"),
		in.axis("w", "s"),
	}
	local := mgl64.Vec3{
		f.vel[0].step(move.X() * f.speed),
		f.vel[1].step(move.Y() * f.speed),
		f.vel[2].step(move.Z() * f.speed),
	}

	yaw := in.axis("right", "left")*flyRollSpeed*dt - in.dragX*flyLookPerPx
	pitch := in.axis("down", "up")*flyRollSpeed*dt - in.dragY*flyLookPerPx
	roll := in.axis("e", "q") * flyRollSpeed * dt

	q := f.cam.Orientation.
		Mul(mgl64.QuatRotate(yaw, mgl64.Vec3{0, 1, 0})).
		Mul(mgl64.QuatRotate(pitch, mgl64.Vec3{1, 0, 0})).
		Mul(mgl64.QuatRotate(roll, mgl64.Vec3{0, 0, 1})).
		Normalize()
	f.cam.Orientation = q
	f.cam.Position = f.cam.Position.Add(q.Rotate(local).Mul(dt))
	f.cam.Up = q.Rotate(mgl64.Vec3{0, 1, 0})
	f.cam.Target = f.cam.Position.Add(q.Rotate(mgl64.Vec3{0, 0, -1}))
}

func (f *freeFlyRig) Resize(width, height int) {
	f.cam.Aspect = aspectOf(width, height)
}

func (f *freeFlyRig) Close() error {
	f.ctl.close()
	return nil
}
