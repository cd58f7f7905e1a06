package render

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guidoenr/harmonic/internal/geometry"
)

// Light is an ambient or directional light. Position is only meaningful for
// directional lights, which shine from Position towards the origin.
type Light struct {
	Color     geometry.Color
	Intensity float64
	Position  mgl64.Vec3
}

// Fog is exponential-squared distance fog.
type Fog struct {
	Color   geometry.Color
	Density float64
}

// Scene is the set of objects drawn each frame.
type Scene struct {
	Background  geometry.Color
	Ambient     Light
	Directional Light
	Fog         *Fog
	objects     []geometry.Object
}

// NewScene returns the standard stage: a near-black background with a cool
// ambient fill and a key light above and in front of the origin.
func NewScene() *Scene {
	return &Scene{
		Background: geometry.Hex("#04030a"),
		Ambient: Light{
			Color:     geometry.Hex("#4f5b9f"),
			Intensity: 0.6,
		},
		Directional: Light{
			Color:     geometry.Hex("#c6d7ff"),
			Intensity: 1.2,
			Position:  mgl64.Vec3{6, 10, 8},
		},
	}
}

// SetFog installs FogExp2 with the given colour and density.
func (s *Scene) SetFog(color string, density float64) {
	s.Fog = &Fog{Color: geometry.Hex(color), Density: density}
}

// Add appends objects in draw order.
func (s *Scene) Add(objs ...geometry.Object) {
	s.objects = append(s.objects, objs...)
}

// Remove drops an object; unknown objects are ignored.
func (s *Scene) Remove(obj geometry.Object) {
	for i, o := range s.objects {
		if o == obj {
			s.objects = append(s.objects[:i], s.objects[i+1:]...)
			return
		}
	}
}

// Objects returns the scene's top-level objects.
func (s *Scene) Objects() []geometry.Object {
	return s.objects
}

// Find returns the first top-level object with the given name.
func (s *Scene) Find(name string) geometry.Object {
	for _, o := range s.objects {
		if geometry.NameOf(o) == name {
			return o
		}
	}
	return nil
}
