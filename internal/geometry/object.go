package geometry

import (
	"math"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Signal is the per-frame audio input handed to every generator. Generators
// read the slices during Update and never retain them.
type Signal struct {
	TimeDomain   []float32
	Frequency    []uint8
	BeatStrength float64
}

// Generator owns a renderable object and refreshes it from audio.
type Generator interface {
	Update(sig Signal, dt float64)
	Object() Object
	Close() error
}

// Color is a linear RGB triple in 0..1.
type Color struct{ R, G, B float32 }

// Hex parses "#rrggbb". Malformed input yields black.
func Hex(s string) Color {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return Color{}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}
	}
	return Color{
		R: float32((v>>16)&0xff) / 255,
		G: float32((v>>8)&0xff) / 255,
		B: float32(v&0xff) / 255,
	}
}

// Scale multiplies every channel by k.
func (c Color) Scale(k float32) Color { return Color{c.R * k, c.G * k, c.B * k} }

// Lerp mixes c towards o by t.
func (c Color) Lerp(o Color, t float32) Color {
	return Color{
		R: c.R + (o.R-c.R)*t,
		G: c.G + (o.G-c.G)*t,
		B: c.B + (o.B-c.B)*t,
	}
}

// Material describes how an object is shaded.
type Material struct {
	Color       Color
	Emissive    Color
	Opacity     float32
	DoubleSided bool
}

// Node holds the state every object shares.
type Node struct {
	Name    string
	Visible bool
}

func (n *Node) base() *Node { return n }

// Object is one of Mesh, InstancedMesh, Lines, Points or Group.
type Object interface {
	base() *Node
}

// NameOf returns the object's name.
func NameOf(o Object) string { return o.base().Name }

// IsVisible reports whether the object is drawn.
func IsVisible(o Object) bool { return o.base().Visible }

// SetVisible toggles drawing without touching buffers.
func SetVisible(o Object, visible bool) { o.base().Visible = visible }

// Mesh is an indexed triangle surface.
type Mesh struct {
	Node
	Positions []float32
	Normals   []float32
	Indices   []uint32
	Material  Material
}

// InstancedMesh repeats an open cylinder of BarRadius at each matrix.
type InstancedMesh struct {
	Node
	BarRadius float32
	Segments  int
	Matrices  []mgl32.Mat4
	Material  Material
}

// Lines is a single polyline.
type Lines struct {
	Node
	Positions []float32
	Material  Material
}

// Points is an additive sprite field. Size is the base point size; Beat
// scales size and alpha; Pulse is a scene-wide beat flash that only swells
// the sprites; Jitter is a fixed per-point size factor.
type Points struct {
	Node
	Positions []float32
	Gradient  []float32
	Jitter    []float32
	Size      float32
	Beat      float32
	Pulse     float32
	Time      float32
	ColorA    Color
	ColorB    Color
}

// Group bundles child objects under one name.
type Group struct {
	Node
	Children []Object
}

// ComputeVertexNormals writes area-weighted vertex normals for the indexed
// triangles into normals. Vertices touched only by degenerate faces get +Y.
func ComputeVertexNormals(positions []float32, indices []uint32, normals []float32) {
	for i := range normals {
		normals[i] = 0
	}
	for t := 0; t+2 < len(indices); t += 3 {
		a, b, c := indices[t]*3, indices[t+1]*3, indices[t+2]*3
		abx := positions[b] - positions[a]
		aby := positions[b+1] - positions[a+1]
		abz := positions[b+2] - positions[a+2]
		acx := positions[c] - positions[a]
		acy := positions[c+1] - positions[a+1]
		acz := positions[c+2] - positions[a+2]
		nx := aby*acz - abz*acy
		ny := abz*acx - abx*acz
		nz := abx*acy - aby*acx
		for _, v := range [3]uint32{a, b, c} {
			normals[v] += nx
			normals[v+1] += ny
			normals[v+2] += nz
		}
	}
	for i := 0; i+2 < len(normals); i += 3 {
		x, y, z := normals[i], normals[i+1], normals[i+2]
		l := float32(math.Sqrt(float64(x*x + y*y + z*z)))
		if l == 0 || math.IsNaN(float64(l)) {
			normals[i], normals[i+1], normals[i+2] = 0, 1, 0
			continue
		}
		normals[i], normals[i+1], normals[i+2] = x/l, y/l, z/l
	}
}

// sampleByte returns freq[bin]/255 with bin clamped to the buffer; an empty
// buffer reads as silence.
func sampleByte(freq []uint8, bin int) float32 {
	if len(freq) == 0 {
		return 0
	}
	if bin < 0 {
		bin = 0
	}
	if bin > len(freq)-1 {
		bin = len(freq) - 1
	}
	return float32(freq[bin]) / 255
}

func finite(v float32) float32 {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return v
}
