package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	ribbonCount    = 3
	ribbonSegments = 240
)

// LatticeConfig shapes the helical bar lattice.
type LatticeConfig struct {
	RadialCount int
	AxialCount  int
	Radius      float64
	Height      float64
	BarRadius   float64
	Twist       float64
	BarColor    string
	Emissive    string
	RibbonColor string
}

func DefaultLatticeConfig() LatticeConfig {
	return LatticeConfig{
		RadialCount: 12,
		AxialCount:  48,
		Radius:      5,
		Height:      12,
		BarRadius:   0.08,
		Twist:       math.Pi * 1.5,
		BarColor:    "#fff7e6",
		Emissive:    "#40220d",
		RibbonColor: "#ff99ff",
	}
}

type barBase struct {
	x, y, z float32
	yaw     float32
}

// Lattice is a twisted cylinder of instanced bars scaled by frequency bins,
// wrapped by ribbons whose radius breathes with the spectrum.
type Lattice struct {
	group   *Group
	bars    *InstancedMesh
	ribbons []*Lines
	base    []barBase
	radius  float64
	height  float64
	time    float64
	closed  bool
}

func NewLattice(cfg LatticeConfig) *Lattice {
	def := DefaultLatticeConfig()
	if cfg.RadialCount == 0 {
		cfg.RadialCount = def.RadialCount
	}
	if cfg.AxialCount == 0 {
		cfg.AxialCount = def.AxialCount
	}
	if cfg.Radius <= 0 {
		cfg.Radius = def.Radius
	}
	if cfg.Height <= 0 {
		cfg.Height = def.Height
	}
	if cfg.BarRadius <= 0 {
		cfg.BarRadius = def.BarRadius
	}
	if cfg.Twist == 0 {
		cfg.Twist = def.Twist
	}
	if cfg.BarColor == "" {
		cfg.BarColor = def.BarColor
	}
	if cfg.Emissive == "" {
		cfg.Emissive = def.Emissive
	}
	if cfg.RibbonColor == "" {
		cfg.RibbonColor = def.RibbonColor
	}
	radialCount := max(3, cfg.RadialCount)
	axialCount := max(4, cfg.AxialCount)

	base := make([]barBase, 0, radialCount*axialCount)
	for axial := 0; axial < axialCount; axial++ {
		v := float64(axial) / float64(axialCount)
		y := (v - 0.5) * cfg.Height
		for radial := 0; radial < radialCount; radial++ {
			angle := float64(radial)/float64(radialCount)*2*math.Pi + float64(axial)*cfg.Twist
			sin, cos := math.Sincos(angle)
			x, z := cos*cfg.Radius, sin*cfg.Radius
			base = append(base, barBase{
				x:   float32(x),
				y:   float32(y),
				z:   float32(z),
				yaw: float32(math.Atan2(-x, -z)),
			})
		}
	}

	bars := &InstancedMesh{
		Node:      Node{Name: "fourier-bars", Visible: true},
		BarRadius: float32(cfg.BarRadius),
		Segments:  12,
		Matrices:  make([]mgl32.Mat4, len(base)),
		Material: Material{
			Color:    Hex(cfg.BarColor),
			Emissive: Hex(cfg.Emissive),
			Opacity:  1,
		},
	}

	group := &Group{Node: Node{Name: "fourier-lattice", Visible: true}}
	group.Children = append(group.Children, bars)

	ribbons := make([]*Lines, ribbonCount)
	for i := range ribbons {
		ribbons[i] = &Lines{
			Node:      Node{Name: "fourier-ribbon", Visible: true},
			Positions: make([]float32, (ribbonSegments+1)*3),
			Material:  Material{Color: Hex(cfg.RibbonColor), Opacity: 0.75},
		}
		group.Children = append(group.Children, ribbons[i])
	}

	l := &Lattice{
		group:   group,
		bars:    bars,
		ribbons: ribbons,
		base:    base,
		radius:  cfg.Radius,
		height:  cfg.Height,
	}
	l.updateBars(nil)
	l.updateRibbons(nil)
	return l
}

// Update rescales every bar from its bin and advances the ribbons by dt.
func (l *Lattice) Update(sig Signal, dt float64) {
	if l.closed {
		return
	}
	if dt > 0 {
		l.time += dt
	}
	l.updateBars(sig.Frequency)
	l.updateRibbons(sig.Frequency)
}

func (l *Lattice) updateBars(freq []uint8) {
	n := len(l.base)
	for i, b := range l.base {
		bin := 0
		if len(freq) > 0 {
			bin = min(len(freq)-1, int(math.Floor(float64(i)/float64(n)*float64(len(freq)))))
		}
		m := sampleByte(freq, bin)
		thickness := 1 + m*0.8
		height := 0.6 + m*2.4
		l.bars.Matrices[i] = mgl32.Translate3D(b.x, b.y, b.z).
			Mul4(mgl32.HomogRotate3DY(b.yaw)).
			Mul4(mgl32.Scale3D(thickness, height, thickness))
	}
}

func (l *Lattice) updateRibbons(freq []uint8) {
	for k, ribbon := range l.ribbons {
		phase := float64(k) * math.Pi / float64(len(l.ribbons))
		lift := math.Sin(l.time + phase)
		pos := ribbon.Positions
		for i := 0; i <= ribbonSegments; i++ {
			t := float64(i) / ribbonSegments
			angle := t*math.Pi*4 + phase + l.time*0.6
			bin := 0
			if len(freq) > 0 {
				bin = min(len(freq)-1, int(math.Floor(t*float64(len(freq)-1))))
			}
			m := float64(sampleByte(freq, bin))
			offset := l.radius * (1.1 + m*0.45*math.Sin(angle*2))
			sin, cos := math.Sincos(angle)
			pos[i*3] = float32(cos * offset)
			pos[i*3+1] = float32((t-0.5)*l.height + lift*m*1.5)
			pos[i*3+2] = float32(sin * offset)
		}
	}
}

func (l *Lattice) Object() Object { return l.group }

// Bars exposes the instanced bar mesh.
func (l *Lattice) Bars() *InstancedMesh { return l.bars }

// Ribbons exposes the ribbon polylines.
func (l *Lattice) Ribbons() []*Lines { return l.ribbons }

// Translation returns the fixed position of bar i.
func (l *Lattice) Translation(i int) mgl32.Vec3 {
	b := l.base[i]
	return mgl32.Vec3{b.x, b.y, b.z}
}

func (l *Lattice) Close() error {
	l.closed = true
	return nil
}
