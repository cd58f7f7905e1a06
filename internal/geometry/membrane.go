package geometry

import "math"

// MembraneConfig shapes the polar waveform surface.
type MembraneConfig struct {
	Radius          float64
	RadialSegments  int
	AngularSegments int
	Amplitude       float64
	Color           string
	Emissive        string
}

func DefaultMembraneConfig() MembraneConfig {
	return MembraneConfig{
		Radius:          6,
		RadialSegments:  72,
		AngularSegments: 160,
		Amplitude:       4,
		Color:           "#3cf9ff",
		Emissive:        "#0d2040",
	}
}

// Membrane is a polar grid lying in the XZ plane whose vertices rise along
// +Y with the time-domain waveform, damped towards the rim.
type Membrane struct {
	mesh      *Mesh
	amplitude float32
	radial    []float32
	falloff   []float32
	closed    bool
}

func NewMembrane(cfg MembraneConfig) *Membrane {
	def := DefaultMembraneConfig()
	if cfg.Radius <= 0 {
		cfg.Radius = def.Radius
	}
	if cfg.RadialSegments == 0 {
		cfg.RadialSegments = def.RadialSegments
	}
	if cfg.AngularSegments == 0 {
		cfg.AngularSegments = def.AngularSegments
	}
	if cfg.Color == "" {
		cfg.Color = def.Color
	}
	if cfg.Emissive == "" {
		cfg.Emissive = def.Emissive
	}
	radialSegs := max(2, cfg.RadialSegments)
	angularSegs := max(6, cfg.AngularSegments)

	count := (radialSegs + 1) * (angularSegs + 1)
	positions := make([]float32, count*3)
	radial := make([]float32, count)
	falloff := make([]float32, count)

	i := 0
	for r := 0; r <= radialSegs; r++ {
		rn := float64(r) / float64(radialSegs)
		length := rn * cfg.Radius
		for a := 0; a <= angularSegs; a++ {
			sin, cos := math.Sincos(float64(a) / float64(angularSegs) * 2 * math.Pi)
			positions[i*3] = float32(cos * length)
			positions[i*3+1] = 0
			positions[i*3+2] = float32(-sin * length)
			radial[i] = float32(rn)
			falloff[i] = float32(math.Pow(1-rn, 1.5))
			i++
		}
	}

	stride := uint32(angularSegs + 1)
	indices := make([]uint32, 0, radialSegs*angularSegs*6)
	for r := 0; r < radialSegs; r++ {
		for a := 0; a < angularSegs; a++ {
			cur := uint32(r)*stride + uint32(a)
			next := cur + stride
			indices = append(indices, cur, next, cur+1, cur+1, next, next+1)
		}
	}

	mesh := &Mesh{
		Node:      Node{Name: "harmonic-membrane", Visible: true},
		Positions: positions,
		Normals:   make([]float32, len(positions)),
		Indices:   indices,
		Material: Material{
			Color:       Hex(cfg.Color),
			Emissive:    Hex(cfg.Emissive),
			Opacity:     1,
			DoubleSided: true,
		},
	}
	ComputeVertexNormals(mesh.Positions, mesh.Indices, mesh.Normals)

	return &Membrane{
		mesh:      mesh,
		amplitude: float32(cfg.Amplitude),
		radial:    radial,
		falloff:   falloff,
	}
}

// Update displaces every vertex by the waveform sample at its radius. An
// empty waveform flattens the surface.
func (m *Membrane) Update(sig Signal, _ float64) {
	if m.closed {
		return
	}
	w := sig.TimeDomain
	n := len(w)
	pos := m.mesh.Positions
	for i, rn := range m.radial {
		var disp float32
		if n > 0 {
			idx := min(n-1, int(math.Floor(float64(rn)*float64(n-1))))
			disp = finite(w[idx]) * m.amplitude * m.falloff[i]
		}
		pos[i*3+1] = disp
	}
	ComputeVertexNormals(pos, m.mesh.Indices, m.mesh.Normals)
}

func (m *Membrane) Object() Object { return m.mesh }

// Mesh exposes the concrete surface.
func (m *Membrane) Mesh() *Mesh { return m.mesh }

func (m *Membrane) Close() error {
	m.closed = true
	return nil
}
