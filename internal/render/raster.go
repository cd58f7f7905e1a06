package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guidoenr/harmonic/internal/camera"
	"github.com/guidoenr/harmonic/internal/geometry"
)

// Target is a linear HDR colour buffer with a depth plane in NDC z.
type Target struct {
	Width  int
	Height int
	Color  []float32
	Depth  []float32
}

func NewTarget(width, height int) *Target {
	t := &Target{}
	t.Resize(width, height)
	return t
}

// Resize reallocates both planes.
func (t *Target) Resize(width, height int) {
	width = max(1, width)
	height = max(1, height)
	t.Width, t.Height = width, height
	t.Color = make([]float32, width*height*3)
	t.Depth = make([]float32, width*height)
}

// Clear fills colour with c and resets depth to the far plane.
func (t *Target) Clear(c geometry.Color) {
	for i := 0; i < len(t.Color); i += 3 {
		t.Color[i], t.Color[i+1], t.Color[i+2] = c.R, c.G, c.B
	}
	for i := range t.Depth {
		t.Depth[i] = math.MaxFloat32
	}
}

type blendMode int

const (
	blendOpaque blendMode = iota
	blendAlpha
	blendAdd
)

type vertex struct {
	x, y  float64
	z     float64
	depth float64
	ok    bool
}

// raster draws one scene into one target from one camera.
type raster struct {
	t      *Target
	view   mgl64.Mat4
	proj   mgl64.Mat4
	fog    *Fog
	amb    geometry.Color
	key    geometry.Color
	keyDir mgl64.Vec3
	lit    []geometry.Color
	verts  []vertex
}

func newRaster(t *Target, scene *Scene, cam *camera.Camera) *raster {
	dir := scene.Directional.Position
	if dir.Len() > 0 {
		dir = dir.Normalize()
	}
	return &raster{
		t:      t,
		view:   cam.View(),
		proj:   cam.Projection(),
		fog:    scene.Fog,
		amb:    scene.Ambient.Color.Scale(float32(scene.Ambient.Intensity)),
		key:    scene.Directional.Color.Scale(float32(scene.Directional.Intensity)),
		keyDir: dir,
	}
}

func (r *raster) project(x, y, z float64) vertex {
	v := r.view.Mul4x1(mgl64.Vec4{x, y, z, 1})
	c := r.proj.Mul4x1(v)
	w := c.W()
	if w <= 1e-9 {
		return vertex{}
	}
	nz := c.Z() / w
	if nz < -1 || nz > 1 || math.IsNaN(nz) {
		return vertex{}
	}
	return vertex{
		x:     (c.X()/w*0.5 + 0.5) * float64(r.t.Width),
		y:     (0.5 - c.Y()/w*0.5) * float64(r.t.Height),
		z:     nz,
		depth: math.Max(0, -v.Z()),
		ok:    true,
	}
}

func (r *raster) fogged(c geometry.Color, depth float64) geometry.Color {
	if r.fog == nil || r.fog.Density <= 0 {
		return c
	}
	d := r.fog.Density * depth
	f := float32(1 - math.Exp(-d*d))
	return c.Lerp(r.fog.Color, clamp01f(f))
}

func (r *raster) plot(x, y int, z float64, c geometry.Color, alpha float32, mode blendMode) {
	if x < 0 || y < 0 || x >= r.t.Width || y >= r.t.Height {
		return
	}
	i := y*r.t.Width + x
	if float32(z) > r.t.Depth[i] {
		return
	}
	p := r.t.Color[i*3 : i*3+3]
	switch mode {
	case blendOpaque:
		r.t.Depth[i] = float32(z)
		p[0], p[1], p[2] = c.R, c.G, c.B
	case blendAlpha:
		p[0] += (c.R - p[0]) * alpha
		p[1] += (c.G - p[1]) * alpha
		p[2] += (c.B - p[2]) * alpha
	case blendAdd:
		p[0] += c.R * alpha
		p[1] += c.G * alpha
		p[2] += c.B * alpha
	}
}

func (r *raster) draw(obj geometry.Object) {
	if obj == nil || !geometry.IsVisible(obj) {
		return
	}
	switch o := obj.(type) {
	case *geometry.Group:
		for _, child := range o.Children {
			r.draw(child)
		}
	case *geometry.Mesh:
		r.mesh(o)
	case *geometry.InstancedMesh:
		r.instanced(o)
	case *geometry.Lines:
		r.lines(o)
	case *geometry.Points:
		r.points(o)
	}
}

func (r *raster) shade(m geometry.Material, nx, ny, nz float64, double bool) geometry.Color {
	ndl := nx*r.keyDir.X() + ny*r.keyDir.Y() + nz*r.keyDir.Z()
	if double {
		ndl = math.Abs(ndl)
	} else if ndl < 0 {
		ndl = 0
	}
	k := float32(ndl)
	return geometry.Color{
		R: m.Color.R*(r.amb.R+r.key.R*k) + m.Emissive.R,
		G: m.Color.G*(r.amb.G+r.key.G*k) + m.Emissive.G,
		B: m.Color.B*(r.amb.B+r.key.B*k) + m.Emissive.B,
	}
}

// mesh fills each triangle with Gouraud-interpolated, fogged vertex colours.
func (r *raster) mesh(m *geometry.Mesh) {
	n := len(m.Positions) / 3
	if cap(r.verts) < n {
		r.verts = make([]vertex, n)
		r.lit = make([]geometry.Color, n)
	}
	verts, lit := r.verts[:n], r.lit[:n]
	for i := 0; i < n; i++ {
		p := m.Positions[i*3 : i*3+3]
		v := r.project(float64(p[0]), float64(p[1]), float64(p[2]))
		verts[i] = v
		if !v.ok {
			continue
		}
		var nx, ny, nz float64 = 0, 1, 0
		if len(m.Normals) >= (i+1)*3 {
			nx, ny, nz = float64(m.Normals[i*3]), float64(m.Normals[i*3+1]), float64(m.Normals[i*3+2])
		}
		lit[i] = r.fogged(r.shade(m.Material, nx, ny, nz, m.Material.DoubleSided), v.depth)
	}
	for t := 0; t+2 < len(m.Indices); t += 3 {
		a, b, c := m.Indices[t], m.Indices[t+1], m.Indices[t+2]
		if int(a) >= n || int(b) >= n || int(c) >= n {
			continue
		}
		r.triangle(verts[a], verts[b], verts[c], lit[a], lit[b], lit[c])
	}
}

func (r *raster) triangle(a, b, c vertex, ca, cb, cc geometry.Color) {
	if !a.ok || !b.ok || !c.ok {
		return
	}
	area := (b.x-a.x)*(c.y-a.y) - (b.y-a.y)*(c.x-a.x)
	if math.Abs(area) < 1e-12 {
		return
	}
	minX := max(0, int(math.Floor(math.Min(a.x, math.Min(b.x, c.x)))))
	maxX := min(r.t.Width-1, int(math.Ceil(math.Max(a.x, math.Max(b.x, c.x)))))
	minY := max(0, int(math.Floor(math.Min(a.y, math.Min(b.y, c.y)))))
	maxY := min(r.t.Height-1, int(math.Ceil(math.Max(a.y, math.Max(b.y, c.y)))))
	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5
			w0 := ((b.x-px)*(c.y-py) - (b.y-py)*(c.x-px)) / area
			w1 := ((c.x-px)*(a.y-py) - (c.y-py)*(a.x-px)) / area
			w2 := 1 - w0 - w1
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := w0*a.z + w1*b.z + w2*c.z
			f0, f1, f2 := float32(w0), float32(w1), float32(w2)
			col := geometry.Color{
				R: ca.R*f0 + cb.R*f1 + cc.R*f2,
				G: ca.G*f0 + cb.G*f1 + cc.G*f2,
				B: ca.B*f0 + cb.B*f1 + cc.B*f2,
			}
			r.plot(x, y, z, col, 1, blendOpaque)
		}
	}
}

func (r *raster) segment(a, b vertex, c geometry.Color, alpha float32, mode blendMode) {
	if !a.ok || !b.ok {
		return
	}
	dx, dy := b.x-a.x, b.y-a.y
	steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy))))
	steps = min(max(steps, 1), 4096)
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		r.plot(int(a.x+dx*t), int(a.y+dy*t), a.z+(b.z-a.z)*t, c, alpha, mode)
	}
}

// instanced draws each bar as its projected axis.
func (r *raster) instanced(m *geometry.InstancedMesh) {
	for _, mat := range m.Matrices {
		bottom := mat.Mul4x1(mgl32.Vec4{0, -0.5, 0, 1})
		top := mat.Mul4x1(mgl32.Vec4{0, 0.5, 0, 1})
		a := r.project(float64(bottom.X()), float64(bottom.Y()), float64(bottom.Z()))
		b := r.project(float64(top.X()), float64(top.Y()), float64(top.Z()))
		if !a.ok || !b.ok {
			continue
		}
		// Bars face the lattice axis; light them by their outward direction.
		out := mgl64.Vec3{float64(top.X()), 0, float64(top.Z())}
		if out.Len() > 0 {
			out = out.Normalize()
		}
		col := r.shade(m.Material, out.X(), out.Y(), out.Z(), false)
		r.segment(a, b, r.fogged(col, (a.depth+b.depth)/2), 1, blendOpaque)
	}
}

func (r *raster) lines(l *geometry.Lines) {
	n := len(l.Positions) / 3
	if n < 2 {
		return
	}
	alpha := l.Material.Opacity
	if alpha <= 0 {
		alpha = 1
	}
	prev := r.project(float64(l.Positions[0]), float64(l.Positions[1]), float64(l.Positions[2]))
	for i := 1; i < n; i++ {
		p := l.Positions[i*3 : i*3+3]
		cur := r.project(float64(p[0]), float64(p[1]), float64(p[2]))
		if prev.ok && cur.ok {
			col := r.fogged(l.Material.Color, (prev.depth+cur.depth)/2)
			r.segment(prev, cur, col, alpha, blendAlpha)
		}
		prev = cur
	}
}

// points splats additive soft discs sized by beat, jitter and depth.
func (r *raster) points(p *geometry.Points) {
	n := len(p.Positions) / 3
	beat := float64(p.Beat)
	beatScale := 1 + beat*1.8 + float64(p.Pulse)*0.5
	intensity := float32(0.35 + beat*0.65)
	for i := 0; i < n; i++ {
		pos := p.Positions[i*3 : i*3+3]
		v := r.project(float64(pos[0]), float64(pos[1]), float64(pos[2]))
		if !v.ok {
			continue
		}
		jitter := 1.0
		if i < len(p.Jitter) {
			jitter = float64(p.Jitter[i])
		}
		depth := math.Max(v.depth, 1e-3)
		size := float64(p.Size) * beatScale * jitter / depth
		size = math.Min(math.Max(size, 1), 64)
		grad := float32(0)
		if i < len(p.Gradient) {
			grad = p.Gradient[i]
		}
		col := p.ColorA.Lerp(p.ColorB, grad)

		half := size / 2
		x0, x1 := int(math.Floor(v.x-half)), int(math.Ceil(v.x+half))
		y0, y1 := int(math.Floor(v.y-half)), int(math.Ceil(v.y+half))
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				d := math.Hypot(float64(x)+0.5-v.x, float64(y)+0.5-v.y) / size
				if d > 0.5 {
					continue
				}
				falloff := float32(1 - smoothstep(0, 0.5, d))
				r.plot(x, y, v.z, col, falloff*intensity, blendAdd)
			}
		}
	}
}

func smoothstep(edge0, edge1, x float64) float64 {
	t := math.Min(math.Max((x-edge0)/(edge1-edge0), 0), 1)
	return t * t * (3 - 2*t)
}

func clamp01f(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
