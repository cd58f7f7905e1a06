package geometry

import (
	"math"
	"testing"
)

func assertFinite(t *testing.T, name string, values []float32) {
	t.Helper()
	for i, v := range values {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("%s[%d] is not finite: %v", name, i, v)
		}
	}
}

func TestHex(t *testing.T) {
	got := Hex("#ff8000")
	if got.R != 1 || got.G != float32(0x80)/255 || got.B != 0 {
		t.Fatalf("Hex=%+v", got)
	}
	if Hex("nope") != (Color{}) {
		t.Fatalf("malformed hex should be black")
	}
}

func TestMembraneZeroWaveformStaysFlat(t *testing.T) {
	m := NewMembrane(MembraneConfig{RadialSegments: 8, AngularSegments: 12})
	m.Update(Signal{TimeDomain: make([]float32, 2048)}, 1.0/60)

	mesh := m.Mesh()
	for i := 1; i < len(mesh.Positions); i += 3 {
		if mesh.Positions[i] != 0 {
			t.Fatalf("vertex %d displaced to %f on silence", i/3, mesh.Positions[i])
		}
	}
	for i := 0; i < len(mesh.Normals); i += 3 {
		if math.Abs(float64(mesh.Normals[i+1])-1) > 1e-5 {
			t.Fatalf("normal %d = (%f, %f, %f), want +Y", i/3, mesh.Normals[i], mesh.Normals[i+1], mesh.Normals[i+2])
		}
	}
}

func TestMembraneDisplacesCentreMost(t *testing.T) {
	m := NewMembrane(MembraneConfig{RadialSegments: 4, AngularSegments: 6, Amplitude: 2})
	wave := make([]float32, 64)
	for i := range wave {
		wave[i] = 0.5
	}
	m.Update(Signal{TimeDomain: wave}, 0)
	pos := m.Mesh().Positions
	centre := pos[1]
	rim := pos[len(pos)-2]
	if math.Abs(float64(centre)-1) > 1e-6 {
		t.Fatalf("centre displacement=%f want 1", centre)
	}
	if rim != 0 {
		t.Fatalf("rim displacement=%f want 0", rim)
	}
}

func TestMembraneClampsSegments(t *testing.T) {
	m := NewMembrane(MembraneConfig{RadialSegments: 1, AngularSegments: 2})
	want := (2 + 1) * (6 + 1) * 3
	if got := len(m.Mesh().Positions); got != want {
		t.Fatalf("positions=%d want %d", got, want)
	}
}

func TestGeneratorsTolerateEmptyBuffers(t *testing.T) {
	gens := map[string]Generator{
		"membrane":  NewMembrane(DefaultMembraneConfig()),
		"lattice":   NewLattice(DefaultLatticeConfig()),
		"particles": NewParticles(ParticleConfig{Seed: 7}),
	}
	for name, g := range gens {
		for i := 0; i < 3; i++ {
			g.Update(Signal{}, 1.0/60)
		}
		switch obj := g.Object().(type) {
		case *Mesh:
			assertFinite(t, name+" positions", obj.Positions)
			assertFinite(t, name+" normals", obj.Normals)
		case *Group:
			for _, child := range obj.Children {
				if lines, ok := child.(*Lines); ok {
					assertFinite(t, name+" ribbon", lines.Positions)
				}
			}
		case *Points:
			assertFinite(t, name+" points", obj.Positions)
			assertFinite(t, name+" gradient", obj.Gradient)
		default:
			t.Fatalf("%s: unexpected object %T", name, obj)
		}
		if err := g.Close(); err != nil {
			t.Fatalf("%s close: %v", name, err)
		}
		g.Update(Signal{}, 1.0/60)
	}
}

func TestLatticeNeutralLayoutOnEmptySpectrum(t *testing.T) {
	l := NewLattice(LatticeConfig{RadialCount: 3, AxialCount: 4})
	if got := len(l.Bars().Matrices); got != 12 {
		t.Fatalf("instances=%d want 12", got)
	}
	before := l.Translation(5)
	l.Update(Signal{}, 0.1)
	m := l.Bars().Matrices[5]
	if got := m.Col(3).Vec3(); !got.ApproxEqual(before) {
		t.Fatalf("translation moved: %v want %v", got, before)
	}
	// Neutral height scale is 0.6 on the bar's local Y axis.
	if h := m.Col(1).Vec3().Len(); math.Abs(float64(h)-0.6) > 1e-5 {
		t.Fatalf("neutral height=%f want 0.6", h)
	}
}

func TestLatticeBarsGrowWithMagnitude(t *testing.T) {
	l := NewLattice(LatticeConfig{RadialCount: 3, AxialCount: 4})
	freq := make([]uint8, 1024)
	for i := range freq {
		freq[i] = 255
	}
	before := l.Translation(0)
	l.Update(Signal{Frequency: freq}, 1.0/60)
	m := l.Bars().Matrices[0]
	if h := m.Col(1).Vec3().Len(); math.Abs(float64(h)-3.0) > 1e-4 {
		t.Fatalf("full-scale height=%f want 3.0", h)
	}
	if w := m.Col(0).Vec3().Len(); math.Abs(float64(w)-1.8) > 1e-4 {
		t.Fatalf("full-scale thickness=%f want 1.8", w)
	}
	if got := m.Col(3).Vec3(); !got.ApproxEqual(before) {
		t.Fatalf("translation changed under load: %v", got)
	}
}

func TestParticlesBeatSmoothing(t *testing.T) {
	p := NewParticles(ParticleConfig{Count: 40, Seed: 1})
	p.Update(Signal{BeatStrength: 1}, 1.0/60)
	if math.Abs(p.Beat()-0.08) > 1e-9 {
		t.Fatalf("beat=%f want 0.08", p.Beat())
	}
	p.Update(Signal{BeatStrength: 0}, 1.0/60)
	if math.Abs(p.Beat()-0.08*0.92) > 1e-9 {
		t.Fatalf("beat=%f want %f", p.Beat(), 0.08*0.92)
	}
}

func TestParticlesClampCountAndSeed(t *testing.T) {
	a := NewParticles(ParticleConfig{Count: 5, Seed: 42})
	b := NewParticles(ParticleConfig{Count: 5, Seed: 42})
	if got := len(a.Points().Positions); got != 32*3 {
		t.Fatalf("positions=%d want %d", got, 32*3)
	}
	sig := Signal{Frequency: []uint8{10, 200, 30}}
	a.Update(sig, 0.5)
	b.Update(sig, 0.5)
	for i := range a.Points().Positions {
		if a.Points().Positions[i] != b.Points().Positions[i] {
			t.Fatalf("same seed diverged at %d", i)
		}
	}
}

func TestDetectLODBoundaries(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		w, h int
		dpr  float64
		want Level
		mult float64
	}{
		{1000, 2000, 1, LevelHigh, 1},
		{1000, 2000, 0.5, LevelHigh, 1},
		{1001, 2000, 1, LevelMedium, 0.6},
		{2000, 2000, 1, LevelMedium, 0.6},
		{2001, 2000, 1, LevelLow, 0.35},
		{1280, 720, 2.5, LevelMedium, 0.6},
		{1920, 1080, 2.5, LevelLow, 0.35},
	}
	for _, tc := range cases {
		got := DetectLOD(tc.w, tc.h, tc.dpr, th)
		if got.Level != tc.want || got.VertexMultiplier != tc.mult {
			t.Fatalf("DetectLOD(%d,%d,%.1f)=%v/%.2f want %v/%.2f", tc.w, tc.h, tc.dpr, got.Level, got.VertexMultiplier, tc.want, tc.mult)
		}
	}
}

func TestLODTierConfigs(t *testing.T) {
	low := DetectLOD(3000, 2000, 1, Thresholds{})
	if cfg := MembraneFor(low); cfg.RadialSegments != 64 || cfg.AngularSegments != 120 || math.Abs(cfg.Amplitude-1.4) > 1e-9 {
		t.Fatalf("low membrane=%+v", cfg)
	}
	if cfg := LatticeFor(low); cfg.RadialCount != 10 || cfg.AxialCount != 32 {
		t.Fatalf("low lattice=%+v", cfg)
	}
	high := DetectLOD(800, 600, 1, Thresholds{})
	if cfg := ParticlesFor(high); cfg.Count != 1400 || cfg.BaseAmplitude != 5 {
		t.Fatalf("high particles=%+v", cfg)
	}
}

func TestVisibilityHelpers(t *testing.T) {
	p := NewParticles(ParticleConfig{Seed: 3})
	obj := p.Object()
	if !IsVisible(obj) || NameOf(obj) != "lissajous-orbits" {
		t.Fatalf("unexpected initial node %+v", obj)
	}
	SetVisible(obj, false)
	if IsVisible(obj) {
		t.Fatalf("SetVisible(false) ignored")
	}
}
