package terrain

import (
	"testing"

	"github.com/Magikos/Procedural-Planets/internal/biome"
	"github.com/Magikos/Procedural-Planets/internal/noise"
	"github.com/Magikos/Procedural-Planets/internal/shape"
	"github.com/Magikos/Procedural-Planets/pkg/math"
)

func newGenerators(t *testing.T, s shape.Config, b biome.Config) (*shape.Generator, *biome.Generator) {
	t.Helper()
	gen, err := shape.New(s)
	if err != nil {
		t.Fatalf("shape.New failed: %v", err)
	}
	colors, err := biome.New(b)
	if err != nil {
		t.Fatalf("biome.New failed: %v", err)
	}
	return gen, colors
}

func TestFaceAxes(t *testing.T) {
	for _, f := range Faces() {
		n := f.Normal()
		a, b := f.Axes()
		if a.Dot(n) != 0 || b.Dot(n) != 0 || a.Dot(b) != 0 {
			t.Errorf("%s: axes not orthogonal: n=%v a=%v b=%v", f, n, a, b)
		}
		if a.Cross(b) != n {
			t.Errorf("%s: expected a x b = %v, got %v", f, n, a.Cross(b))
		}
		if got := f.PointOnSphere(0.5, 0.5); got != n {
			t.Errorf("%s: expected face center %v, got %v", f, n, got)
		}
	}
}

func TestKeyChildren(t *testing.T) {
	k := Key{Face: FaceLeft, Depth: 2, X: 1, Y: 3}
	quads := k.Rect().Quadrants()
	for q := 0; q < 4; q++ {
		child := k.Child(q)
		if child.Parent() != k {
			t.Errorf("child %d: expected parent %v, got %v", q, k, child.Parent())
		}
		if child.Rect() != quads[q] {
			t.Errorf("child %d: expected rect %v, got %v", q, quads[q], child.Rect())
		}
		if !child.Valid() {
			t.Errorf("child %d: expected valid key %v", q, child)
		}
	}
	if (Key{Face: FaceUp, Depth: 1, X: 2}).Valid() {
		t.Error("expected out of grid key to be invalid")
	}
}

func TestMeshZeroLayersIsSphere(t *testing.T) {
	gen, colors := newGenerators(t, shape.Config{Radius: 1000}, biome.Config{})
	for _, f := range Faces() {
		m := buildMesh(gen, colors, RootKey(f), 7)
		if len(m.Vertices) != 49 {
			t.Fatalf("expected 49 vertices, got %d", len(m.Vertices))
		}
		if m.TriangleCount() != 6*6*2 {
			t.Fatalf("expected 72 triangles, got %d", m.TriangleCount())
		}
		for _, v := range m.Vertices {
			if r := math.FromArray(v.Position).Length(); math.Abs(r-1000) > 0.01 {
				t.Fatalf("%s: expected |position| = 1000, got %v", f, r)
			}
		}
	}
}

func TestMeshNormalsOutward(t *testing.T) {
	layer := noise.DefaultSettings()
	layer.Strength = 0.05
	gen, colors := newGenerators(t, shape.Config{Radius: 10, Layers: []noise.Settings{layer}}, biome.Config{})

	for _, f := range Faces() {
		m := buildMesh(gen, colors, Key{Face: f, Depth: 1, X: 1, Y: 0}, 9)
		for i, v := range m.Vertices {
			dir := math.FromArray(v.Position).Normalize()
			if d := math.FromArray(v.Normal).Dot(dir); d < 0.5 {
				t.Fatalf("%s vertex %d: normal points inward (dot %v)", f, i, d)
			}
		}
		for i := 0; i < len(m.Indices); i += 3 {
			a := math.FromArray(m.Vertices[m.Indices[i]].Position)
			b := math.FromArray(m.Vertices[m.Indices[i+1]].Position)
			c := math.FromArray(m.Vertices[m.Indices[i+2]].Position)
			if b.Sub(a).Cross(c.Sub(a)).Dot(a) <= 0 {
				t.Fatalf("%s triangle %d wound clockwise from outside", f, i/3)
			}
		}
	}
}

func TestMeshBoundsContainVertices(t *testing.T) {
	layer := noise.DefaultSettings()
	gen, colors := newGenerators(t, shape.Config{Radius: 50, Layers: []noise.Settings{layer}}, biome.Config{})
	m := buildMesh(gen, colors, RootKey(FaceForward), 8)
	for _, v := range m.Vertices {
		p := math.FromArray(v.Position)
		if m.Bounds.Distance(p) != 0 {
			t.Fatalf("vertex %v outside bounds %v", p, m.Bounds)
		}
	}
}

func TestLocalNormalizationSpansRange(t *testing.T) {
	layer := noise.DefaultSettings()
	layer.Strength = 1
	low, high := biome.RGB(0, 0, 0), biome.RGB(1, 1, 1)
	b := biome.Config{Biomes: []biome.Biome{{Gradient: biome.NewGradient(biome.Stop{Position: 0, Color: low}, biome.Stop{Position: 1, Color: high})}}}
	gen, colors := newGenerators(t, shape.Config{Radius: 1, Layers: []noise.Settings{layer}}, b)

	m := buildMesh(gen, colors, RootKey(FaceUp), 16)
	lo, hi := float32(1), float32(0)
	for _, v := range m.Vertices {
		lo = min(lo, v.Color[0])
		hi = max(hi, v.Color[0])
	}
	if lo > 1e-5 || hi < 1-1e-5 {
		t.Errorf("expected colors to span [0, 1], got [%v, %v]", lo, hi)
	}
}

func TestDegenerateRangeColorsMidpoint(t *testing.T) {
	b := biome.Config{Biomes: []biome.Biome{{Gradient: biome.NewGradient(biome.Stop{Position: 0, Color: biome.RGB(0, 0, 0)}, biome.Stop{Position: 1, Color: biome.RGB(1, 1, 1)})}}}
	gen, colors := newGenerators(t, shape.Config{Radius: 1}, b)
	m := buildMesh(gen, colors, RootKey(FaceDown), 4)
	for _, v := range m.Vertices {
		if math.Abs(v.Color[0]-0.5) > 1e-5 {
			t.Fatalf("expected mid color for flat chunk, got %v", v.Color)
		}
	}
}
