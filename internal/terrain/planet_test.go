package terrain

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/Magikos/Procedural-Planets/internal/biome"
	"github.com/Magikos/Procedural-Planets/internal/noise"
	"github.com/Magikos/Procedural-Planets/internal/shape"
	"github.com/Magikos/Procedural-Planets/pkg/math"
)

// recordingSink counts notifications per key.
type recordingSink struct {
	built    []Key
	released []Key
	visible  map[Key]bool
}

func newRecordingSink() *recordingSink {
	return &recordingSink{visible: make(map[Key]bool)}
}

func (s *recordingSink) ChunkBuilt(c *Chunk) { s.built = append(s.built, c.Key()) }

func (s *recordingSink) ChunkVisible(c *Chunk, visible bool) { s.visible[c.Key()] = visible }

func (s *recordingSink) ChunkReleased(c *Chunk) {
	s.released = append(s.released, c.Key())
	delete(s.visible, c.Key())
}

func (s *recordingSink) visibleCount() int {
	n := 0
	for _, v := range s.visible {
		if v {
			n++
		}
	}
	return n
}

// memoryCache is an in-process Cache.
type memoryCache struct {
	meshes map[string]*Mesh
	loads  int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{meshes: make(map[string]*Mesh)}
}

func (c *memoryCache) id(digest string, key Key, res int) string {
	return fmt.Sprintf("%s/%s/%d", digest, key, res)
}

func (c *memoryCache) Load(digest string, key Key, res int) (*Mesh, bool, error) {
	c.loads++
	m, ok := c.meshes[c.id(digest, key, res)]
	return m, ok, nil
}

func (c *memoryCache) Store(digest string, m *Mesh) error {
	c.meshes[c.id(digest, m.Key, m.Resolution)] = m
	return nil
}

type failingCache struct{}

func (failingCache) Load(string, Key, int) (*Mesh, bool, error) {
	return nil, false, errors.New("disk gone")
}

func (failingCache) Store(string, *Mesh) error {
	return errors.New("disk gone")
}

func testConfig(distances ...float32) Config {
	return Config{
		Shape: shape.Config{Radius: 1000},
		LOD:   LODSettings{MaxLOD: 2, Distances: distances, Resolution: 5},
	}
}

func mustPlanet(t *testing.T, cfg Config, opts ...Option) *Planet {
	t.Helper()
	p, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p
}

func leafKeys(p *Planet) []Key {
	var keys []Key
	p.Leaves(func(c *Chunk) { keys = append(keys, c.Key()) })
	return keys
}

func TestNewBuildsSixRoots(t *testing.T) {
	sink := newRecordingSink()
	p := mustPlanet(t, testConfig(0, 0.5, 1.0), WithSink(sink))
	if len(sink.built) != 6 || sink.visibleCount() != 6 {
		t.Fatalf("expected 6 built and visible roots, got %d and %d", len(sink.built), sink.visibleCount())
	}
	for i, root := range p.Roots() {
		if root.Key() != RootKey(Face(i)) || !root.IsLeaf() {
			t.Errorf("unexpected root %d: %v", i, root.Key())
		}
	}
	if s := p.Stats(); s.Live != 6 || s.Leaves != 6 || s.Builds != 6 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestZeroLayerLeavesAreSphere(t *testing.T) {
	p := mustPlanet(t, testConfig(0, 0.5, 1.0))
	p.Update(math.Vec3{Y: 1300})
	p.Leaves(func(c *Chunk) {
		for _, v := range c.Mesh().Vertices {
			if r := math.FromArray(v.Position).Length(); math.Abs(r-1000) > 0.01 {
				t.Fatalf("%v: expected |position| = 1000, got %v", c.Key(), r)
			}
		}
	})
}

func TestSubdivisionScenario(t *testing.T) {
	tests := []struct {
		name      string
		distances []float32
		leaves    int
		maxDepth  int
	}{
		// Viewer sits 0.3 radii above the up face. The root splits at 0.5;
		// every child is also 0.3 away.
		{"children stay leaves", []float32{0, 0.5, 0.2}, 4 + 5, 1},
		{"children split to max depth", []float32{0, 0.5, 1.0}, 16 + 5, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustPlanet(t, testConfig(tt.distances...))
			up := p.Roots()[FaceUp]
			if d := up.Distance(math.Vec3{Y: 1300}); math.Abs(d-0.3) > 1e-3 {
				t.Fatalf("expected normalized distance 0.3, got %v", d)
			}
			p.Update(math.Vec3{Y: 1300})
			if up.IsLeaf() {
				t.Fatal("expected up root to subdivide")
			}
			for _, f := range []Face{FaceDown, FaceLeft, FaceRight, FaceForward, FaceBack} {
				if !p.Roots()[f].IsLeaf() {
					t.Errorf("expected %s root to stay a leaf", f)
				}
			}
			s := p.Stats()
			if s.Leaves != tt.leaves || s.MaxDepth != tt.maxDepth {
				t.Errorf("expected %d leaves at depth %d, got %d at %d", tt.leaves, tt.maxDepth, s.Leaves, s.MaxDepth)
			}
		})
	}
}

func TestUpdateIsStable(t *testing.T) {
	sink := newRecordingSink()
	p := mustPlanet(t, testConfig(0, 0.5, 1.0), WithSink(sink))
	viewer := math.Vec3{Y: 1300}
	p.Update(viewer)
	built := len(sink.built)
	p.Update(viewer)
	if len(sink.built) != built || len(sink.released) != 0 {
		t.Errorf("expected repeated update to be a no-op, built %d -> %d", built, len(sink.built))
	}
}

func TestCollapseReleasesResources(t *testing.T) {
	sink := newRecordingSink()
	p := mustPlanet(t, testConfig(0, 0.5, 0.2), WithSink(sink))
	p.Update(math.Vec3{Y: 1300})

	up := p.Roots()[FaceUp]
	children := slices.Clone(up.Children())
	if len(children) != 4 {
		t.Fatalf("expected 4 children, got %d", len(children))
	}
	if sink.visible[up.Key()] {
		t.Error("expected subdivided root to be hidden")
	}

	p.Update(math.Vec3{Y: 1e6})
	if !up.IsLeaf() {
		t.Fatal("expected root to collapse")
	}
	if !sink.visible[up.Key()] {
		t.Error("expected collapsed root to be visible again")
	}
	for _, c := range children {
		if !c.Released() || c.Mesh() != nil {
			t.Errorf("expected %v released with no mesh", c.Key())
		}
	}
	if len(sink.released) != 4 {
		t.Errorf("expected 4 release notifications, got %d", len(sink.released))
	}

	reachable := 0
	for _, root := range p.Roots() {
		root.Walk(func(c *Chunk) bool {
			if slices.Contains(children, c) {
				reachable++
			}
			return true
		})
	}
	if reachable != 0 {
		t.Errorf("expected released children to be unreachable, found %d", reachable)
	}
	if s := p.Stats(); s.Live != 6 || s.Releases != 4 {
		t.Errorf("expected 6 live and 4 releases, got %+v", s)
	}
}

func TestCollapseDeepTree(t *testing.T) {
	sink := newRecordingSink()
	p := mustPlanet(t, testConfig(0, 0.5, 1.0), WithSink(sink))
	p.Update(math.Vec3{Y: 1300})
	p.Update(math.Vec3{Y: 1e6})
	// 4 depth-1 chunks and 16 depth-2 chunks.
	if len(sink.released) != 20 {
		t.Errorf("expected 20 releases, got %d", len(sink.released))
	}
	if sink.visibleCount() != 6 {
		t.Errorf("expected 6 visible roots, got %d", sink.visibleCount())
	}
}

func TestDeterministicStructure(t *testing.T) {
	cfg := testConfig(0, 0.8, 0.4)
	cfg.Shape.Layers = []noise.Settings{noise.DefaultSettings()}
	viewer := math.Vec3{X: 300, Y: 1200, Z: -150}

	a := mustPlanet(t, cfg)
	b := mustPlanet(t, cfg)
	a.Update(viewer)
	b.Update(viewer)
	if !slices.Equal(leafKeys(a), leafKeys(b)) {
		t.Errorf("expected identical trees, got %v and %v", leafKeys(a), leafKeys(b))
	}
}

func TestMaxChunks(t *testing.T) {
	tests := []struct {
		name     string
		cap      int
		leaves   int
		refusals bool
	}{
		{"no room", 6, 6, true},
		{"one split", 10, 9, true},
		{"unbounded", 0, 21, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(0, 0.5, 1.0)
			cfg.LOD.MaxChunks = tt.cap
			p := mustPlanet(t, cfg)
			p.Update(math.Vec3{Y: 1300})
			s := p.Stats()
			if s.Leaves != tt.leaves {
				t.Errorf("expected %d leaves, got %d", tt.leaves, s.Leaves)
			}
			if tt.cap > 0 && s.Live > tt.cap {
				t.Errorf("live chunks %d exceed cap %d", s.Live, tt.cap)
			}
			if (s.Refused > 0) != tt.refusals {
				t.Errorf("unexpected refusal count %d", s.Refused)
			}
		})
	}
}

func TestRegenerate(t *testing.T) {
	sink := newRecordingSink()
	p := mustPlanet(t, testConfig(0, 0.5, 1.0), WithSink(sink))
	p.Update(math.Vec3{Y: 1300})
	oldRoots := slices.Clone(p.Roots())

	layer := noise.DefaultSettings()
	if err := p.Regenerate(shape.Config{Radius: 1000, Layers: []noise.Settings{layer}}, biome.Config{}); err != nil {
		t.Fatalf("Regenerate failed: %v", err)
	}
	for _, r := range oldRoots {
		if !r.Released() {
			t.Errorf("expected old root %v released", r.Key())
		}
	}
	s := p.Stats()
	if s.Live != 6 || s.Leaves != 6 {
		t.Errorf("expected fresh roots, got %+v", s)
	}
	if lo, hi := p.ElevationRange(); hi <= lo {
		t.Errorf("expected elevation range, got [%v, %v]", lo, hi)
	}

	before := p.Digest()
	if err := p.Regenerate(shape.Config{Radius: -1}, biome.Config{}); err == nil {
		t.Fatal("expected invalid regenerate to fail")
	}
	if p.Digest() != before || p.Stats().Live != 6 {
		t.Error("expected failed regenerate to keep the tree")
	}
}

func TestPlanetTransform(t *testing.T) {
	cfg := testConfig(0, 0.5, 0.2)
	cfg.Position = math.Vec3{X: 5000}
	cfg.Rotation = math.QuatFromAxisAngle(math.Forward, math.Radians(90))
	p := mustPlanet(t, cfg)

	// Local up maps to world -X.
	p.Update(math.Vec3{X: 5000 - 1300})
	if p.Roots()[FaceUp].IsLeaf() {
		t.Error("expected up root to subdivide for a viewer over local up")
	}

	world := p.ModelMatrix().TransformPoint(math.Vec3{Y: 1000})
	if world.Distance(math.Vec3{X: 4000}) > 1e-2 {
		t.Errorf("expected local up at (4000, 0, 0), got %v", world)
	}
}

func TestParallelRootsMatchSerial(t *testing.T) {
	cfg := testConfig(0, 0.5, 1.0)
	cfg.Shape.Layers = []noise.Settings{noise.DefaultSettings()}
	cfg.Normalization = NormalizeGlobal
	serial := mustPlanet(t, cfg)
	cfg.Workers = 4
	parallel := mustPlanet(t, cfg)

	for i := 0; i < FaceCount; i++ {
		a := serial.Roots()[i].Mesh()
		b := parallel.Roots()[i].Mesh()
		if !slices.Equal(a.Vertices, b.Vertices) || !slices.Equal(a.Indices, b.Indices) {
			t.Fatalf("face %d differs between serial and parallel builds", i)
		}
	}
	lo1, hi1 := serial.ElevationRange()
	lo2, hi2 := parallel.ElevationRange()
	if lo1 != lo2 || hi1 != hi2 {
		t.Errorf("expected equal ranges, got [%v, %v] and [%v, %v]", lo1, hi1, lo2, hi2)
	}
}

func TestDigest(t *testing.T) {
	a := testConfig(0, 0.5, 1.0)
	b := a
	b.Position = math.Vec3{X: 10}
	b.LOD.MaxChunks = 100
	if a.Digest() != b.Digest() {
		t.Error("expected placement and lod to leave digest unchanged")
	}
	b.Normalization = NormalizeGlobal
	if a.Digest() == b.Digest() {
		t.Error("expected normalization to change digest")
	}
	b = a
	b.Shape.Seed = 7
	if a.Digest() == b.Digest() {
		t.Error("expected seed to change digest")
	}
}

func TestDigestColorPrecision(t *testing.T) {
	withTint := func(r float32) Config {
		cfg := testConfig(0, 0.5, 1.0)
		cfg.Biomes = biome.Config{Biomes: []biome.Biome{{
			Gradient:    biome.NewGradient(biome.Stop{Position: 0, Color: biome.White}),
			Tint:        biome.RGB(r, 0, 0),
			TintPercent: 0.5,
		}}}
		return cfg
	}
	a, b := withTint(0.5), withTint(0.501)
	if a.Biomes.Biomes[0].Tint.String() != b.Biomes.Biomes[0].Tint.String() {
		t.Fatal("expected tints to share a hex encoding")
	}
	if a.Digest() == b.Digest() {
		t.Error("expected sub-byte tint difference to change digest")
	}
	if a.Digest() != withTint(0.5).Digest() {
		t.Error("expected equal configs to share a digest")
	}
}

func TestCache(t *testing.T) {
	cache := newMemoryCache()
	cfg := testConfig(0, 0.5, 1.0)
	first := mustPlanet(t, cfg, WithCache(cache))
	first.Update(math.Vec3{Y: 1300})
	if len(cache.meshes) != first.Stats().Builds {
		t.Fatalf("expected every build stored, got %d of %d", len(cache.meshes), first.Stats().Builds)
	}

	second := mustPlanet(t, cfg, WithCache(cache))
	second.Update(math.Vec3{Y: 1300})
	s := second.Stats()
	if s.Builds != 0 || s.CacheHits != len(cache.meshes) {
		t.Errorf("expected all chunks from cache, got %+v", s)
	}
}

func TestCacheFailuresDegrade(t *testing.T) {
	p := mustPlanet(t, testConfig(0, 0.5, 1.0), WithCache(failingCache{}))
	p.Update(math.Vec3{Y: 1300})
	if s := p.Stats(); s.Leaves != 21 || s.CacheHits != 0 {
		t.Errorf("expected full build without cache, got %+v", s)
	}
}

func TestConfigValidateAggregates(t *testing.T) {
	cfg := testConfig(0)
	cfg.Shape.Radius = 0
	cfg.LOD.Resolution = 1
	cfg.Normalization = "weird"
	err := cfg.Validate()
	for _, want := range []error{shape.ErrInvalidConfig, ErrInvalidLOD, ErrInvalidConfig} {
		if !errors.Is(err, want) {
			t.Errorf("expected %v in %v", want, err)
		}
	}
	if _, err := New(cfg); err == nil {
		t.Error("expected New to fail fast")
	}
}

func TestClose(t *testing.T) {
	sink := newRecordingSink()
	p := mustPlanet(t, testConfig(0, 0.5, 1.0), WithSink(sink))
	p.Close()
	if len(sink.released) != 6 || p.Roots() != nil {
		t.Errorf("expected all roots released, got %d", len(sink.released))
	}
	if err := p.Regenerate(shape.Config{Radius: 1}, biome.Config{}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
