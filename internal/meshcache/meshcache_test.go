package meshcache

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/Magikos/Procedural-Planets/internal/noise"
	"github.com/Magikos/Procedural-Planets/internal/shape"
	"github.com/Magikos/Procedural-Planets/internal/terrain"
	"github.com/Magikos/Procedural-Planets/pkg/math"
)

func openTestCache(t *testing.T) (*Cache, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache", "meshes.db")
	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, path
}

func testPlanetConfig() terrain.Config {
	return terrain.Config{
		Shape: shape.Config{Radius: 100, Layers: []noise.Settings{noise.DefaultSettings()}},
		LOD:   terrain.LODSettings{MaxLOD: 1, Distances: []float32{0, 0.5}, Resolution: 6},
	}
}

func TestCache_StoreLoad(t *testing.T) {
	c, _ := openTestCache(t)
	p, err := terrain.New(testPlanetConfig())
	if err != nil {
		t.Fatalf("terrain.New: %v", err)
	}
	want := p.Roots()[terrain.FaceRight].Mesh()

	if _, ok, err := c.Load(p.Digest(), want.Key, want.Resolution); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := c.Store(p.Digest(), want); err != nil {
		t.Fatalf("Store: %v", err)
	}
	got, ok, err := c.Load(p.Digest(), want.Key, want.Resolution)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if !slices.Equal(got.Vertices, want.Vertices) || !slices.Equal(got.Indices, want.Indices) || got.Bounds != want.Bounds {
		t.Error("cached mesh differs from stored mesh")
	}

	if _, ok, _ := c.Load("other", want.Key, want.Resolution); ok {
		t.Error("expected miss for different digest")
	}
	if _, ok, _ := c.Load(p.Digest(), want.Key, want.Resolution+1); ok {
		t.Error("expected miss for different resolution")
	}
}

func TestCache_PlanetUsesCache(t *testing.T) {
	c, path := openTestCache(t)
	viewer := math.Vec3{Y: 120}

	first, err := terrain.New(testPlanetConfig(), terrain.WithCache(c))
	if err != nil {
		t.Fatal(err)
	}
	first.Update(viewer)
	built := first.Stats().Builds

	stats, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Entries != built || stats.Digests != 1 {
		t.Fatalf("expected %d entries for one digest, got %+v", built, stats)
	}
	if stats.CompressedSize <= 0 || stats.RawBytes <= 0 {
		t.Errorf("expected sizes to be recorded, got %+v", stats)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	second, err := terrain.New(testPlanetConfig(), terrain.WithCache(reopened))
	if err != nil {
		t.Fatal(err)
	}
	second.Update(viewer)
	if s := second.Stats(); s.Builds != 0 || s.CacheHits != built {
		t.Errorf("expected %d cache hits and no builds, got %+v", built, s)
	}
}

func TestCache_Prune(t *testing.T) {
	c, _ := openTestCache(t)
	p, err := terrain.New(testPlanetConfig())
	if err != nil {
		t.Fatal(err)
	}
	m := p.Roots()[0].Mesh()
	for _, digest := range []string{"a", "b", "c"} {
		if err := c.Store(digest, m); err != nil {
			t.Fatal(err)
		}
	}
	n, err := c.Prune("b")
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 pruned rows, got %d", n)
	}
	if _, ok, _ := c.Load("b", m.Key, m.Resolution); !ok {
		t.Error("expected kept digest to survive prune")
	}
}

func TestCache_Closed(t *testing.T) {
	c, _ := openTestCache(t)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.Load("d", terrain.RootKey(terrain.FaceUp), 4); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("expected second Close to be a no-op, got %v", err)
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("expected error for empty path")
	}
}
