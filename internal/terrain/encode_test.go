package terrain

import (
	"slices"
	"testing"

	"github.com/Magikos/Procedural-Planets/internal/biome"
	"github.com/Magikos/Procedural-Planets/internal/noise"
	"github.com/Magikos/Procedural-Planets/internal/shape"
	"github.com/Magikos/Procedural-Planets/pkg/formats"
)

func TestPMSHChunkMesh(t *testing.T) {
	gen, colors := newGenerators(t, shape.Config{Radius: 100, Layers: []noise.Settings{noise.DefaultSettings()}}, biome.Config{})
	want := buildMesh(gen, colors, Key{Face: FaceBack, Depth: 2, X: 3, Y: 1}, 6)

	got, err := DecodePMSH(want.EncodePMSH())
	if err != nil {
		t.Fatalf("DecodePMSH failed: %v", err)
	}
	if got.Key != want.Key || got.Resolution != 6 {
		t.Errorf("expected %v res 6, got %v res %d", want.Key, got.Key, got.Resolution)
	}
	if got.Bounds != want.Bounds {
		t.Errorf("expected bounds %v, got %v", want.Bounds, got.Bounds)
	}
	if !slices.Equal(got.Vertices, want.Vertices) || !slices.Equal(got.Indices, want.Indices) {
		t.Error("decoded geometry differs")
	}
}

func TestMeshFromPMSHRejectsBadKey(t *testing.T) {
	rec := &formats.PMSH{Key: formats.PMSHKey{Face: 9}}
	if _, err := MeshFromPMSH(rec); err == nil {
		t.Error("expected error for invalid face")
	}
}
