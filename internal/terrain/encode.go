package terrain

import (
	"fmt"

	"github.com/Magikos/Procedural-Planets/pkg/formats"
	"github.com/Magikos/Procedural-Planets/pkg/math"
)

// ToPMSH converts the mesh to its wire record.
func (m *Mesh) ToPMSH() *formats.PMSH {
	rec := &formats.PMSH{
		Version:    formats.CurrentPMSHVersion,
		Key:        formats.PMSHKey{Face: uint8(m.Key.Face), Depth: m.Key.Depth, X: m.Key.X, Y: m.Key.Y},
		Resolution: uint16(m.Resolution),
		BoundsMin:  m.Bounds.Min.Array(),
		BoundsMax:  m.Bounds.Max.Array(),
		Vertices:   make([]formats.PMSHVertex, len(m.Vertices)),
		Indices:    m.Indices,
	}
	for i, v := range m.Vertices {
		rec.Vertices[i] = formats.PMSHVertex(v)
	}
	return rec
}

// EncodePMSH returns the mesh as PMSH bytes.
func (m *Mesh) EncodePMSH() []byte {
	return m.ToPMSH().Encode()
}

// MeshFromPMSH converts a parsed record back to a mesh.
func MeshFromPMSH(rec *formats.PMSH) (*Mesh, error) {
	key := Key{Face: Face(rec.Key.Face), Depth: rec.Key.Depth, X: rec.Key.X, Y: rec.Key.Y}
	if !key.Valid() {
		return nil, fmt.Errorf("invalid chunk key %v", key)
	}
	m := &Mesh{
		Key:        key,
		Resolution: int(rec.Resolution),
		Vertices:   make([]Vertex, len(rec.Vertices)),
		Indices:    rec.Indices,
		Bounds:     math.Box{Min: math.FromArray(rec.BoundsMin), Max: math.FromArray(rec.BoundsMax)},
	}
	for i, v := range rec.Vertices {
		m.Vertices[i] = Vertex(v)
	}
	return m, nil
}

// DecodePMSH parses PMSH bytes into a mesh.
func DecodePMSH(data []byte) (*Mesh, error) {
	rec, err := formats.ParsePMSH(data)
	if err != nil {
		return nil, err
	}
	return MeshFromPMSH(rec)
}
