package terrain

import (
	"github.com/Magikos/Procedural-Planets/pkg/math"
)

// Vertex is one chunk mesh vertex in planet-local space.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	Color    [4]float32
}

// Mesh holds chunk geometry ready for upload.
type Mesh struct {
	Key        Key
	Resolution int
	Vertices   []Vertex
	Indices    []uint32 // triangle list
	Bounds     math.Box // planet-local AABB of the vertices
}

// TriangleCount returns the number of triangles in the index buffer.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Stats are counters over a planet's chunk tree.
type Stats struct {
	Live      int `json:"live"`
	Leaves    int `json:"leaves"`
	MaxDepth  int `json:"max_depth"`
	Builds    int `json:"builds"`
	CacheHits int `json:"cache_hits"`
	Releases  int `json:"releases"`
	Refused   int `json:"refused"` // subdivisions blocked by MaxChunks
}
