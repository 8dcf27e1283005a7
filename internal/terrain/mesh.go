package terrain

import (
	"github.com/Magikos/Procedural-Planets/internal/biome"
	"github.com/Magikos/Procedural-Planets/internal/shape"
	"github.com/Magikos/Procedural-Planets/pkg/math"
)

// samples is the first build pass: unit-sphere points and their unscaled
// elevations with the local range.
type samples struct {
	key        Key
	resolution int
	points     []math.Vec3
	elevations []float32
	local      *shape.MinMax
}

// sampleChunk evaluates elevations over a res x res grid on the key's
// face rectangle.
func sampleChunk(gen *shape.Generator, key Key, res int) *samples {
	s := &samples{
		key:        key,
		resolution: res,
		points:     make([]math.Vec3, res*res),
		elevations: make([]float32, res*res),
		local:      shape.NewMinMax(),
	}
	rect := key.Rect()
	step := 1 / float32(res-1)
	for y := 0; y < res; y++ {
		for x := 0; x < res; x++ {
			uv := rect.At(float32(x)*step, float32(y)*step)
			i := x + y*res
			p := key.Face.PointOnSphere(uv.X, uv.Y)
			s.points[i] = p
			s.elevations[i] = gen.UnscaledElevation(p, s.local)
		}
	}
	return s
}

// assemble is the second build pass. Colors use norm for the height
// percent; nil means the chunk's own range.
func (s *samples) assemble(gen *shape.Generator, colors *biome.Generator, norm *shape.MinMax) *Mesh {
	if norm == nil {
		norm = s.local
	}
	res := s.resolution
	m := &Mesh{
		Key:        s.key,
		Resolution: res,
		Vertices:   make([]Vertex, res*res),
		Indices:    make([]uint32, 0, (res-1)*(res-1)*6),
		Bounds:     math.EmptyBox(),
	}

	for i, p := range s.points {
		u := s.elevations[i]
		pos := p.Scale(gen.ScaledElevation(u))
		h := norm.Normalize(u)
		m.Vertices[i] = Vertex{
			Position: pos.Array(),
			Color:    colors.ColorForElevation(p, h, u, norm.Min()).Array(),
		}
		m.Bounds = m.Bounds.Extend(pos)
	}

	for y := 0; y < res-1; y++ {
		for x := 0; x < res-1; x++ {
			i := uint32(x + y*res)
			r := uint32(res)
			m.Indices = append(m.Indices,
				i, i+r+1, i+r,
				i, i+1, i+r+1,
			)
		}
	}

	computeNormals(m.Vertices, m.Indices)
	return m
}

// computeNormals sets area-weighted vertex normals from the triangle list.
func computeNormals(vertices []Vertex, indices []uint32) {
	acc := make([]math.Vec3, len(vertices))
	for t := 0; t+2 < len(indices); t += 3 {
		ia, ib, ic := indices[t], indices[t+1], indices[t+2]
		a := math.FromArray(vertices[ia].Position)
		b := math.FromArray(vertices[ib].Position)
		c := math.FromArray(vertices[ic].Position)
		// Unnormalized cross product weights by triangle area.
		n := b.Sub(a).Cross(c.Sub(a))
		acc[ia] = acc[ia].Add(n)
		acc[ib] = acc[ib].Add(n)
		acc[ic] = acc[ic].Add(n)
	}
	for i := range vertices {
		n := acc[i].Normalize()
		if n.LengthSq() == 0 {
			n = math.FromArray(vertices[i].Position).Normalize()
		}
		vertices[i].Normal = n.Array()
	}
}

// buildMesh runs both passes with local normalization.
func buildMesh(gen *shape.Generator, colors *biome.Generator, key Key, res int) *Mesh {
	return sampleChunk(gen, key, res).assemble(gen, colors, nil)
}
