package terrain

import (
	"fmt"

	"github.com/Magikos/Procedural-Planets/pkg/math"
)

// Key addresses a chunk: the face, the quadtree depth and the cell within
// the 2^depth by 2^depth grid over the face.
type Key struct {
	Face  Face   `json:"face"`
	Depth uint8  `json:"depth"`
	X     uint32 `json:"x"`
	Y     uint32 `json:"y"`
}

// RootKey returns the depth-0 key of a face.
func RootKey(f Face) Key {
	return Key{Face: f}
}

// Valid reports whether the cell lies inside the face grid.
func (k Key) Valid() bool {
	if !k.Face.Valid() || k.Depth > 31 {
		return false
	}
	n := uint32(1) << k.Depth
	return k.X < n && k.Y < n
}

// Rect returns the face parameter rectangle the key covers.
func (k Key) Rect() math.Rect {
	size := 1 / float32(uint32(1)<<k.Depth)
	minX := float32(k.X) * size
	minY := float32(k.Y) * size
	return math.Rect{
		Min: math.Vec2{X: minX, Y: minY},
		Max: math.Vec2{X: minX + size, Y: minY + size},
	}
}

// Child returns the key of quadrant q, ordered like math.Rect.Quadrants.
func (k Key) Child(q int) Key {
	return Key{
		Face:  k.Face,
		Depth: k.Depth + 1,
		X:     k.X*2 + uint32(q&1),
		Y:     k.Y*2 + uint32(q>>1),
	}
}

// Parent returns the enclosing key. A root is its own parent.
func (k Key) Parent() Key {
	if k.Depth == 0 {
		return k
	}
	return Key{Face: k.Face, Depth: k.Depth - 1, X: k.X / 2, Y: k.Y / 2}
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d/%d/%d", k.Face, k.Depth, k.X, k.Y)
}
