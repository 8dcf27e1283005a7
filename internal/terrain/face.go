// Package terrain builds cube-sphere planet meshes as six quadtrees of
// chunks refined by viewer distance.
package terrain

import (
	"fmt"

	"github.com/Magikos/Procedural-Planets/pkg/math"
)

// Face identifies one of the six cube faces.
type Face uint8

// Cube faces in root order.
const (
	FaceUp Face = iota
	FaceDown
	FaceLeft
	FaceRight
	FaceForward
	FaceBack
	FaceCount = 6
)

var faceNames = [FaceCount]string{"up", "down", "left", "right", "forward", "back"}

var faceNormals = [FaceCount]math.Vec3{
	math.Up, math.Down, math.Left, math.Right, math.Forward, math.Back,
}

// Faces lists every face in root order.
func Faces() []Face {
	return []Face{FaceUp, FaceDown, FaceLeft, FaceRight, FaceForward, FaceBack}
}

// Valid reports whether f is one of the six faces.
func (f Face) Valid() bool {
	return f < FaceCount
}

func (f Face) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Face(%d)", uint8(f))
	}
	return faceNames[f]
}

// Normal returns the outward face normal.
func (f Face) Normal() math.Vec3 {
	return faceNormals[f]
}

// Axes returns the two in-plane axes spanning the face. B = normal x A,
// so the grid winds counter-clockwise seen from outside.
func (f Face) Axes() (a, b math.Vec3) {
	n := faceNormals[f]
	a = math.Vec3{X: n.Y, Y: n.Z, Z: n.X}
	b = n.Cross(a)
	return a, b
}

// PointOnSphere projects face parameters u, v in [0, 1] onto the unit
// sphere.
func (f Face) PointOnSphere(u, v float32) math.Vec3 {
	a, b := f.Axes()
	p := f.Normal().Add(a.Scale((u - 0.5) * 2)).Add(b.Scale((v - 0.5) * 2))
	return p.Normalize()
}
