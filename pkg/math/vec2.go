package math

// Vec2 is a 2D vector. Terrain chunks use it for cube-face parameters.
type Vec2 struct {
	X, Y float32
}

// Add returns v + other.
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{v.X + other.X, v.Y + other.Y}
}

// Sub returns v - other.
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{v.X - other.X, v.Y - other.Y}
}

// Scale returns v * scalar.
func (v Vec2) Scale(s float32) Vec2 {
	return Vec2{v.X * s, v.Y * s}
}

// Rect is an axis-aligned rectangle, Min inclusive and Max inclusive.
type Rect struct {
	Min, Max Vec2
}

// UnitRect covers [0,1]x[0,1].
var UnitRect = Rect{Min: Vec2{0, 0}, Max: Vec2{1, 1}}

// Size returns the rectangle extent.
func (r Rect) Size() Vec2 {
	return r.Max.Sub(r.Min)
}

// Center returns the midpoint.
func (r Rect) Center() Vec2 {
	return r.Min.Add(r.Max).Scale(0.5)
}

// At maps normalized coordinates (0..1 across the rect) to a point inside it.
func (r Rect) At(u, v float32) Vec2 {
	s := r.Size()
	return Vec2{r.Min.X + u*s.X, r.Min.Y + v*s.Y}
}

// Quadrants splits the rectangle into four equal parts ordered
// bottom-left, bottom-right, top-left, top-right.
func (r Rect) Quadrants() [4]Rect {
	c := r.Center()
	return [4]Rect{
		{Min: r.Min, Max: c},
		{Min: Vec2{c.X, r.Min.Y}, Max: Vec2{r.Max.X, c.Y}},
		{Min: Vec2{r.Min.X, c.Y}, Max: Vec2{c.X, r.Max.Y}},
		{Min: c, Max: r.Max},
	}
}
