package biome

import (
	"slices"

	"github.com/Magikos/Procedural-Planets/pkg/math"
)

// Stop is one gradient key.
type Stop struct {
	Position float32 `yaml:"position" json:"position"`
	Color    Color   `yaml:"color" json:"color"`
}

// Gradient maps [0, 1] to colors by linear interpolation between stops.
type Gradient struct {
	Stops []Stop `yaml:"stops" json:"stops"`
}

// NewGradient builds a normalized gradient from stops.
func NewGradient(stops ...Stop) Gradient {
	return Gradient{Stops: stops}.Normalized()
}

// Normalized returns a copy with positions clamped to [0, 1] and stops
// sorted by position.
func (g Gradient) Normalized() Gradient {
	stops := make([]Stop, len(g.Stops))
	for i, s := range g.Stops {
		s.Position = math.Clamp01(s.Position)
		stops[i] = s
	}
	slices.SortStableFunc(stops, func(a, b Stop) int {
		switch {
		case a.Position < b.Position:
			return -1
		case a.Position > b.Position:
			return 1
		}
		return 0
	})
	return Gradient{Stops: stops}
}

// Sorted reports whether the stops are already normalized.
func (g Gradient) Sorted() bool {
	for i, s := range g.Stops {
		if s.Position < 0 || s.Position > 1 {
			return false
		}
		if i > 0 && s.Position < g.Stops[i-1].Position {
			return false
		}
	}
	return true
}

// Evaluate returns the color at t. The gradient must be normalized. An
// empty gradient is mid gray.
func (g Gradient) Evaluate(t float32) Color {
	n := len(g.Stops)
	if n == 0 {
		return Gray
	}
	t = math.Clamp01(t)
	if t <= g.Stops[0].Position {
		return g.Stops[0].Color
	}
	for i := 1; i < n; i++ {
		next := g.Stops[i]
		if t <= next.Position {
			prev := g.Stops[i-1]
			span := next.Position - prev.Position
			if span <= 0 {
				return next.Color
			}
			return prev.Color.Lerp(next.Color, (t-prev.Position)/span)
		}
	}
	return g.Stops[n-1].Color
}
