// Package noise provides deterministic 3D gradient noise and the layered
// Simple and Ridged filters built on top of it.
package noise

import (
	gomath "math"

	"github.com/Magikos/Procedural-Planets/pkg/math"
)

// Source is a 3D gradient noise function. Values lie in [-1, 1].
type Source interface {
	Evaluate(p math.Vec3) float32
}

// Simplex is 3D simplex noise with a hashed gradient lookup.
// The zero value is valid and uses seed 0.
type Simplex struct {
	seed uint32
}

// NewSimplex returns simplex noise for the given seed.
func NewSimplex(seed int64) *Simplex {
	return &Simplex{seed: uint32(seed) ^ uint32(seed>>32)}
}

// Skew and unskew factors for three dimensions.
const (
	skew3   = 1.0 / 3.0
	unskew3 = 1.0 / 6.0
)

// Edge midpoints of a cube, the classic 3D simplex gradient set.
var gradients = [12][3]float64{
	{1, 1, 0}, {-1, 1, 0}, {1, -1, 0}, {-1, -1, 0},
	{1, 0, 1}, {-1, 0, 1}, {1, 0, -1}, {-1, 0, -1},
	{0, 1, 1}, {0, -1, 1}, {0, 1, -1}, {0, -1, -1},
}

// Evaluate returns the noise value at p.
func (s *Simplex) Evaluate(p math.Vec3) float32 {
	x, y, z := float64(p.X), float64(p.Y), float64(p.Z)

	f := (x + y + z) * skew3
	i := fastFloor(x + f)
	j := fastFloor(y + f)
	k := fastFloor(z + f)

	g := float64(i+j+k) * unskew3
	x0 := x - (float64(i) - g)
	y0 := y - (float64(j) - g)
	z0 := z - (float64(k) - g)

	// Pick the simplex the point falls in by ranking the offsets.
	var i1, j1, k1, i2, j2, k2 int
	if x0 >= y0 {
		switch {
		case y0 >= z0:
			i1, j1, k1, i2, j2, k2 = 1, 0, 0, 1, 1, 0
		case x0 >= z0:
			i1, j1, k1, i2, j2, k2 = 1, 0, 0, 1, 0, 1
		default:
			i1, j1, k1, i2, j2, k2 = 0, 0, 1, 1, 0, 1
		}
	} else {
		switch {
		case y0 < z0:
			i1, j1, k1, i2, j2, k2 = 0, 0, 1, 0, 1, 1
		case x0 < z0:
			i1, j1, k1, i2, j2, k2 = 0, 1, 0, 0, 1, 1
		default:
			i1, j1, k1, i2, j2, k2 = 0, 1, 0, 1, 1, 0
		}
	}

	x1 := x0 - float64(i1) + unskew3
	y1 := y0 - float64(j1) + unskew3
	z1 := z0 - float64(k1) + unskew3
	x2 := x0 - float64(i2) + 2*unskew3
	y2 := y0 - float64(j2) + 2*unskew3
	z2 := z0 - float64(k2) + 2*unskew3
	x3 := x0 - 1 + 3*unskew3
	y3 := y0 - 1 + 3*unskew3
	z3 := z0 - 1 + 3*unskew3

	n := corner(x0, y0, z0, s.hash(i, j, k)) +
		corner(x1, y1, z1, s.hash(i+i1, j+j1, k+k1)) +
		corner(x2, y2, z2, s.hash(i+i2, j+j2, k+k2)) +
		corner(x3, y3, z3, s.hash(i+1, j+1, k+1))

	v := 32 * n
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return float32(v)
}

func corner(x, y, z float64, h int) float64 {
	t := 0.6 - x*x - y*y - z*z
	if t < 0 {
		return 0
	}
	gr := &gradients[h]
	t *= t
	return t * t * (gr[0]*x + gr[1]*y + gr[2]*z)
}

// hash maps lattice coordinates to a gradient index.
func (s *Simplex) hash(i, j, k int) int {
	h := uint32(i)*1619 ^ uint32(j)*31337 ^ uint32(k)*6971 ^ s.seed*1013
	h ^= h >> 13
	h *= 0x5bd1e995
	h ^= h >> 15
	return int(h % uint32(len(gradients)))
}

func fastFloor(v float64) int {
	return int(gomath.Floor(v))
}
