package noise

import (
	"errors"
	"fmt"

	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"

	"github.com/Magikos/Procedural-Planets/pkg/math"
)

// ErrUnknownSource is returned for an unrecognized source kind.
var ErrUnknownSource = errors.New("unknown noise source")

// SourceKind selects the gradient noise implementation.
type SourceKind string

// Supported sources.
const (
	SourceSimplex     SourceKind = "simplex"
	SourceOpenSimplex SourceKind = "opensimplex"
	SourcePerlin      SourceKind = "perlin"
)

// Valid reports whether k names a supported source. Empty means simplex.
func (k SourceKind) Valid() bool {
	switch k {
	case "", SourceSimplex, SourceOpenSimplex, SourcePerlin:
		return true
	}
	return false
}

// NewSource builds the source of the given kind.
func NewSource(kind SourceKind, seed int64) (Source, error) {
	switch kind {
	case "", SourceSimplex:
		return NewSimplex(seed), nil
	case SourceOpenSimplex:
		return &openSimplexSource{n: opensimplex.New(seed)}, nil
	case SourcePerlin:
		// One octave; the filters do their own octave summation.
		return &perlinSource{p: perlin.NewPerlin(2, 2, 1, seed)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, kind)
	}
}

type openSimplexSource struct {
	n opensimplex.Noise
}

func (s *openSimplexSource) Evaluate(p math.Vec3) float32 {
	return float32(s.n.Eval3(float64(p.X), float64(p.Y), float64(p.Z)))
}

type perlinSource struct {
	p *perlin.Perlin
}

func (s *perlinSource) Evaluate(p math.Vec3) float32 {
	return math.Clamp(float32(s.p.Noise3D(float64(p.X), float64(p.Y), float64(p.Z))), -1, 1)
}
