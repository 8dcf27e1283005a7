package terrain

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// ErrInvalidLOD wraps LOD settings failures.
var ErrInvalidLOD = errors.New("invalid lod settings")

// Grid size limits. A MaxResolution chunk stays within the PMSH vertex and
// index limits.
const (
	MinResolution = 2
	MaxResolution = 2048
)

// LODSettings controls quadtree refinement.
type LODSettings struct {
	MaxLOD int `yaml:"max_lod" json:"max_lod"`

	// Distances[d] is the normalized viewer distance below which a chunk
	// at depth d-1 splits into depth d. Distances[0] is unused.
	Distances []float32 `yaml:"distances" json:"distances"`

	Resolution  int   `yaml:"resolution" json:"resolution"`
	Resolutions []int `yaml:"resolutions,omitempty" json:"resolutions,omitempty"` // per-depth overrides

	MaxChunks          int     `yaml:"max_chunks,omitempty" json:"max_chunks,omitempty"` // 0 = unbounded
	DistanceMultiplier float32 `yaml:"distance_multiplier,omitempty" json:"distance_multiplier,omitempty"`
}

// DefaultLODSettings returns a four-level tree at resolution 16.
func DefaultLODSettings() LODSettings {
	return LODSettings{
		MaxLOD:             4,
		Distances:          []float32{0, 2, 1, 0.5, 0.25},
		Resolution:         16,
		DistanceMultiplier: 1,
	}
}

// Validate reports every invariant the settings break.
func (s LODSettings) Validate() error {
	var err error
	if s.MaxLOD < 0 || s.MaxLOD > 24 {
		err = multierr.Append(err, fmt.Errorf("%w: max_lod must be in [0, 24], got %d", ErrInvalidLOD, s.MaxLOD))
	}
	if len(s.Distances) < s.MaxLOD+1 {
		err = multierr.Append(err, fmt.Errorf("%w: need %d distances for max_lod %d, got %d", ErrInvalidLOD, s.MaxLOD+1, s.MaxLOD, len(s.Distances)))
	}
	for i, d := range s.Distances {
		if d < 0 {
			err = multierr.Append(err, fmt.Errorf("%w: distances[%d] is negative", ErrInvalidLOD, i))
		}
	}
	if s.Resolution < MinResolution || s.Resolution > MaxResolution {
		err = multierr.Append(err, fmt.Errorf("%w: resolution must be in [%d, %d], got %d", ErrInvalidLOD, MinResolution, MaxResolution, s.Resolution))
	}
	for i, r := range s.Resolutions {
		if r != 0 && (r < MinResolution || r > MaxResolution) {
			err = multierr.Append(err, fmt.Errorf("%w: resolutions[%d] must be 0 or in [%d, %d], got %d", ErrInvalidLOD, i, MinResolution, MaxResolution, r))
		}
	}
	if s.MaxChunks < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: max_chunks must be >= 0, got %d", ErrInvalidLOD, s.MaxChunks))
	}
	if s.DistanceMultiplier < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: distance_multiplier must be >= 0, got %g", ErrInvalidLOD, s.DistanceMultiplier))
	}
	return err
}

// ResolutionFor returns the grid size used at depth.
func (s LODSettings) ResolutionFor(depth int) int {
	if depth < len(s.Resolutions) && s.Resolutions[depth] > 0 {
		return s.Resolutions[depth]
	}
	return s.Resolution
}

// Threshold returns the normalized distance that splits a chunk at depth.
// Depths past the list clamp to the last entry.
func (s LODSettings) Threshold(depth int) float32 {
	if len(s.Distances) == 0 {
		return 0
	}
	i := min(depth+1, len(s.Distances)-1)
	mult := s.DistanceMultiplier
	if mult == 0 {
		mult = 1
	}
	return s.Distances[i] * mult
}

// ShouldSubdivide reports whether a chunk at depth splits at normalized
// viewer distance d.
func (s LODSettings) ShouldSubdivide(depth int, d float32) bool {
	return depth < s.MaxLOD && d < s.Threshold(depth)
}
