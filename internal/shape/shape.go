// Package shape turns points on the unit sphere into planet surface
// elevations by compositing noise layers.
package shape

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/Magikos/Procedural-Planets/internal/noise"
	"github.com/Magikos/Procedural-Planets/pkg/math"
)

// ErrInvalidConfig wraps shape configuration failures.
var ErrInvalidConfig = errors.New("invalid shape config")

// Config describes the planet's shape.
type Config struct {
	Radius float32          `yaml:"radius" json:"radius"`
	Layers []noise.Settings `yaml:"layers" json:"layers"`

	// Source and Seed pick the gradient noise; layer i uses Seed+i.
	Source noise.SourceKind `yaml:"source,omitempty" json:"source,omitempty"`
	Seed   int64            `yaml:"seed" json:"seed"`

	// GateMaskByEnabled makes a disabled first layer mask later layers
	// with 0 instead of its raw value.
	GateMaskByEnabled bool `yaml:"gate_mask_by_enabled,omitempty" json:"gate_mask_by_enabled,omitempty"`
}

// Validate reports invariant violations. An empty layer list is allowed.
func (c Config) Validate() error {
	var err error
	if c.Radius <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: radius must be > 0, got %g", ErrInvalidConfig, c.Radius))
	}
	if !c.Source.Valid() {
		err = multierr.Append(err, fmt.Errorf("%w: %w: %q", ErrInvalidConfig, noise.ErrUnknownSource, c.Source))
	}
	for i, l := range c.Layers {
		if lerr := l.ScaledTo(c.Radius).Validate(); lerr != nil {
			err = multierr.Append(err, fmt.Errorf("layer %d: %w", i, lerr))
		}
	}
	return err
}

// Generator computes elevations for one shape configuration. It is
// read-only after construction.
type Generator struct {
	cfg     Config
	filters []*noise.Filter
}

// New validates cfg and builds one filter per layer.
func New(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &Generator{cfg: cfg, filters: make([]*noise.Filter, len(cfg.Layers))}
	for i, l := range cfg.Layers {
		src, err := noise.NewSource(cfg.Source, cfg.Seed+int64(i))
		if err != nil {
			return nil, err
		}
		f, err := noise.NewFilter(l.ScaledTo(cfg.Radius), src)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		g.filters[i] = f
	}
	return g, nil
}

// Radius returns the nominal planet radius.
func (g *Generator) Radius() float32 {
	return g.cfg.Radius
}

// LayerCount returns the number of configured layers.
func (g *Generator) LayerCount() int {
	return len(g.filters)
}

// UnscaledElevation returns the elevation at a unit-sphere point before
// the radius is applied. When tracker is non-nil the result is recorded.
func (g *Generator) UnscaledElevation(p math.Vec3, tracker *MinMax) float32 {
	var elevation, first float32

	if len(g.filters) > 0 {
		first = g.filters[0].Evaluate(p)
		if g.cfg.Layers[0].Enabled {
			elevation = first
		} else if g.cfg.GateMaskByEnabled {
			first = 0
		}
	}

	for i := 1; i < len(g.filters); i++ {
		layer := &g.cfg.Layers[i]
		if !layer.Enabled {
			continue
		}
		mask := float32(1)
		if layer.UseAsMask {
			mask = first
		}
		elevation += g.filters[i].Evaluate(p) * mask
	}

	if tracker != nil {
		tracker.Add(elevation)
	}
	return elevation
}

// ScaledElevation converts an unscaled elevation to a distance from the
// planet center. Negative elevations clamp to the nominal radius.
func (g *Generator) ScaledElevation(unscaled float32) float32 {
	return g.cfg.Radius * (1 + max(0, unscaled))
}

// Surface returns the world-space (planet-local) surface point above p
// and its unscaled elevation.
func (g *Generator) Surface(p math.Vec3, tracker *MinMax) (math.Vec3, float32) {
	u := g.UnscaledElevation(p, tracker)
	return p.Scale(g.ScaledElevation(u)), u
}
