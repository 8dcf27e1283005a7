// Package biome colors the planet surface by blending height-banded
// biome gradients.
package biome

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/Magikos/Procedural-Planets/internal/noise"
	"github.com/Magikos/Procedural-Planets/pkg/math"
)

// ErrInvalidConfig wraps biome configuration failures.
var ErrInvalidConfig = errors.New("invalid biome config")

// blendEpsilon keeps the blend range non-empty when BlendAmount is 0.
const blendEpsilon = 0.001

// Biome is one height band.
type Biome struct {
	Name        string   `yaml:"name,omitempty" json:"name,omitempty"`
	StartHeight float32  `yaml:"start_height" json:"start_height"`
	Gradient    Gradient `yaml:"gradient" json:"gradient"`
	Tint        Color    `yaml:"tint" json:"tint"`
	TintPercent float32  `yaml:"tint_percent" json:"tint_percent"`
}

// Color returns the tinted gradient color at height percent h.
func (b *Biome) Color(h float32) Color {
	return b.Gradient.Evaluate(h).Lerp(b.Tint, b.TintPercent)
}

// Config lists the biomes in ascending StartHeight order.
type Config struct {
	Biomes        []Biome         `yaml:"biomes" json:"biomes"`
	BlendAmount   float32         `yaml:"blend_amount" json:"blend_amount"`
	NoiseOffset   float32         `yaml:"noise_offset" json:"noise_offset"`
	NoiseStrength float32         `yaml:"noise_strength" json:"noise_strength"`
	MaskNoise     *noise.Settings `yaml:"mask_noise,omitempty" json:"mask_noise,omitempty"`
	Seed          int64           `yaml:"seed,omitempty" json:"seed,omitempty"`

	// MaskSource is the gradient noise behind MaskNoise. Empty means simplex,
	// independent of the shape source.
	MaskSource noise.SourceKind `yaml:"mask_source,omitempty" json:"mask_source,omitempty"`

	// Ocean colors negative elevations by depth when set.
	Ocean *Gradient `yaml:"ocean,omitempty" json:"ocean,omitempty"`
}

// Colors returns every configured color in a fixed order: each biome's
// stops then tint, then the ocean stops.
func (c Config) Colors() []Color {
	var out []Color
	for _, b := range c.Biomes {
		for _, s := range b.Gradient.Stops {
			out = append(out, s.Color)
		}
		out = append(out, b.Tint)
	}
	if c.Ocean != nil {
		for _, s := range c.Ocean.Stops {
			out = append(out, s.Color)
		}
	}
	return out
}

// FallbackBiomes is the palette used when no biome is configured.
func FallbackBiomes() []Biome {
	return []Biome{{
		Name: "fallback",
		Gradient: NewGradient(
			Stop{Position: 0, Color: RGB(0.1, 0.25, 0.7)},
			Stop{Position: 0.5, Color: RGB(0.2, 0.55, 0.2)},
			Stop{Position: 1, Color: RGB(0.45, 0.33, 0.2)},
		),
	}}
}

// Validate reports invariant violations. Empty biome lists and unsorted
// gradient stops are not errors; New falls back or normalizes.
func (c Config) Validate() error {
	var err error
	if c.BlendAmount < 0 || c.BlendAmount > 1 {
		err = multierr.Append(err, fmt.Errorf("%w: blend_amount must be in [0, 1], got %g", ErrInvalidConfig, c.BlendAmount))
	}
	for i, b := range c.Biomes {
		if b.TintPercent < 0 || b.TintPercent > 1 {
			err = multierr.Append(err, fmt.Errorf("%w: biome %d: tint_percent must be in [0, 1], got %g", ErrInvalidConfig, i, b.TintPercent))
		}
		if b.StartHeight < 0 || b.StartHeight > 1 {
			err = multierr.Append(err, fmt.Errorf("%w: biome %d: start_height must be in [0, 1], got %g", ErrInvalidConfig, i, b.StartHeight))
		}
		if i > 0 && b.StartHeight < c.Biomes[i-1].StartHeight {
			err = multierr.Append(err, fmt.Errorf("%w: biome %d: start_height %g below previous %g", ErrInvalidConfig, i, b.StartHeight, c.Biomes[i-1].StartHeight))
		}
	}
	if !c.MaskSource.Valid() {
		err = multierr.Append(err, fmt.Errorf("%w: %w: %q", ErrInvalidConfig, noise.ErrUnknownSource, c.MaskSource))
	}
	if c.MaskNoise != nil {
		if merr := c.MaskNoise.Validate(); merr != nil {
			err = multierr.Append(err, fmt.Errorf("mask_noise: %w", merr))
		}
	}
	return err
}

// Generator maps height percents and sphere points to colors. It is
// read-only after construction.
type Generator struct {
	cfg      Config
	biomes   []Biome
	mask     *noise.Filter
	ocean    *Gradient
	fallback bool
	repaired int
}

// New validates cfg and prepares normalized gradients.
func New(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &Generator{cfg: cfg}

	if len(cfg.Biomes) == 0 {
		g.biomes = FallbackBiomes()
		g.fallback = true
	} else {
		g.biomes = make([]Biome, len(cfg.Biomes))
		for i, b := range cfg.Biomes {
			if !b.Gradient.Sorted() {
				g.repaired++
			}
			b.Gradient = b.Gradient.Normalized()
			g.biomes[i] = b
		}
	}

	if cfg.Ocean != nil {
		ocean := cfg.Ocean.Normalized()
		g.ocean = &ocean
	}

	if cfg.MaskNoise != nil && cfg.MaskNoise.Enabled {
		src, err := noise.NewSource(cfg.MaskSource, cfg.Seed)
		if err != nil {
			return nil, err
		}
		f, err := noise.NewFilter(*cfg.MaskNoise, src)
		if err != nil {
			return nil, err
		}
		g.mask = f
	}
	return g, nil
}

// Fallback reports whether the built-in palette replaced an empty biome
// list.
func (g *Generator) Fallback() bool {
	return g.fallback
}

// RepairedGradients returns how many biome gradients had to be sorted or
// clamped.
func (g *Generator) RepairedGradients() int {
	return g.repaired
}

// BiomeCount returns the number of biomes in use.
func (g *Generator) BiomeCount() int {
	return len(g.biomes)
}

func (g *Generator) rawIndex(h float32) float32 {
	r := g.cfg.BlendAmount*0.5 + blendEpsilon
	var index float32
	for i := range g.biomes {
		w := math.SmoothInverseLerp(-r, r, h-g.biomes[i].StartHeight)
		index = index*(1-w) + float32(i)*w
	}
	return index
}

func (g *Generator) clampIndex(index float32) float32 {
	return math.Clamp(index, 0, float32(len(g.biomes)-1))
}

// BiomeIndex returns the continuous biome index at p for height percent
// h, including mask noise perturbation.
func (g *Generator) BiomeIndex(p math.Vec3, h float32) float32 {
	index := g.rawIndex(h)
	if g.mask != nil {
		index += (g.mask.Evaluate(p)-0.5)*g.cfg.NoiseStrength + g.cfg.NoiseOffset
	}
	return g.clampIndex(index)
}

// HeightPercentToColor returns the blended color for h without mask noise.
func (g *Generator) HeightPercentToColor(h float32) Color {
	return g.colorAtIndex(h, g.clampIndex(g.rawIndex(h)))
}

// ColorAt returns the blended color at sphere point p for height percent h.
func (g *Generator) ColorAt(p math.Vec3, h float32) Color {
	return g.colorAtIndex(h, g.BiomeIndex(p, h))
}

// ColorForElevation is ColorAt with ocean depth coloring: when an ocean
// gradient is configured and unscaled is negative, the ocean gradient is
// evaluated at the depth fraction between lowest and 0.
func (g *Generator) ColorForElevation(p math.Vec3, h, unscaled, lowest float32) Color {
	if g.ocean != nil && unscaled < 0 {
		return g.ocean.Evaluate(math.InverseLerp(lowest, 0, unscaled))
	}
	return g.ColorAt(p, h)
}

func (g *Generator) colorAtIndex(h, index float32) Color {
	b1 := math.Floor(index)
	b2 := min(b1+1, len(g.biomes)-1)
	blend := index - float32(b1)
	c1 := g.biomes[b1].Color(h)
	c2 := g.biomes[b2].Color(h)
	return c1.Lerp(c2, blend)
}
