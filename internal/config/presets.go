package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Magikos/Procedural-Planets/internal/biome"
	"github.com/Magikos/Procedural-Planets/internal/noise"
	"github.com/Magikos/Procedural-Planets/internal/shape"
	"github.com/Magikos/Procedural-Planets/internal/terrain"
)

// ErrUnknownPreset is returned for an unregistered preset name.
var ErrUnknownPreset = errors.New("unknown preset")

var presets = map[string]func() terrain.Config{
	"earth":     earthPreset,
	"rocky":     rockyPreset,
	"gas-giant": gasGiantPreset,
	"moon":      moonPreset,
}

// Presets returns the registered preset names in sorted order.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns a fresh planet configuration for name.
func Preset(name string) (terrain.Config, error) {
	build, ok := presets[name]
	if !ok {
		return terrain.Config{}, fmt.Errorf("%w %q (have %v)", ErrUnknownPreset, name, Presets())
	}
	return build(), nil
}

func hex(s string) biome.Color {
	var c biome.Color
	if err := c.UnmarshalText([]byte(s)); err != nil {
		panic(err)
	}
	return c
}

func at(position float32, color string) biome.Stop {
	return biome.Stop{Position: position, Color: hex(color)}
}

func gradient(s ...biome.Stop) biome.Gradient {
	return biome.NewGradient(s...)
}

func earthPreset() terrain.Config {
	continents := noise.DefaultSettings()
	continents.Octaves = 5
	continents.BaseFrequency = 1.1
	continents.MinValue = 1.05
	continents.Strength = 0.06

	mountains := noise.DefaultSettings()
	mountains.Filter = noise.Ridged
	mountains.UseAsMask = true
	mountains.Octaves = 5
	mountains.BaseFrequency = 2.4
	mountains.Gain = 0.5
	mountains.MinValue = 0.4
	mountains.ClampFloor = true
	mountains.Strength = 1.5
	mountains.Center.X = 17.3

	detail := noise.DefaultSettings()
	detail.Octaves = 3
	detail.BaseFrequency = 9
	detail.Strength = 0.004
	detail.MinValue = 0.9

	mask := noise.DefaultSettings()
	mask.Octaves = 3
	mask.BaseFrequency = 3
	mask.Strength = 1

	lod := terrain.DefaultLODSettings()
	return terrain.Config{
		Shape: shape.Config{
			Radius: 1000,
			Layers: []noise.Settings{continents, mountains, detail},
			Source: noise.SourceSimplex,
			Seed:   1,
		},
		Biomes: biome.Config{
			Biomes: []biome.Biome{
				{Name: "polar", StartHeight: 0, Gradient: gradient(at(0, "#e6eef2"), at(1, "#ffffff"))},
				{Name: "temperate", StartHeight: 0.12, Gradient: gradient(at(0, "#d9c98c"), at(0.1, "#3f7d2b"), at(0.6, "#2f5d22"), at(0.85, "#6b5a44"), at(1, "#f4f4f4"))},
				{Name: "desert", StartHeight: 0.42, Gradient: gradient(at(0, "#e2c27a"), at(0.5, "#c9964f"), at(1, "#8a5a34")), Tint: hex("#ffcc88"), TintPercent: 0.15},
				{Name: "tropics", StartHeight: 0.58, Gradient: gradient(at(0, "#e0d49a"), at(0.2, "#1f6b1f"), at(0.8, "#3c5a2a"), at(1, "#efefef"))},
				{Name: "tundra", StartHeight: 0.88, Gradient: gradient(at(0, "#b8bfa8"), at(1, "#ffffff"))},
			},
			BlendAmount:   0.15,
			NoiseStrength: 0.3,
			MaskNoise:     &mask,
			Seed:          11,
			Ocean:         ptr(gradient(at(0, "#061a40"), at(0.7, "#0e3d80"), at(1, "#2a7fc0"))),
		},
		LOD:           lod,
		Normalization: terrain.NormalizeGlobal,
	}
}

func rockyPreset() terrain.Config {
	base := noise.DefaultSettings()
	base.Octaves = 6
	base.BaseFrequency = 1.6
	base.Strength = 0.05
	base.MinValue = 0.6
	base.ClampFloor = true

	craters := noise.DefaultSettings()
	craters.Filter = noise.Ridged
	craters.Octaves = 4
	craters.BaseFrequency = 4
	craters.Strength = 0.02
	craters.RidgeWeight = 0.6

	lod := terrain.DefaultLODSettings()
	lod.Resolution = 12
	return terrain.Config{
		Shape: shape.Config{
			Radius: 400,
			Layers: []noise.Settings{base, craters},
			Source: noise.SourceOpenSimplex,
			Seed:   7,
		},
		Biomes: biome.Config{
			Biomes: []biome.Biome{
				{Name: "regolith", Gradient: gradient(at(0, "#4a3b33"), at(0.5, "#7a5c48"), at(1, "#a88a6e"))},
				{Name: "oxide", StartHeight: 0.5, Gradient: gradient(at(0, "#8c3f22"), at(1, "#c2703d"))},
			},
			BlendAmount: 0.3,
		},
		LOD: lod,
	}
}

func gasGiantPreset() terrain.Config {
	bands := noise.DefaultSettings()
	bands.Octaves = 2
	bands.BaseFrequency = 0.5
	bands.Strength = 0.002

	mask := noise.DefaultSettings()
	mask.Octaves = 4
	mask.BaseFrequency = 1.5
	mask.Strength = 1

	lod := terrain.DefaultLODSettings()
	lod.MaxLOD = 2
	lod.Distances = []float32{0, 1.5, 0.75}
	return terrain.Config{
		Shape: shape.Config{
			Radius: 7000,
			Layers: []noise.Settings{bands},
			Source: noise.SourcePerlin,
			Seed:   99,
		},
		Biomes: biome.Config{
			Biomes: []biome.Biome{
				{Name: "south", Gradient: gradient(at(0, "#c79a6b"), at(1, "#e8d2b0"))},
				{Name: "belt", StartHeight: 0.3, Gradient: gradient(at(0, "#8e5b3a"), at(1, "#b07a4f"))},
				{Name: "zone", StartHeight: 0.5, Gradient: gradient(at(0, "#f0e2c4"), at(1, "#fff7e6"))},
				{Name: "north", StartHeight: 0.7, Gradient: gradient(at(0, "#a86f48"), at(1, "#d9b38c"))},
			},
			BlendAmount:   0.4,
			NoiseStrength: 0.6,
			MaskNoise:     &mask,
			Seed:          5,
		},
		LOD:           lod,
		Normalization: terrain.NormalizeGlobal,
	}
}

func moonPreset() terrain.Config {
	maria := noise.DefaultSettings()
	maria.Octaves = 3
	maria.BaseFrequency = 0.9
	maria.Strength = 0.015
	maria.MinValue = 0.8
	maria.ClampFloor = true

	ridges := noise.DefaultSettings()
	ridges.Filter = noise.Ridged
	ridges.UseAsMask = true
	ridges.Octaves = 4
	ridges.BaseFrequency = 3
	ridges.Strength = 0.8

	lod := terrain.DefaultLODSettings()
	lod.MaxLOD = 3
	lod.Distances = []float32{0, 2, 1, 0.5}
	return terrain.Config{
		Shape: shape.Config{
			Radius:            250,
			Layers:            []noise.Settings{maria, ridges},
			Seed:              3,
			GateMaskByEnabled: true,
		},
		Biomes: biome.Config{
			Biomes: []biome.Biome{
				{Name: "highlands", Gradient: gradient(at(0, "#5c5c5c"), at(0.6, "#8f8f8f"), at(1, "#c4c4c4"))},
			},
		},
		LOD: lod,
	}
}

func ptr[T any](v T) *T {
	return &v
}
