package terrain

import (
	stdmath "math"

	"github.com/Magikos/Procedural-Planets/internal/biome"
	"github.com/Magikos/Procedural-Planets/pkg/math"
)

// SurfaceSample is the evaluated surface along one planet-local direction.
type SurfaceSample struct {
	Direction     math.Vec3   `json:"direction"`
	Unscaled      float32     `json:"unscaled"`
	Position      math.Vec3   `json:"position"` // planet-local
	Radius        float32     `json:"radius"`
	HeightPercent float32     `json:"height_percent"`
	BiomeIndex    float32     `json:"biome_index"`
	Color         biome.Color `json:"color"`
}

// Sample evaluates elevation and color along dir. Height percents always
// use the planet range, whatever the normalization mode.
func (p *Planet) Sample(dir math.Vec3) SurfaceSample {
	d := dir.Normalize()
	gen, colors := p.tree.shape, p.tree.colors
	u := gen.UnscaledElevation(d, nil)
	r := gen.ScaledElevation(u)
	h := p.elevation.Normalize(u)
	return SurfaceSample{
		Direction:     d,
		Unscaled:      u,
		Position:      d.Scale(r),
		Radius:        r,
		HeightPercent: h,
		BiomeIndex:    colors.BiomeIndex(d, h),
		Color:         colors.ColorForElevation(d, h, u, p.elevation.Min()),
	}
}

// SampleLatLon samples at a latitude and longitude in degrees. Latitude
// runs along +Y, longitude 0 points along +X.
func (p *Planet) SampleLatLon(lat, lon float64) SurfaceSample {
	return p.Sample(LatLonDirection(lat, lon))
}

// LatLonDirection returns the unit direction for lat/lon degrees.
func LatLonDirection(lat, lon float64) math.Vec3 {
	la := lat * stdmath.Pi / 180
	lo := lon * stdmath.Pi / 180
	return math.Vec3{
		X: float32(stdmath.Cos(la) * stdmath.Cos(lo)),
		Y: float32(stdmath.Sin(la)),
		Z: float32(stdmath.Cos(la) * stdmath.Sin(lo)),
	}
}
