package noise

import (
	"github.com/Magikos/Procedural-Planets/pkg/math"
)

// Filter evaluates one configured noise layer. It is immutable and safe
// for concurrent use when its Source is.
type Filter struct {
	settings Settings
	src      Source
	eval     func(p math.Vec3) float32
}

// NewFilter validates s and binds the Simple or Ridged evaluation.
// A nil src uses seed-0 simplex noise.
func NewFilter(s Settings, src Source) (*Filter, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		src = NewSimplex(0)
	}
	f := &Filter{settings: s, src: src}
	if s.Filter == Ridged {
		f.eval = f.ridged
	} else {
		f.eval = f.simple
	}
	return f, nil
}

// Settings returns the settings the filter was built from.
func (f *Filter) Settings() Settings {
	return f.settings
}

// Evaluate returns the layer value at p.
func (f *Filter) Evaluate(p math.Vec3) float32 {
	return f.eval(p)
}

func (f *Filter) simple(p math.Vec3) float32 {
	s := &f.settings
	var sum float32
	frequency := s.BaseFrequency
	amplitude := float32(1)

	for i := 0; i < s.Octaves; i++ {
		v := f.src.Evaluate(p.Scale(frequency).Add(s.Center))
		sum += (v + 1) * 0.5 * amplitude
		frequency *= s.Lacunarity
		amplitude *= s.Gain
	}
	return f.finish(sum)
}

func (f *Filter) ridged(p math.Vec3) float32 {
	s := &f.settings
	var sum float32
	frequency := s.BaseFrequency
	amplitude := float32(1)
	weight := float32(1)

	for i := 0; i < s.Octaves; i++ {
		v := 1 - math.Abs(f.src.Evaluate(p.Scale(frequency).Add(s.Center)))
		v *= v
		v *= weight
		weight = math.Clamp01(v * s.RidgeWeight)

		sum += v * amplitude
		frequency *= s.Lacunarity
		amplitude *= s.Gain
	}
	return f.finish(sum)
}

func (f *Filter) finish(sum float32) float32 {
	v := sum - f.settings.MinValue
	if f.settings.ClampFloor && v < 0 {
		v = 0
	}
	return v * f.settings.Strength
}
