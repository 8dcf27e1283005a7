package noise

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/Magikos/Procedural-Planets/pkg/math"
)

// ErrInvalidSettings wraps every settings validation failure.
var ErrInvalidSettings = errors.New("invalid noise settings")

// FilterType selects how octaves are combined.
type FilterType int

// Filter types.
const (
	Simple FilterType = iota
	Ridged
)

// String returns the config name of the filter type.
func (t FilterType) String() string {
	switch t {
	case Simple:
		return "simple"
	case Ridged:
		return "ridged"
	default:
		return fmt.Sprintf("FilterType(%d)", int(t))
	}
}

// MarshalText encodes the filter type for YAML and JSON.
func (t FilterType) MarshalText() ([]byte, error) {
	switch t {
	case Simple, Ridged:
		return []byte(t.String()), nil
	}
	return nil, fmt.Errorf("%w: filter type %d", ErrInvalidSettings, int(t))
}

// UnmarshalText decodes "simple" or "ridged". "rigid" is accepted as an
// alias for ridged.
func (t *FilterType) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "simple":
		*t = Simple
	case "ridged", "rigid":
		*t = Ridged
	default:
		return fmt.Errorf("%w: unknown filter %q", ErrInvalidSettings, text)
	}
	return nil
}

// Settings configures one noise layer.
type Settings struct {
	Enabled   bool       `yaml:"enabled" json:"enabled"`
	UseAsMask bool       `yaml:"use_as_mask" json:"use_as_mask"`
	Filter    FilterType `yaml:"filter" json:"filter"`

	Octaves       int       `yaml:"octaves" json:"octaves"`
	BaseFrequency float32   `yaml:"base_frequency" json:"base_frequency"`
	Lacunarity    float32   `yaml:"lacunarity" json:"lacunarity"` // frequency multiplier per octave
	Gain          float32   `yaml:"gain" json:"gain"`             // amplitude multiplier per octave
	Center        math.Vec3 `yaml:"center" json:"center"`
	MinValue      float32   `yaml:"min_value" json:"min_value"`
	Strength      float32   `yaml:"strength" json:"strength"`
	RidgeWeight   float32   `yaml:"ridge_weight" json:"ridge_weight"` // ridged only
	ClampFloor    bool      `yaml:"clamp_floor" json:"clamp_floor"`

	// World-unit alternatives to Strength and BaseFrequency, resolved
	// against the planet radius by ScaledTo.
	MaxHeight   float32 `yaml:"max_height,omitempty" json:"max_height,omitempty"`
	FeatureSize float32 `yaml:"feature_size,omitempty" json:"feature_size,omitempty"`
}

// DefaultSettings returns an enabled four-octave simple layer.
func DefaultSettings() Settings {
	return Settings{
		Enabled:       true,
		Filter:        Simple,
		Octaves:       4,
		BaseFrequency: 1,
		Lacunarity:    2,
		Gain:          0.5,
		Strength:      0.1,
		RidgeWeight:   0.8,
	}
}

// ScaledTo resolves MaxHeight and FeatureSize against radius.
func (s Settings) ScaledTo(radius float32) Settings {
	if radius <= 0 {
		return s
	}
	if s.MaxHeight > 0 {
		s.Strength = s.MaxHeight / radius
	}
	if s.FeatureSize > 0 {
		s.BaseFrequency = radius / s.FeatureSize
	}
	return s
}

// Validate reports every invariant the settings break.
func (s Settings) Validate() error {
	var err error
	if s.Filter != Simple && s.Filter != Ridged {
		err = multierr.Append(err, fmt.Errorf("%w: unknown filter type %d", ErrInvalidSettings, int(s.Filter)))
	}
	if s.Octaves < 1 {
		err = multierr.Append(err, fmt.Errorf("%w: octaves must be >= 1, got %d", ErrInvalidSettings, s.Octaves))
	}
	if s.BaseFrequency <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: base_frequency must be > 0, got %g", ErrInvalidSettings, s.BaseFrequency))
	}
	if s.Lacunarity <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: lacunarity must be > 0, got %g", ErrInvalidSettings, s.Lacunarity))
	}
	if s.Gain <= 0 || s.Gain > 1 {
		err = multierr.Append(err, fmt.Errorf("%w: gain must be in (0, 1], got %g", ErrInvalidSettings, s.Gain))
	}
	return err
}
