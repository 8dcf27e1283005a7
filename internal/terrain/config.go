package terrain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	gomath "math"

	"go.uber.org/multierr"

	"github.com/Magikos/Procedural-Planets/internal/biome"
	"github.com/Magikos/Procedural-Planets/internal/shape"
	"github.com/Magikos/Procedural-Planets/pkg/math"
)

// ErrInvalidConfig wraps planet configuration failures.
var ErrInvalidConfig = errors.New("invalid planet config")

// Normalization selects the elevation range used for height percents.
type Normalization string

// Normalization modes.
const (
	NormalizeLocal  Normalization = "local"  // per chunk range
	NormalizeGlobal Normalization = "global" // planet range sampled at regeneration
)

// Config is everything a Planet is built from.
type Config struct {
	Shape         shape.Config  `yaml:"shape" json:"shape"`
	Biomes        biome.Config  `yaml:"biomes" json:"biomes"`
	LOD           LODSettings   `yaml:"lod" json:"lod"`
	Normalization Normalization `yaml:"normalization" json:"normalization"`
	Position      math.Vec3     `yaml:"position" json:"position"`
	Rotation      math.Quat     `yaml:"rotation" json:"rotation"` // zero means identity
	Workers       int           `yaml:"workers" json:"workers"`
}

// Validate aggregates every invariant violation in the configuration.
func (c Config) Validate() error {
	var err error
	if serr := c.Shape.Validate(); serr != nil {
		err = multierr.Append(err, fmt.Errorf("shape: %w", serr))
	}
	if berr := c.Biomes.Validate(); berr != nil {
		err = multierr.Append(err, fmt.Errorf("biomes: %w", berr))
	}
	if lerr := c.LOD.Validate(); lerr != nil {
		err = multierr.Append(err, fmt.Errorf("lod: %w", lerr))
	}
	switch c.Normalization {
	case "", NormalizeLocal, NormalizeGlobal:
	default:
		err = multierr.Append(err, fmt.Errorf("%w: unknown normalization %q", ErrInvalidConfig, c.Normalization))
	}
	if c.Workers < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: workers must be >= 0, got %d", ErrInvalidConfig, c.Workers))
	}
	return err
}

// Orientation returns the normalized rotation, identity when unset.
func (c Config) Orientation() math.Quat {
	if c.Rotation.IsZero() {
		return math.QuatIdentity()
	}
	return c.Rotation.Normalize()
}

// Digest identifies the mesh content a configuration produces. Placement,
// LOD thresholds and workers do not change chunk meshes and are excluded.
func (c Config) Digest() string {
	norm := c.Normalization
	if norm == "" {
		norm = NormalizeLocal
	}
	content := struct {
		Shape          shape.Config  `json:"shape"`
		Biomes         biome.Config  `json:"biomes"`
		Normalization  Normalization `json:"normalization"`
		RootResolution int           `json:"root_resolution,omitempty"`
	}{Shape: c.Shape, Biomes: c.Biomes, Normalization: norm}
	if norm == NormalizeGlobal {
		content.RootResolution = c.LOD.ResolutionFor(0)
	}
	b, _ := json.Marshal(content)
	h := sha256.New()
	h.Write(b)
	// JSON carries colors as 8-bit hex; hash them again at full precision.
	var buf [4]byte
	for _, col := range c.Biomes.Colors() {
		for _, v := range col.Array() {
			binary.LittleEndian.PutUint32(buf[:], gomath.Float32bits(v))
			h.Write(buf[:])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
