// Package config handles planetgen configuration.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/multierr"

	"github.com/Magikos/Procedural-Planets/internal/terrain"
	"github.com/Magikos/Procedural-Planets/pkg/math"
)

// DefaultPreset is the preset used when none is selected.
const DefaultPreset = "earth"

// Config holds all planetgen configuration.
type Config struct {
	Preset  string         `yaml:"preset,omitempty"`
	Planet  terrain.Config `yaml:"planet"`
	Cache   CacheConfig    `yaml:"cache"`
	Server  ServerConfig   `yaml:"server"`
	Bake    BakeConfig     `yaml:"bake"`
	Logging LoggingConfig  `yaml:"logging"`
}

// CacheConfig controls the SQLite mesh cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"` // empty means ConfigDir()/meshes.db
}

// ServerConfig holds websocket stream settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	MaxConnections  int           `yaml:"max_connections"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	MaxMessageBytes int64         `yaml:"max_message_bytes"`
}

// BakeConfig holds defaults for the bake command.
type BakeConfig struct {
	Output  string      `yaml:"output"`
	Viewers []math.Vec3 `yaml:"viewers,omitempty"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`    // "debug", "info", "warn", "error"
	LogFile string `yaml:"log_file"` // empty = stdout only
}

// Default returns a config with the default preset and sensible defaults.
func Default() *Config {
	planet, _ := Preset(DefaultPreset)
	return &Config{
		Preset: DefaultPreset,
		Planet: planet,
		Cache: CacheConfig{
			Enabled: false,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8765",
			MaxConnections:  16,
			ReadTimeout:     60 * time.Second,
			WriteTimeout:    10 * time.Second,
			MaxMessageBytes: 64 * 1024,
		},
		Bake: BakeConfig{
			Output: "planet.bake",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// CachePath returns the mesh cache file, resolving the default location.
func (c *Config) CachePath() string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	return filepath.Join(ConfigDir(), "meshes.db")
}

// Validate checks the planet and the outer sections, aggregating every
// problem found.
func (c *Config) Validate() error {
	var err error
	if perr := c.Planet.Validate(); perr != nil {
		err = multierr.Append(err, fmt.Errorf("planet: %w", perr))
	}
	if c.Server.Addr == "" {
		err = multierr.Append(err, fmt.Errorf("%w: server.addr is empty", ErrInvalidConfig))
	}
	if c.Server.MaxConnections < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: server.max_connections must be >= 0, got %d", ErrInvalidConfig, c.Server.MaxConnections))
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: server timeouts must be >= 0", ErrInvalidConfig))
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Logging.Level))
	}
	return err
}
