package config

import (
	"flag"

	"github.com/Magikos/Procedural-Planets/internal/terrain"
)

// Flags holds the command line overrides shared by planetgen commands.
// Only flags that were actually given on the command line override the
// loaded configuration.
type Flags struct {
	fs *flag.FlagSet

	configPath    string
	preset        string
	seed          int64
	radius        float64
	workers       int
	resolution    int
	maxLOD        int
	normalization string
	debug         bool
	logFile       string
	cachePath     string
	noCache       bool
	addr          string
}

// RegisterFlags defines the shared flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.configPath, "config", "", "Path to config file")
	fs.StringVar(&f.preset, "preset", "", "Planet preset (earth, rocky, gas-giant, moon)")
	fs.Int64Var(&f.seed, "seed", 0, "Noise seed for shape and biome mask")
	fs.Float64Var(&f.radius, "radius", 0, "Planet radius")
	fs.IntVar(&f.workers, "workers", 0, "Parallel root builders (0 or 1 = serial)")
	fs.IntVar(&f.resolution, "resolution", 0, "Chunk grid resolution")
	fs.IntVar(&f.maxLOD, "max-lod", 0, "Maximum quadtree depth")
	fs.StringVar(&f.normalization, "normalization", "", "Height normalization (local, global)")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.logFile, "log-file", "", "Also write logs to this file")
	fs.StringVar(&f.cachePath, "cache", "", "Enable the mesh cache at this path")
	fs.BoolVar(&f.noCache, "no-cache", false, "Disable the mesh cache")
	fs.StringVar(&f.addr, "addr", "", "Stream server listen address")
	return f
}

// ConfigPath returns the explicit config path, if given.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return f.configPath
}

// Preset returns the preset flag, if given.
func (f *Flags) Preset() string {
	if f == nil {
		return ""
	}
	return f.preset
}

func (f *Flags) visited() map[string]bool {
	set := make(map[string]bool)
	if f == nil || f.fs == nil {
		return set
	}
	f.fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	return set
}

// applyFlags overrides config values with CLI flags.
func (f *Flags) applyFlags(cfg *Config) {
	if f == nil {
		return
	}
	set := f.visited()

	if set["seed"] {
		cfg.Planet.Shape.Seed = f.seed
		cfg.Planet.Biomes.Seed = f.seed
	}
	if set["radius"] {
		cfg.Planet.Shape.Radius = float32(f.radius)
	}
	if set["workers"] {
		cfg.Planet.Workers = f.workers
	}
	if set["resolution"] {
		cfg.Planet.LOD.Resolution = f.resolution
	}
	if set["max-lod"] {
		cfg.Planet.LOD.MaxLOD = f.maxLOD
	}
	if set["normalization"] {
		cfg.Planet.Normalization = terrain.Normalization(f.normalization)
	}
	if f.debug {
		cfg.Logging.Level = "debug"
	}
	if f.logFile != "" {
		cfg.Logging.LogFile = f.logFile
	}
	if f.cachePath != "" {
		cfg.Cache.Enabled = true
		cfg.Cache.Path = f.cachePath
	}
	if f.noCache {
		cfg.Cache.Enabled = false
	}
	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
}
