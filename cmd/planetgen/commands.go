package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Magikos/Procedural-Planets/internal/bake"
	"github.com/Magikos/Procedural-Planets/internal/config"
	"github.com/Magikos/Procedural-Planets/internal/logger"
	"github.com/Magikos/Procedural-Planets/internal/meshcache"
	"github.com/Magikos/Procedural-Planets/internal/terrain"
	"github.com/Magikos/Procedural-Planets/internal/transport/ws"
	"github.com/Magikos/Procedural-Planets/internal/viewer"
	"github.com/Magikos/Procedural-Planets/pkg/math"
)

// load parses the shared flags, loads the config and starts logging.
func load(fs *flag.FlagSet, flags *config.Flags, args []string) (*config.Config, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := config.Load(flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openCache opens the mesh cache when enabled. The returned close func is
// always safe to call.
func openCache(cfg *config.Config) (*meshcache.Cache, func()) {
	if !cfg.Cache.Enabled {
		return nil, func() {}
	}
	path := cfg.CachePath()
	c, err := meshcache.Open(path)
	if err != nil {
		logger.Log.Warn("mesh cache unavailable", zap.String("path", path), zap.Error(err))
		return nil, func() {}
	}
	logger.Log.Debug("mesh cache opened", zap.String("path", path))
	return c, func() {
		if err := c.Close(); err != nil {
			logger.Log.Warn("closing mesh cache", zap.Error(err))
		}
	}
}

func newPlanet(cfg *config.Config, cache *meshcache.Cache) (*terrain.Planet, error) {
	opts := []terrain.Option{terrain.WithLogger(logger.Named("terrain"))}
	if cache != nil {
		opts = append(opts, terrain.WithCache(cache))
	}
	return terrain.New(cfg.Planet, opts...)
}

// vecList collects repeated x,y,z flags.
type vecList []math.Vec3

func (v *vecList) String() string {
	parts := make([]string, len(*v))
	for i, p := range *v {
		parts[i] = fmt.Sprintf("%g,%g,%g", p.X, p.Y, p.Z)
	}
	return strings.Join(parts, " ")
}

func (v *vecList) Set(s string) error {
	p, err := parseVec3(s)
	if err != nil {
		return err
	}
	*v = append(*v, p)
	return nil
}

func parseVec3(s string) (math.Vec3, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 3 {
		return math.Vec3{}, fmt.Errorf("expected x,y,z, got %q", s)
	}
	var out [3]float32
	for i, f := range fields {
		n, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return math.Vec3{}, fmt.Errorf("bad coordinate %q: %w", f, err)
		}
		out[i] = float32(n)
	}
	return math.FromArray(out), nil
}

// defaultViewers places one viewer above each face at 1.2 radii.
func defaultViewers(cfg *config.Config) []math.Vec3 {
	var out []math.Vec3
	r := cfg.Planet.Shape.Radius * 1.2
	rot := cfg.Planet.Orientation()
	for _, f := range terrain.Faces() {
		out = append(out, cfg.Planet.Position.Add(rot.Rotate(f.Normal().Scale(r))))
	}
	return out
}

func cmdBake(args []string) error {
	fs := flag.NewFlagSet("bake", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	output := fs.String("o", "", "Output file (default from config)")
	var viewers vecList
	fs.Var(&viewers, "viewer", "World-space viewer position x,y,z (repeatable)")
	orbit := fs.Int("orbit", 0, "Add N viewers on a descending spiral from 3 radii to the surface")
	cfg, err := load(fs, flags, args)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if *output == "" {
		*output = cfg.Bake.Output
	}
	if len(viewers) == 0 {
		viewers = cfg.Bake.Viewers
	}
	if *orbit > 0 {
		r := cfg.Planet.Shape.Radius
		o := viewer.NewOrbit(cfg.Planet.Position, r)
		o.Distance = 3 * r
		viewers = append(viewers, o.Descent(*orbit, 1.05*r, 1, 0.6)...)
	}
	if len(viewers) == 0 {
		viewers = defaultViewers(cfg)
	}

	cache, closeCache := openCache(cfg)
	defer closeCache()

	start := time.Now()
	p, err := newPlanet(cfg, cache)
	if err != nil {
		return err
	}
	defer p.Close()

	h, meshes := bake.Collect(p, viewers)
	h.Preset = cfg.Preset
	if err := bake.Write(*output, h, meshes); err != nil {
		return err
	}

	s := p.Stats()
	var tris int
	for _, m := range meshes {
		tris += m.TriangleCount()
	}
	fmt.Printf("Baked:     %s\n", *output)
	fmt.Printf("Preset:    %s\n", cfg.Preset)
	fmt.Printf("Digest:    %s\n", h.Digest)
	fmt.Printf("Viewers:   %d\n", len(viewers))
	fmt.Printf("Chunks:    %d (%d triangles)\n", len(meshes), tris)
	fmt.Printf("Builds:    %d (%d cache hits)\n", s.Builds, s.CacheHits)
	if s.Refused > 0 {
		fmt.Printf("Refused:   %d subdivisions (max_chunks)\n", s.Refused)
	}
	fmt.Printf("Took:      %v\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func cmdInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("usage: planetgen inspect <file.bake>")
	}

	byDepth := make(map[int]int)
	byFace := make(map[terrain.Face]int)
	var verts, tris int
	h, err := bake.Scan(fs.Arg(0), func(m *terrain.Mesh) error {
		byDepth[int(m.Key.Depth)]++
		byFace[m.Key.Face]++
		verts += len(m.Vertices)
		tris += m.TriangleCount()
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("File:      %s\n", fs.Arg(0))
	fmt.Printf("Version:   %d\n", h.Version)
	fmt.Printf("Preset:    %s\n", h.Preset)
	fmt.Printf("Digest:    %s\n", h.Digest)
	fmt.Printf("Radius:    %g\n", h.Radius)
	fmt.Printf("Created:   %s\n", h.CreatedAt)
	fmt.Printf("Viewers:   %d\n", len(h.Viewers))
	fmt.Printf("Chunks:    %d\n", h.Chunks)
	fmt.Printf("Vertices:  %d\n", verts)
	fmt.Printf("Triangles: %d\n", tris)
	fmt.Println()

	fmt.Println("Chunks by depth:")
	depths := make([]int, 0, len(byDepth))
	for d := range byDepth {
		depths = append(depths, d)
	}
	sort.Ints(depths)
	for _, d := range depths {
		fmt.Printf("  %-3d %d\n", d, byDepth[d])
	}

	fmt.Println("Chunks by face:")
	for _, f := range terrain.Faces() {
		fmt.Printf("  %-8s %d\n", f, byFace[f])
	}
	return nil
}

func cmdSample(args []string) error {
	fs := flag.NewFlagSet("sample", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	lat := fs.Float64("lat", 0, "Latitude in degrees")
	lon := fs.Float64("lon", 0, "Longitude in degrees")
	asJSON := fs.Bool("json", false, "Print JSON")
	cfg, err := load(fs, flags, args)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if *lat < -90 || *lat > 90 {
		return fmt.Errorf("latitude %g out of range [-90, 90]", *lat)
	}

	p, err := newPlanet(cfg, nil)
	if err != nil {
		return err
	}
	defer p.Close()
	s := p.SampleLatLon(*lat, *lon)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	lo, hi := p.ElevationRange()
	fmt.Printf("Direction:      %.4f, %.4f, %.4f\n", s.Direction.X, s.Direction.Y, s.Direction.Z)
	fmt.Printf("Elevation:      %.5f (planet range %.5f .. %.5f)\n", s.Unscaled, lo, hi)
	fmt.Printf("Radius:         %.3f\n", s.Radius)
	fmt.Printf("Height percent: %.4f\n", s.HeightPercent)
	fmt.Printf("Biome index:    %.4f\n", s.BiomeIndex)
	fmt.Printf("Color:          %s\n", s.Color)
	return nil
}

func cmdPresets(args []string) error {
	fs := flag.NewFlagSet("presets", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Printf("%-10s %8s %6s %6s %7s  %s\n", "NAME", "RADIUS", "LAYERS", "BIOMES", "MAX_LOD", "SOURCE")
	for _, name := range config.Presets() {
		p, _ := config.Preset(name)
		source := string(p.Shape.Source)
		if source == "" {
			source = "simplex"
		}
		fmt.Printf("%-10s %8g %6d %6d %7d  %s\n", name, p.Shape.Radius, len(p.Shape.Layers), len(p.Biomes.Biomes), p.LOD.MaxLOD, source)
	}
	return nil
}

func cmdConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	output := fs.String("o", "", "Write to file instead of stdout")
	cfg, err := load(fs, flags, args)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if *output != "" {
		if err := cfg.SaveTo(*output); err != nil {
			return err
		}
		fmt.Printf("Wrote %s (digest %s)\n", *output, cfg.Planet.Digest())
		return nil
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func cmdCache(args []string) error {
	fs := flag.NewFlagSet("cache", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	prune := fs.Bool("prune", false, "Delete entries for other planet configurations")
	cfg, err := load(fs, flags, args)
	if err != nil {
		return err
	}
	defer logger.Sync()

	c, err := meshcache.Open(cfg.CachePath())
	if err != nil {
		return err
	}
	defer c.Close()

	if *prune {
		n, err := c.Prune(cfg.Planet.Digest())
		if err != nil {
			return err
		}
		fmt.Printf("Pruned:     %d entries\n", n)
	}

	s, err := c.Stats()
	if err != nil {
		return err
	}
	fmt.Printf("Cache:      %s\n", cfg.CachePath())
	fmt.Printf("Entries:    %d\n", s.Entries)
	fmt.Printf("Digests:    %d\n", s.Digests)
	fmt.Printf("Raw:        %.2f MB\n", float64(s.RawBytes)/(1024*1024))
	fmt.Printf("Compressed: %.2f MB\n", float64(s.CompressedSize)/(1024*1024))
	return nil
}

func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	cfg, err := load(fs, flags, args)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cache, closeCache := openCache(cfg)
	defer closeCache()

	var shared terrain.Cache
	if cache != nil {
		shared = cache
	}

	ctx, cancel := signalContext()
	defer cancel()

	srv := ws.NewServer(cfg, shared, logger.Named("ws"))
	return srv.ListenAndServe(ctx)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
