package terrain

import (
	"errors"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/Magikos/Procedural-Planets/internal/biome"
	"github.com/Magikos/Procedural-Planets/internal/shape"
	"github.com/Magikos/Procedural-Planets/pkg/math"
)

// ErrClosed is returned by operations on a closed planet.
var ErrClosed = errors.New("planet closed")

// Option configures a Planet.
type Option func(*Planet)

// WithLogger sets the logger. The default discards output.
func WithLogger(log *zap.Logger) Option {
	return func(p *Planet) {
		if log != nil {
			p.log = log
		}
	}
}

// WithSink sets the chunk notification sink.
func WithSink(s Sink) Option {
	return func(p *Planet) {
		if s != nil {
			p.sink = s
		}
	}
}

// WithCache sets the mesh cache.
func WithCache(c Cache) Option {
	return func(p *Planet) {
		p.cache = c
	}
}

// Planet owns the six root chunks of a cube-sphere. Update and
// Regenerate must be called from one goroutine.
type Planet struct {
	cfg       Config
	log       *zap.Logger
	sink      Sink
	cache     Cache
	tree      *tree
	roots     [FaceCount]*Chunk
	elevation *shape.MinMax
	closed    bool
}

// New validates cfg and builds the six roots.
func New(cfg Config, opts ...Option) (*Planet, error) {
	p := &Planet{
		log:  zap.NewNop(),
		sink: NopSink{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.generate(cfg); err != nil {
		return nil, err
	}
	return p, nil
}

// Regenerate tears the tree down and rebuilds it from new shape and biome
// settings. On error the existing tree is kept.
func (p *Planet) Regenerate(s shape.Config, b biome.Config) error {
	if p.closed {
		return ErrClosed
	}
	cfg := p.cfg
	cfg.Shape = s
	cfg.Biomes = b
	return p.generate(cfg)
}

func (p *Planet) generate(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	gen, err := shape.New(cfg.Shape)
	if err != nil {
		return err
	}
	colors, err := biome.New(cfg.Biomes)
	if err != nil {
		return err
	}

	if gen.LayerCount() == 0 {
		p.log.Warn("no noise layers configured, planet is a sphere")
	}
	if colors.Fallback() {
		p.log.Warn("no biomes configured, using fallback palette")
	}
	if n := colors.RepairedGradients(); n > 0 {
		p.log.Warn("gradient stops sorted and clamped", zap.Int("gradients", n))
	}

	start := time.Now()
	p.releaseRoots()
	var stats Stats
	if p.tree != nil {
		stats = p.tree.stats
	}

	p.cfg = cfg
	p.elevation = shape.NewMinMax()
	p.tree = &tree{
		shape:  gen,
		colors: colors,
		lod:    cfg.LOD,
		sink:   p.sink,
		cache:  p.cache,
		digest: cfg.Digest(),
		log:    p.log,
		stats:  Stats{Builds: stats.Builds, CacheHits: stats.CacheHits, Releases: stats.Releases, Refused: stats.Refused},
	}
	if cfg.Normalization == NormalizeGlobal {
		p.tree.norm = p.elevation
	}
	p.buildRoots()

	p.log.Info("planet generated",
		zap.Float32("radius", gen.Radius()),
		zap.Int("layers", gen.LayerCount()),
		zap.Int("biomes", colors.BiomeCount()),
		zap.Float32("min_elevation", p.elevation.Min()),
		zap.Float32("max_elevation", p.elevation.Max()),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// buildRoots samples every face, merges the ranges, then assembles the
// meshes. Notifications are sent in face order on the calling goroutine.
func (p *Planet) buildRoots() {
	t := p.tree
	res := t.lod.ResolutionFor(0)

	var sampled [FaceCount]*samples
	p.eachFace(func(f Face) {
		sampled[f] = sampleChunk(t.shape, RootKey(f), res)
	})
	for _, s := range sampled {
		p.elevation.Merge(s.local)
	}

	var meshes [FaceCount]*Mesh
	var built [FaceCount]bool
	for f := range meshes {
		meshes[f] = t.cached(RootKey(Face(f)), res)
	}
	p.eachFace(func(f Face) {
		if meshes[f] == nil {
			meshes[f] = sampled[f].assemble(t.shape, t.colors, t.norm)
			built[f] = true
		}
	})

	for _, f := range Faces() {
		if built[f] {
			t.store(meshes[f])
		}
		p.roots[f] = t.newChunk(RootKey(f), meshes[f])
	}
	for _, root := range p.roots {
		t.sink.ChunkVisible(root, true)
	}
}

// eachFace runs fn for every face, on a pond pool when Workers > 1. fn
// must only touch per-face state.
func (p *Planet) eachFace(fn func(f Face)) {
	if p.cfg.Workers <= 1 {
		for _, f := range Faces() {
			fn(f)
		}
		return
	}

	pool := pond.NewPool(p.cfg.Workers)
	defer pool.StopAndWait()

	var wg sync.WaitGroup
	for _, f := range Faces() {
		f := f
		wg.Add(1)
		pool.Submit(func() {
			defer wg.Done()
			fn(f)
		})
	}
	wg.Wait()
}

func (p *Planet) releaseRoots() {
	for i, root := range p.roots {
		if root != nil {
			root.release()
			p.roots[i] = nil
		}
	}
}

// LocalViewer converts a world-space position into planet-local space.
func (p *Planet) LocalViewer(world math.Vec3) math.Vec3 {
	return p.cfg.Orientation().Conjugate().Rotate(world.Sub(p.cfg.Position))
}

// Update refines the tree for a world-space viewer position.
func (p *Planet) Update(viewer math.Vec3) {
	if p.closed {
		return
	}
	local := p.LocalViewer(viewer)
	for _, root := range p.roots {
		root.Update(local)
	}
}

// Roots returns the six root chunks in face order.
func (p *Planet) Roots() []*Chunk {
	if p.closed {
		return nil
	}
	return p.roots[:]
}

// Leaves calls fn for every visible chunk.
func (p *Planet) Leaves(fn func(*Chunk)) {
	for _, root := range p.Roots() {
		root.Walk(func(c *Chunk) bool {
			if c.IsLeaf() {
				fn(c)
			}
			return true
		})
	}
}

// Stats returns tree counters.
func (p *Planet) Stats() Stats {
	s := p.tree.stats
	p.Leaves(func(c *Chunk) {
		s.Leaves++
		s.MaxDepth = max(s.MaxDepth, c.Depth())
	})
	return s
}

// ElevationRange returns the unscaled elevation range of the root meshes.
func (p *Planet) ElevationRange() (lo, hi float32) {
	return p.elevation.Min(), p.elevation.Max()
}

// Radius returns the nominal planet radius.
func (p *Planet) Radius() float32 {
	return p.cfg.Shape.Radius
}

// Config returns the configuration the tree was built from.
func (p *Planet) Config() Config {
	return p.cfg
}

// Digest returns the mesh content digest of the current configuration.
func (p *Planet) Digest() string {
	return p.tree.digest
}

// ModelMatrix returns the planet-local to world transform.
func (p *Planet) ModelMatrix() math.Mat4 {
	return math.TRS(p.cfg.Position, p.cfg.Orientation())
}

// Close releases every chunk. The planet is unusable afterwards.
func (p *Planet) Close() {
	if p.closed {
		return
	}
	p.releaseRoots()
	p.closed = true
}
