package terrain

import (
	"go.uber.org/zap"

	"github.com/Magikos/Procedural-Planets/internal/biome"
	"github.com/Magikos/Procedural-Planets/internal/shape"
	"github.com/Magikos/Procedural-Planets/pkg/math"
)

// tree is the state shared by every chunk of one generation.
type tree struct {
	shape  *shape.Generator
	colors *biome.Generator
	lod    LODSettings
	norm   *shape.MinMax // planet range in global mode, nil in local mode
	sink   Sink
	cache  Cache
	digest string
	log    *zap.Logger
	stats  Stats
}

// build returns the mesh for key, from the cache when possible.
func (t *tree) build(key Key) *Mesh {
	res := t.lod.ResolutionFor(int(key.Depth))
	if m := t.cached(key, res); m != nil {
		return m
	}
	m := sampleChunk(t.shape, key, res).assemble(t.shape, t.colors, t.norm)
	t.store(m)
	return m
}

func (t *tree) cached(key Key, res int) *Mesh {
	if t.cache == nil {
		return nil
	}
	m, ok, err := t.cache.Load(t.digest, key, res)
	if err != nil {
		t.log.Warn("mesh cache load failed", zap.Stringer("key", key), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	t.stats.CacheHits++
	return m
}

func (t *tree) store(m *Mesh) {
	t.stats.Builds++
	if t.cache == nil {
		return
	}
	if err := t.cache.Store(t.digest, m); err != nil {
		t.log.Warn("mesh cache store failed", zap.Stringer("key", m.Key), zap.Error(err))
	}
}

// Chunk is one quadtree node. A chunk without children is a leaf and is
// the only kind that is visible.
type Chunk struct {
	tree     *tree
	key      Key
	mesh     *Mesh
	children *[4]*Chunk
	released bool
}

func (t *tree) newChunk(key Key, mesh *Mesh) *Chunk {
	c := &Chunk{tree: t, key: key, mesh: mesh}
	t.stats.Live++
	t.sink.ChunkBuilt(c)
	return c
}

// Key returns the chunk address.
func (c *Chunk) Key() Key { return c.key }

// Depth returns the quadtree depth, 0 for roots.
func (c *Chunk) Depth() int { return int(c.key.Depth) }

// Mesh returns the chunk geometry, nil once released.
func (c *Chunk) Mesh() *Mesh { return c.mesh }

// IsLeaf reports whether the chunk has no children.
func (c *Chunk) IsLeaf() bool { return c.children == nil }

// Released reports whether the chunk has been torn down.
func (c *Chunk) Released() bool { return c.released }

// Children returns the four children, or nil for a leaf.
func (c *Chunk) Children() []*Chunk {
	if c.children == nil {
		return nil
	}
	return c.children[:]
}

// Distance returns the normalized distance from a planet-local viewer to
// the chunk bounds.
func (c *Chunk) Distance(viewer math.Vec3) float32 {
	return c.mesh.Bounds.Distance(viewer) / c.tree.shape.Radius()
}

// Update subdivides or collapses the chunk for a planet-local viewer
// position, then recurses into children.
func (c *Chunk) Update(viewer math.Vec3) {
	if c.released {
		return
	}
	want := c.tree.lod.ShouldSubdivide(c.Depth(), c.Distance(viewer))
	switch {
	case want && c.children == nil:
		c.subdivide()
	case !want && c.children != nil:
		c.collapse()
	}
	if c.children != nil {
		for _, child := range c.children {
			child.Update(viewer)
		}
	}
}

func (c *Chunk) subdivide() {
	t := c.tree
	if t.lod.MaxChunks > 0 && t.stats.Live+4 > t.lod.MaxChunks {
		if t.stats.Refused == 0 {
			t.log.Warn("chunk cap reached", zap.Int("max_chunks", t.lod.MaxChunks), zap.Stringer("key", c.key))
		}
		t.stats.Refused++
		return
	}

	var children [4]*Chunk
	for q := range children {
		key := c.key.Child(q)
		children[q] = t.newChunk(key, t.build(key))
	}
	c.children = &children

	for _, child := range children {
		t.sink.ChunkVisible(child, true)
	}
	t.sink.ChunkVisible(c, false)
}

func (c *Chunk) collapse() {
	for _, child := range c.children {
		child.release()
	}
	c.children = nil
	c.tree.sink.ChunkVisible(c, true)
}

// release tears down the subtree, children first.
func (c *Chunk) release() {
	if c.released {
		return
	}
	if c.children != nil {
		for _, child := range c.children {
			child.release()
		}
		c.children = nil
	}
	c.mesh = nil
	c.released = true
	c.tree.stats.Live--
	c.tree.stats.Releases++
	c.tree.sink.ChunkReleased(c)
}

// Walk visits the subtree depth first, parents before children. Returning
// false from fn skips the node's children.
func (c *Chunk) Walk(fn func(*Chunk) bool) {
	if !fn(c) || c.children == nil {
		return
	}
	for _, child := range c.children {
		child.Walk(fn)
	}
}
