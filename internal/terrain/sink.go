package terrain

// Sink receives chunk lifecycle notifications from Planet.Update and
// Planet.Regenerate on the calling goroutine. A released chunk no longer
// has a mesh.
type Sink interface {
	ChunkBuilt(c *Chunk)
	ChunkVisible(c *Chunk, visible bool)
	ChunkReleased(c *Chunk)
}

// NopSink ignores every notification.
type NopSink struct{}

func (NopSink) ChunkBuilt(*Chunk)         {}
func (NopSink) ChunkVisible(*Chunk, bool) {}
func (NopSink) ChunkReleased(*Chunk)      {}

// Cache stores built meshes across runs. Meshes are keyed by the planet
// config digest, the chunk key and the resolution. Load returns false on
// a miss.
type Cache interface {
	Load(digest string, key Key, resolution int) (*Mesh, bool, error)
	Store(digest string, m *Mesh) error
}

// SinkFuncs adapts plain functions to Sink. Nil fields are skipped.
type SinkFuncs struct {
	Built    func(c *Chunk)
	Visible  func(c *Chunk, visible bool)
	Released func(c *Chunk)
}

func (s SinkFuncs) ChunkBuilt(c *Chunk) {
	if s.Built != nil {
		s.Built(c)
	}
}

func (s SinkFuncs) ChunkVisible(c *Chunk, visible bool) {
	if s.Visible != nil {
		s.Visible(c, visible)
	}
}

func (s SinkFuncs) ChunkReleased(c *Chunk) {
	if s.Released != nil {
		s.Released(c)
	}
}
