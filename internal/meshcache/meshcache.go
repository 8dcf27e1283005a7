// Package meshcache persists built chunk meshes in SQLite as
// zstd-compressed PMSH records.
package meshcache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/multierr"
	_ "modernc.org/sqlite"

	"github.com/Magikos/Procedural-Planets/internal/terrain"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("mesh cache closed")

// schemaVersion is stored in the meta table.
const schemaVersion = "1"

// Cache is a terrain.Cache backed by a SQLite file. It is safe for
// concurrent use.
type Cache struct {
	db     *sql.DB
	enc    *zstd.Encoder
	dec    *zstd.Decoder
	closed atomic.Bool
}

var _ terrain.Cache = (*Cache)(nil)

// Open opens or creates the cache database at path.
func Open(path string) (*Cache, error) {
	if path == "" {
		return nil, fmt.Errorf("empty cache path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		_ = db.Close()
		return nil, err
	}
	return &Cache{db: db, enc: enc, dec: dec}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS meshes (
			digest TEXT NOT NULL,
			face INTEGER NOT NULL,
			depth INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			resolution INTEGER NOT NULL,
			raw_size INTEGER NOT NULL,
			data BLOB NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (digest, face, depth, x, y, resolution)
		);`,
		`CREATE INDEX IF NOT EXISTS meshes_digest ON meshes(digest);`,
		`INSERT OR IGNORE INTO meta(key, value) VALUES ('schema_version', '` + schemaVersion + `');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Load returns the cached mesh for the digest, key and resolution.
func (c *Cache) Load(digest string, key terrain.Key, resolution int) (*terrain.Mesh, bool, error) {
	if c.closed.Load() {
		return nil, false, ErrClosed
	}
	var blob []byte
	row := c.db.QueryRow(
		`SELECT data FROM meshes WHERE digest=? AND face=? AND depth=? AND x=? AND y=? AND resolution=?`,
		digest, int(key.Face), int(key.Depth), int64(key.X), int64(key.Y), resolution,
	)
	if err := row.Scan(&blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("loading %v: %w", key, err)
	}

	raw, err := c.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, false, fmt.Errorf("decompressing %v: %w", key, err)
	}
	m, err := terrain.DecodePMSH(raw)
	if err != nil {
		return nil, false, fmt.Errorf("decoding %v: %w", key, err)
	}
	if m.Key != key || m.Resolution != resolution {
		return nil, false, fmt.Errorf("cache entry for %v holds %v at resolution %d", key, m.Key, m.Resolution)
	}
	return m, true, nil
}

// Store writes m under digest, replacing any previous entry.
func (c *Cache) Store(digest string, m *terrain.Mesh) error {
	if c.closed.Load() {
		return ErrClosed
	}
	raw := m.EncodePMSH()
	blob := c.enc.EncodeAll(raw, make([]byte, 0, len(raw)/2))
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO meshes(digest, face, depth, x, y, resolution, raw_size, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		digest, int(m.Key.Face), int(m.Key.Depth), int64(m.Key.X), int64(m.Key.Y), m.Resolution,
		len(raw), blob, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("storing %v: %w", m.Key, err)
	}
	return nil
}

// Stats describes the cache contents.
type Stats struct {
	Entries        int   `json:"entries"`
	Digests        int   `json:"digests"`
	RawBytes       int64 `json:"raw_bytes"`
	CompressedSize int64 `json:"compressed_bytes"`
}

// Stats returns totals over every entry.
func (c *Cache) Stats() (Stats, error) {
	if c.closed.Load() {
		return Stats{}, ErrClosed
	}
	var s Stats
	row := c.db.QueryRow(`SELECT COUNT(*), COUNT(DISTINCT digest), COALESCE(SUM(raw_size), 0), COALESCE(SUM(LENGTH(data)), 0) FROM meshes`)
	if err := row.Scan(&s.Entries, &s.Digests, &s.RawBytes, &s.CompressedSize); err != nil {
		return Stats{}, err
	}
	return s, nil
}

// Prune removes every entry whose digest differs from keep and returns
// the number of rows deleted.
func (c *Cache) Prune(keep string) (int64, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	res, err := c.db.Exec(`DELETE FROM meshes WHERE digest <> ?`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close releases the database and codecs.
func (c *Cache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.dec.Close()
	return multierr.Combine(c.enc.Close(), c.db.Close())
}
