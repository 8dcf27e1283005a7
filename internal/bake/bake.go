// Package bake writes and reads baked planet files: a zstd stream holding
// a JSON header line followed by length-prefixed PMSH chunk records.
package bake

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/Magikos/Procedural-Planets/internal/terrain"
	"github.com/Magikos/Procedural-Planets/pkg/math"
)

// Version is the bake file version written by Write.
const Version = 1

// maxRecordSize bounds a single PMSH record.
const maxRecordSize = 64 << 20

// ErrUnsupportedVersion is returned for bake files from a newer writer.
var ErrUnsupportedVersion = errors.New("unsupported bake version")

// Header is the first line of a bake file.
type Header struct {
	Version   int         `json:"version"`
	Digest    string      `json:"digest"`
	Preset    string      `json:"preset,omitempty"`
	Radius    float32     `json:"radius"`
	Viewers   []math.Vec3 `json:"viewers"`
	Chunks    int         `json:"chunks"`
	CreatedAt string      `json:"created_at"`
}

// Collect runs Update for each viewer in turn and gathers every chunk
// that was a leaf after any of them, in first-seen order.
func Collect(p *terrain.Planet, viewers []math.Vec3) (Header, []*terrain.Mesh) {
	seen := make(map[terrain.Key]bool)
	var meshes []*terrain.Mesh
	gather := func() {
		p.Leaves(func(c *terrain.Chunk) {
			if !seen[c.Key()] {
				seen[c.Key()] = true
				meshes = append(meshes, c.Mesh())
			}
		})
	}
	if len(viewers) == 0 {
		gather()
	}
	for _, v := range viewers {
		p.Update(v)
		gather()
	}
	h := Header{
		Version: Version,
		Digest:  p.Digest(),
		Radius:  p.Radius(),
		Viewers: viewers,
		Chunks:  len(meshes),
	}
	return h, meshes
}

// Write creates path and stores the header and meshes.
func Write(path string, h Header, meshes []*terrain.Mesh) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return Encode(f, h, meshes)
}

// Encode writes a bake stream to w.
func Encode(w io.Writer, h Header, meshes []*terrain.Mesh) error {
	h.Version = Version
	h.Chunks = len(meshes)
	if h.CreatedAt == "" {
		h.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, err := json.Marshal(h)
	if err != nil {
		_ = enc.Close()
		return err
	}
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}

	var size [4]byte
	for _, m := range meshes {
		rec := m.EncodePMSH()
		binary.LittleEndian.PutUint32(size[:], uint32(len(rec)))
		if _, err := bw.Write(size[:]); err != nil {
			_ = enc.Close()
			return err
		}
		if _, err := bw.Write(rec); err != nil {
			_ = enc.Close()
			return err
		}
	}

	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// Scan reads path, calling fn for each mesh in file order. Returning an
// error from fn stops the scan.
func Scan(path string, fn func(*terrain.Mesh) error) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()
	return Decode(f, fn)
}

// Decode reads a bake stream from r.
func Decode(r io.Reader, fn func(*terrain.Mesh) error) (Header, error) {
	var h Header
	dec, err := zstd.NewReader(r)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("reading header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("parsing header: %w", err)
	}
	if h.Version > Version || h.Version < 1 {
		return h, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}

	var size [4]byte
	for i := 0; i < h.Chunks; i++ {
		if _, err := io.ReadFull(br, size[:]); err != nil {
			return h, fmt.Errorf("reading record %d size: %w", i, err)
		}
		n := binary.LittleEndian.Uint32(size[:])
		if n > maxRecordSize {
			return h, fmt.Errorf("record %d: size %d exceeds limit", i, n)
		}
		rec := make([]byte, n)
		if _, err := io.ReadFull(br, rec); err != nil {
			return h, fmt.Errorf("reading record %d: %w", i, err)
		}
		m, err := terrain.DecodePMSH(rec)
		if err != nil {
			return h, fmt.Errorf("record %d: %w", i, err)
		}
		if fn != nil {
			if err := fn(m); err != nil {
				return h, err
			}
		}
	}
	return h, nil
}

// Read loads every mesh of a bake file.
func Read(path string) (Header, []*terrain.Mesh, error) {
	var meshes []*terrain.Mesh
	h, err := Scan(path, func(m *terrain.Mesh) error {
		meshes = append(meshes, m)
		return nil
	})
	return h, meshes, err
}
