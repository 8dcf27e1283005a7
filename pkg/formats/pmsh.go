package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// PMSH format errors.
var (
	ErrInvalidMeshMagic       = errors.New("invalid PMSH magic: expected 'PMSH'")
	ErrUnsupportedMeshVersion = errors.New("unsupported PMSH version")
	ErrTruncatedMeshData      = errors.New("truncated PMSH data")
	ErrMeshIndexRange         = errors.New("PMSH index out of range")
)

// PMSHMagic opens every PMSH record.
const PMSHMagic = "PMSH"

// Limits enforced while parsing.
const (
	MaxPMSHVertices = 1 << 22
	MaxPMSHIndices  = 1 << 25
)

// PMSHVersion is the format version of a record.
type PMSHVersion struct {
	Major uint8
	Minor uint8
}

// CurrentPMSHVersion is written by Encode.
var CurrentPMSHVersion = PMSHVersion{Major: 1, Minor: 0}

// String returns the version as "Major.Minor".
func (v PMSHVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// PMSHKey addresses the chunk a mesh belongs to.
type PMSHKey struct {
	Face  uint8
	Depth uint8
	X     uint32
	Y     uint32
}

// PMSHVertex is one vertex: position, normal and RGBA color.
type PMSHVertex struct {
	Position [3]float32
	Normal   [3]float32
	Color    [4]float32
}

// pmshHeader is the fixed-size prefix after the magic.
type pmshHeader struct {
	Major       uint8
	Minor       uint8
	Face        uint8
	Depth       uint8
	X           uint32
	Y           uint32
	Resolution  uint16
	_           uint16
	VertexCount uint32
	IndexCount  uint32
	BoundsMin   [3]float32
	BoundsMax   [3]float32
}

const (
	pmshHeaderSize = 4 + 48
	pmshVertexSize = 40
)

// PMSH is one chunk mesh record.
type PMSH struct {
	Version    PMSHVersion
	Key        PMSHKey
	Resolution uint16
	BoundsMin  [3]float32
	BoundsMax  [3]float32
	Vertices   []PMSHVertex
	Indices    []uint32
}

// EncodedSize returns the byte length of the encoded record.
func (m *PMSH) EncodedSize() int {
	return pmshHeaderSize + len(m.Vertices)*pmshVertexSize + len(m.Indices)*4
}

// WriteTo encodes the record in little endian with the current version.
func (m *PMSH) WriteTo(w io.Writer) (int64, error) {
	hdr := pmshHeader{
		Major:       CurrentPMSHVersion.Major,
		Minor:       CurrentPMSHVersion.Minor,
		Face:        m.Key.Face,
		Depth:       m.Key.Depth,
		X:           m.Key.X,
		Y:           m.Key.Y,
		Resolution:  m.Resolution,
		VertexCount: uint32(len(m.Vertices)),
		IndexCount:  uint32(len(m.Indices)),
		BoundsMin:   m.BoundsMin,
		BoundsMax:   m.BoundsMax,
	}

	buf := bytes.NewBuffer(make([]byte, 0, m.EncodedSize()))
	buf.WriteString(PMSHMagic)
	if err := binary.Write(buf, binary.LittleEndian, &hdr); err != nil {
		return 0, fmt.Errorf("writing PMSH header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, m.Vertices); err != nil {
		return 0, fmt.Errorf("writing PMSH vertices: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, m.Indices); err != nil {
		return 0, fmt.Errorf("writing PMSH indices: %w", err)
	}
	return buf.WriteTo(w)
}

// Encode returns the encoded record.
func (m *PMSH) Encode() []byte {
	var buf bytes.Buffer
	// Writes to a bytes.Buffer cannot fail.
	_, _ = m.WriteTo(&buf)
	return buf.Bytes()
}

// ParsePMSH parses one PMSH record from raw bytes. Trailing bytes are an
// error.
func ParsePMSH(data []byte) (*PMSH, error) {
	if len(data) < pmshHeaderSize {
		return nil, ErrTruncatedMeshData
	}
	if string(data[0:4]) != PMSHMagic {
		return nil, ErrInvalidMeshMagic
	}

	r := bytes.NewReader(data[4:])
	var hdr pmshHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncatedMeshData)
	}

	version := PMSHVersion{Major: hdr.Major, Minor: hdr.Minor}
	if version.Major != CurrentPMSHVersion.Major {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMeshVersion, version)
	}

	if hdr.VertexCount > MaxPMSHVertices || hdr.IndexCount > MaxPMSHIndices {
		return nil, fmt.Errorf("invalid PMSH counts: %d vertices, %d indices", hdr.VertexCount, hdr.IndexCount)
	}
	if hdr.IndexCount%3 != 0 {
		return nil, fmt.Errorf("invalid PMSH index count %d: not a triangle list", hdr.IndexCount)
	}
	want := int64(hdr.VertexCount)*pmshVertexSize + int64(hdr.IndexCount)*4
	if int64(r.Len()) < want {
		return nil, fmt.Errorf("%w: need %d payload bytes, have %d", ErrTruncatedMeshData, want, r.Len())
	}
	if int64(r.Len()) > want {
		return nil, fmt.Errorf("invalid PMSH data: %d trailing bytes", int64(r.Len())-want)
	}

	m := &PMSH{
		Version:    version,
		Key:        PMSHKey{Face: hdr.Face, Depth: hdr.Depth, X: hdr.X, Y: hdr.Y},
		Resolution: hdr.Resolution,
		BoundsMin:  hdr.BoundsMin,
		BoundsMax:  hdr.BoundsMax,
		Vertices:   make([]PMSHVertex, hdr.VertexCount),
		Indices:    make([]uint32, hdr.IndexCount),
	}
	if err := binary.Read(r, binary.LittleEndian, m.Vertices); err != nil {
		return nil, fmt.Errorf("%w: reading vertices", ErrTruncatedMeshData)
	}
	if err := binary.Read(r, binary.LittleEndian, m.Indices); err != nil {
		return nil, fmt.Errorf("%w: reading indices", ErrTruncatedMeshData)
	}

	for i, idx := range m.Indices {
		if idx >= hdr.VertexCount {
			return nil, fmt.Errorf("%w: index %d = %d, %d vertices", ErrMeshIndexRange, i, idx, hdr.VertexCount)
		}
	}
	return m, nil
}

// ParsePMSHFile parses a PMSH record from disk.
func ParsePMSHFile(path string) (*PMSH, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading PMSH file: %w", err)
	}
	return ParsePMSH(data)
}

// TriangleCount returns the number of triangles.
func (m *PMSH) TriangleCount() int {
	return len(m.Indices) / 3
}
