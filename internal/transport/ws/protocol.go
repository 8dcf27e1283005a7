package ws

import (
	"encoding/json"

	"github.com/Magikos/Procedural-Planets/internal/terrain"
	"github.com/Magikos/Procedural-Planets/pkg/math"
)

// Version is the stream protocol version.
const Version = "1.0"

// Message types. Chunk meshes travel as binary PMSH frames.
const (
	TypeHello   = "hello"
	TypeWelcome = "welcome"
	TypeViewer  = "viewer"
	TypeVisible = "visible"
	TypeRelease = "release"
	TypeStats   = "stats"
	TypeError   = "error"
)

// Error codes.
const (
	ErrBadRequest = "E_BAD_REQUEST"
	ErrBadVersion = "E_BAD_VERSION"
	ErrBadPreset  = "E_BAD_PRESET"
	ErrInternal   = "E_INTERNAL"
)

// BaseMessage routes incoming JSON frames by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

// DecodeBase reads the routing fields of a frame.
func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// HelloMsg opens a session (client -> server).
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Preset          string `json:"preset,omitempty"`
	Seed            *int64 `json:"seed,omitempty"`
	MaxQueue        int    `json:"max_queue,omitempty"`
}

// WelcomeMsg describes the session planet (server -> client).
type WelcomeMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	SessionID       string    `json:"session_id"`
	Preset          string    `json:"preset"`
	Digest          string    `json:"digest"`
	Radius          float32   `json:"radius"`
	MaxLOD          int       `json:"max_lod"`
	Position        math.Vec3 `json:"position"`
	Rotation        math.Quat `json:"rotation"`
}

// ViewerMsg moves the viewer to a world-space position (client -> server).
type ViewerMsg struct {
	Type     string    `json:"type"`
	Position math.Vec3 `json:"position"`
}

// ChunkMsg reports a visibility change or release (server -> client).
type ChunkMsg struct {
	Type    string      `json:"type"`
	Key     terrain.Key `json:"key"`
	Visible *bool       `json:"visible,omitempty"`
}

// StatsMsg follows each processed viewer update (server -> client).
type StatsMsg struct {
	Type      string        `json:"type"`
	Stats     terrain.Stats `json:"stats"`
	Elevation [2]float32    `json:"elevation"`
}

// ErrorMsg reports a rejected frame (server -> client).
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
