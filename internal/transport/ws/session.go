package ws

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"

	"github.com/Magikos/Procedural-Planets/internal/terrain"
)

type frame struct {
	kind int
	data []byte
}

// session is the per-connection terrain.Sink. Built meshes go out as
// binary PMSH frames, visibility and release events as JSON.
type session struct {
	ctx    context.Context
	id     string
	preset string
	planet terrain.Config
	out    chan frame
}

var _ terrain.Sink = (*session)(nil)

// send blocks until the writer takes f or the session ends.
func (s *session) send(f frame) error {
	select {
	case s.out <- f:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

func (s *session) sendJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.send(frame{kind: websocket.TextMessage, data: b})
}

func (s *session) sendError(code, msg string) {
	_ = s.sendJSON(ErrorMsg{Type: TypeError, Code: code, Message: msg})
}

func (s *session) ChunkBuilt(c *terrain.Chunk) {
	_ = s.send(frame{kind: websocket.BinaryMessage, data: c.Mesh().EncodePMSH()})
}

func (s *session) ChunkVisible(c *terrain.Chunk, visible bool) {
	_ = s.sendJSON(ChunkMsg{Type: TypeVisible, Key: c.Key(), Visible: &visible})
}

func (s *session) ChunkReleased(c *terrain.Chunk) {
	_ = s.sendJSON(ChunkMsg{Type: TypeRelease, Key: c.Key()})
}
