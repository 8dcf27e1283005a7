package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Magikos/Procedural-Planets/internal/config"
	"github.com/Magikos/Procedural-Planets/internal/noise"
	"github.com/Magikos/Procedural-Planets/internal/shape"
	"github.com/Magikos/Procedural-Planets/internal/terrain"
	"github.com/Magikos/Procedural-Planets/pkg/formats"
	"github.com/Magikos/Procedural-Planets/pkg/math"
)

func testServer(t *testing.T, mutate func(*config.Config)) (*Server, string) {
	t.Helper()
	cfg := config.Default()
	cfg.Preset = "test"
	cfg.Planet = terrain.Config{
		Shape: shape.Config{Radius: 100, Layers: []noise.Settings{noise.DefaultSettings()}},
		LOD:   terrain.LODSettings{MaxLOD: 1, Distances: []float32{0, 0.5}, Resolution: 4},
	}
	if mutate != nil {
		mutate(cfg)
	}
	srv := NewServer(cfg, nil, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	return conn
}

func writeMsg(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readText(t *testing.T, conn *websocket.Conn, v any) string {
	t.Helper()
	kind, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if kind != websocket.TextMessage {
		t.Fatalf("expected text frame, got %d", kind)
	}
	base, err := DecodeBase(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v != nil {
		if err := json.Unmarshal(msg, v); err != nil {
			t.Fatalf("unmarshal %s: %v", base.Type, err)
		}
	}
	return base.Type
}

// handshake completes hello/welcome and drains the six root chunks.
func handshake(t *testing.T, conn *websocket.Conn, hello HelloMsg) WelcomeMsg {
	t.Helper()
	writeMsg(t, conn, hello)
	var welcome WelcomeMsg
	if typ := readText(t, conn, &welcome); typ != TypeWelcome {
		t.Fatalf("expected welcome, got %s", typ)
	}

	meshes, visible := 0, 0
	for meshes < 6 || visible < 6 {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("reading roots: %v", err)
		}
		if kind == websocket.BinaryMessage {
			rec, err := formats.ParsePMSH(msg)
			if err != nil {
				t.Fatalf("ParsePMSH: %v", err)
			}
			if rec.Key.Depth != 0 {
				t.Errorf("expected root chunk, got depth %d", rec.Key.Depth)
			}
			meshes++
			continue
		}
		var ev ChunkMsg
		_ = json.Unmarshal(msg, &ev)
		if ev.Type != TypeVisible || ev.Visible == nil || !*ev.Visible {
			t.Fatalf("unexpected frame %s", msg)
		}
		visible++
	}
	return welcome
}

func TestHandshake(t *testing.T) {
	_, url := testServer(t, nil)
	conn := dial(t, url)

	welcome := handshake(t, conn, HelloMsg{Type: TypeHello, ProtocolVersion: Version})
	if welcome.Preset != "test" || welcome.Radius != 100 || welcome.MaxLOD != 1 {
		t.Errorf("unexpected welcome %+v", welcome)
	}
	if welcome.SessionID == "" || welcome.Digest == "" {
		t.Errorf("expected session id and digest, got %+v", welcome)
	}
	if welcome.Rotation != math.QuatIdentity() {
		t.Errorf("expected identity rotation, got %v", welcome.Rotation)
	}
}

func TestViewerStreamsChildren(t *testing.T) {
	_, url := testServer(t, nil)
	conn := dial(t, url)
	handshake(t, conn, HelloMsg{Type: TypeHello, ProtocolVersion: Version})

	writeMsg(t, conn, ViewerMsg{Type: TypeViewer, Position: math.Vec3{Y: 130}})

	children := 0
	hidden := 0
	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if kind == websocket.BinaryMessage {
			rec, err := formats.ParsePMSH(msg)
			if err != nil {
				t.Fatal(err)
			}
			if rec.Key.Depth == 1 {
				children++
			}
			continue
		}
		base, _ := DecodeBase(msg)
		if base.Type == TypeVisible {
			var ev ChunkMsg
			_ = json.Unmarshal(msg, &ev)
			if ev.Visible != nil && !*ev.Visible {
				hidden++
			}
			continue
		}
		if base.Type != TypeStats {
			t.Fatalf("unexpected frame %s", msg)
		}
		var stats StatsMsg
		_ = json.Unmarshal(msg, &stats)
		if stats.Stats.MaxDepth != 1 {
			t.Errorf("expected max depth 1, got %+v", stats.Stats)
		}
		if want := 6 - children/4 + children; stats.Stats.Leaves != want {
			t.Errorf("expected %d leaves, got %+v", want, stats.Stats)
		}
		break
	}
	if children < 4 || children%4 != 0 {
		t.Errorf("expected split children in groups of 4, got %d", children)
	}
	if hidden != children/4 {
		t.Errorf("expected %d hidden parents, got %d", children/4, hidden)
	}
}

func TestHandshakeRejects(t *testing.T) {
	tests := []struct {
		name  string
		hello any
		code  string
	}{
		{"not hello", ViewerMsg{Type: TypeViewer}, ErrBadRequest},
		{"bad version", HelloMsg{Type: TypeHello, ProtocolVersion: "0.1"}, ErrBadVersion},
		{"unknown preset", HelloMsg{Type: TypeHello, ProtocolVersion: Version, Preset: "venus"}, ErrBadPreset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, url := testServer(t, nil)
			conn := dial(t, url)
			writeMsg(t, conn, tt.hello)

			var em ErrorMsg
			if typ := readText(t, conn, &em); typ != TypeError {
				t.Fatalf("expected error, got %s", typ)
			}
			if em.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, em.Code)
			}
			if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
				t.Errorf("expected policy violation close, got %v", err)
			}
		})
	}
}

func TestHelloPresetAndSeed(t *testing.T) {
	_, url := testServer(t, nil)
	conn := dial(t, url)

	seed := int64(42)
	writeMsg(t, conn, HelloMsg{Type: TypeHello, ProtocolVersion: Version, Preset: "moon", Seed: &seed})
	var welcome WelcomeMsg
	if typ := readText(t, conn, &welcome); typ != TypeWelcome {
		t.Fatalf("expected welcome, got %s", typ)
	}

	moon, _ := config.Preset("moon")
	moon.Shape.Seed, moon.Biomes.Seed = 42, 42
	if welcome.Preset != "moon" || welcome.Digest != moon.Digest() {
		t.Errorf("expected seeded moon planet, got %+v", welcome)
	}
}

func TestUnknownMessage(t *testing.T) {
	_, url := testServer(t, nil)
	conn := dial(t, url)
	handshake(t, conn, HelloMsg{Type: TypeHello, ProtocolVersion: Version})

	writeMsg(t, conn, BaseMessage{Type: "teleport"})
	var em ErrorMsg
	if typ := readText(t, conn, &em); typ != TypeError || em.Code != ErrBadRequest {
		t.Errorf("expected bad request error, got %s %+v", typ, em)
	}
}

func TestMaxConnections(t *testing.T) {
	srv, url := testServer(t, func(c *config.Config) { c.Server.MaxConnections = 1 })
	first := dial(t, url)
	handshake(t, first, HelloMsg{Type: TypeHello, ProtocolVersion: Version})
	if srv.Active() != 1 {
		t.Fatalf("expected 1 active session, got %d", srv.Active())
	}

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected second connection to be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %v", resp)
	}
}

func TestMaxConnectionsConcurrent(t *testing.T) {
	_, url := testServer(t, func(c *config.Config) { c.Server.MaxConnections = 1 })

	const dialers = 8
	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
		refused  atomic.Int32
		mu       sync.Mutex
		conns    []*websocket.Conn
	)
	for i := 0; i < dialers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
			if err != nil {
				if resp != nil && resp.StatusCode == http.StatusServiceUnavailable {
					refused.Add(1)
				}
				return
			}
			accepted.Add(1)
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}()
	}
	wg.Wait()
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()

	if accepted.Load() != 1 || refused.Load() != dialers-1 {
		t.Errorf("expected 1 accepted and %d refused, got %d and %d", dialers-1, accepted.Load(), refused.Load())
	}
}

func TestAbortFlushesError(t *testing.T) {
	srv := NewServer(config.Default(), nil, nil)
	ts := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		conn, err := srv.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sess := &session{ctx: ctx, id: "s1", out: make(chan frame, 4)}
		done := make(chan struct{})
		go func() {
			defer close(done)
			srv.writeLoop(ctx, cancel, conn, sess.out)
		}()
		_ = sess.sendJSON(WelcomeMsg{Type: TypeWelcome, ProtocolVersion: Version, SessionID: sess.id})
		abort(sess, done, errors.New("generator failed"))
		cancel()
	}))
	t.Cleanup(ts.Close)

	conn := dial(t, "ws"+strings.TrimPrefix(ts.URL, "http"))
	if typ := readText(t, conn, nil); typ != TypeWelcome {
		t.Fatalf("expected welcome, got %s", typ)
	}
	var msg ErrorMsg
	if typ := readText(t, conn, &msg); typ != TypeError {
		t.Fatalf("expected error, got %s", typ)
	}
	if msg.Code != ErrInternal || msg.Message != "generator failed" {
		t.Errorf("expected internal error frame, got %+v", msg)
	}
}
