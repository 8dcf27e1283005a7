// Package ws streams planet chunks to websocket clients. Each connection
// owns a Planet driven by the viewer positions the client sends.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Magikos/Procedural-Planets/internal/config"
	"github.com/Magikos/Procedural-Planets/internal/terrain"
)

const (
	handshakeTimeout = 5 * time.Second
	defaultQueue     = 256
	maxQueue         = 4096
)

// Server accepts stream connections.
type Server struct {
	cfg   *config.Config
	cache terrain.Cache
	log   *zap.Logger

	upgrader websocket.Upgrader
	active   atomic.Int64
	sessions atomic.Uint64
}

// NewServer builds a server for cfg. cache may be nil.
func NewServer(cfg *config.Config, cache terrain.Cache, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		cfg:   cfg,
		cache: cache,
		log:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Active returns the number of connections holding a slot.
func (s *Server) Active() int {
	return int(s.active.Load())
}

// Handler serves the stream endpoint.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		// Reserve a slot before upgrading.
		n := s.active.Add(1)
		defer s.active.Add(-1)
		if limit := s.cfg.Server.MaxConnections; limit > 0 && n > int64(limit) {
			http.Error(rw, "too many connections", http.StatusServiceUnavailable)
			return
		}
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if n := s.cfg.Server.MaxMessageBytes; n > 0 {
			conn.SetReadLimit(n)
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sess, err := s.handshake(ctx, conn)
		if err != nil {
			s.log.Debug("handshake failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
			return
		}
		log := s.log.With(zap.String("session", sess.id))
		log.Info("session started", zap.String("preset", sess.preset), zap.String("remote", r.RemoteAddr))

		// Writer goroutine.
		done := make(chan struct{})
		go func() {
			defer close(done)
			s.writeLoop(ctx, cancel, conn, sess.out)
		}()

		planet, err := terrain.New(sess.planet,
			terrain.WithSink(sess),
			terrain.WithCache(s.cache),
			terrain.WithLogger(log),
		)
		if err != nil {
			log.Warn("planet build failed", zap.Error(err))
			abort(sess, done, err)
			cancel()
			log.Info("session ended")
			return
		}
		s.readLoop(ctx, conn, sess, planet)
		// The client is gone; release events are not sent.
		cancel()
		planet.Close()
		log.Debug("planet released", zap.Int("releases", planet.Stats().Releases))
		<-done
		log.Info("session ended")
	}
}

// handshake reads hello and queues welcome. It fails closed: any problem
// ends the connection with a policy violation.
func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) (*session, error) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	reject := func(code, reason string) error {
		_ = writeJSON(conn, ErrorMsg{Type: TypeError, Code: code, Message: reason}, s.writeTimeout())
		// Control frame payloads are limited to 125 bytes.
		short := reason
		if len(short) > 120 {
			short = short[:120]
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, short),
			time.Now().Add(time.Second))
		return errors.New(reason)
	}

	base, err := DecodeBase(msg)
	if err != nil || base.Type != TypeHello {
		return nil, reject(ErrBadRequest, "expected hello")
	}
	var hello HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil, reject(ErrBadRequest, "malformed hello")
	}
	if hello.ProtocolVersion != Version {
		return nil, reject(ErrBadVersion, "bad protocol_version")
	}

	preset := s.cfg.Preset
	planet := s.cfg.Planet
	if hello.Preset != "" && hello.Preset != preset {
		p, err := config.Preset(hello.Preset)
		if err != nil {
			return nil, reject(ErrBadPreset, err.Error())
		}
		preset, planet = hello.Preset, p
		planet.Workers = s.cfg.Planet.Workers
	}
	if hello.Seed != nil {
		planet.Shape.Seed = *hello.Seed
		planet.Biomes.Seed = *hello.Seed
	}
	if err := planet.Validate(); err != nil {
		return nil, reject(ErrBadRequest, err.Error())
	}

	queue := hello.MaxQueue
	if queue <= 0 {
		queue = defaultQueue
	}
	if queue > maxQueue {
		queue = maxQueue
	}

	sess := &session{
		ctx:    ctx,
		id:     fmt.Sprintf("s%d", s.sessions.Add(1)),
		preset: preset,
		planet: planet,
		out:    make(chan frame, queue),
	}
	welcome := WelcomeMsg{
		Type:            TypeWelcome,
		ProtocolVersion: Version,
		SessionID:       sess.id,
		Preset:          preset,
		Digest:          planet.Digest(),
		Radius:          planet.Shape.Radius,
		MaxLOD:          planet.LOD.MaxLOD,
		Position:        planet.Position,
		Rotation:        planet.Orientation(),
	}
	if err := sess.sendJSON(welcome); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, sess *session, planet *terrain.Planet) {
	for ctx.Err() == nil {
		_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout()))
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			sess.sendError(ErrBadRequest, "expected text frame")
			continue
		}
		base, err := DecodeBase(msg)
		if err != nil {
			sess.sendError(ErrBadRequest, "malformed frame")
			continue
		}
		switch base.Type {
		case TypeViewer:
			var v ViewerMsg
			if err := json.Unmarshal(msg, &v); err != nil {
				sess.sendError(ErrBadRequest, "malformed viewer")
				continue
			}
			planet.Update(v.Position)
			lo, hi := planet.ElevationRange()
			_ = sess.sendJSON(StatsMsg{Type: TypeStats, Stats: planet.Stats(), Elevation: [2]float32{lo, hi}})
		default:
			sess.sendError(ErrBadRequest, fmt.Sprintf("unexpected %q", base.Type))
		}
	}
}

// abort queues an internal error behind any pending frames, closes the
// queue and waits for the writer to flush it. Nothing else may send on
// sess.out afterwards.
func abort(sess *session, done <-chan struct{}, err error) {
	sess.sendError(ErrInternal, err.Error())
	close(sess.out)
	<-done
}

// writeLoop writes frames until ctx ends or out is closed and drained.
func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out <-chan frame) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-out:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout()))
			if err := conn.WriteMessage(f.kind, f.data); err != nil {
				cancel()
				return
			}
		}
	}
}

func (s *Server) readTimeout() time.Duration {
	if s.cfg.Server.ReadTimeout > 0 {
		return s.cfg.Server.ReadTimeout
	}
	return 60 * time.Second
}

func (s *Server) writeTimeout() time.Duration {
	if s.cfg.Server.WriteTimeout > 0 {
		return s.cfg.Server.WriteTimeout
	}
	return 5 * time.Second
}

// ListenAndServe serves the stream on cfg.Server.Addr until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/v1/stream", s.Handler())

	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	s.log.Info("listening", zap.String("addr", s.cfg.Server.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(conn *websocket.Conn, v any, timeout time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
