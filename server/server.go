// Package server exposes the relay over HTTP: a websocket endpoint that binds
// one client connection to one session orchestrator, plus small REST
// endpoints for health and the source catalog.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/newsrelay/newsrelay/analysis"
	"github.com/newsrelay/newsrelay/core"
	"github.com/newsrelay/newsrelay/logging"
	"github.com/newsrelay/newsrelay/relay"
)

// SessionSource mints one orchestrator per accepted connection.
type SessionSource interface {
	NewOrchestrator(optFns ...func(o *relay.Options)) *relay.Orchestrator
}

// Options configures the Server.
type Options struct {
	// WriteTimeout bounds one outbound websocket write.
	WriteTimeout time.Duration
	// ReadLimit bounds one inbound frame.
	ReadLimit int64
	// CheckOrigin overrides the upgrader's origin policy. Nil allows all
	// origins, which suits a locally run relay.
	CheckOrigin func(r *http.Request) bool
	Logger      logging.Logger
}

// Server is the HTTP front end. Create with New, mount via Handler.
type Server struct {
	sessions SessionSource
	catalog  core.SourceCatalog
	upgrader websocket.Upgrader

	writeTimeout time.Duration
	readLimit    int64
	logger       logging.Logger
}

// New creates a server over the given session source and catalog.
func New(sessions SessionSource, catalog core.SourceCatalog, optFns ...func(o *Options)) *Server {
	opts := Options{
		WriteTimeout: 10 * time.Second,
		ReadLimit:    32 << 10,
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}

	return &Server{
		sessions: sessions,
		catalog:  catalog,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		writeTimeout: opts.WriteTimeout,
		readLimit:    opts.ReadLimit,
		logger:       opts.Logger,
	}
}

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/sources", s.handleSources)
	r.Get("/ws", s.handleWS)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSources serves the catalog over plain HTTP, filterable by the same
// dimensions the source_catalog worker understands.
func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	filter := core.SourceFilter{
		Category: r.URL.Query().Get("category"),
		Language: r.URL.Query().Get("language"),
		Country:  r.URL.Query().Get("country"),
	}

	sources, err := s.catalog.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("catalog list failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "catalog unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"sources": sources, "count": len(sources)})
}

// handleWS upgrades the connection and binds it to a fresh session. The
// request goroutine becomes the reader; a second goroutine drains the
// session's event stream onto the socket. An escalated worker failure tears
// the whole connection down.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(s.readLimit)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	orch := s.sessions.NewOrchestrator(func(o *relay.Options) {
		o.OnEscalate = func(kind analysis.Kind, reason any) {
			s.logger.Error("worker failure escalated, closing connection", "kind", kind, "reason", reason)
			cancel()
		}
	})
	go orch.Run(ctx)

	s.logger.Info("client connected", "session_id", orch.ID(), "remote", r.RemoteAddr)
	go s.writeLoop(conn, orch)

	// Reader loop. A read error (including client close) ends the session.
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("client read failed", "session_id", orch.ID(), "error", err)
			}
			cancel()
			<-orch.Done()
			s.logger.Info("client disconnected", "session_id", orch.ID())
			return
		}
		orch.Handle(data)
	}
}

// writeLoop is the single writer for the connection: it serializes the
// session's ordered event stream onto the socket and exits when the stream
// closes or a write fails.
func (s *Server) writeLoop(conn *websocket.Conn, orch *relay.Orchestrator) {
	for ev := range orch.Events() {
		conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		if err := conn.WriteJSON(ev); err != nil {
			s.logger.Warn("client write failed", "session_id", orch.ID(), "error", err)
			conn.Close()
			return
		}
	}

	// Event stream closed: the session is gone, say goodbye.
	conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
