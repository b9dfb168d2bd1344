// Package adminserver is the thin HTTP operator surface over an
// IndexService: trigger an index run, reset the store, check health, and
// subscribe over a websocket to a "done" or "error" event when a run
// ends. No per-file progress is pushed while a run is in flight.
package adminserver

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
)

// Indexer is the subset of service.Service the admin surface calls.
// Declared locally (rather than importing the service package's
// concrete type) to keep adminserver usable against a fake in tests.
type Indexer interface {
	Index(ctx context.Context) (string, error)
	DryRun(ctx context.Context) (Estimate, error)
	Reset(ctx context.Context) error
}

// Estimate mirrors service.Estimate's shape so adminserver doesn't need
// to import the service package just for this struct.
type Estimate struct {
	ChangedFiles int
	WorkUnits    int
	EstimatedSrc int
}

// SidecarHealth mirrors sidecarstate.Health's shape so adminserver
// doesn't need to import the sidecarstate package just for this struct.
type SidecarHealth struct {
	State               string
	ConsecutiveFailures int
	Detail              string
}

// SidecarHealthSource reports the most recently observed sidecar health,
// backed by a sidecarstate.Store in cmd. Optional: a Server with no
// source omits sidecar health from /healthz.
type SidecarHealthSource interface {
	Last() (SidecarHealth, bool, error)
}

// Config holds admin server configuration.
type Config struct {
	Addr     string
	AllowAll bool // allow all CORS origins (dev mode)
}

// Server is the operator-facing HTTP surface over one Indexer.
type Server struct {
	cfg        Config
	indexer    Indexer
	router     chi.Router
	httpServer *http.Server

	mu        sync.Mutex
	running   bool
	lastError error

	progress      *progressHub
	sidecarHealth SidecarHealthSource
}

// New creates a Server wired to indexer.
func New(cfg Config, indexer Indexer) *Server {
	s := &Server{cfg: cfg, indexer: indexer, progress: newProgressHub()}
	s.router = s.buildRouter()
	return s
}

// WithSidecarHealth attaches a SidecarHealthSource so /healthz reports
// the sidecar's last observed lifecycle state alongside run status. It
// returns s for chaining.
func (s *Server) WithSidecarHealth(src SidecarHealthSource) *Server {
	s.sidecarHealth = src
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(90 * time.Second))

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", s.handleHealth)
	r.Post("/index", s.handleIndex)
	r.Get("/index/dry-run", s.handleDryRun)
	r.Post("/reset", s.handleReset)
	r.Get("/index/stream", s.handleStream)

	return r
}

// Router returns the chi router, for tests and for embedding.
func (s *Server) Router() chi.Router { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	running := s.running
	lastErr := s.lastError
	s.mu.Unlock()

	status := "idle"
	if running {
		status = "running"
	}
	resp := map[string]any{
		"status":    status,
		"lastError": errString(lastErr),
	}
	if s.sidecarHealth != nil {
		if h, ok, err := s.sidecarHealth.Last(); err == nil && ok {
			resp["sidecar"] = h
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		writeJSON(w, http.StatusConflict, map[string]string{"error": "index run already in progress"})
		return
	}
	s.running = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()

		summary, err := s.indexer.Index(context.Background())
		s.mu.Lock()
		s.lastError = err
		s.mu.Unlock()

		if err != nil {
			s.progress.broadcast(progressEvent{Event: "error", Message: err.Error()})
			return
		}
		s.progress.broadcast(progressEvent{Event: "done", Message: summary})
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleDryRun(w http.ResponseWriter, r *http.Request) {
	est, err := s.indexer.DryRun(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, est)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.indexer.Reset(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.progress.subscribe(conn)
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Printf("ingestctl admin server listening on %s", s.cfg.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
