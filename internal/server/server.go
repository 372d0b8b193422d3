// Package server implements the development HTTP server: static files from
// the output directory with the live-reload client injected, plus the
// live-reload stream, metrics, health and build status endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/livereload"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
	smw "git.home.luguber.info/inful/assetbuilder/internal/server/middleware"
)

// BuildStatus is the outcome of the most recent build step.
type BuildStatus struct {
	Source string    // task list or "bundle"
	At     time.Time // zero before the first build
	Err    error
}

// StatusProvider reports the most recent build outcome.
type StatusProvider interface {
	LastBuild() BuildStatus
}

// Options configures a Server.
type Options struct {
	Addr      string
	OutputDir string
	Hub       *livereload.Hub
	Registry  *prom.Registry
	Status    StatusProvider
	Logger    *slog.Logger
}

// Server serves the output directory during development.
type Server struct {
	opts    Options
	logger  *slog.Logger
	adapter *ferrors.HTTPErrorAdapter
	router  *chi.Mux

	mu   sync.Mutex
	srv  *http.Server
	addr string
}

// New constructs the router. Nothing listens until Start.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "server"))
	s := &Server{
		opts:    opts,
		logger:  logger,
		adapter: ferrors.NewHTTPErrorAdapter(logger),
		router:  chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(chimw.RequestID)
	s.router.Use(smw.Chain(s.logger, s.adapter))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/status", s.handleStatus)
	s.router.Handle("/metrics", metrics.HTTPHandler(s.opts.Registry))

	if s.opts.Hub != nil {
		s.router.Get("/livereload", s.opts.Hub.ServeHTTP)
		s.router.Get(livereload.ScriptPath, livereload.ScriptHandler().ServeHTTP)
	}

	static := http.FileServer(http.Dir(s.opts.OutputDir))
	if s.opts.Hub != nil {
		static = livereload.Middleware(static)
	}
	s.router.With(chimw.NoCache).Handle("/*", static)
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start binds the listen address and serves in the background. Bind
// errors are returned immediately.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "dev server bind failed").
			WithContext("addr", s.opts.Addr).
			Build()
	}

	// No write timeout: /livereload streams are long-lived.
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.mu.Lock()
	s.srv = srv
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Dev server error", logfields.Error(err))
		}
	}()
	s.logger.Info("Dev server started", slog.String("addr", s.Addr()), logfields.Path(s.opts.OutputDir))
	return nil
}

// Addr returns the bound address after Start, or the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr != "" {
		return s.addr
	}
	return s.opts.Addr
}

// Stop disconnects live-reload clients and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.opts.Hub != nil {
		s.opts.Hub.Shutdown()
	}
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "dev server shutdown").Build()
	}
	s.logger.Info("Dev server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

type statusResponse struct {
	Status string     `json:"status"`
	Source string     `json:"source,omitempty"`
	At     *time.Time `json:"at,omitempty"`
}

// handleStatus reports the last build. A failed build is written as a
// classified error response.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Status: "idle"}
	if s.opts.Status != nil {
		st := s.opts.Status.LastBuild()
		if st.Err != nil {
			s.adapter.WriteErrorResponse(w, r, st.Err)
			return
		}
		if !st.At.IsZero() {
			resp.Status = "ok"
			resp.Source = st.Source
			resp.At = &st.At
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
