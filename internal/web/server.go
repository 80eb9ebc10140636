// Package web exposes the attendee import pipeline as a JSON API.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/JonMunkholm/attendee-import/internal/config"
	"github.com/JonMunkholm/attendee-import/internal/core"
	"github.com/JonMunkholm/attendee-import/internal/web/middleware"
)

// multipartOverhead is allowed on top of the file size limit for form
// boundaries and headers.
const multipartOverhead = 1 << 20

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

// Server is the HTTP server for the import API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	ping    Pinger
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server. ping backs /healthz and may be nil. The rate
// limiter's sweeper stops when ctx is done.
func NewServer(ctx context.Context, service *core.Service, cfg *config.Config, ping Pinger) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		ping:    ping,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware(ctx)
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware(ctx context.Context) {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Security.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-API-Key", "Last-Event-ID"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(middleware.SecurityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		limiter := middleware.NewRateLimiter(ctx, s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.Handler)
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))

		// Bounded request/response routes.
		r.Group(func(r chi.Router) {
			if s.cfg.Server.RequestTimeout > 0 {
				r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
			}
			r.Post("/events/{eventID}/imports", s.handleAnalyze)
			r.Get("/imports/previews/{previewID}", s.handleGetPreview)
			r.Post("/imports/previews/{previewID}/commit", s.handleCommit)
		})

		// Long-lived: progress stream and blocking result.
		r.Get("/imports/{importID}", s.handleImportStatus)
		r.Get("/imports/{importID}/progress", s.handleProgress)
		r.Get("/imports/{importID}/result", s.handleResult)
	})
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// writeJSON encodes v with the given status. Encoding errors are only
// logged since the header is already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("json encode error", "error", err)
	}
}
