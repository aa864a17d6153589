// Package server provides the HTTP server and routing for holdings.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// RouteRegistrar is implemented by module handlers.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// Config holds server configuration
type Config struct {
	Log     zerolog.Logger
	Port    int
	DevMode bool
	// RequestTimeout bounds /api requests other than the websocket stream.
	// Zero selects DefaultRequestTimeout.
	RequestTimeout time.Duration

	// Modules are mounted under /api.
	Modules []RouteRegistrar
	System  *SystemHandlers
	// Events serves the websocket stream at /api/ws.
	Events http.HandlerFunc
}

// DefaultRequestTimeout is the /api request timeout when none is configured.
const DefaultRequestTimeout = 60 * time.Second

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    Config
	log    zerolog.Logger
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		log:    cfg.Log.With().Str("component", "server").Logger(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// Refresh requests may run up to the batch timeout; the websocket
		// stream is unbounded, so there is no server-wide write timeout.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Router exposes the handler for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	if s.cfg.System != nil {
		s.router.Get("/health", s.cfg.System.HandleHealth)
	}
	s.router.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("pong"))
	})

	s.router.Route("/api", func(r chi.Router) {
		// The websocket stream stays outside the timeout and compression middleware.
		if s.cfg.Events != nil {
			r.Get("/ws", s.cfg.Events)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))
			if !s.cfg.DevMode {
				r.Use(middleware.Compress(5))
			}

			if s.cfg.System != nil {
				r.Get("/system/status", s.cfg.System.HandleStatus)
			}
			for _, m := range s.cfg.Modules {
				m.RegisterRoutes(r)
			}
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
