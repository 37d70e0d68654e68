// Package server exposes the job controller to a browser front end: a small
// REST surface for submitting and inspecting the current job, and a
// websocket stream of job snapshots.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/sells-group/mediaplan-cli/internal/model"
)

// defaultMaxUpload bounds the multipart body accepted by POST /api/optimize.
const defaultMaxUpload = 32 << 20

// JobController is the part of jobs.Controller the server drives.
type JobController interface {
	Submit(ctx context.Context, req model.OptimizationRequest) error
	View() model.JobView
	Stop()
	Subscribe() (<-chan model.JobView, func())
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins sets the CORS origins allowed to call the API.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithMaxUpload overrides the maximum upload size in bytes.
func WithMaxUpload(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// Server serves the job API.
type Server struct {
	ctrl      JobController
	origins   []string
	maxUpload int64
	upgrader  websocket.Upgrader
}

// New creates a Server around ctrl.
func New(ctrl JobController, opts ...Option) *Server {
	s := &Server{
		ctrl:      ctrl,
		origins:   []string{"*"},
		maxUpload: defaultMaxUpload,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/optimize", s.handleOptimize)
		r.Get("/job", s.handleGetJob)
		r.Delete("/job", s.handleStopJob)
		r.Get("/job/stream", s.handleStream)
	})
	return r
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// NewHTTPServer wraps the handler with the timeouts used by the serve
// command. WriteTimeout stays unset so websocket streams are not cut off.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
