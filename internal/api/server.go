package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Server is the gptutor HTTP server
type Server struct {
	server *http.Server
	router *Router
}

// NewServer creates a server listening on the configured address
func NewServer(app *App) *Server {
	router := NewRouter(app)
	return &Server{
		router: router,
		server: &http.Server{
			Addr:         app.Config.Addr(),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 2*app.Config.LLM.Timeout() + 15*time.Second, // two completions per start
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Addr is the listen address
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	slog.Info("starting gptutor server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down server...")

	if err := s.router.Close(); err != nil {
		slog.Warn("failed to close rate limiter", "error", err)
	}

	return s.server.Shutdown(ctx)
}
