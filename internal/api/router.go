package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/felixgeelhaar/gptutor/internal/api/handlers"
	"github.com/felixgeelhaar/gptutor/internal/api/middleware"
	"github.com/felixgeelhaar/gptutor/internal/api/respond"
)

// Router wraps the HTTP multiplexer with middleware and handlers
type Router struct {
	mux      *http.ServeMux
	app      *App
	auth     *handlers.AuthHandler
	exercise *handlers.ExerciseHandler
	limiter  *middleware.RateLimiter
	handler  http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(app *App) *Router {
	r := &Router{
		mux: http.NewServeMux(),
		app: app,
	}

	validate := handlers.NewValidator()
	r.auth = handlers.NewAuthHandler(app.Auth, validate, !app.Config.Server.Debug)
	r.exercise = handlers.NewExerciseHandler(app.Tutor, app.Log, validate)

	r.registerRoutes()
	r.handler = r.buildMiddlewareChain(r.mux)

	return r
}

// ServeHTTP dispatches to the middleware chain
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

// Close releases the rate limiter
func (r *Router) Close() error {
	if r.limiter != nil {
		return r.limiter.Close()
	}
	return nil
}

func (r *Router) registerRoutes() {
	requireAuth := middleware.RequireAuth(r.app.Auth)

	// Health check
	r.mux.HandleFunc("GET /health", r.handleHealth)
	r.mux.HandleFunc("GET /ready", r.handleReady)
	r.mux.Handle("GET /metrics", promhttp.Handler())

	// Auth (no auth required)
	r.mux.HandleFunc("POST /api/v1/auth/register", r.auth.Register)
	r.mux.HandleFunc("POST /api/v1/auth/login", r.auth.Login)
	r.mux.HandleFunc("POST /api/v1/auth/logout", r.auth.Logout)
	r.mux.HandleFunc("GET /api/v1/auth/me", requireAuth(r.auth.Me))

	r.mux.HandleFunc("GET /api/v1/options", r.exercise.Options)

	// Exercises (requires auth)
	r.mux.HandleFunc("POST /api/v1/exercises", requireAuth(r.exercise.Start))
	r.mux.HandleFunc("GET /api/v1/exercises", requireAuth(r.exercise.List))
	r.mux.HandleFunc("GET /api/v1/exercises/{id}", requireAuth(r.exercise.Get))
	r.mux.HandleFunc("GET /api/v1/timer", requireAuth(r.exercise.Timer))
}

func (r *Router) buildMiddlewareChain(mux *http.ServeMux) http.Handler {
	// Metrics wraps the mux directly so r.Pattern is set when it reads it.
	var handler http.Handler = middleware.Metrics(mux)

	// Apply middleware in reverse order (last applied = first executed)
	handler = middleware.Recovery(handler)
	handler = middleware.Logger(handler)

	// Apply rate limiting (skip in debug mode for easier development)
	if !r.app.Config.Server.Debug {
		cfg := middleware.DefaultRateLimitConfig()
		if r.app.Config.Server.RateLimit > 0 {
			cfg.RequestsPerMinute = r.app.Config.Server.RateLimit
		}
		r.limiter = middleware.NewRateLimiter(cfg)
		handler = r.limiter.Handler(handler)
	}

	handler = middleware.RequestID(handler)
	handler = middleware.CORS(r.app.Config.Server.CORSOrigins)(handler)

	return handler
}

// Health check handlers
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (r *Router) handleReady(w http.ResponseWriter, req *http.Request) {
	checks, err := r.app.Ready(req.Context())
	if err != nil {
		slog.Error("readiness check failed",
			"error", err,
			"request_id", middleware.GetRequestID(req.Context()),
		)
		respond.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not ready",
			"checks": checks,
		})
		return
	}

	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"checks": checks,
	})
}
