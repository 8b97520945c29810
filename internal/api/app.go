package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/gptutor/internal/auth"
	"github.com/felixgeelhaar/gptutor/internal/config"
	"github.com/felixgeelhaar/gptutor/internal/events"
	"github.com/felixgeelhaar/gptutor/internal/exercise"
	"github.com/felixgeelhaar/gptutor/internal/tutor"
)

// Pinger reports whether a backing service is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

// PingContext calls f(ctx)
func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// App holds all application dependencies
type App struct {
	Config *config.Config
	Auth   *auth.Service
	Log    exercise.Log
	Tutor  *tutor.Controller
	Checks map[string]Pinger
}

// AppConfig holds the stores and clients the application is built from
type AppConfig struct {
	Config    *config.Config
	Users     auth.UserStore
	Sessions  auth.SessionStore
	Log       exercise.Log
	Completer tutor.Completer
	Publisher events.Publisher // optional
	Checks    map[string]Pinger
	Clock     func() time.Time
	Logger    *slog.Logger
}

// NewApp creates a new application instance with all dependencies wired
func NewApp(cfg AppConfig) (*App, error) {
	if cfg.Config == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Users == nil || cfg.Sessions == nil || cfg.Log == nil {
		return nil, errors.New("user, session and exercise stores are required")
	}
	if cfg.Completer == nil {
		return nil, errors.New("completer is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	app := &App{
		Config: cfg.Config,
		Log:    cfg.Log,
		Checks: cfg.Checks,
	}

	app.Auth = auth.NewService(cfg.Users, cfg.Sessions, auth.NewTokenSigner(cfg.Config.Session.Secret), auth.Config{
		SessionMaxAge: cfg.Config.Session.MaxAge(),
		Logger:        cfg.Logger,
	})

	app.Tutor = tutor.NewController(cfg.Completer, cfg.Log, app.Auth, tutor.Config{
		Options: tutor.Options{
			Levels:    cfg.Config.Levels,
			Topics:    cfg.Config.Topics,
			Durations: cfg.Config.Durations,
		},
		Publisher: cfg.Publisher,
		Clock:     cfg.Clock,
		Logger:    cfg.Logger,
	})

	return app, nil
}

// Ready pings every registered check and returns the status of each
func (a *App) Ready(ctx context.Context) (map[string]string, error) {
	status := make(map[string]string, len(a.Checks))
	var errs []error
	for name, check := range a.Checks {
		if err := check.PingContext(ctx); err != nil {
			status[name] = "unhealthy"
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		status[name] = "healthy"
	}
	return status, errors.Join(errs...)
}
