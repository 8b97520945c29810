// Package daemon assembles gptutord from configuration: stores, completion
// providers, events and the HTTP server.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/felixgeelhaar/gptutor/internal/api"
	"github.com/felixgeelhaar/gptutor/internal/auth"
	"github.com/felixgeelhaar/gptutor/internal/config"
	"github.com/felixgeelhaar/gptutor/internal/events"
	"github.com/felixgeelhaar/gptutor/internal/exercise"
	"github.com/felixgeelhaar/gptutor/internal/llm"
	"github.com/felixgeelhaar/gptutor/internal/storage/postgres"
	redisstore "github.com/felixgeelhaar/gptutor/internal/storage/redis"
	"github.com/felixgeelhaar/gptutor/internal/storage/sqlite"
)

// sessionCleanupInterval is how often expired login sessions are purged
const sessionCleanupInterval = time.Hour

// Daemon is a fully wired gptutord instance
type Daemon struct {
	cfg      *config.Config
	app      *api.App
	server   *api.Server
	registry *llm.Registry
	closers  []func() error

	stopCleanup context.CancelFunc
	wg          sync.WaitGroup
}

// stores holds the persistence selected by configuration
type stores struct {
	users    auth.UserStore
	sessions auth.SessionStore
	log      exercise.Log
	checks   map[string]api.Pinger
	closers  []func() error
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			slog.Warn("failed to close store", "error", err)
		}
	}
}

// New builds a daemon from cfg. Every backing service is connected and
// migrated before New returns.
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	registry := llm.NewRegistry()
	if err := setupLLMProviders(cfg, registry); err != nil {
		return nil, fmt.Errorf("setup llm providers: %w", err)
	}
	provider, err := registry.Default()
	if err != nil {
		return nil, fmt.Errorf("select llm provider: %w", err)
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	publisher, err := connectEvents(cfg, st)
	if err != nil {
		st.close()
		return nil, err
	}

	app, err := api.NewApp(api.AppConfig{
		Config:   cfg,
		Users:    st.users,
		Sessions: st.sessions,
		Log:      st.log,
		Completer: llm.NewClient(provider, llm.ClientConfig{
			Timeout: cfg.LLM.Timeout(),
		}),
		Publisher: publisher,
		Checks:    st.checks,
	})
	if err != nil {
		st.close()
		return nil, fmt.Errorf("create app: %w", err)
	}

	d := &Daemon{
		cfg:      cfg,
		app:      app,
		server:   api.NewServer(app),
		registry: registry,
		closers:  st.closers,
	}

	// Session cleanup runs from New until Shutdown.
	cleanupCtx, cancel := context.WithCancel(context.Background())
	d.stopCleanup = cancel
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.cleanupSessions(cleanupCtx, sessionCleanupInterval)
	}()

	return d, nil
}

// Start serves HTTP until Shutdown.
// It returns nil once the server has been shut down.
func (d *Daemon) Start() error {
	slog.Info("starting gptutor daemon",
		"addr", d.server.Addr(),
		"storage", d.cfg.Storage.Driver,
		"llm_providers", d.registry.List(),
	)
	if err := d.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops the server and the session cleanup, then closes stores
// and connections. It is safe to call from another goroutine while Start runs.
func (d *Daemon) Shutdown(ctx context.Context) error {
	slog.Info("shutting down daemon...")

	err := d.server.Shutdown(ctx)

	d.stopCleanup()
	d.wg.Wait()

	for i := len(d.closers) - 1; i >= 0; i-- {
		if cerr := d.closers[i](); cerr != nil {
			slog.Warn("failed to close resource", "error", cerr)
		}
	}
	return err
}

func (d *Daemon) cleanupSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := d.app.Auth.CleanupExpiredSessions(ctx)
			if err != nil {
				slog.Warn("session cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("expired sessions removed", "count", n)
			}
		}
	}
}

// setupLLMProviders registers every enabled provider behind the
// resilience wrapper and selects the configured default.
func setupLLMProviders(cfg *config.Config, registry *llm.Registry) error {
	timeout := cfg.LLM.Timeout()
	resilient := llm.DefaultResilientConfig()

	for _, name := range cfg.EnabledProviders() {
		providerCfg := cfg.LLM.Providers[name]

		var provider llm.Provider
		switch name {
		case config.ProviderClaude:
			if providerCfg.APIKey == "" {
				slog.Debug("Claude provider enabled but no API key set")
				continue
			}
			provider = llm.NewClaudeProvider(llm.ClaudeConfig{
				APIKey:  providerCfg.APIKey,
				BaseURL: providerCfg.URL,
				Model:   providerCfg.Model,
				Timeout: timeout,
			})

		case config.ProviderOpenAI:
			if providerCfg.APIKey == "" {
				slog.Debug("OpenAI provider enabled but no API key set")
				continue
			}
			provider = llm.NewOpenAIProvider(llm.OpenAIConfig{
				APIKey:  providerCfg.APIKey,
				BaseURL: providerCfg.URL,
				Model:   providerCfg.Model,
				Timeout: timeout,
			})

		case config.ProviderOllama:
			provider = llm.NewOllamaProvider(llm.OllamaConfig{
				BaseURL: providerCfg.URL,
				Model:   providerCfg.Model,
				Timeout: timeout,
			})

		default:
			slog.Warn("unknown LLM provider in config", "name", name)
			continue
		}

		registry.Register(name, llm.NewResilientProvider(provider, resilient))
		slog.Info("registered LLM provider", "name", name, "model", providerCfg.Model)
	}

	if len(registry.List()) == 0 {
		return errors.New("no LLM provider available; set OPENAI_API_KEY or enable ollama")
	}
	if name := cfg.LLM.DefaultProvider; name != "" {
		if err := registry.SetDefault(name); err != nil {
			return err
		}
	}
	return nil
}

// openStores connects the configured storage driver and, when set,
// moves login sessions to Redis.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	st := &stores{checks: make(map[string]api.Pinger)}

	switch cfg.Storage.Driver {
	case config.DriverSQLite, config.DriverMemory:
		path := cfg.Storage.DSN
		if cfg.Storage.Driver == config.DriverMemory {
			path = ":memory:"
		} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
		db, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			st.close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		st.users = sqlite.NewUserStore(db)
		st.sessions = sqlite.NewSessionStore(db)
		st.log = sqlite.NewExerciseLog(db)
		st.checks["database"] = db

	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			st.close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		st.users = postgres.NewUserStore(db)
		st.sessions = postgres.NewSessionStore(db)
		st.log = postgres.NewExerciseLog(db)
		st.checks["database"] = db

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	if cfg.Redis.Addr != "" {
		client, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			st.close()
			return nil, err
		}
		st.closers = append(st.closers, client.Close)
		st.sessions = redisstore.NewSessionStore(client)
		st.checks["redis"] = api.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		slog.Info("login sessions stored in redis", "addr", cfg.Redis.Addr)
	}

	return st, nil
}

// connectEvents returns the exercise event publisher. Without an AMQP
// URL events are dropped.
func connectEvents(cfg *config.Config, st *stores) (events.Publisher, error) {
	if cfg.Events.AMQPURL == "" {
		return events.NoopPublisher{}, nil
	}

	conn, err := events.NewConnection(cfg.Events.AMQPURL)
	if err != nil {
		return nil, fmt.Errorf("connect events: %w", err)
	}
	st.closers = append(st.closers, conn.Close)
	st.checks["amqp"] = api.PingFunc(func(context.Context) error {
		if !conn.IsConnected() {
			return errors.New("not connected")
		}
		return nil
	})
	return events.NewAMQPPublisher(conn), nil
}

// Migrate opens the configured stores, which applies pending migrations,
// and closes them again.
func Migrate(ctx context.Context, cfg *config.Config) error {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	st.close()
	return nil
}

// Accounts opens the credential stores for offline administration.
// The returned func closes them.
func Accounts(ctx context.Context, cfg *config.Config) (*auth.Service, func(), error) {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	svc := auth.NewService(st.users, st.sessions, auth.NewTokenSigner(cfg.Session.Secret), auth.Config{
		SessionMaxAge: cfg.Session.MaxAge(),
	})
	return svc, st.close, nil
}
