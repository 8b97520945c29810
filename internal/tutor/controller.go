// Package tutor drives the exchange with the completion endpoint that
// produces an exercise and its title, and stores the result.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/gptutor/internal/domain"
	"github.com/felixgeelhaar/gptutor/internal/events"
	"github.com/felixgeelhaar/gptutor/internal/exercise"
	"github.com/felixgeelhaar/gptutor/internal/metrics"
	"github.com/felixgeelhaar/gptutor/internal/stopwatch"
)

// Completer sends a transcript upstream and returns the reply.
type Completer interface {
	Complete(ctx context.Context, msgs []domain.Message) (domain.Role, string, error)
}

// SessionUpdater records the exercise a login session is timing.
type SessionUpdater interface {
	SetActiveExercise(ctx context.Context, sessionID uuid.UUID, exerciseID *uuid.UUID) error
}

// Action selects what Handle does
type Action string

const (
	ActionStart Action = "start"
	ActionReset Action = "reset"
)

// Request is a user's request to the controller.
type Request struct {
	Action   Action
	Level    string
	Topic    string
	Duration string
}

// Result describes a started exercise. It is empty after a reset.
type Result struct {
	ExerciseID uuid.UUID
	Title      string
	Body       string
	StartedAt  time.Time
}

// Options are the accepted values for a start request. An empty list
// accepts any non-empty value.
type Options struct {
	Levels    []string
	Topics    []string
	Durations []string
}

// Config configures a Controller
type Config struct {
	Options   Options
	Publisher events.Publisher
	Clock     func() time.Time
	Logger    *slog.Logger
}

// Controller runs exercise conversations for authenticated sessions.
type Controller struct {
	completer Completer
	log       exercise.Log
	sessions  SessionUpdater
	publisher events.Publisher
	options   Options
	now       func() time.Time
	logger    *slog.Logger
}

// NewController creates a controller. sessions may be nil when there is
// no login session to update.
func NewController(completer Completer, log exercise.Log, sessions SessionUpdater, cfg Config) *Controller {
	if cfg.Publisher == nil {
		cfg.Publisher = events.NoopPublisher{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Controller{
		completer: completer,
		log:       log,
		sessions:  sessions,
		publisher: cfg.Publisher,
		options:   cfg.Options,
		now:       cfg.Clock,
		logger:    cfg.Logger,
	}
}

// Options returns the accepted start options.
func (c *Controller) Options() Options { return c.options }

// Handle starts or resets an exercise for the session's user.
func (c *Controller) Handle(ctx context.Context, session *domain.Session, req Request) (*Result, error) {
	if session == nil {
		return nil, domain.ErrSessionNotFound
	}

	switch req.Action {
	case ActionStart:
		return c.start(ctx, session, req)
	case ActionReset:
		if err := c.setActive(ctx, session, nil); err != nil {
			return nil, err
		}
		return &Result{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown action %q", domain.ErrValidation, req.Action)
	}
}

func (c *Controller) start(ctx context.Context, session *domain.Session, req Request) (*Result, error) {
	if err := c.validate(req); err != nil {
		metrics.ExerciseFailuresTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	conv := NewConversation(req.Level, req.Topic, req.Duration)

	msgs, err := conv.RequestExercise(c.now())
	if err != nil {
		return nil, err
	}
	role, text, err := c.completer.Complete(ctx, msgs)
	if err != nil {
		return nil, c.upstreamFailure("exercise", err)
	}
	if err := conv.ReceiveExercise(role, text); err != nil {
		return nil, err
	}

	msgs, err = conv.RequestTitle()
	if err != nil {
		return nil, err
	}
	role, text, err = c.completer.Complete(ctx, msgs)
	if err != nil {
		return nil, c.upstreamFailure("title", err)
	}
	if err := conv.ReceiveTitle(role, text); err != nil {
		return nil, err
	}
	if err := conv.Finish(); err != nil {
		return nil, err
	}

	var ex *domain.Exercise
	err = c.log.InTx(ctx, func(tx exercise.Log) error {
		var err error
		ex, err = tx.StartExercise(ctx, session.UserID, conv.RawTitle(), conv.StartedAt())
		if err != nil {
			return err
		}
		return tx.AppendMessages(ctx, ex.ID, conv.Transcript())
	})
	if err != nil {
		metrics.ExerciseFailuresTotal.WithLabelValues("store").Inc()
		return nil, fmt.Errorf("store exercise: %w", err)
	}
	metrics.ExercisesStartedTotal.WithLabelValues(req.Level).Inc()

	result := &Result{
		ExerciseID: ex.ID,
		Title:      conv.Title(),
		Body:       conv.Body(),
		StartedAt:  ex.StartedAt,
	}

	c.logger.Info("exercise started",
		"exercise_id", ex.ID,
		"user_id", session.UserID,
		"level", req.Level,
		"topic", req.Topic,
		"duration", req.Duration)

	// The exercise is stored; the timer and the event are best effort.
	if err := c.setActive(ctx, session, &ex.ID); err != nil {
		c.logger.Warn("failed to set active exercise", "session_id", session.ID, "error", err)
	}
	if err := c.publisher.PublishExerciseStarted(ctx, events.ExerciseStarted{
		ExerciseID: ex.ID,
		UserID:     session.UserID,
		Level:      req.Level,
		Topic:      req.Topic,
		Duration:   req.Duration,
		Title:      result.Title,
		StartedAt:  ex.StartedAt,
	}); err != nil {
		c.logger.Warn("failed to publish exercise event", "exercise_id", ex.ID, "error", err)
	}

	return result, nil
}

func (c *Controller) upstreamFailure(step string, err error) error {
	metrics.ExerciseFailuresTotal.WithLabelValues("upstream").Inc()
	if !errors.Is(err, domain.ErrUpstream) {
		err = fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}
	return fmt.Errorf("request %s: %w", step, err)
}

func (c *Controller) validate(req Request) error {
	fields := []struct {
		name    string
		value   string
		allowed []string
	}{
		{"level", req.Level, c.options.Levels},
		{"topic", req.Topic, c.options.Topics},
		{"duration", req.Duration, c.options.Durations},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s is required", domain.ErrValidation, f.name)
		}
		if len(f.allowed) > 0 && !slices.Contains(f.allowed, f.value) {
			return fmt.Errorf("%w: unsupported %s %q", domain.ErrValidation, f.name, f.value)
		}
	}
	return nil
}

func (c *Controller) setActive(ctx context.Context, session *domain.Session, exerciseID *uuid.UUID) error {
	if c.sessions == nil || session.ID == uuid.Nil {
		return nil
	}
	if err := c.sessions.SetActiveExercise(ctx, session.ID, exerciseID); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	session.ActiveExerciseID = exerciseID
	return nil
}

// Timer is the stopwatch reading for a session
type Timer struct {
	Elapsed    string
	StartedAt  *time.Time
	ExerciseID *uuid.UUID
}

// Timer reports the elapsed time of the session's active exercise.
// With no active exercise it reads 00:00:00.
func (c *Controller) Timer(ctx context.Context, session *domain.Session) (*Timer, error) {
	if session == nil || session.ActiveExerciseID == nil {
		return &Timer{Elapsed: stopwatch.Zero}, nil
	}

	ex, err := c.log.GetExercise(ctx, session.UserID, *session.ActiveExerciseID)
	if errors.Is(err, domain.ErrExerciseNotFound) {
		return &Timer{Elapsed: stopwatch.Zero}, nil
	}
	if err != nil {
		return nil, err
	}

	started := ex.StartedAt
	return &Timer{
		Elapsed:    stopwatch.Elapsed(&started, c.now()),
		StartedAt:  &started,
		ExerciseID: &ex.ID,
	}, nil
}
