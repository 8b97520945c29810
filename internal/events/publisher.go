// Package events publishes exercise lifecycle events to RabbitMQ.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// TypeExerciseStarted is the AMQP message type of ExerciseStarted.
const TypeExerciseStarted = "exercise.started"

// ExerciseStarted is emitted once an exercise and its transcript are stored.
type ExerciseStarted struct {
	ExerciseID uuid.UUID `json:"exercise_id"`
	UserID     uuid.UUID `json:"user_id"`
	Level      string    `json:"level"`
	Topic      string    `json:"topic"`
	Duration   string    `json:"duration"`
	Title      string    `json:"title"`
	StartedAt  time.Time `json:"started_at"`
}

// Publisher emits exercise lifecycle events.
type Publisher interface {
	PublishExerciseStarted(ctx context.Context, evt ExerciseStarted) error
}

type jsonPublisher interface {
	PublishJSON(ctx context.Context, queue, messageType string, data any) error
}

// AMQPPublisher publishes events to the exercise queue.
type AMQPPublisher struct {
	conn jsonPublisher
}

// NewAMQPPublisher creates a publisher on an open connection.
func NewAMQPPublisher(conn *Connection) *AMQPPublisher {
	return &AMQPPublisher{conn: conn}
}

// PublishExerciseStarted publishes evt to ExerciseQueueName.
func (p *AMQPPublisher) PublishExerciseStarted(ctx context.Context, evt ExerciseStarted) error {
	if evt.ExerciseID == uuid.Nil {
		return fmt.Errorf("publish %s: missing exercise id", TypeExerciseStarted)
	}
	if evt.StartedAt.IsZero() {
		evt.StartedAt = time.Now()
	}

	if err := p.conn.PublishJSON(ctx, ExerciseQueueName, TypeExerciseStarted, evt); err != nil {
		return fmt.Errorf("failed to publish %s: %w", TypeExerciseStarted, err)
	}

	slog.Info("published exercise event",
		"type", TypeExerciseStarted,
		"exercise_id", evt.ExerciseID,
		"user_id", evt.UserID,
	)
	return nil
}

// NoopPublisher discards events. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishExerciseStarted(context.Context, ExerciseStarted) error { return nil }
