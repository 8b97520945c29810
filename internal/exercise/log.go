// Package exercise defines the exercise log and the text the tutor
// exchanges with the completion endpoint.
package exercise

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/gptutor/internal/domain"
)

// Log persists exercises and their transcripts.
//
// Reads are scoped to the owning user: an exercise owned by someone else
// is reported as domain.ErrExerciseNotFound.
type Log interface {
	// StartExercise creates an exercise for userID starting at startedAt.
	StartExercise(ctx context.Context, userID uuid.UUID, title string, startedAt time.Time) (*domain.Exercise, error)

	// AppendMessages appends msgs to the exercise transcript in order.
	AppendMessages(ctx context.Context, exerciseID uuid.UUID, msgs []domain.Message) error

	// ListExercises returns the user's exercises, newest first.
	ListExercises(ctx context.Context, userID uuid.UUID) ([]*domain.Exercise, error)

	// GetExercise returns one exercise owned by userID.
	GetExercise(ctx context.Context, userID, exerciseID uuid.UUID) (*domain.Exercise, error)

	// Messages returns the ordered transcript of an exercise owned by userID.
	Messages(ctx context.Context, userID, exerciseID uuid.UUID) (domain.Transcript, error)

	// InTx runs fn in a single unit of work. If fn returns an error
	// nothing it wrote is kept.
	InTx(ctx context.Context, fn func(Log) error) error
}

// Detail is the history view of a single exercise
type Detail struct {
	Exercise *domain.Exercise
	Title    string
	Body     string
}

// LoadDetail reads an owned exercise and derives its display title and body
// from the transcript.
func LoadDetail(ctx context.Context, log Log, userID, exerciseID uuid.UUID) (*Detail, error) {
	ex, err := log.GetExercise(ctx, userID, exerciseID)
	if err != nil {
		return nil, err
	}

	transcript, err := log.Messages(ctx, userID, exerciseID)
	if err != nil {
		return nil, err
	}

	raw := ex.Title
	if msg, ok := transcript.Find(domain.KindExerciseTitle); ok {
		raw = msg.Text
	}

	detail := &Detail{
		Exercise: ex,
		Title:    DisplayTitle(raw, UntitledFallback),
	}
	if msg, ok := transcript.Find(domain.KindInitialExercise); ok {
		detail.Body = msg.Text
	}
	return detail, nil
}
