package exercise

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/gptutor/internal/domain"
)

// MemoryLog is an in-process Log used for development and tests
type MemoryLog struct {
	writeMu   sync.Mutex // serializes writers and transactions
	mu        sync.RWMutex
	exercises map[uuid.UUID]*domain.Exercise
	messages  map[uuid.UUID]domain.Transcript
	now       func() time.Time
}

// NewMemoryLog creates an empty in-memory exercise log
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{
		exercises: make(map[uuid.UUID]*domain.Exercise),
		messages:  make(map[uuid.UUID]domain.Transcript),
		now:       time.Now,
	}
}

// StartExercise creates a new exercise
func (m *MemoryLog) StartExercise(ctx context.Context, userID uuid.UUID, title string, startedAt time.Time) (*domain.Exercise, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.startExercise(userID, title, startedAt), nil
}

func (m *MemoryLog) startExercise(userID uuid.UUID, title string, startedAt time.Time) *domain.Exercise {
	ex := &domain.Exercise{
		ID:        uuid.New(),
		UserID:    userID,
		StartedAt: startedAt.Truncate(time.Second),
		Title:     title,
		CreatedAt: m.now(),
	}

	m.mu.Lock()
	m.exercises[ex.ID] = ex
	m.mu.Unlock()

	out := *ex
	return &out
}

// AppendMessages appends messages to an exercise transcript
func (m *MemoryLog) AppendMessages(ctx context.Context, exerciseID uuid.UUID, msgs []domain.Message) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.appendMessages(exerciseID, msgs)
}

func (m *MemoryLog) appendMessages(exerciseID uuid.UUID, msgs []domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.exercises[exerciseID]; !ok {
		return domain.ErrExerciseNotFound
	}

	transcript := m.messages[exerciseID]
	for _, msg := range msgs {
		msg.ExerciseID = exerciseID
		msg.Seq = len(transcript) + 1
		if msg.ID == uuid.Nil {
			msg.ID = uuid.New()
		}
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = m.now()
		}
		transcript = append(transcript, msg)
	}
	m.messages[exerciseID] = transcript
	return nil
}

// ListExercises returns the user's exercises, newest first
func (m *MemoryLog) ListExercises(ctx context.Context, userID uuid.UUID) ([]*domain.Exercise, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*domain.Exercise, 0)
	for _, ex := range m.exercises {
		if ex.UserID == userID {
			out := *ex
			result = append(result, &out)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].StartedAt.After(result[j].StartedAt)
	})
	return result, nil
}

// GetExercise returns an exercise owned by userID
func (m *MemoryLog) GetExercise(ctx context.Context, userID, exerciseID uuid.UUID) (*domain.Exercise, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ex, ok := m.exercises[exerciseID]
	if !ok || ex.UserID != userID {
		return nil, domain.ErrExerciseNotFound
	}
	out := *ex
	return &out, nil
}

// Messages returns the transcript of an exercise owned by userID
func (m *MemoryLog) Messages(ctx context.Context, userID, exerciseID uuid.UUID) (domain.Transcript, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ex, ok := m.exercises[exerciseID]
	if !ok || ex.UserID != userID {
		return nil, domain.ErrExerciseNotFound
	}
	return append(domain.Transcript(nil), m.messages[exerciseID]...), nil
}

// InTx runs fn against a staged copy and publishes it only if fn succeeds
func (m *MemoryLog) InTx(ctx context.Context, fn func(Log) error) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	tx := m.clone()
	if err := fn(tx); err != nil {
		return err
	}

	m.mu.Lock()
	m.exercises = tx.exercises
	m.messages = tx.messages
	m.mu.Unlock()
	return nil
}

// Stats returns the number of stored exercises and messages
func (m *MemoryLog) Stats() (exercises, messages int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.messages {
		messages += len(t)
	}
	return len(m.exercises), messages
}

func (m *MemoryLog) clone() *MemoryLog {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c := &MemoryLog{
		exercises: make(map[uuid.UUID]*domain.Exercise, len(m.exercises)),
		messages:  make(map[uuid.UUID]domain.Transcript, len(m.messages)),
		now:       m.now,
	}
	for id, ex := range m.exercises {
		c.exercises[id] = ex
	}
	for id, t := range m.messages {
		c.messages[id] = append(domain.Transcript(nil), t...)
	}
	return c
}
