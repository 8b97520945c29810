package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/gptutor/internal/auth"
	"github.com/felixgeelhaar/gptutor/internal/domain"
)

var _ auth.SessionStore = (*SessionStore)(nil)

// SessionStore implements auth.SessionStore on Redis.
// Key format: gptutor:session:<session_id>
type SessionStore struct {
	client *redis.Client
	prefix string
}

// NewSessionStore creates a SessionStore wrapping the given Redis client.
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client, prefix: "gptutor:session:"}
}

type sessionRecord struct {
	ID               uuid.UUID  `json:"id"`
	UserID           uuid.UUID  `json:"user_id"`
	Username         string     `json:"username"`
	ActiveExerciseID *uuid.UUID `json:"active_exercise_id,omitempty"`
	ExpiresAt        time.Time  `json:"expires_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

// CreateSession stores the session until it expires.
func (s *SessionStore) CreateSession(ctx context.Context, session *domain.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("create session: already expired")
	}

	data, err := encodeSession(session)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(session.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// GetSession loads a session; expired keys are already gone.
func (s *SessionStore) GetSession(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return decodeSession(data)
}

// SetActiveExercise rewrites the session keeping its remaining TTL.
func (s *SessionStore) SetActiveExercise(ctx context.Context, sessionID uuid.UUID, exerciseID *uuid.UUID) error {
	key := s.key(sessionID)

	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("redis get: %w", err)
		}

		session, err := decodeSession(data)
		if err != nil {
			return err
		}
		session.ActiveExerciseID = exerciseID

		updated, err := encodeSession(session)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, key, updated, redis.SetArgs{KeepTTL: true})
			return nil
		})
		return err
	}, key)
}

// DeleteSession removes a session.
func (s *SessionStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// DeleteExpiredSessions is a no-op: Redis expires keys itself.
func (s *SessionStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	return 0, nil
}

func (s *SessionStore) key(id uuid.UUID) string {
	return s.prefix + id.String()
}

func encodeSession(session *domain.Session) ([]byte, error) {
	data, err := json.Marshal(sessionRecord{
		ID:               session.ID,
		UserID:           session.UserID,
		Username:         session.Username,
		ActiveExerciseID: session.ActiveExerciseID,
		ExpiresAt:        session.ExpiresAt,
		CreatedAt:        session.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return data, nil
}

func decodeSession(data []byte) (*domain.Session, error) {
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &domain.Session{
		ID:               rec.ID,
		UserID:           rec.UserID,
		Username:         rec.Username,
		ActiveExerciseID: rec.ActiveExerciseID,
		ExpiresAt:        rec.ExpiresAt,
		CreatedAt:        rec.CreatedAt,
	}, nil
}
