package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/gptutor/internal/domain"
)

// SessionStore implements auth.SessionStore backed by PostgreSQL.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a new PostgreSQL-backed session store.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO auth_sessions (id, user_id, username, active_exercise_id, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		session.ID, session.UserID, session.Username, nullUUID(session.ActiveExerciseID),
		session.ExpiresAt, session.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *SessionStore) GetSession(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	session := &domain.Session{}
	var active uuid.NullUUID

	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, username, active_exercise_id, expires_at, created_at
		 FROM auth_sessions WHERE id = $1`, id).
		Scan(&session.ID, &session.UserID, &session.Username, &active, &session.ExpiresAt, &session.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if active.Valid {
		exID := active.UUID
		session.ActiveExerciseID = &exID
	}
	return session, nil
}

func (s *SessionStore) SetActiveExercise(ctx context.Context, sessionID uuid.UUID, exerciseID *uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE auth_sessions SET active_exercise_id = $1 WHERE id = $2`,
		nullUUID(exerciseID), sessionID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *SessionStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return result.RowsAffected()
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
