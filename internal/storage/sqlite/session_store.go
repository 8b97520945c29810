package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/gptutor/internal/domain"
)

// SessionStore implements auth.SessionStore backed by SQLite.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a new SQLite-backed session store.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// CreateSession persists a new login session.
func (s *SessionStore) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auth_sessions (id, user_id, username, active_exercise_id, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID.String(), session.UserID.String(), session.Username,
		nullUUID(session.ActiveExerciseID), unix(session.ExpiresAt), unix(session.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (s *SessionStore) GetSession(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, username, active_exercise_id, expires_at, created_at
		FROM auth_sessions WHERE id = ?`, id.String())

	var (
		session              domain.Session
		sessionID, userID    string
		activeExercise       sql.NullString
		expiresAt, createdAt int64
	)
	if err := row.Scan(&sessionID, &userID, &session.Username, &activeExercise, &expiresAt, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	var err error
	if session.ID, err = uuid.Parse(sessionID); err != nil {
		return nil, fmt.Errorf("parse session id: %w", err)
	}
	if session.UserID, err = uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	if activeExercise.Valid {
		exID, err := uuid.Parse(activeExercise.String)
		if err != nil {
			return nil, fmt.Errorf("parse active exercise id: %w", err)
		}
		session.ActiveExerciseID = &exID
	}
	session.ExpiresAt = fromUnix(expiresAt)
	session.CreatedAt = fromUnix(createdAt)
	return &session, nil
}

// SetActiveExercise sets or clears the exercise a session is timing.
func (s *SessionStore) SetActiveExercise(ctx context.Context, sessionID uuid.UUID, exerciseID *uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE auth_sessions SET active_exercise_id = ? WHERE id = ?",
		nullUUID(exerciseID), sessionID.String())
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// DeleteSession removes a session. Deleting an unknown session is not an error.
func (s *SessionStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM auth_sessions WHERE id = ?", id.String()); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes every session past its expiry.
func (s *SessionStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM auth_sessions WHERE expires_at <= ?", unix(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

func nullUUID(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}
