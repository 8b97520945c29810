package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/gptutor/internal/domain"
)

// UserStore defines the credential persistence used by Service.
type UserStore interface {
	// CreateUser inserts user. Uniqueness is checked for the username first,
	// then the email, in the same transaction as the insert; violations are
	// reported as domain.ErrDuplicateUsername or domain.ErrDuplicateEmail.
	CreateUser(ctx context.Context, user *domain.User) error

	// GetUserByEmail returns domain.ErrUserNotFound when no user matches exactly.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// SessionStore defines login session persistence.
type SessionStore interface {
	CreateSession(ctx context.Context, session *domain.Session) error

	// GetSession returns domain.ErrSessionNotFound for unknown ids.
	GetSession(ctx context.Context, id uuid.UUID) (*domain.Session, error)

	// SetActiveExercise points the session at exerciseID, or clears it when nil.
	SetActiveExercise(ctx context.Context, sessionID uuid.UUID, exerciseID *uuid.UUID) error

	DeleteSession(ctx context.Context, id uuid.UUID) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}
