package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered user
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Session represents an authenticated browser session.
// ActiveExerciseID points at the exercise whose timer is running, if any.
type Session struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	Username         string
	ActiveExerciseID *uuid.UUID
	ExpiresAt        time.Time
	CreatedAt        time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
