package redis

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/gptutor/internal/domain"
)

func TestEncodeDecodeSession(t *testing.T) {
	exID := uuid.New()
	session := &domain.Session{
		ID:               uuid.New(),
		UserID:           uuid.New(),
		Username:         "alice",
		ActiveExerciseID: &exID,
		ExpiresAt:        time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		CreatedAt:        time.Now().UTC().Truncate(time.Second),
	}

	data, err := encodeSession(session)
	if err != nil {
		t.Fatalf("encodeSession() error = %v", err)
	}
	got, err := decodeSession(data)
	if err != nil {
		t.Fatalf("decodeSession() error = %v", err)
	}

	if got.ID != session.ID || got.UserID != session.UserID || got.Username != "alice" {
		t.Errorf("decodeSession() = %+v", got)
	}
	if got.ActiveExerciseID == nil || *got.ActiveExerciseID != exID {
		t.Errorf("ActiveExerciseID = %v; want %v", got.ActiveExerciseID, exID)
	}
	if !got.ExpiresAt.Equal(session.ExpiresAt) {
		t.Errorf("ExpiresAt = %v; want %v", got.ExpiresAt, session.ExpiresAt)
	}
}

func TestDecodeSession_Invalid(t *testing.T) {
	if _, err := decodeSession([]byte("{")); err == nil {
		t.Error("decodeSession() expected error")
	}
}

func TestSessionStore_Key(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	s := NewSessionStore(nil)
	if got := s.key(id); got != "gptutor:session:6ba7b810-9dad-11d1-80b4-00c04fd430c8" {
		t.Errorf("key() = %q", got)
	}
}
