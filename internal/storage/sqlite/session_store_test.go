package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/gptutor/internal/domain"
)

func TestSessionStore_Lifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	user := newUser("alice", "a@x.io")
	if err := NewUserStore(db).CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	ex, err := NewExerciseLog(db).StartExercise(ctx, user.ID, "", time.Now())
	if err != nil {
		t.Fatalf("StartExercise() error = %v", err)
	}

	store := NewSessionStore(db)
	session := &domain.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		Username:  user.Username,
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	loaded, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if loaded.UserID != user.ID || loaded.Username != "alice" || loaded.ActiveExerciseID != nil {
		t.Errorf("GetSession() = %+v", loaded)
	}

	if err := store.SetActiveExercise(ctx, session.ID, &ex.ID); err != nil {
		t.Fatalf("SetActiveExercise() error = %v", err)
	}
	loaded, _ = store.GetSession(ctx, session.ID)
	if loaded.ActiveExerciseID == nil || *loaded.ActiveExerciseID != ex.ID {
		t.Errorf("ActiveExerciseID = %v; want %v", loaded.ActiveExerciseID, ex.ID)
	}

	if err := store.SetActiveExercise(ctx, session.ID, nil); err != nil {
		t.Fatalf("SetActiveExercise(nil) error = %v", err)
	}
	loaded, _ = store.GetSession(ctx, session.ID)
	if loaded.ActiveExerciseID != nil {
		t.Errorf("ActiveExerciseID = %v; want nil", loaded.ActiveExerciseID)
	}

	if err := store.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if _, err := store.GetSession(ctx, session.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("GetSession() error = %v; want ErrSessionNotFound", err)
	}
}

func TestSessionStore_SetActiveExercise_Unknown(t *testing.T) {
	store := NewSessionStore(openTestDB(t))
	if err := store.SetActiveExercise(context.Background(), uuid.New(), nil); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("SetActiveExercise() error = %v; want ErrSessionNotFound", err)
	}
}

func TestSessionStore_DeleteExpired(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	user := newUser("alice", "a@x.io")
	if err := NewUserStore(db).CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	store := NewSessionStore(db)
	for _, expires := range []time.Duration{-time.Hour, -time.Minute, time.Hour} {
		s := &domain.Session{ID: uuid.New(), UserID: user.ID, Username: "alice", ExpiresAt: time.Now().Add(expires), CreatedAt: time.Now()}
		if err := store.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}
	}

	n, err := store.DeleteExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("DeleteExpiredSessions() error = %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteExpiredSessions() = %d; want 2", n)
	}
}
