package domain

import (
	"time"

	"github.com/google/uuid"
)

// Exercise is one practice attempt owned by a user
type Exercise struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	StartedAt time.Time
	EndedAt   *time.Time
	Title     string // raw title reply, empty until assigned
	CreatedAt time.Time
}

// Role is the author of a conversation turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// MessageKind tags the purpose of a conversation turn.
// The numeric values are persisted and must not change.
type MessageKind int

const (
	KindInitialQuestion MessageKind = 1
	KindInitialExercise MessageKind = 2
	KindAskTitle        MessageKind = 3
	KindExerciseTitle   MessageKind = 4
)

// String returns the canonical name of the kind
func (k MessageKind) String() string {
	switch k {
	case KindInitialQuestion:
		return "INITIAL_QUESTION"
	case KindInitialExercise:
		return "INITIAL_EXERCISE"
	case KindAskTitle:
		return "ASK_TITLE"
	case KindExerciseTitle:
		return "EXERCISE_TITLE"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether k belongs to the closed set of kinds
func (k MessageKind) Valid() bool {
	return k >= KindInitialQuestion && k <= KindExerciseTitle
}

// Message is one immutable turn of an exercise conversation
type Message struct {
	ID         uuid.UUID
	ExerciseID uuid.UUID
	Seq        int
	Role       Role
	Text       string
	Kind       MessageKind
	CreatedAt  time.Time
}

// Transcript is the ordered list of messages exchanged for one exercise
type Transcript []Message

// Find returns the first message of the given kind
func (t Transcript) Find(kind MessageKind) (Message, bool) {
	for _, m := range t {
		if m.Kind == kind {
			return m, true
		}
	}
	return Message{}, false
}

// Kinds returns the kind of every message, in order
func (t Transcript) Kinds() []MessageKind {
	kinds := make([]MessageKind, len(t))
	for i, m := range t {
		kinds[i] = m.Kind
	}
	return kinds
}
