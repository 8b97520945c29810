package sqlite

import (
	"github.com/felixgeelhaar/gptutor/internal/auth"
	"github.com/felixgeelhaar/gptutor/internal/exercise"
)

// Ensure SQLite stores implement the storage interfaces.
var (
	_ auth.UserStore    = (*UserStore)(nil)
	_ auth.SessionStore = (*SessionStore)(nil)
	_ exercise.Log      = (*ExerciseLog)(nil)
)
