package postgres

import (
	"github.com/felixgeelhaar/gptutor/internal/auth"
	"github.com/felixgeelhaar/gptutor/internal/exercise"
)

// Ensure PostgreSQL stores implement the storage interfaces.
var (
	_ auth.UserStore    = (*UserStore)(nil)
	_ auth.SessionStore = (*SessionStore)(nil)
	_ exercise.Log      = (*ExerciseLog)(nil)
)
