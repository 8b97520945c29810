package domain

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Domain Errors
// Stores and services return these (possibly wrapped); the HTTP layer maps
// them to status codes with errors.Is.
// -----------------------------------------------------------------------------

// Validation errors
var (
	ErrValidation       = errors.New("validation failed")
	ErrPasswordMismatch = fmt.Errorf("%w: passwords don't match", ErrValidation)
)

// Credential errors
var (
	ErrDuplicateUsername = errors.New("username exists")
	ErrDuplicateEmail    = errors.New("e-mail address already used")
	ErrAuthFailure       = errors.New("invalid email or password")
	ErrUserNotFound      = errors.New("user not found")
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// Exercise errors
var (
	// ErrExerciseNotFound is also returned for exercises owned by another user.
	ErrExerciseNotFound = errors.New("exercise not found")
)

// ErrUpstream marks failures of the completion endpoint
var ErrUpstream = errors.New("completion endpoint failed")
