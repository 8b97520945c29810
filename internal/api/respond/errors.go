// Package respond writes JSON responses and maps errors to HTTP statuses.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/felixgeelhaar/gptutor/internal/domain"
)

// RequestIDHeader carries the request id on requests and responses.
const RequestIDHeader = "X-Request-ID"

// FailedMessage is the login failure text shown to users
const FailedMessage = "Failed"

// APIError represents a structured API error
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// NewAPIError creates a new API error
func NewAPIError(code string, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// WithDetails adds details to the error
func (e *APIError) WithDetails(details any) *APIError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *APIError) WithCause(err error) *APIError {
	e.cause = err
	return e
}

// Common error constructors
func ErrBadRequestWith(message string) *APIError {
	return NewAPIError("BAD_REQUEST", message)
}

func ErrNotFoundWith(resource string) *APIError {
	return NewAPIError("NOT_FOUND", resource+" not found")
}

func ErrUnauthorizedWith(message string) *APIError {
	return NewAPIError("UNAUTHORIZED", message)
}

func ErrConflictWith(message string) *APIError {
	return NewAPIError("CONFLICT", message)
}

func ErrInternalWith(message string, cause error) *APIError {
	return NewAPIError("INTERNAL_ERROR", message).WithCause(cause)
}

// ErrorResponse is the JSON structure for error responses
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// FromError maps a service error to a status code and API error.
// Unknown errors become 500 with a generic message; the cause is kept for logging.
func FromError(err error) (int, *APIError) {
	switch {
	case errors.Is(err, domain.ErrPasswordMismatch):
		return http.StatusBadRequest, NewAPIError("VALIDATION_ERROR", "Passwords don't match")
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, NewAPIError("VALIDATION_ERROR", err.Error())
	case errors.Is(err, domain.ErrDuplicateUsername):
		return http.StatusConflict, ErrConflictWith("Username exists")
	case errors.Is(err, domain.ErrDuplicateEmail):
		return http.StatusConflict, ErrConflictWith("E-mail address already used")
	case errors.Is(err, domain.ErrAuthFailure):
		return http.StatusUnauthorized, ErrUnauthorizedWith(FailedMessage)
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrSessionExpired):
		return http.StatusUnauthorized, ErrUnauthorizedWith("authentication required")
	case errors.Is(err, domain.ErrExerciseNotFound):
		return http.StatusNotFound, ErrNotFoundWith("exercise")
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, ErrNotFoundWith("user")
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway, NewAPIError("UPSTREAM_ERROR", "the exercise generator is unavailable, please try again").WithCause(err)
	default:
		return http.StatusInternalServerError, ErrInternalWith("an unexpected error occurred", err)
	}
}

// Error maps err with FromError and writes it
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status, apiErr := FromError(err)
	if apiErr.cause == nil {
		apiErr.cause = err
	}
	WriteError(w, r, status, apiErr)
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, apiErr *APIError) {
	logAttrs := []any{
		"code", apiErr.Code,
		"message", apiErr.Message,
		"status", statusCode,
		"method", r.Method,
		"path", r.URL.Path,
	}

	if apiErr.cause != nil {
		logAttrs = append(logAttrs, "cause", apiErr.cause.Error())
	}

	requestID := w.Header().Get(RequestIDHeader)
	if requestID == "" {
		requestID = r.Header.Get(RequestIDHeader)
	}
	if requestID != "" {
		logAttrs = append(logAttrs, "request_id", requestID)
	}

	if statusCode >= 500 {
		slog.Error("api error", logAttrs...)
	} else if statusCode >= 400 {
		slog.Warn("api error", logAttrs...)
	}

	WriteJSON(w, statusCode, ErrorResponse{Error: apiErr})
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// Helper functions for common responses
func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusBadRequest, ErrBadRequestWith(message))
}

func NotFound(w http.ResponseWriter, r *http.Request, resource string) {
	WriteError(w, r, http.StatusNotFound, ErrNotFoundWith(resource))
}

func Unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusUnauthorized, ErrUnauthorizedWith(message))
}

func TooManyRequests(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusTooManyRequests, NewAPIError("RATE_LIMITED", "too many requests, please try again later"))
}

func InternalError(w http.ResponseWriter, r *http.Request, message string, cause error) {
	WriteError(w, r, http.StatusInternalServerError, ErrInternalWith(message, cause))
}
