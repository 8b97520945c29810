package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/felixgeelhaar/gptutor/internal/api/respond"
	"github.com/felixgeelhaar/gptutor/internal/domain"
)

// SessionCookieName is the cookie holding the signed session token
const SessionCookieName = "gptutor_session"

// Authenticator resolves a session token to a live session
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Session, error)
}

// RequireAuth rejects requests without a valid session cookie and
// stores the session in the request context.
func RequireAuth(auth Authenticator) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				respond.Unauthorized(w, r, "authentication required")
				return
			}

			session, err := auth.Authenticate(r.Context(), cookie.Value)
			if err != nil {
				slog.Warn("invalid session",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				respond.Unauthorized(w, r, "invalid or expired session")
				return
			}

			next(w, r.WithContext(WithSession(r.Context(), session)))
		}
	}
}

// WithSession returns ctx carrying session
func WithSession(ctx context.Context, session *domain.Session) context.Context {
	return context.WithValue(ctx, SessionKey, session)
}

// SessionFrom returns the authenticated session stored by RequireAuth
func SessionFrom(ctx context.Context) (*domain.Session, bool) {
	session, ok := ctx.Value(SessionKey).(*domain.Session)
	return session, ok && session != nil
}
