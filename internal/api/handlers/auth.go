package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/gptutor/internal/api/middleware"
	"github.com/felixgeelhaar/gptutor/internal/api/respond"
	"github.com/felixgeelhaar/gptutor/internal/auth"
	"github.com/felixgeelhaar/gptutor/internal/domain"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService  *auth.Service
	validate     *Validator
	secureCookie bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service, validate *Validator, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		validate:     validate,
		secureCookie: secureCookie,
	}
}

// RegisterRequest is the request body for registration
type RegisterRequest struct {
	Username        string `json:"username" validate:"required,max=64"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required,max=72"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the response for user data
type UserResponse struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

func userResponse(u *domain.User) UserResponse {
	return UserResponse{
		UserID:    u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

// Register creates an account and logs the new user in
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := h.validate.decode(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := auth.ConfirmPassword(req.Password, req.PasswordConfirm); err != nil {
		respond.Error(w, r, err)
		return
	}

	user, err := h.authService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	login, err := h.authService.StartSession(r.Context(), user)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	h.setCookie(w, login)

	respond.WriteJSON(w, http.StatusCreated, map[string]any{
		"user": userResponse(user),
	})
}

// Login verifies credentials and sets the session cookie.
// Every credential failure answers 401 "Failed".
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := h.validate.decode(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	login, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	h.setCookie(w, login)

	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"user": userResponse(login.User),
	})
}

// Logout ends the session and clears the cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.authService.Logout(r.Context(), cookie.Value); err != nil {
			slog.Warn("logout failed", "error", err)
		}
	}

	h.clearCookie(w)
	respond.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "logged out",
	})
}

// Me returns the logged in user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		respond.Unauthorized(w, r, "authentication required")
		return
	}

	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"user": UserResponse{
			UserID:   session.UserID.String(),
			Username: session.Username,
		},
		"active_exercise_id": session.ActiveExerciseID,
	})
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, login *auth.LoginResponse) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    login.Token,
		Path:     "/",
		Expires:  login.Session.ExpiresAt,
		MaxAge:   int(time.Until(login.Session.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
