package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/felixgeelhaar/gptutor/internal/domain"
	"github.com/felixgeelhaar/gptutor/internal/metrics"
)

// maxPasswordBytes is the longest password bcrypt accepts
const maxPasswordBytes = 72

// Service handles registration, credential checks and login sessions
type Service struct {
	users         UserStore
	sessions      SessionStore
	tokens        *TokenSigner
	sessionMaxAge time.Duration
	bcryptCost    int
	dummyHash     []byte
	logger        *slog.Logger
}

// Config holds auth service settings
type Config struct {
	SessionMaxAge time.Duration
	BcryptCost    int // default: bcrypt.DefaultCost
	Logger        *slog.Logger
}

// NewService creates a new auth service
func NewService(users UserStore, sessions SessionStore, tokens *TokenSigner, cfg Config) *Service {
	if cfg.SessionMaxAge <= 0 {
		cfg.SessionMaxAge = 7 * 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	// Compared against when the email is unknown so both failure paths
	// cost one bcrypt comparison.
	dummy, err := bcrypt.GenerateFromPassword([]byte("gptutor-dummy-password"), cfg.BcryptCost)
	if err != nil {
		panic(fmt.Sprintf("auth: generate dummy hash: %v", err))
	}

	return &Service{
		users:         users,
		sessions:      sessions,
		tokens:        tokens,
		sessionMaxAge: cfg.SessionMaxAge,
		bcryptCost:    cfg.BcryptCost,
		dummyHash:     dummy,
		logger:        cfg.Logger,
	}
}

// Register creates a new user account
func (s *Service) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	user, err := s.register(ctx, username, email, password)
	metrics.ObserveAuth("register", err)
	return user, err
}

func (s *Service) register(ctx context.Context, username, email, password string) (*domain.User, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(email) == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", domain.ErrValidation)
	}
	// bcrypt limit, counted in bytes
	if len(password) > maxPasswordBytes {
		return nil, fmt.Errorf("%w: password must be at most %d bytes", domain.ErrValidation, maxPasswordBytes)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Verify checks an email and password pair.
// Any mismatch, including an unknown email, is domain.ErrAuthFailure.
func (s *Service) Verify(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("lookup user: %w", err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, domain.ErrAuthFailure
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrAuthFailure
	}
	return user, nil
}

// LoginResponse contains login result
type LoginResponse struct {
	User    *domain.User
	Session *domain.Session
	Token   string
}

// Login verifies credentials and opens a session
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	user, err := s.Verify(ctx, email, password)
	metrics.ObserveAuth("login", err)
	if err != nil {
		return nil, err
	}
	return s.StartSession(ctx, user)
}

// StartSession opens a session for an already authenticated user
func (s *Service) StartSession(ctx context.Context, user *domain.User) (*LoginResponse, error) {
	now := time.Now().UTC()
	session := &domain.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		Username:  user.Username,
		ExpiresAt: now.Add(s.sessionMaxAge),
		CreatedAt: now,
	}

	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	token, err := s.tokens.Sign(session.ID, user.ID, user.Username, session.ExpiresAt)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		User:    user,
		Session: session,
		Token:   token,
	}, nil
}

// Authenticate resolves a session token to its live session
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.Session, error) {
	sessionID, claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, domain.ErrSessionNotFound
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// The token must belong to the user who owns the session.
	if claims.UserID != session.UserID.String() {
		s.logger.Warn("session token user mismatch", "session_id", sessionID)
		return nil, domain.ErrSessionNotFound
	}

	if session.IsExpired() {
		_ = s.sessions.DeleteSession(ctx, session.ID)
		return nil, domain.ErrSessionExpired
	}

	return session, nil
}

// Logout invalidates the session behind token
func (s *Service) Logout(ctx context.Context, token string) error {
	sessionID, _, err := s.tokens.Parse(token)
	if err != nil {
		return domain.ErrSessionNotFound
	}
	return s.sessions.DeleteSession(ctx, sessionID)
}

// SetActiveExercise records which exercise the session is timing
func (s *Service) SetActiveExercise(ctx context.Context, sessionID uuid.UUID, exerciseID *uuid.UUID) error {
	return s.sessions.SetActiveExercise(ctx, sessionID, exerciseID)
}

// CleanupExpiredSessions removes all expired sessions
func (s *Service) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpiredSessions(ctx)
}

// User returns the user with the given id
func (s *Service) User(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// SessionMaxAge returns how long new sessions stay valid
func (s *Service) SessionMaxAge() time.Duration {
	return s.sessionMaxAge
}

// ConfirmPassword checks that a registration password was typed twice the same
func ConfirmPassword(password, confirm string) error {
	if password != confirm {
		return domain.ErrPasswordMismatch
	}
	return nil
}
