package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/felixgeelhaar/gptutor/internal/domain"
)

// UserStore implements auth.UserStore backed by SQLite.
type UserStore struct {
	db *DB
}

// NewUserStore creates a new SQLite-backed user store.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// CreateUser checks username then email and inserts the user in one transaction.
func (s *UserStore) CreateUser(ctx context.Context, user *domain.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE username = ?", user.Username).Scan(&exists); err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if exists > 0 {
		return domain.ErrDuplicateUsername
	}

	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE email = ?", user.Email).Scan(&exists); err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if exists > 0 {
		return domain.ErrDuplicateEmail
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		user.ID.String(), user.Username, user.Email, user.PasswordHash, unix(user.CreatedAt),
	)
	if err != nil {
		return mapConstraintError(err)
	}

	return tx.Commit()
}

// GetUserByEmail retrieves a user by exact email.
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// GetUserByID retrieves a user by ID.
func (s *UserStore) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE id = ?`, id.String())
	return scanUser(row)
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var (
		user      domain.User
		id        string
		createdAt int64
	)
	if err := row.Scan(&id, &user.Username, &user.Email, &user.PasswordHash, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	user.ID = parsed
	user.CreatedAt = fromUnix(createdAt)
	return &user, nil
}

// mapConstraintError turns a UNIQUE violation on users into the duplicate errors.
// The pre-insert checks normally catch these; the constraint covers races.
func mapConstraintError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		msg := sqliteErr.Error()
		switch {
		case strings.Contains(msg, "users.username"):
			return domain.ErrDuplicateUsername
		case strings.Contains(msg, "users.email"):
			return domain.ErrDuplicateEmail
		}
	}
	return fmt.Errorf("insert user: %w", err)
}
