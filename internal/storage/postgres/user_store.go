package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/felixgeelhaar/gptutor/internal/domain"
)

const uniqueViolation = "23505"

// UserStore implements auth.UserStore backed by PostgreSQL.
type UserStore struct {
	db *DB
}

// NewUserStore creates a new PostgreSQL-backed user store.
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

	var taken bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, user.Username).Scan(&taken); err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if taken {
		return domain.ErrDuplicateUsername
	}

	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, user.Email).Scan(&taken); err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if taken {
		return domain.ErrDuplicateEmail
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return mapConstraintError(err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetUserByEmail retrieves a user by exact email.
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetUserByID retrieves a user by ID.
func (s *UserStore) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func scanUser(row scanner) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case "users_username_key":
			return domain.ErrDuplicateUsername
		case "users_email_key":
			return domain.ErrDuplicateEmail
		}
	}
	return fmt.Errorf("insert user: %w", err)
}
