package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/gptutor/internal/domain"
	"github.com/felixgeelhaar/gptutor/internal/exercise"
)

// ExerciseLog implements exercise.Log backed by SQLite.
type ExerciseLog struct {
	db *DB
	q  querier
	tx bool
}

// NewExerciseLog creates a new SQLite-backed exercise log.
func NewExerciseLog(db *DB) *ExerciseLog {
	return &ExerciseLog{db: db, q: db}
}

// StartExercise inserts a new exercise row.
func (l *ExerciseLog) StartExercise(ctx context.Context, userID uuid.UUID, title string, startedAt time.Time) (*domain.Exercise, error) {
	ex := &domain.Exercise{
		ID:        uuid.New(),
		UserID:    userID,
		StartedAt: fromUnix(unix(startedAt)),
		Title:     title,
		CreatedAt: fromUnix(unix(time.Now())),
	}

	_, err := l.q.ExecContext(ctx, `
		INSERT INTO exercises (id, user_id, start_ts, end_ts, title, created_at)
		VALUES (?, ?, ?, NULL, ?, ?)`,
		ex.ID.String(), userID.String(), unix(ex.StartedAt), nullString(title), unix(ex.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert exercise: %w", err)
	}
	return ex, nil
}

// AppendMessages appends msgs after the exercise's existing messages.
func (l *ExerciseLog) AppendMessages(ctx context.Context, exerciseID uuid.UUID, msgs []domain.Message) error {
	var next int
	err := l.q.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(m.seq), 0) FROM exercises e
		LEFT JOIN messages m ON m.exercise_id = e.id
		WHERE e.id = ? GROUP BY e.id`, exerciseID.String()).Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrExerciseNotFound
	}
	if err != nil {
		return fmt.Errorf("read message seq: %w", err)
	}

	now := unix(time.Now())
	for _, msg := range msgs {
		next++
		id := msg.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		_, err := l.q.ExecContext(ctx, `
			INSERT INTO messages (id, exercise_id, seq, role, text, kind, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id.String(), exerciseID.String(), next, string(msg.Role), msg.Text, int(msg.Kind), now,
		)
		if err != nil {
			return fmt.Errorf("insert message %d: %w", next, err)
		}
	}
	return nil
}

// ListExercises returns the user's exercises, newest first.
func (l *ExerciseLog) ListExercises(ctx context.Context, userID uuid.UUID) ([]*domain.Exercise, error) {
	rows, err := l.q.QueryContext(ctx, `
		SELECT id, user_id, start_ts, end_ts, title, created_at
		FROM exercises WHERE user_id = ?
		ORDER BY start_ts DESC, created_at DESC`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	defer rows.Close()

	exercises := make([]*domain.Exercise, 0)
	for rows.Next() {
		ex, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		exercises = append(exercises, ex)
	}
	return exercises, rows.Err()
}

// GetExercise returns an exercise only if userID owns it.
func (l *ExerciseLog) GetExercise(ctx context.Context, userID, exerciseID uuid.UUID) (*domain.Exercise, error) {
	row := l.q.QueryRowContext(ctx, `
		SELECT id, user_id, start_ts, end_ts, title, created_at
		FROM exercises WHERE id = ? AND user_id = ?`, exerciseID.String(), userID.String())

	ex, err := scanExercise(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrExerciseNotFound
	}
	return ex, err
}

// Messages returns the transcript of an owned exercise in seq order.
func (l *ExerciseLog) Messages(ctx context.Context, userID, exerciseID uuid.UUID) (domain.Transcript, error) {
	if _, err := l.GetExercise(ctx, userID, exerciseID); err != nil {
		return nil, err
	}

	rows, err := l.q.QueryContext(ctx, `
		SELECT id, exercise_id, seq, role, text, kind, created_at
		FROM messages WHERE exercise_id = ? ORDER BY seq`, exerciseID.String())
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var transcript domain.Transcript
	for rows.Next() {
		var (
			msg       domain.Message
			id, exID  string
			role      string
			kind      int
			createdAt int64
		)
		if err := rows.Scan(&id, &exID, &msg.Seq, &role, &msg.Text, &kind, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if msg.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse message id: %w", err)
		}
		msg.ExerciseID = exerciseID
		msg.Role = domain.Role(role)
		msg.Kind = domain.MessageKind(kind)
		msg.CreatedAt = fromUnix(createdAt)
		transcript = append(transcript, msg)
	}
	return transcript, rows.Err()
}

// InTx runs fn inside a database transaction.
func (l *ExerciseLog) InTx(ctx context.Context, fn func(exercise.Log) error) error {
	if l.tx {
		return fn(l)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&ExerciseLog{db: l.db, q: tx, tx: true}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExercise(row scanner) (*domain.Exercise, error) {
	var (
		ex                 domain.Exercise
		id, userID         string
		startTS, createdAt int64
		endTS              sql.NullInt64
		title              sql.NullString
	)
	if err := row.Scan(&id, &userID, &startTS, &endTS, &title, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan exercise: %w", err)
	}

	var err error
	if ex.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse exercise id: %w", err)
	}
	if ex.UserID, err = uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	ex.StartedAt = fromUnix(startTS)
	if endTS.Valid {
		end := fromUnix(endTS.Int64)
		ex.EndedAt = &end
	}
	ex.Title = title.String
	ex.CreatedAt = fromUnix(createdAt)
	return &ex, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
