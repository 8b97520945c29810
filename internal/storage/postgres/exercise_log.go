package postgres

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

// ExerciseLog implements exercise.Log backed by PostgreSQL.
type ExerciseLog struct {
	db *DB
	q  querier
	tx bool
}

// NewExerciseLog creates a new PostgreSQL-backed exercise log.
func NewExerciseLog(db *DB) *ExerciseLog {
	return &ExerciseLog{db: db, q: db}
}

func (l *ExerciseLog) StartExercise(ctx context.Context, userID uuid.UUID, title string, startedAt time.Time) (*domain.Exercise, error) {
	ex := &domain.Exercise{
		ID:        uuid.New(),
		UserID:    userID,
		StartedAt: time.Unix(startedAt.Unix(), 0).UTC(),
		Title:     title,
	}

	err := l.q.QueryRowContext(ctx,
		`INSERT INTO exercises (id, user_id, start_ts, title)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		ex.ID, userID, startedAt.Unix(), nullString(title)).Scan(&ex.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ex, nil
}

func (l *ExerciseLog) AppendMessages(ctx context.Context, exerciseID uuid.UUID, msgs []domain.Message) error {
	// Locks the exercise row so concurrent appends get distinct seq values.
	var next int
	err := l.q.QueryRowContext(ctx,
		`SELECT COALESCE((SELECT MAX(seq) FROM messages WHERE exercise_id = e.id), 0)
		 FROM exercises e WHERE e.id = $1 FOR UPDATE`, exerciseID).Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrExerciseNotFound
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	for _, msg := range msgs {
		next++
		id := msg.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		if _, err := l.q.ExecContext(ctx,
			`INSERT INTO messages (id, exercise_id, seq, role, text, kind)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			id, exerciseID, next, string(msg.Role), msg.Text, int(msg.Kind)); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (l *ExerciseLog) ListExercises(ctx context.Context, userID uuid.UUID) ([]*domain.Exercise, error) {
	rows, err := l.q.QueryContext(ctx,
		`SELECT id, user_id, start_ts, end_ts, title, created_at
		 FROM exercises WHERE user_id = $1
		 ORDER BY start_ts DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
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

func (l *ExerciseLog) GetExercise(ctx context.Context, userID, exerciseID uuid.UUID) (*domain.Exercise, error) {
	row := l.q.QueryRowContext(ctx,
		`SELECT id, user_id, start_ts, end_ts, title, created_at
		 FROM exercises WHERE id = $1 AND user_id = $2`, exerciseID, userID)

	ex, err := scanExercise(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrExerciseNotFound
	}
	return ex, err
}

func (l *ExerciseLog) Messages(ctx context.Context, userID, exerciseID uuid.UUID) (domain.Transcript, error) {
	rows, err := l.q.QueryContext(ctx,
		`SELECT m.id, m.seq, m.role, m.text, m.kind, m.created_at
		 FROM exercises e LEFT JOIN messages m ON m.exercise_id = e.id
		 WHERE e.id = $1 AND e.user_id = $2
		 ORDER BY m.seq`, exerciseID, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	found := false
	var transcript domain.Transcript
	for rows.Next() {
		found = true
		var (
			id        uuid.NullUUID
			seq       sql.NullInt64
			role      sql.NullString
			text      sql.NullString
			kind      sql.NullInt64
			createdAt sql.NullTime
		)
		if err := rows.Scan(&id, &seq, &role, &text, &kind, &createdAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if !id.Valid {
			// exercise without messages
			continue
		}
		transcript = append(transcript, domain.Message{
			ID:         id.UUID,
			ExerciseID: exerciseID,
			Seq:        int(seq.Int64),
			Role:       domain.Role(role.String),
			Text:       text.String,
			Kind:       domain.MessageKind(kind.Int64),
			CreatedAt:  createdAt.Time,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if !found {
		return nil, domain.ErrExerciseNotFound
	}
	return transcript, nil
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
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func scanExercise(row scanner) (*domain.Exercise, error) {
	var (
		ex      domain.Exercise
		startTS int64
		endTS   sql.NullInt64
		title   sql.NullString
	)
	if err := row.Scan(&ex.ID, &ex.UserID, &startTS, &endTS, &title, &ex.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	ex.StartedAt = time.Unix(startTS, 0).UTC()
	if endTS.Valid {
		end := time.Unix(endTS.Int64, 0).UTC()
		ex.EndedAt = &end
	}
	ex.Title = title.String
	return &ex, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
