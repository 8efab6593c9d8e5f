package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/quizforge/quiz-generator-api/internal/models"
)

type Repository interface {
	CreateRun(ctx context.Context, run *models.GenerationRun) error
	CompleteRun(ctx context.Context, id string, done models.RunCompletion) error
	FailRun(ctx context.Context, id string, message string, durationMs int64) error
	GetRun(ctx context.Context, id string) (*models.GenerationRun, error)
	ListRunsByUser(ctx context.Context, userID string, limit int) ([]models.GenerationRun, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateRun(ctx context.Context, run *models.GenerationRun) error {
	query := `
		INSERT INTO generation_runs (id, user_id, filename, file_size, format, requested_count, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.UserID,
		run.Filename,
		run.FileSize,
		run.Format,
		run.RequestedCount,
		run.Status,
		run.CreatedAt,
	)

	return err
}

func (r *repository) CompleteRun(ctx context.Context, id string, done models.RunCompletion) error {
	query := `
		UPDATE generation_runs
		SET status = $2, model = $3, content_chars = $4, truncated = $5,
		    questions_parsed = $6, blocks_dropped = $7, raw_key = $8,
		    duration_ms = $9, completed_at = $10
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		id,
		models.RunStatusCompleted,
		done.Model,
		done.ContentChars,
		done.Truncated,
		done.QuestionsParsed,
		done.BlocksDropped,
		done.RawKey,
		done.DurationMs,
		time.Now(),
	)

	return err
}

func (r *repository) FailRun(ctx context.Context, id string, message string, durationMs int64) error {
	query := `
		UPDATE generation_runs
		SET status = $2, error_message = $3, duration_ms = $4, completed_at = $5
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		id,
		models.RunStatusFailed,
		message,
		durationMs,
		time.Now(),
	)

	return err
}

func (r *repository) GetRun(ctx context.Context, id string) (*models.GenerationRun, error) {
	query := `
		SELECT id, user_id, filename, file_size, format, requested_count, status,
		       model, content_chars, truncated, questions_parsed, blocks_dropped,
		       raw_key, error_message, duration_ms, created_at, completed_at
		FROM generation_runs
		WHERE id = $1
	`

	var run models.GenerationRun
	err := r.db.GetContext(ctx, &run, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &run, nil
}

func (r *repository) ListRunsByUser(ctx context.Context, userID string, limit int) ([]models.GenerationRun, error) {
	query := `
		SELECT id, user_id, filename, file_size, format, requested_count, status,
		       model, content_chars, truncated, questions_parsed, blocks_dropped,
		       raw_key, error_message, duration_ms, created_at, completed_at
		FROM generation_runs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	runs := []models.GenerationRun{}
	if err := r.db.SelectContext(ctx, &runs, query, userID, limit); err != nil {
		return nil, err
	}

	return runs, nil
}
