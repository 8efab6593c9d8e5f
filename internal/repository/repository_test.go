package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizforge/quiz-generator-api/internal/models"
)

var runColumns = []string{
	"id", "user_id", "filename", "file_size", "format", "requested_count", "status",
	"model", "content_chars", "truncated", "questions_parsed", "blocks_dropped",
	"raw_key", "error_message", "duration_ms", "created_at", "completed_at",
}

func setupTestDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func TestCreateRun(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewRepository(db)

	now := time.Now()
	run := &models.GenerationRun{
		ID:             "run-1",
		UserID:         "user-1",
		Filename:       "notes.pdf",
		FileSize:       4096,
		Format:         models.FormatPDF,
		RequestedCount: 5,
		Status:         models.RunStatusPending,
		CreatedAt:      now,
	}

	mock.ExpectExec("INSERT INTO generation_runs").
		WithArgs("run-1", "user-1", "notes.pdf", int64(4096), "pdf", 5, "pending", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CreateRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteRun(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewRepository(db)

	rawKey := "runs/run-1.txt"
	done := models.RunCompletion{
		Model:           "openai/gpt-4o",
		ContentChars:    8000,
		Truncated:       true,
		QuestionsParsed: 5,
		BlocksDropped:   1,
		RawKey:          &rawKey,
		DurationMs:      1234,
	}

	mock.ExpectExec("UPDATE generation_runs").
		WithArgs("run-1", "completed", "openai/gpt-4o", 8000, true, 5, 1, rawKey, int64(1234), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CompleteRun(context.Background(), "run-1", done))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteRunWithoutArchive(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewRepository(db)

	done := models.RunCompletion{Model: "openai/gpt-4o", QuestionsParsed: 3, DurationMs: 900}

	mock.ExpectExec("UPDATE generation_runs").
		WithArgs("run-1", "completed", "openai/gpt-4o", 0, false, 3, 0, nil, int64(900), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CompleteRun(context.Background(), "run-1", done))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailRun(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewRepository(db)

	mock.ExpectExec("UPDATE generation_runs").
		WithArgs("run-1", "failed", "document text too short to generate questions", int64(850), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.FailRun(context.Background(), "run-1", "document text too short to generate questions", 850)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRun(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewRepository(db)

	now := time.Now()
	completed := now.Add(2 * time.Second)
	rows := sqlmock.NewRows(runColumns).
		AddRow("run-1", "user-1", "notes.pdf", int64(4096), "pdf", 5, "completed",
			"openai/gpt-4o", 7200, false, 5, 0,
			"runs/run-1.txt", nil, int64(2100), now, completed)

	mock.ExpectQuery("FROM generation_runs").
		WithArgs("run-1").
		WillReturnRows(rows)

	run, err := repo.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, models.FormatPDF, run.Format)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	require.NotNil(t, run.RawKey)
	assert.Equal(t, "runs/run-1.txt", *run.RawKey)
	assert.Nil(t, run.ErrorMessage)
	require.NotNil(t, run.DurationMs)
	assert.Equal(t, int64(2100), *run.DurationMs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRunNotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewRepository(db)

	mock.ExpectQuery("FROM generation_runs").
		WithArgs("run-missing").
		WillReturnError(sql.ErrNoRows)

	run, err := repo.GetRun(context.Background(), "run-missing")
	require.NoError(t, err)
	assert.Nil(t, run)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRunsByUser(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(runColumns).
		AddRow("run-2", "user-1", "later.txt", int64(100), "txt", 3, "failed",
			"", 0, false, 0, 0, nil, "generation service unavailable", int64(60000), now, now).
		AddRow("run-1", "user-1", "notes.pdf", int64(4096), "pdf", 5, "completed",
			"openai/gpt-4o", 7200, false, 5, 0, nil, nil, int64(2100), now.Add(-time.Hour), now.Add(-time.Hour))

	mock.ExpectQuery("FROM generation_runs").
		WithArgs("user-1", 20).
		WillReturnRows(rows)

	runs, err := repo.ListRunsByUser(context.Background(), "user-1", 20)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, models.RunStatusFailed, runs[0].Status)
	require.NotNil(t, runs[0].ErrorMessage)
	assert.Equal(t, "generation service unavailable", *runs[0].ErrorMessage)
	assert.Equal(t, "run-1", runs[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRunsByUserEmpty(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewRepository(db)

	mock.ExpectQuery("FROM generation_runs").
		WithArgs("user-2", 20).
		WillReturnRows(sqlmock.NewRows(runColumns))

	runs, err := repo.ListRunsByUser(context.Background(), "user-2", 20)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NotNil(t, runs, "callers serialize this straight to JSON")
	assert.NoError(t, mock.ExpectationsWereMet())
}
