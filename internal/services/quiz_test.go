package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizforge/quiz-generator-api/internal/generator"
	"github.com/quizforge/quiz-generator-api/internal/memstore"
	"github.com/quizforge/quiz-generator-api/internal/models"
	"github.com/quizforge/quiz-generator-api/internal/utils"
)

const rawTranscript = `Q1: What does the first law of thermodynamics state?
A. Energy cannot be created or destroyed
B. Entropy always increases
C. Heat flows from cold to hot
D. Pressure is inversely proportional to volume
Answer: A
Explanation: The first law is conservation of energy.

Q2: Which quantity is conserved in an elastic collision?
A. Temperature
B. Kinetic energy
C. Entropy
D. Charge density
Answer: B

Q3: What is the SI unit of power?
A. Joule
B. Newton
C. Watt
D. Pascal
Answer: C
Explanation: Power is energy per unit time.`

type mockRepository struct {
	createRun   func(ctx context.Context, run *models.GenerationRun) error
	completeRun func(ctx context.Context, id string, done models.RunCompletion) error
	failRun     func(ctx context.Context, id string, message string, durationMs int64) error
	getRun      func(ctx context.Context, id string) (*models.GenerationRun, error)
	listRuns    func(ctx context.Context, userID string, limit int) ([]models.GenerationRun, error)
}

func (m *mockRepository) CreateRun(ctx context.Context, run *models.GenerationRun) error {
	if m.createRun == nil {
		return nil
	}
	return m.createRun(ctx, run)
}

func (m *mockRepository) CompleteRun(ctx context.Context, id string, done models.RunCompletion) error {
	if m.completeRun == nil {
		return nil
	}
	return m.completeRun(ctx, id, done)
}

func (m *mockRepository) FailRun(ctx context.Context, id string, message string, durationMs int64) error {
	if m.failRun == nil {
		return nil
	}
	return m.failRun(ctx, id, message, durationMs)
}

func (m *mockRepository) GetRun(ctx context.Context, id string) (*models.GenerationRun, error) {
	if m.getRun == nil {
		return nil, nil
	}
	return m.getRun(ctx, id)
}

func (m *mockRepository) ListRunsByUser(ctx context.Context, userID string, limit int) ([]models.GenerationRun, error) {
	if m.listRuns == nil {
		return nil, nil
	}
	return m.listRuns(ctx, userID, limit)
}

type fakeStorage struct {
	objects    map[string]string
	archiveErr error
	fetchErr   error
	deleted    []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string]string{}}
}

func (f *fakeStorage) Archive(ctx context.Context, key string, text string) error {
	if f.archiveErr != nil {
		return f.archiveErr
	}
	f.objects[key] = text
	return nil
}

func (f *fakeStorage) Fetch(ctx context.Context, key string) (string, error) {
	if f.fetchErr != nil {
		return "", f.fetchErr
	}
	text, ok := f.objects[key]
	if !ok {
		return "", errors.New("object not found")
	}
	return text, nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

type mockGenerator struct {
	generate func(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error)
}

func (m *mockGenerator) Generate(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
	return m.generate(ctx, req)
}

func testLogger() *utils.Logger {
	return &utils.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func requireAppError(t *testing.T, err error, status int, code string) *utils.AppError {
	t.Helper()
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, status, appErr.StatusCode)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func transcriptGenerator() *mockGenerator {
	return &mockGenerator{
		generate: func(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
			return &models.GenerationResult{
				Raw:          rawTranscript,
				Model:        "openai/gpt-4o",
				ContentChars: len(req.Text),
			}, nil
		},
	}
}

func uploadReq(filename string, body []byte, count int) *models.CreateQuizRequest {
	return &models.CreateQuizRequest{
		File:         body,
		Filename:     filename,
		Size:         int64(len(body)),
		NumQuestions: count,
		UserID:       "user-1",
	}
}

func TestCreateQuiz(t *testing.T) {
	var created *models.GenerationRun
	var completed *models.RunCompletion
	repo := &mockRepository{
		createRun: func(ctx context.Context, run *models.GenerationRun) error {
			created = run
			return nil
		},
		completeRun: func(ctx context.Context, id string, done models.RunCompletion) error {
			completed = &done
			return nil
		},
	}
	store := newFakeStorage()
	pools := memstore.NewPoolStore(time.Hour)
	svc := NewQuizService(repo, store, transcriptGenerator(), pools, testLogger())

	resp, err := svc.CreateQuiz(context.Background(), uploadReq("notes.txt", []byte("study notes about thermodynamics"), 3))
	require.NoError(t, err)

	assert.Equal(t, 3, resp.QuestionCount)
	assert.Zero(t, resp.DroppedBlocks)
	assert.NotEmpty(t, resp.PoolID)
	assert.NotEmpty(t, resp.RunID)

	require.NotNil(t, created)
	assert.Equal(t, models.RunStatusPending, created.Status)
	assert.Equal(t, models.FormatTXT, created.Format)
	assert.Equal(t, "user-1", created.UserID)

	require.NotNil(t, completed)
	assert.Equal(t, 3, completed.QuestionsParsed)
	assert.Equal(t, "openai/gpt-4o", completed.Model)
	require.NotNil(t, completed.RawKey)
	assert.Equal(t, rawTranscript, store.objects[*completed.RawKey])

	pool, ok := pools.Get(resp.PoolID)
	require.True(t, ok)
	assert.Equal(t, "user-1", pool.OwnerID)
	assert.Equal(t, 3, pool.Size())
	assert.Equal(t, "notes.txt", pool.SourceFile)
}

func TestCreateQuizRejectsUnsupportedFile(t *testing.T) {
	runCreated := false
	repo := &mockRepository{
		createRun: func(ctx context.Context, run *models.GenerationRun) error {
			runCreated = true
			return nil
		},
	}
	svc := NewQuizService(repo, newFakeStorage(), transcriptGenerator(), memstore.NewPoolStore(time.Hour), testLogger())

	_, err := svc.CreateQuiz(context.Background(), uploadReq("malware.exe", []byte("x"), 3))
	requireAppError(t, err, http.StatusBadRequest, "FILE_VALIDATION")
	assert.False(t, runCreated, "rejected uploads must not produce run rows")
}

func TestCreateQuizDefaultsQuestionCount(t *testing.T) {
	var requested int
	gen := &mockGenerator{
		generate: func(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
			requested = req.NumQuestions
			return &models.GenerationResult{Raw: rawTranscript, Model: "openai/gpt-4o"}, nil
		},
	}
	svc := NewQuizService(&mockRepository{}, newFakeStorage(), gen, memstore.NewPoolStore(time.Hour), testLogger())

	_, err := svc.CreateQuiz(context.Background(), uploadReq("notes.txt", []byte("study notes"), 0))
	require.NoError(t, err)
	assert.Equal(t, models.DefaultQuestionCount, requested)
}

func TestCreateQuizRejectsOutOfRangeCount(t *testing.T) {
	svc := NewQuizService(&mockRepository{}, newFakeStorage(), transcriptGenerator(), memstore.NewPoolStore(time.Hour), testLogger())

	_, err := svc.CreateQuiz(context.Background(), uploadReq("notes.txt", []byte("study notes"), models.MaxQuestionCount+1))
	requireAppError(t, err, http.StatusBadRequest, "BAD_REQUEST")

	_, err = svc.CreateQuiz(context.Background(), uploadReq("notes.txt", []byte("study notes"), -2))
	requireAppError(t, err, http.StatusBadRequest, "BAD_REQUEST")
}

func TestCreateQuizExtractionFailure(t *testing.T) {
	var failedMsg string
	repo := &mockRepository{
		failRun: func(ctx context.Context, id string, message string, durationMs int64) error {
			failedMsg = message
			return nil
		},
	}
	svc := NewQuizService(repo, newFakeStorage(), transcriptGenerator(), memstore.NewPoolStore(time.Hour), testLogger())

	_, err := svc.CreateQuiz(context.Background(), uploadReq("broken.pdf", []byte("not really a pdf"), 3))
	requireAppError(t, err, http.StatusUnprocessableEntity, "EXTRACTION_FAILED")
	assert.NotEmpty(t, failedMsg, "the run must be marked failed with the extraction error")
}

func TestCreateQuizContentTooShort(t *testing.T) {
	failed := false
	repo := &mockRepository{
		failRun: func(ctx context.Context, id string, message string, durationMs int64) error {
			failed = true
			return nil
		},
	}
	gen := &mockGenerator{
		generate: func(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
			return nil, generator.ErrContentTooShort
		},
	}
	svc := NewQuizService(repo, newFakeStorage(), gen, memstore.NewPoolStore(time.Hour), testLogger())

	_, err := svc.CreateQuiz(context.Background(), uploadReq("tiny.txt", []byte("hi"), 3))
	requireAppError(t, err, http.StatusUnprocessableEntity, "CONTENT_TOO_SHORT")
	assert.True(t, failed)
}

func TestCreateQuizGeneratorUnavailable(t *testing.T) {
	gen := &mockGenerator{
		generate: func(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
			return nil, &generator.ServiceError{StatusCode: 429, Err: errors.New("rate limited")}
		},
	}
	svc := NewQuizService(&mockRepository{}, newFakeStorage(), gen, memstore.NewPoolStore(time.Hour), testLogger())

	_, err := svc.CreateQuiz(context.Background(), uploadReq("notes.txt", []byte("study notes"), 3))
	requireAppError(t, err, http.StatusServiceUnavailable, "GENERATION_FAILED")
}

func TestCreateQuizParseFailure(t *testing.T) {
	gen := &mockGenerator{
		generate: func(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
			return &models.GenerationResult{Raw: "I am sorry, I cannot help with that.", Model: "openai/gpt-4o"}, nil
		},
	}
	svc := NewQuizService(&mockRepository{}, newFakeStorage(), gen, memstore.NewPoolStore(time.Hour), testLogger())

	_, err := svc.CreateQuiz(context.Background(), uploadReq("notes.txt", []byte("study notes"), 3))
	requireAppError(t, err, http.StatusBadGateway, "QUIZ_PARSE_FAILED")
}

func TestCreateQuizArchiveFailureStillSucceeds(t *testing.T) {
	var completed *models.RunCompletion
	repo := &mockRepository{
		completeRun: func(ctx context.Context, id string, done models.RunCompletion) error {
			completed = &done
			return nil
		},
	}
	store := newFakeStorage()
	store.archiveErr = errors.New("bucket offline")
	svc := NewQuizService(repo, store, transcriptGenerator(), memstore.NewPoolStore(time.Hour), testLogger())

	resp, err := svc.CreateQuiz(context.Background(), uploadReq("notes.txt", []byte("study notes"), 3))
	require.NoError(t, err)
	assert.Equal(t, 3, resp.QuestionCount)

	require.NotNil(t, completed)
	assert.Nil(t, completed.RawKey, "a failed archive must not be referenced by the run row")
}

func TestCreateQuizCompletionFailureCleansArchive(t *testing.T) {
	repo := &mockRepository{
		completeRun: func(ctx context.Context, id string, done models.RunCompletion) error {
			return errors.New("db locked")
		},
	}
	store := newFakeStorage()
	svc := NewQuizService(repo, store, transcriptGenerator(), memstore.NewPoolStore(time.Hour), testLogger())

	resp, err := svc.CreateQuiz(context.Background(), uploadReq("notes.txt", []byte("study notes"), 3))
	require.NoError(t, err, "audit trouble must not cost the caller a generated quiz")
	assert.NotEmpty(t, resp.PoolID)

	require.Len(t, store.deleted, 1)
	assert.Empty(t, store.objects, "the orphaned archive object is removed")
}

func TestGetRunHidesForeignRuns(t *testing.T) {
	repo := &mockRepository{
		getRun: func(ctx context.Context, id string) (*models.GenerationRun, error) {
			return &models.GenerationRun{ID: id, UserID: "someone-else"}, nil
		},
	}
	svc := NewQuizService(repo, newFakeStorage(), transcriptGenerator(), memstore.NewPoolStore(time.Hour), testLogger())

	_, err := svc.GetRun(context.Background(), "user-1", "run-1")
	requireAppError(t, err, http.StatusNotFound, "NOT_FOUND")
}

func TestGetRunMissing(t *testing.T) {
	svc := NewQuizService(&mockRepository{}, newFakeStorage(), transcriptGenerator(), memstore.NewPoolStore(time.Hour), testLogger())

	_, err := svc.GetRun(context.Background(), "user-1", "run-missing")
	requireAppError(t, err, http.StatusNotFound, "NOT_FOUND")
}

func TestGetRunRepositoryError(t *testing.T) {
	repo := &mockRepository{
		getRun: func(ctx context.Context, id string) (*models.GenerationRun, error) {
			return nil, errors.New("db down")
		},
	}
	svc := NewQuizService(repo, newFakeStorage(), transcriptGenerator(), memstore.NewPoolStore(time.Hour), testLogger())

	_, err := svc.GetRun(context.Background(), "user-1", "run-1")
	requireAppError(t, err, http.StatusInternalServerError, "INTERNAL")
}

func TestGetRunRawOutput(t *testing.T) {
	key := "runs/run-1.txt"
	repo := &mockRepository{
		getRun: func(ctx context.Context, id string) (*models.GenerationRun, error) {
			return &models.GenerationRun{ID: id, UserID: "user-1", RawKey: &key}, nil
		},
	}
	store := newFakeStorage()
	store.objects[key] = rawTranscript
	svc := NewQuizService(repo, store, transcriptGenerator(), memstore.NewPoolStore(time.Hour), testLogger())

	raw, err := svc.GetRunRawOutput(context.Background(), "user-1", "run-1")
	require.NoError(t, err)
	assert.Equal(t, rawTranscript, raw)
}

func TestGetRunRawOutputNotArchived(t *testing.T) {
	repo := &mockRepository{
		getRun: func(ctx context.Context, id string) (*models.GenerationRun, error) {
			return &models.GenerationRun{ID: id, UserID: "user-1"}, nil
		},
	}
	svc := NewQuizService(repo, newFakeStorage(), transcriptGenerator(), memstore.NewPoolStore(time.Hour), testLogger())

	_, err := svc.GetRunRawOutput(context.Background(), "user-1", "run-1")
	requireAppError(t, err, http.StatusNotFound, "NOT_FOUND")
}

func TestListRuns(t *testing.T) {
	repo := &mockRepository{
		listRuns: func(ctx context.Context, userID string, limit int) ([]models.GenerationRun, error) {
			assert.Equal(t, "user-1", userID)
			assert.Equal(t, listRunsLimit, limit)
			return []models.GenerationRun{{ID: "run-2"}, {ID: "run-1"}}, nil
		},
	}
	svc := NewQuizService(repo, newFakeStorage(), transcriptGenerator(), memstore.NewPoolStore(time.Hour), testLogger())

	runs, err := svc.ListRuns(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
}
