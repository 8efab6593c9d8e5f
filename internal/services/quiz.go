package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/quizforge/quiz-generator-api/internal/extractor"
	"github.com/quizforge/quiz-generator-api/internal/generator"
	"github.com/quizforge/quiz-generator-api/internal/memstore"
	"github.com/quizforge/quiz-generator-api/internal/models"
	"github.com/quizforge/quiz-generator-api/internal/parser"
	"github.com/quizforge/quiz-generator-api/internal/repository"
	"github.com/quizforge/quiz-generator-api/internal/storage"
	"github.com/quizforge/quiz-generator-api/internal/utils"
	"github.com/quizforge/quiz-generator-api/internal/validator"
)

// listRunsLimit caps how much history a single listing returns.
const listRunsLimit = 50

type QuizService interface {
	CreateQuiz(ctx context.Context, req *models.CreateQuizRequest) (*models.CreateQuizResponse, error)
	GetRun(ctx context.Context, userID, runID string) (*models.GenerationRun, error)
	ListRuns(ctx context.Context, userID string) ([]models.GenerationRun, error)
	GetRunRawOutput(ctx context.Context, userID, runID string) (string, error)
}

type quizService struct {
	repo      repository.Repository
	storage   storage.Storage
	generator generator.Generator
	pools     *memstore.PoolStore
	logger    *utils.Logger
}

func NewQuizService(repo repository.Repository, store storage.Storage, gen generator.Generator, pools *memstore.PoolStore, logger *utils.Logger) QuizService {
	return &quizService{
		repo:      repo,
		storage:   store,
		generator: gen,
		pools:     pools,
		logger:    logger,
	}
}

func (s *quizService) CreateQuiz(ctx context.Context, req *models.CreateQuizRequest) (*models.CreateQuizResponse, error) {
	numQuestions := req.NumQuestions
	if numQuestions == 0 {
		numQuestions = models.DefaultQuestionCount
	}
	if numQuestions < 1 || numQuestions > models.MaxQuestionCount {
		return nil, utils.NewBadRequestError(fmt.Sprintf("num_questions must be between 1 and %d", models.MaxQuestionCount))
	}

	format, err := validator.ValidateUpload(req.Filename, req.Size)
	if err != nil {
		s.logger.Warn("Rejected upload", "error", err, "filename", req.Filename, "size", req.Size)
		return nil, utils.NewAppError(http.StatusBadRequest, "FILE_VALIDATION", err.Error(), err)
	}

	// Rejected uploads never reach this point, so every run row marks a
	// file that entered the pipeline.
	runID := utils.GenerateID()
	started := time.Now()
	run := &models.GenerationRun{
		ID:             runID,
		UserID:         req.UserID,
		Filename:       req.Filename,
		FileSize:       req.Size,
		Format:         format,
		RequestedCount: numQuestions,
		Status:         models.RunStatusPending,
		CreatedAt:      started,
	}
	if err := s.repo.CreateRun(ctx, run); err != nil {
		s.logger.Error("Failed to record generation run", "error", err, "run_id", runID)
		return nil, utils.NewInternalError("Failed to record generation run")
	}

	text, err := extractor.Extract(format, req.File)
	if err != nil {
		s.logger.Error("Failed to extract text", "error", err, "format", format, "filename", req.Filename)
		s.failRun(ctx, runID, err.Error(), started)
		return nil, utils.NewAppError(http.StatusUnprocessableEntity, "EXTRACTION_FAILED",
			fmt.Sprintf("Failed to extract text from document: %v", err), err)
	}

	result, err := s.generator.Generate(ctx, &models.GenerationRequest{
		Text:         text,
		NumQuestions: numQuestions,
		UserID:       req.UserID,
	})
	if err != nil {
		s.failRun(ctx, runID, err.Error(), started)
		if errors.Is(err, generator.ErrContentTooShort) {
			return nil, utils.NewAppError(http.StatusUnprocessableEntity, "CONTENT_TOO_SHORT",
				"Document text is too short to generate questions from", err)
		}
		s.logger.Error("Question generation failed", "error", err, "run_id", runID)
		return nil, utils.NewAppError(http.StatusServiceUnavailable, "GENERATION_FAILED",
			"The question generation service is unavailable. Please try again shortly", err)
	}

	questions, dropped, err := parser.Parse(result.Raw)
	if err != nil {
		s.logger.Error("Model response contained no usable questions", "error", err, "run_id", runID, "model", result.Model)
		s.failRun(ctx, runID, err.Error(), started)
		return nil, utils.NewAppError(http.StatusBadGateway, "QUIZ_PARSE_FAILED",
			"The model response contained no usable questions", err)
	}
	if dropped > 0 {
		s.logger.Warn("Dropped malformed question blocks", "run_id", runID, "dropped", dropped, "kept", len(questions))
	}

	pool := &models.QuestionPool{
		ID:         utils.GenerateID(),
		OwnerID:    req.UserID,
		SourceFile: req.Filename,
		Questions:  questions,
		CreatedAt:  time.Now(),
	}
	s.pools.Put(pool)

	// Archiving the raw transcript is best effort; the quiz itself is
	// already usable.
	var rawKey *string
	key := storage.RunKey(runID)
	if err := s.storage.Archive(ctx, key, result.Raw); err != nil {
		s.logger.Warn("Failed to archive raw model output", "error", err, "run_id", runID)
	} else {
		rawKey = &key
	}

	done := models.RunCompletion{
		Model:           result.Model,
		ContentChars:    result.ContentChars,
		Truncated:       result.Truncated,
		QuestionsParsed: len(questions),
		BlocksDropped:   dropped,
		RawKey:          rawKey,
		DurationMs:      time.Since(started).Milliseconds(),
	}
	if err := s.repo.CompleteRun(ctx, runID, done); err != nil {
		s.logger.Error("Failed to record run completion", "error", err, "run_id", runID)
		if rawKey != nil {
			// Attempt to cleanup the orphaned archive
			_ = s.storage.Delete(ctx, key)
		}
	}

	s.logger.Info("Quiz generated successfully",
		"run_id", runID,
		"pool_id", pool.ID,
		"filename", req.Filename,
		"questions", len(questions),
		"dropped", dropped,
		"truncated", result.Truncated)

	return &models.CreateQuizResponse{
		PoolID:        pool.ID,
		RunID:         runID,
		Filename:      req.Filename,
		QuestionCount: len(questions),
		DroppedBlocks: dropped,
		Message:       "Quiz generated successfully. Start a session with /quizzes/{id}/sessions.",
	}, nil
}

func (s *quizService) GetRun(ctx context.Context, userID, runID string) (*models.GenerationRun, error) {
	run, err := s.repo.GetRun(ctx, runID)
	if err != nil {
		s.logger.Error("Failed to get generation run", "error", err, "run_id", runID)
		return nil, utils.NewInternalError("Failed to retrieve generation run")
	}
	// A foreign run is indistinguishable from a missing one.
	if run == nil || run.UserID != userID {
		return nil, utils.NewNotFoundError("Generation run not found")
	}

	return run, nil
}

func (s *quizService) ListRuns(ctx context.Context, userID string) ([]models.GenerationRun, error) {
	runs, err := s.repo.ListRunsByUser(ctx, userID, listRunsLimit)
	if err != nil {
		s.logger.Error("Failed to list generation runs", "error", err, "user_id", userID)
		return nil, utils.NewInternalError("Failed to list generation runs")
	}

	return runs, nil
}

func (s *quizService) GetRunRawOutput(ctx context.Context, userID, runID string) (string, error) {
	run, err := s.GetRun(ctx, userID, runID)
	if err != nil {
		return "", err
	}
	if run.RawKey == nil {
		return "", utils.NewNotFoundError("No raw output archived for this run")
	}

	raw, err := s.storage.Fetch(ctx, *run.RawKey)
	if err != nil {
		s.logger.Error("Failed to fetch archived output", "error", err, "run_id", runID, "key", *run.RawKey)
		return "", utils.NewInternalError("Failed to retrieve raw output")
	}

	return raw, nil
}

func (s *quizService) failRun(ctx context.Context, runID, message string, started time.Time) {
	if err := s.repo.FailRun(ctx, runID, message, time.Since(started).Milliseconds()); err != nil {
		s.logger.Error("Failed to mark generation run as failed", "error", err, "run_id", runID)
	}
}
