package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/quizforge/quiz-generator-api/internal/models"
	"github.com/quizforge/quiz-generator-api/internal/services"
	"github.com/quizforge/quiz-generator-api/internal/utils"
	"github.com/quizforge/quiz-generator-api/internal/validator"
)

type QuizHandler struct {
	service services.QuizService
	logger  *utils.Logger
}

func NewQuizHandler(service services.QuizService, logger *utils.Logger) *QuizHandler {
	return &QuizHandler{
		service: service,
		logger:  logger,
	}
}

func (h *QuizHandler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	// Check Content-Length header first to reject oversized requests early
	if r.ContentLength > validator.MaxFileSize {
		respondError(w, h.logger, oversizeError())
		return
	}

	// Limit the request body size to prevent memory exhaustion
	r.Body = http.MaxBytesReader(w, r.Body, validator.MaxFileSize)

	if err := r.ParseMultipartForm(validator.MaxFileSize); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			respondError(w, h.logger, oversizeError())
			return
		}
		respondError(w, h.logger, utils.NewBadRequestError("Invalid form data"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, h.logger, utils.NewBadRequestError("No file provided"))
		return
	}
	defer file.Close()

	numQuestions := 0
	if v := r.FormValue("num_questions"); v != "" {
		numQuestions, err = strconv.Atoi(v)
		if err != nil {
			respondError(w, h.logger, utils.NewBadRequestError("num_questions must be an integer"))
			return
		}
	}

	// Read file data with size limit
	data, err := io.ReadAll(io.LimitReader(file, validator.MaxFileSize+1))
	if err != nil {
		respondError(w, h.logger, utils.NewInternalError("Failed to read file"))
		return
	}

	if len(data) > validator.MaxFileSize {
		respondError(w, h.logger, oversizeError())
		return
	}
	if len(data) == 0 {
		respondError(w, h.logger, utils.NewBadRequestError("Uploaded file is empty"))
		return
	}

	h.logger.Info("Quiz upload attempt",
		"filename", header.Filename,
		"size", len(data),
		"num_questions", numQuestions,
		"user_id", userID)

	req := &models.CreateQuizRequest{
		File:         data,
		Filename:     header.Filename,
		Size:         int64(len(data)),
		NumQuestions: numQuestions,
		UserID:       userID,
	}

	resp, err := h.service.CreateQuiz(r.Context(), req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, resp)
}

func (h *QuizHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	runs, err := h.service.ListRuns(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, runs)
}

func (h *QuizHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	run, err := h.service.GetRun(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, run)
}

func (h *QuizHandler) GetRunRawOutput(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	raw, err := h.service.GetRunRawOutput(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, raw)
}

func oversizeError() *utils.AppError {
	return utils.NewAppError(http.StatusBadRequest, "FILE_VALIDATION",
		fmt.Sprintf("File size exceeds the %d MiB limit", validator.MaxFileSize>>20), nil)
}
