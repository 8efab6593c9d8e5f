package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/quizforge/quiz-generator-api/internal/services"
	"github.com/quizforge/quiz-generator-api/internal/utils"
)

type SessionHandler struct {
	service services.SessionService
	logger  *utils.Logger
}

func NewSessionHandler(service services.SessionService, logger *utils.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		logger:  logger,
	}
}

// StartSession accepts an optional JSON body naming how many questions to
// draw; without one the server default applies.
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	var body struct {
		NumQuestions int `json:"num_questions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, h.logger, utils.NewBadRequestError("Invalid JSON body"))
		return
	}

	view, err := h.service.StartSession(r.Context(), userID, mux.Vars(r)["id"], body.NumQuestions)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, view)
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	view, err := h.service.GetSession(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, view)
}

func (h *SessionHandler) RecordAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	var body struct {
		Letter string `json:"letter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, h.logger, utils.NewBadRequestError("Request body must be JSON with a letter field"))
		return
	}

	view, err := h.service.RecordAnswer(r.Context(), userID, mux.Vars(r)["id"], body.Letter)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, view)
}

func (h *SessionHandler) Advance(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	view, err := h.service.Advance(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, view)
}

func (h *SessionHandler) Retreat(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	view, err := h.service.Retreat(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, view)
}

func (h *SessionHandler) Score(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	report, err := h.service.Score(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, report)
}

func (h *SessionHandler) Review(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	reviews, err := h.service.Review(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, reviews)
}

// Retake accepts an optional JSON body; {"new_sample": true} draws a fresh
// set of questions instead of replaying the finished one.
func (h *SessionHandler) Retake(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	var body struct {
		NewSample bool `json:"new_sample"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, h.logger, utils.NewBadRequestError("Invalid JSON body"))
		return
	}

	view, err := h.service.Retake(r.Context(), userID, mux.Vars(r)["id"], body.NewSample)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, view)
}

func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.DeleteSession(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		respondError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
