package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/quizforge/quiz-generator-api/internal/handlers"
	"github.com/quizforge/quiz-generator-api/internal/middleware"
	"github.com/quizforge/quiz-generator-api/internal/services"
	"github.com/quizforge/quiz-generator-api/internal/utils"
)

func NewRouter(quizService services.QuizService, sessionService services.SessionService, logger *utils.Logger) http.Handler {
	r := mux.NewRouter()

	// Middlewares
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS())
	r.Use(middleware.Recovery(logger))

	quizHandler := handlers.NewQuizHandler(quizService, logger)
	sessionHandler := handlers.NewSessionHandler(sessionService, logger)

	// Routes
	api := r.PathPrefix("/api/v1").Subrouter()

	// Health check stays open; everything else needs a caller identity.
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	protected := api.PathPrefix("/").Subrouter()
	protected.Use(middleware.Auth())

	// Quiz generation
	protected.HandleFunc("/quizzes", quizHandler.CreateQuiz).Methods(http.MethodPost)

	// Quiz sessions
	protected.HandleFunc("/quizzes/{id}/sessions", sessionHandler.StartSession).Methods(http.MethodPost)
	protected.HandleFunc("/sessions/{id}", sessionHandler.GetSession).Methods(http.MethodGet)
	protected.HandleFunc("/sessions/{id}", sessionHandler.DeleteSession).Methods(http.MethodDelete)
	protected.HandleFunc("/sessions/{id}/answers", sessionHandler.RecordAnswer).Methods(http.MethodPost)
	protected.HandleFunc("/sessions/{id}/next", sessionHandler.Advance).Methods(http.MethodPost)
	protected.HandleFunc("/sessions/{id}/previous", sessionHandler.Retreat).Methods(http.MethodPost)
	protected.HandleFunc("/sessions/{id}/retake", sessionHandler.Retake).Methods(http.MethodPost)
	protected.HandleFunc("/sessions/{id}/score", sessionHandler.Score).Methods(http.MethodGet)
	protected.HandleFunc("/sessions/{id}/review", sessionHandler.Review).Methods(http.MethodGet)

	// Generation run audit trail
	protected.HandleFunc("/generation-runs", quizHandler.ListRuns).Methods(http.MethodGet)
	protected.HandleFunc("/generation-runs/{id}", quizHandler.GetRun).Methods(http.MethodGet)
	protected.HandleFunc("/generation-runs/{id}/raw", quizHandler.GetRunRawOutput).Methods(http.MethodGet)

	return r
}
