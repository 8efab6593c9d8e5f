package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/quizforge/quiz-generator-api/internal/middleware"
	"github.com/quizforge/quiz-generator-api/internal/utils"
)

func respondJSON(w http.ResponseWriter, logger *utils.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

func respondError(w http.ResponseWriter, logger *utils.Logger, err error) {
	var status int
	var code string
	var message string

	switch e := err.(type) {
	case *utils.AppError:
		status = e.StatusCode
		code = e.Code
		message = e.Message
	default:
		status = http.StatusInternalServerError
		code = "INTERNAL"
		message = "Internal server error"
	}

	logger.Error("Request error", "status", status, "code", code, "error", err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
		"code":  code,
	})
}

// callerID reads the identity Auth placed on the context. Routes behind Auth
// always have it; anything else answers 401 here.
func callerID(w http.ResponseWriter, r *http.Request, logger *utils.Logger) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, logger, utils.NewUnauthorizedError("Missing caller identity"))
	}
	return userID, ok
}
