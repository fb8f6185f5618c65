package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/wingufactory/moodboard/backend/internal/infrastructure/observability"
	apperrors "github.com/wingufactory/moodboard/backend/pkg/errors"
)

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps err to a status code. Messages of client-facing
// error types are returned as is; everything else is logged and replaced by fallback.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := statusForError(err)

	message := fallback
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && (status < http.StatusInternalServerError || status == http.StatusServiceUnavailable) {
		message = appErr.Message
	}

	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		observability.LoggerFromContext(r.Context()).Error().
			Err(err).
			Str("path", r.URL.Path).
			Msg(fallback)
	}
	respondWithError(w, status, message)
}

func statusForError(err error) int {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeExternal:
		return http.StatusBadGateway
	case apperrors.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
