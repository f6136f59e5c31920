package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"coderoom/internal/service"

	"github.com/rs/zerolog/log"
)

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrRoomNotFound), errors.Is(err, service.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrAccessDenied), errors.Is(err, service.ErrNotAuthorized):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrInvalidPayload), errors.Is(err, service.ErrInvalidMode):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUpstreamUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		log.Error().Str("module", "rest").Err(err).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  service.ErrorCode(err),
	})
}
