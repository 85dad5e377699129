package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/perctx/perctx/internal/apperr"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("encoding error response", "error", err)
	}
}

// respondAppError maps the service error taxonomy onto HTTP statuses.
// Unclassified errors become opaque 500s so internals never leak.
func respondAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := http.StatusInternalServerError
	message := err.Error()

	switch kind {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindUpstream:
		status = http.StatusBadGateway
	default:
		slog.Error("internal error", "error", err)
		message = "internal server error"
	}
	respondError(w, status, kind.String(), message)
}
