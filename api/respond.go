package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"pairchat/errors"
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondDomainError translates a service error to its HTTP status.
func respondDomainError(w http.ResponseWriter, err error) {
	respondError(w, errors.MapToHTTPStatus(err), err.Error())
}
