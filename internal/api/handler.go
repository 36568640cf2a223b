// Package api provides HTTP handlers for the redirector API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ashureev/inapp-redirector/internal/metrics"
	"github.com/ashureev/inapp-redirector/internal/redirect"
	"github.com/ashureev/inapp-redirector/internal/store"
)

// Handler provides the API endpoints and their common dependencies.
// repo may be nil when the session journal is disabled.
type Handler struct {
	repo    store.Repository
	ctrl    *redirect.Controller
	metrics *metrics.Metrics
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, ctrl *redirect.Controller, m *metrics.Metrics) *Handler {
	return &Handler{
		repo:    repo,
		ctrl:    ctrl,
		metrics: m,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
