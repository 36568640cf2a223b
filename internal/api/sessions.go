package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/inapp-redirector/internal/store"
	"github.com/go-chi/chi/v5"
)

const (
	healthCheckTimeout = 5 * time.Second
	defaultStatsWindow = 24 * time.Hour
)

// GetSession returns a journaled session with its diagnostic log.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		Error(w, http.StatusNotFound, "session journal is disabled")
		return
	}

	rec, err := h.repo.GetSession(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		Error(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		slog.Error("Failed to load session", "error", err)
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	JSON(w, http.StatusOK, rec)
}

// SessionStats returns closed-session counts by final state over ?window=
// (a Go duration, default 24h).
func (h *Handler) SessionStats(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		Error(w, http.StatusNotFound, "session journal is disabled")
		return
	}

	window := defaultStatsWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			Error(w, http.StatusBadRequest, "window must be a positive duration")
			return
		}
		window = d
	}

	counts, err := h.repo.CountByState(r.Context(), time.Now().Add(-window))
	if err != nil {
		slog.Error("Failed to count sessions", "error", err)
		Error(w, http.StatusInternalServerError, "failed to count sessions")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"window": window.String(),
		"counts": counts,
	})
}

// Health returns the health status of the API and its dependencies.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status": "healthy",
		"mode":   h.ctrl.Mode().String(),
		"checks": checks,
	}
	statusCode := http.StatusOK

	switch {
	case h.repo == nil:
		checks["database"] = "disabled"
	case h.repo.Ping(ctx) != nil:
		slog.Error("Health check failed", "check", "database")
		status["status"] = "degraded"
		checks["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	default:
		checks["database"] = "ok"
	}

	JSON(w, statusCode, status)
}
