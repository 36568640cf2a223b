package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the API routes. storeLimit wraps the store
// redirect endpoint, which is the only one embedding apps hit directly.
func (h *Handler) RegisterRoutes(r chi.Router, storeLimit func(http.Handler) http.Handler) {
	r.Route("/api", func(r chi.Router) {
		r.With(storeLimit).Get("/redirectToStore", h.RedirectToStore)
		r.Get("/detect", h.Detect)
		r.Get("/sessions/{id}", h.GetSession)
		r.Get("/sessions/stats", h.SessionStats)
	})
}

// RegisterHealth registers the health check route.
func (h *Handler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
