package api

import (
	"net/http"

	"github.com/ashureev/inapp-redirector/internal/domain"
	"github.com/ashureev/inapp-redirector/internal/redirect"
)

// detectResponse is the preview of what a page load would do.
type detectResponse struct {
	redirect.Decision
	Mode           domain.TargetMode `json:"mode"`
	ShouldRedirect bool              `json:"should_redirect"`
	Log            []domain.LogEntry `json:"log"`
}

// Detect evaluates the request's user agent against ?url= without
// scheduling anything. The page URL defaults to the Referer.
func (h *Handler) Detect(w http.ResponseWriter, r *http.Request) {
	pageURL := r.URL.Query().Get("url")
	if pageURL == "" {
		pageURL = r.Referer()
	}
	if pageURL == "" {
		Error(w, http.StatusBadRequest, `The "url" query parameter is required.`)
		return
	}

	ua := r.URL.Query().Get("ua")
	if ua == "" {
		ua = r.UserAgent()
	}

	d, entries := h.ctrl.Preview(r.Context(), ua, pageURL)
	JSON(w, http.StatusOK, detectResponse{
		Decision:       d,
		Mode:           h.ctrl.Mode(),
		ShouldRedirect: d.ShouldRedirect(),
		Log:            entries,
	})
}
