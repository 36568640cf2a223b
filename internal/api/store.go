package api

import (
	"log/slog"
	"net/http"
	"net/url"
)

const missingPackageIDMessage = `The "packageId" query parameter is required.`

// RedirectToStore answers GET ?packageId=<id> with a 302 to the market
// scheme, for embedding apps that only follow https links.
func (h *Handler) RedirectToStore(w http.ResponseWriter, r *http.Request) {
	packageID := r.URL.Query().Get("packageId")
	if packageID == "" {
		h.metrics.StoreRedirect("missing_package")
		Error(w, http.StatusBadRequest, missingPackageIDMessage)
		return
	}

	targetURL := "market://details?id=" + url.QueryEscape(packageID)
	slog.Info("Store redirect", "package_id", packageID, "target", targetURL)
	h.metrics.StoreRedirect("ok")

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Location", targetURL)
	w.WriteHeader(http.StatusFound)
}
