package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPageHandler(t *testing.T) {
	h := PageHandler()

	tests := []struct {
		name        string
		path        string
		wantContain string
	}{
		{"root", "/", `id="fallback-link"`},
		{"arbitrary page", "/promo/summer?ref=ig&redirected=true", `id="fallback-link"`},
		{"script", "/assets/redirector.js", "/ws/session?url="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.wantContain) {
				t.Errorf("Expected body to contain %q", tt.wantContain)
			}
		})
	}
}
