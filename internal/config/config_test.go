package config

import (
	"strings"
	"testing"
	"time"

	"github.com/ashureev/inapp-redirector/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Redirect.Mode != domain.ModeSelfReopen {
		t.Errorf("Mode = %v, want self-reopen", cfg.Redirect.Mode)
	}
	if cfg.Redirect.Delay != 2*time.Second {
		t.Errorf("Delay = %v, want 2s", cfg.Redirect.Delay)
	}
	if cfg.Redirect.AndroidBrowserPackage != "com.android.chrome" {
		t.Errorf("AndroidBrowserPackage = %q", cfg.Redirect.AndroidBrowserPackage)
	}
	if !cfg.Journal.Enabled {
		t.Error("Expected journal enabled by default")
	}
}

func TestLoad_FixedDestination(t *testing.T) {
	t.Setenv("REDIRECT_MODE", "fixed-destination")
	t.Setenv("ANDROID_APP_PACKAGE", "com.example.app")
	t.Setenv("IOS_STORE_URL", "https://apps.apple.com/us/app/example/id1")
	t.Setenv("REDIRECT_DELAY", "1.5")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Redirect.Mode != domain.ModeFixedDestination {
		t.Errorf("Mode = %v, want fixed-destination", cfg.Redirect.Mode)
	}
	if cfg.Redirect.Delay != 1500*time.Millisecond {
		t.Errorf("Delay = %v, want 1.5s", cfg.Redirect.Delay)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoad_BuildModeOverridden(t *testing.T) {
	prev := BuildRedirectMode
	BuildRedirectMode = "fixed-destination"
	defer func() { BuildRedirectMode = prev }()

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "ANDROID_APP_PACKAGE") {
		t.Errorf("Expected fixed-destination validation error from build mode, got %v", err)
	}

	t.Setenv("REDIRECT_MODE", "self-reopen")
	if _, err := Load(); err != nil {
		t.Errorf("Expected env to override build mode, got %v", err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad mode", map[string]string{"REDIRECT_MODE": "sideways"}},
		{"empty port", map[string]string{"PORT": ""}},
		{"fixed without store url", map[string]string{"REDIRECT_MODE": "fixed", "ANDROID_APP_PACKAGE": "com.x"}},
		{"empty db path", map[string]string{"DB_PATH": ""}},
		{"zero burst", map[string]string{"STORE_RATE_LIMIT_BURST": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("FLAG", "off")
	if getEnvBool("FLAG", true) {
		t.Error("Expected false for off")
	}
	t.Setenv("FLAG", "maybe")
	if !getEnvBool("FLAG", true) {
		t.Error("Expected fallback for unparseable value")
	}
}
