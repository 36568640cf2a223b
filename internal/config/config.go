// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/inapp-redirector/internal/domain"
)

// BuildRedirectMode is the deployment's target mode, set at build time with
// -ldflags "-X github.com/ashureev/inapp-redirector/internal/config.BuildRedirectMode=fixed-destination".
// REDIRECT_MODE overrides it.
var BuildRedirectMode = "self-reopen"

// Config holds all application configuration.
type Config struct {
	Port           string
	PublicHost     string // Host the page is served under; empty accepts the request Host.
	AllowedOrigins []string
	Redirect       RedirectConfig
	Journal        JournalConfig
	StoreRateLimit RateLimitConfig
	ShutdownGrace  time.Duration
}

// RedirectConfig selects and parameterises the redirect target.
type RedirectConfig struct {
	Mode                  domain.TargetMode
	Delay                 time.Duration
	AndroidBrowserPackage string
	AndroidAppPackage     string
	IOSStoreURL           string
}

// JournalConfig controls the SQLite session journal.
type JournalConfig struct {
	Enabled   bool
	DBPath    string
	Retention time.Duration
}

// RateLimitConfig bounds requests per client IP.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	mode, err := domain.ParseTargetMode(getEnv("REDIRECT_MODE", BuildRedirectMode))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		PublicHost:     getEnv("PUBLIC_HOST", ""),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		Redirect: RedirectConfig{
			Mode:                  mode,
			Delay:                 getEnvDuration("REDIRECT_DELAY", 2*time.Second),
			AndroidBrowserPackage: getEnv("ANDROID_BROWSER_PACKAGE", "com.android.chrome"),
			AndroidAppPackage:     getEnv("ANDROID_APP_PACKAGE", ""),
			IOSStoreURL:           getEnv("IOS_STORE_URL", ""),
		},
		Journal: JournalConfig{
			Enabled:   getEnvBool("JOURNAL_ENABLED", true),
			DBPath:    getEnv("DB_PATH", "./data/redirector.db"),
			Retention: getEnvDuration("JOURNAL_RETENTION", 7*24*time.Hour),
		},
		StoreRateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvFloat("STORE_RATE_LIMIT_RPS", 5),
			Burst:             getEnvInt("STORE_RATE_LIMIT_BURST", 10),
		},
		ShutdownGrace: getEnvDuration("SHUTDOWN_GRACE", 10*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.Redirect.Delay < 0 {
		return fmt.Errorf("REDIRECT_DELAY must be >= 0")
	}
	if c.Redirect.Mode == domain.ModeFixedDestination {
		if c.Redirect.AndroidAppPackage == "" {
			return fmt.Errorf("ANDROID_APP_PACKAGE is required in fixed-destination mode")
		}
		if !strings.HasPrefix(c.Redirect.IOSStoreURL, "https://") {
			return fmt.Errorf("IOS_STORE_URL must be an https URL in fixed-destination mode")
		}
	}
	if c.Journal.Enabled && c.Journal.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty when the journal is enabled")
	}
	if c.StoreRateLimit.RequestsPerSecond <= 0 || c.StoreRateLimit.Burst <= 0 {
		return fmt.Errorf("STORE_RATE_LIMIT_RPS and STORE_RATE_LIMIT_BURST must be > 0")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// getEnvDuration accepts Go duration strings ("2s", "1h") or bare seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
