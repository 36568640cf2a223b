// In-app browser redirector server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/inapp-redirector/internal/api"
	"github.com/ashureev/inapp-redirector/internal/config"
	"github.com/ashureev/inapp-redirector/internal/metrics"
	"github.com/ashureev/inapp-redirector/internal/middleware"
	"github.com/ashureev/inapp-redirector/internal/page"
	"github.com/ashureev/inapp-redirector/internal/redirect"
	"github.com/ashureev/inapp-redirector/internal/store"
	"github.com/ashureev/inapp-redirector/internal/target"
	"github.com/ashureev/inapp-redirector/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "mode", cfg.Redirect.Mode.String(), "delay", cfg.Redirect.Delay)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	var (
		repo     store.Repository
		recorder redirect.Recorder
	)
	if cfg.Journal.Enabled {
		sqlite, err := store.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer func() {
			if closeErr := sqlite.Close(); closeErr != nil {
				slog.Error("Failed to close repository", "error", closeErr)
			}
		}()

		if err := sqlite.Ping(ctx); err != nil {
			slog.Error("Database health check failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Database connected", "path", cfg.Journal.DBPath)

		repo, recorder = sqlite, sqlite
		store.StartRetentionWorker(ctx, sqlite, cfg.Journal.Retention, store.DefaultRetentionInterval)
	} else {
		slog.Info("Session journal disabled")
	}

	builder, err := target.New(target.Options{
		Mode:                  cfg.Redirect.Mode,
		AndroidBrowserPackage: cfg.Redirect.AndroidBrowserPackage,
		AndroidAppPackage:     cfg.Redirect.AndroidAppPackage,
		IOSStoreURL:           cfg.Redirect.IOSStoreURL,
	})
	if err != nil {
		slog.Error("Failed to initialize redirect target builder", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	ctrl := redirect.NewController(redirect.Config{
		Builder:  builder,
		Delay:    cfg.Redirect.Delay,
		Recorder: recorder,
		Metrics:  m,
		Logger:   logger,
	})

	// Initialize handlers.
	registry := page.NewRegistry()
	wsHandler := page.NewHandler(ctrl, registry, cfg.PublicHost)
	apiHandler := api.NewHandler(repo, ctrl, m)
	storeLimiter := middleware.NewRateLimiter(cfg.StoreRateLimit.RequestsPerSecond, cfg.StoreRateLimit.Burst)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Public routes.
	apiHandler.RegisterHealth(r)
	apiHandler.RegisterRoutes(r, storeLimiter.Middleware)
	r.Handle("/metrics", m.Handler())

	// WebSocket endpoint.
	r.Get("/ws/session", wsHandler.ServeHTTP)

	// Serve the embedded redirector page on every other path.
	r.Handle("/*", web.PageHandler())

	// Page sockets are long lived, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...", "open_pages", registry.Len())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	// Hijacked page sockets are not tracked by Shutdown; close them first so
	// their sessions are cancelled and journaled.
	registry.CloseAll("server shutting down")
	if err := registry.Wait(shutdownCtx); err != nil {
		slog.Warn("Pages still open at shutdown", "open_pages", registry.Len(), "error", err)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
