// Package main is the entrypoint for the gitverified relay server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kiranshivaraju/gitverified/internal/api"
	"github.com/kiranshivaraju/gitverified/internal/api/handler"
	mw "github.com/kiranshivaraju/gitverified/internal/api/middleware"
	"github.com/kiranshivaraju/gitverified/internal/api/response"
	"github.com/kiranshivaraju/gitverified/internal/backend"
	"github.com/kiranshivaraju/gitverified/internal/cache"
	"github.com/kiranshivaraju/gitverified/internal/config"
	"github.com/kiranshivaraju/gitverified/internal/kestra"
	"github.com/kiranshivaraju/gitverified/internal/ollama"
	"github.com/kiranshivaraju/gitverified/internal/pipeline"
	"github.com/kiranshivaraju/gitverified/internal/status"
	"github.com/kiranshivaraju/gitverified/internal/storage"
	"github.com/kiranshivaraju/gitverified/internal/store"
)

const (
	shutdownTimeout = 30 * time.Second

	// single evaluations wait on model inference in the backend
	writeTimeout = 10 * time.Minute
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, failing fast when invalid
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"env", cfg.Server.Env,
		"backend_url", cfg.Backend.BaseURL,
		"kestra_url", cfg.Kestra.BaseURL,
		"interpreters", cfg.Pipeline.Interpreters)
	if cfg.Kestra.UsingDefaultCredentials() {
		slog.Warn("using built-in Kestra credentials; set KESTRA_USERNAME and KESTRA_PASSWORD")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Optional database for run history and the leaderboard
	var st store.Store
	if cfg.Database.URL != "" {
		pool, err := store.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		slog.Info("database connected")

		if err := store.RunMigrations(cfg.Database.URL); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		slog.Info("database migrations applied")

		st = store.NewPostgresStore(pool)
	} else {
		slog.Info("DATABASE_URL not set; run history disabled, serving demo leaderboard")
	}

	// 3. Optional Redis for rate limiting
	var rc cache.Cache
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis cache: %w", err)
		}
		defer redisCache.Close()

		if err := redisCache.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		slog.Info("redis connected")
		rc = redisCache
	} else {
		slog.Info("REDIS_URL not set; rate limiting disabled")
	}

	// 4. Build router with dependencies
	router := newRouter(cfg, st, rc)

	// 5. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// newRouter wires clients and handlers. st and c may be nil.
func newRouter(cfg *config.Config, st store.Store, c cache.Cache) http.Handler {
	backendClient := backend.NewHTTPClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	ollamaClient := ollama.NewHTTPClient(cfg.Ollama.BaseURL, cfg.Server.ProbeTimeout)
	kestraClient := kestra.NewHTTPClient(cfg.Kestra.BaseURL, cfg.Kestra.Namespace, cfg.Kestra.Flow,
		cfg.Kestra.Username, cfg.Kestra.Password, cfg.Kestra.Timeout)

	prober := status.NewProber(backendClient, ollamaClient, kestraClient, cfg.Server.ProbeTimeout)

	var (
		recorder   pipeline.Recorder
		candidates handler.CandidateLister
		runs       handler.RunReader
	)
	if st != nil {
		recorder, candidates, runs = st, st, st
	}

	trigger := pipeline.New(storage.NewLocal(cfg.Pipeline.DataDir), kestraClient, pipeline.ExecRunner{}, recorder,
		pipeline.Options{
			MountDir:      cfg.Pipeline.MountDir,
			ScriptPath:    cfg.Pipeline.ScriptPath,
			Interpreters:  cfg.Pipeline.Interpreters,
			ScriptTimeout: cfg.Pipeline.ScriptTimeout,
		})

	var rateLimit *mw.RateLimit
	if c != nil {
		rateLimit = mw.NewRateLimit(c, "relay", cfg.Redis.RequestsPerMin)
	}

	maxBytes := cfg.Server.MaxUploadBytes
	return api.NewRouter(api.Dependencies{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		WebhookAuth:    mw.NewWebhookAuth(cfg.Webhook.TokenHash),
		RateLimit:      rateLimit,

		HealthHandler:      healthHandler(st, c),
		StatusHandler:      handler.NewStatusHandler(prober),
		UploadHandler:      handler.NewUploadHandler(storage.NewLocal(cfg.Storage.UploadDir), cfg.Storage.UploadURLPrefix, maxBytes),
		EvaluateHandler:    handler.NewEvaluateHandler(backendClient, maxBytes),
		BatchHandler:       handler.NewBatchHandler(backendClient),
		ProgressHandler:    handler.NewProgressHandler(backendClient),
		StopHandler:        handler.NewStopHandler(backendClient),
		TriggerHandler:     handler.NewTriggerHandler(trigger, maxBytes),
		WebhookHandler:     handler.NewWebhookHandler(validator.New()),
		ResumeLinksHandler: handler.NewResumeLinksHandler(maxBytes),
		LeaderboardHandler: handler.NewLeaderboardHandler(candidates),
		ListRunsHandler:    handler.NewListRunsHandler(runs),
		GetRunHandler:      handler.NewGetRunHandler(runs),
	})
}

// pinger is satisfied by store.Store and cache.Cache.
type pinger interface {
	Ping(ctx context.Context) error
}

// healthHandler reports liveness and the state of the optional stores. It
// answers 200 even when a store is degraded; the relays work without them.
func healthHandler(st store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, map[string]any{
			"status": "ok",
			"services": map[string]string{
				"database": checkService(r.Context(), st),
				"cache":    checkService(r.Context(), c),
			},
		})
	}
}

func checkService(ctx context.Context, p pinger) string {
	if p == nil {
		return "disabled"
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return "degraded"
	}
	return "ok"
}
