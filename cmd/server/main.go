// Package main is the entry point for the skillshare API server.
//
// The main package stays small: it loads configuration, builds the logger
// and the optional infrastructure (Redis, the Docker sandbox), then hands
// everything to internal/server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/sakif/skillshare/internal/config"
	"github.com/sakif/skillshare/internal/executor/docker"
	"github.com/sakif/skillshare/internal/ratelimit"
	"github.com/sakif/skillshare/internal/server"
)

func main() {
	// === 1. CONFIGURATION ===
	// .env, config.yml and the environment, validated before anything starts.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. LOGGING ===
	// Colored text for humans in development, JSON for log shippers elsewhere.
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	// === 3. SHUTDOWN SIGNALS ===
	// ctx is cancelled on Ctrl+C or SIGTERM; Start drains requests when it is.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []server.Option

	// === 4. RATE LIMIT STORE ===
	// Redis shares counters across replicas. Without it each process counts
	// on its own.
	if cfg.RedisURL != "" {
		store, err := ratelimit.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, rate limiting in memory",
				slog.String("error", err.Error()),
			)
		} else {
			defer store.Close()
			opts = append(opts, server.WithRateLimitStore(store))
		}
	}

	// === 5. CODE SANDBOX ===
	// Optional: without Docker the server starts and code runs answer 503.
	if cfg.ExecutorEnabled {
		dockerCfg := docker.DefaultConfig()
		if cfg.ExecutorTimeout > 0 {
			dockerCfg.Timeout = cfg.ExecutorTimeout
		}
		if cfg.ExecutorPoolSize > 0 {
			dockerCfg.PoolSize = cfg.ExecutorPoolSize
		}

		exec, err := docker.New(dockerCfg, logger)
		if err != nil {
			logger.Warn("docker executor unavailable, code runs disabled",
				slog.String("error", err.Error()),
			)
		} else {
			defer exec.Close()
			opts = append(opts, server.WithExecutor(exec))
		}
	}

	// === 6. START ===
	srv, err := server.New(cfg, logger, opts...)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until ctx is cancelled or the listener fails.
	if err := srv.Start(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsDevelopment() {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:      slog.LevelDebug,
			AddSource:  true,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
