package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/catalogrecon/internal/config"
	"github.com/JonMunkholm/catalogrecon/internal/core"
	"github.com/JonMunkholm/catalogrecon/internal/ingest"
	"github.com/JonMunkholm/catalogrecon/internal/logging"
	"github.com/JonMunkholm/catalogrecon/internal/metrics"
	"github.com/JonMunkholm/catalogrecon/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"max_pairs", cfg.Reconcile.MaxPairs,
		"snapshot_cache", cfg.Reconcile.CacheSize,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"metrics_enabled", cfg.Metrics.Enabled,
	)

	reg := metrics.NewRegistry()

	service, err := core.NewService(core.ServiceConfig{
		MaxPairs:  cfg.Reconcile.MaxPairs,
		CacheSize: cfg.Reconcile.CacheSize,
	}, reg)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	limiter := ingest.NewLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	server := web.NewServer(cfg, service, reg, limiter)

	// Preload sources named by the manifest; a bad manifest is fatal, the
	// server would otherwise start with nothing to query
	if cfg.Sources.Manifest != "" {
		if err := preload(context.Background(), cfg, server); err != nil {
			slog.Error("failed to preload sources", "manifest", cfg.Sources.Manifest, "error", err)
			os.Exit(1)
		}
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := limiter.Status(); status.Active > 0 {
			slog.Info("waiting for uploads to complete", "active", status.Active)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	// Start server (uses addr from config internally)
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func preload(ctx context.Context, cfg *config.Config, server *web.Server) error {
	m, err := ingest.LoadManifest(cfg.Sources.Manifest)
	if err != nil {
		return err
	}
	if m.MaxFileSize <= 0 {
		m.MaxFileSize = cfg.Upload.MaxFileSize
	}
	src, err := m.Load(ctx)
	if err != nil {
		return err
	}
	snap, err := server.Stage(ctx, src)
	if err != nil {
		return err
	}
	sum := snap.Summary()
	slog.Info("sources preloaded",
		"snapshot", sum.ID,
		"categories", sum.Categories,
		"brands", sum.Brands,
		"warnings", len(sum.Warnings),
	)
	return nil
}
