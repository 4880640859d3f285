package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/coursetrack/internal/blob"
	"github.com/JonMunkholm/coursetrack/internal/config"
	"github.com/JonMunkholm/coursetrack/internal/core"
	"github.com/JonMunkholm/coursetrack/internal/database"
	"github.com/JonMunkholm/coursetrack/internal/logging"
	"github.com/JonMunkholm/coursetrack/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool); err != nil {
			slog.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		slog.Info("database schema applied")
	}

	blobs, err := blob.New(cfg.Storage)
	if err != nil {
		slog.Error("failed to configure certificate storage", "error", err)
		os.Exit(1)
	}
	slog.Info("certificate storage ready", "destination", strings.ToUpper(cfg.Storage.Destination))

	service := core.NewService(core.Stores{
		Taxonomy:    database.NewTaxonomyStore(pool),
		Catalog:     database.NewCatalogStore(pool),
		Submissions: database.NewSubmissionStore(pool),
		Runs:        database.NewRunStore(pool),
	}, blobs, core.Options{
		Submission: core.SubmissionOptions{
			MaxFileSize:        cfg.Submission.MaxFileSize,
			UnlistedCourseCode: cfg.Submission.UnlistedCourseCode,
		},
		MaxConcurrentRuns: cfg.Upload.MaxConcurrent,
		MaxRunWait:        cfg.Upload.MaxWaitTime,
		RunTimeout:        cfg.Upload.Timeout,
	})

	server := web.NewServer(service, cfg)

	// Background jobs stop when jobCtx is canceled.
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	var jobs sync.WaitGroup
	if cfg.Feed.Enabled {
		watcher := core.NewFeedWatcher(service, cfg.Feed.Dir, cfg.Feed.Interval, cfg.Upload.MaxFileSize)
		jobs.Add(1)
		go func() {
			defer jobs.Done()
			watcher.Run(jobCtx)
		}()
		slog.Info("feed watcher started", "dir", cfg.Feed.Dir, "interval", cfg.Feed.Interval)
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for catalog refreshes to complete", "active", status.Active)
			if err := service.WaitForRuns(shutdownCtx); err != nil {
				slog.Warn("catalog refreshes did not complete in time", "error", err)
			} else {
				slog.Info("all catalog refreshes completed")
			}
		}
		jobs.Wait()
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		cancelJobs()
		os.Exit(1)
	}
	<-shutdownDone
	slog.Info("server stopped")
}
