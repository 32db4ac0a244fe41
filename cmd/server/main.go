package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/studyhall/progress-ledger/internal/api"
	"github.com/studyhall/progress-ledger/internal/catalog"
	"github.com/studyhall/progress-ledger/internal/ledger"
	"github.com/studyhall/progress-ledger/internal/platform/cache"
	"github.com/studyhall/progress-ledger/internal/platform/config"
	"github.com/studyhall/progress-ledger/internal/platform/database"
	"github.com/studyhall/progress-ledger/internal/roster"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	checks := map[string]api.HealthChecker{"database": db}

	var (
		feed      ledger.Feed = ledger.NopFeed{}
		feedSrc   ledger.FeedSource
		snapshots *ledger.SnapshotCache
	)
	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			slog.Error("failed to connect to cache", "error", err)
			os.Exit(1)
		}
		defer c.Close()

		redisFeed := ledger.NewRedisFeed(c)
		feed = redisFeed
		feedSrc = redisFeed
		snapshots = ledger.NewSnapshotCache(c, cfg.Cache.ProgressTTL)
		checks["cache"] = c
	}

	activities, err := catalog.NewLoader(cfg.CatalogPath)
	if err != nil {
		slog.Error("failed to load activity catalog", "error", err)
		os.Exit(1)
	}

	directory, err := roster.NewPostgresDirectory(db.Pool)
	if err != nil {
		slog.Error("failed to create roster directory", "error", err)
		os.Exit(1)
	}

	store, err := ledger.NewPostgresStore(db.Pool)
	if err != nil {
		slog.Error("failed to create ledger store", "error", err)
		os.Exit(1)
	}

	ldg := ledger.New(ledger.Config{
		Store:                store,
		Catalog:              activities,
		Directory:            directory,
		Feed:                 feed,
		Snapshots:            snapshots,
		LevelPointsThreshold: cfg.Ledger.LevelPointsThreshold,
		SubmitMaxAttempts:    cfg.Ledger.SubmitMaxAttempts,
		SubmitRetryBackoff:   cfg.Ledger.SubmitRetryBackoff,
	})

	server := api.New(api.Config{
		Ledger:    ldg,
		Directory: directory,
		Feed:      feedSrc,
		Checks:    checks,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Mux(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func setupLogger(cfg *config.Config) {
	var level slog.Level
	_ = level.UnmarshalText([]byte(cfg.SlogLevel()))

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Log.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
