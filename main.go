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

	"github.com/joho/godotenv"
	"github.com/msomdec/pyq-archive/internal/blob/oss"
	"github.com/msomdec/pyq-archive/internal/config"
	"github.com/msomdec/pyq-archive/internal/domain"
	"github.com/msomdec/pyq-archive/internal/handler"
	"github.com/msomdec/pyq-archive/internal/identity"
	"github.com/msomdec/pyq-archive/internal/repository/sqlite"
	"github.com/msomdec/pyq-archive/internal/service"
)

func main() {
	logOpts := &slog.HandlerOptions{Level: slog.LevelInfo}
	logger := slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	))
	slog.SetDefault(logger)

	// A missing .env file is fine; the environment may already be set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("load .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations applied")

	deps := handler.Deps{
		Users:         db.Users(),
		Gateway:       identity.NewGateway(db.Accounts(), db.AuthSessions(), cfg.JWTSecret, cfg.BcryptCost),
		Views:         service.NewViewCache(cfg.ViewCacheSize, cfg.ViewCacheTTL),
		Catalog:       service.NewCatalog(db.Pyqs()),
		Health:        db,
		CookieSecure:  cfg.CookieSecure,
		ToastDuration: cfg.ToastDuration,
	}

	var blobs domain.BlobStore
	switch cfg.BlobBackend {
	case config.BlobBackendOSS:
		store, err := oss.New(oss.Config{
			Endpoint:        cfg.OSS.Endpoint,
			Bucket:          cfg.OSS.Bucket,
			AccessKeyID:     cfg.OSS.AccessKeyID,
			AccessKeySecret: cfg.OSS.AccessKeySecret,
			PublicBase:      cfg.OSS.PublicBase,
		})
		if err != nil {
			slog.Error("failed to create OSS blob store", "error", err)
			os.Exit(1)
		}
		blobs = store
	default:
		store := db.Blobs(cfg.BlobPublicBase)
		blobs = store
		deps.Files = store
	}
	slog.Info("blob store ready", "backend", cfg.BlobBackend)
	deps.Console = service.NewConsole(db.Pyqs(), blobs)

	if cfg.OrphanSweepSchedule != "" {
		sweeper := service.NewOrphanSweeper(db.Pyqs(), blobs, cfg.OrphanSweepGrace)
		c, err := sweeper.Schedule(cfg.OrphanSweepSchedule)
		if err != nil {
			slog.Error("invalid ORPHAN_SWEEP_SCHEDULE", "error", err)
			os.Exit(1)
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
		slog.Info("orphan sweep scheduled", "schedule", cfg.OrphanSweepSchedule, "grace", cfg.OrphanSweepGrace)
	}

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Metrics(handler.SecurityHeaders(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
