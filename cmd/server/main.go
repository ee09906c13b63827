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
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/adparams/internal/audit"
	"github.com/JonMunkholm/adparams/internal/config"
	"github.com/JonMunkholm/adparams/internal/csvio"
	"github.com/JonMunkholm/adparams/internal/logging"
	"github.com/JonMunkholm/adparams/internal/schema"
	"github.com/JonMunkholm/adparams/internal/service"
	"github.com/JonMunkholm/adparams/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	if err := run(cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openAuditStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()
	auditLog := audit.NewLogger(store)

	enc, err := csvio.ParseEncoding(cfg.Upload.InputEncoding)
	if err != nil {
		return err
	}
	svc := service.New(service.Config{
		MaxConcurrent:   cfg.Upload.MaxConcurrent,
		MaxWait:         cfg.Upload.MaxWaitTime,
		MaxFileSize:     cfg.Upload.MaxFileSize,
		DatasetTTL:      cfg.Upload.DatasetTTL,
		MaxDatasets:     cfg.Upload.MaxDatasets,
		Encoding:        enc,
		DefaultClientID: cfg.Upload.DefaultClientID,
	}, auditLog)

	slog.Info("upload schemas registered", "count", len(schema.All()), "groups", schema.Groups())

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	go auditLog.RunRetention(jobCtx, audit.RetentionConfig{
		RetentionDays: cfg.Audit.RetentionDays,
		BatchSize:     cfg.Audit.BatchSize,
		CheckInterval: cfg.Audit.CheckInterval,
	})
	go svc.StartJanitor(jobCtx, cfg.Upload.JanitorInterval)

	server := web.NewServer(cfg, svc, auditLog)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	cancelJobs()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if status := svc.Limiter().Status(); status.Active > 0 {
		slog.Info("waiting for uploads to complete", "active", status.Active)
		if err := svc.Limiter().WaitForDrain(shutdownCtx); err != nil {
			slog.Warn("uploads did not complete in time", "error", err)
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}

// openAuditStore connects to Postgres when a URL is configured and falls back
// to an in-memory store otherwise.
func openAuditStore(ctx context.Context, cfg config.DatabaseConfig) (audit.Store, func(), error) {
	if !cfg.Enabled() {
		slog.Warn("DATABASE_URL not set, audit log is kept in memory")
		return audit.NewMemoryStore(), func() {}, nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	store := audit.NewPGStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool.Close, nil
}
