package audit

// scheduler.go runs the retention job that purges old audit entries.
//
// The job is long-running and stops with its context. A failed run is logged
// and retried on the next tick; it never stops the server.

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig controls the retention job.
type RetentionConfig struct {
	RetentionDays int           // Entries older than this are purged (default: 90)
	BatchSize     int           // Rows per delete statement (default: 5000)
	CheckInterval time.Duration // How often to run (default: 24h)
}

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 90
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 5000
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	return c
}

// RunRetention purges once immediately, then every CheckInterval until ctx is done.
func (l *Logger) RunRetention(ctx context.Context, cfg RetentionConfig) {
	cfg = cfg.withDefaults()
	slog.Info("audit retention started",
		"retention_days", cfg.RetentionDays,
		"batch_size", cfg.BatchSize,
		"interval", cfg.CheckInterval.String(),
	)

	l.runRetentionJob(ctx, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("audit retention stopped")
			return
		case <-ticker.C:
			l.runRetentionJob(ctx, cfg)
		}
	}
}

func (l *Logger) runRetentionJob(ctx context.Context, cfg RetentionConfig) {
	start := time.Now()
	purged, err := l.Purge(ctx, cfg.RetentionDays, cfg.BatchSize)
	if err != nil {
		slog.Error("audit purge failed", "error", err)
		return
	}
	slog.Info("purged old audit entries",
		"entries_purged", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
