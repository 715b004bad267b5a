package service

import (
	"context"
	"log/slog"
	"time"
)

// SessionExpirer flags active sessions whose deadline has passed.
type SessionExpirer interface {
	MarkExpired(ctx context.Context) (int64, error)
}

// ExpiryWorker periodically moves stale active sessions to expired so
// abandoned enrollments do not stay open.
type ExpiryWorker struct {
	expirer  SessionExpirer
	logger   *slog.Logger
	interval time.Duration
}

func NewExpiryWorker(expirer SessionExpirer, logger *slog.Logger, interval time.Duration) *ExpiryWorker {
	return &ExpiryWorker{
		expirer:  expirer,
		logger:   logger,
		interval: interval,
	}
}

// Run starts the worker loop
func (w *ExpiryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("session expiry worker started", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("session expiry worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	n, err := w.expirer.MarkExpired(ctx)
	if err != nil {
		w.logger.Error("failed to expire sessions", "error", err)
		return
	}

	if n > 0 {
		w.logger.Info("expired enrollment sessions", "count", n)
	} else {
		w.logger.Debug("session expiry sweep completed")
	}
}
