package cron

import (
	"context"
	"time"

	"notifyhub/services/scheduler"

	"go.uber.org/zap"
)

// InitReminderWorker runs the reminder sweep on a fixed interval until the
// context is cancelled. One sweep runs at a time; a slow sweep simply delays
// the next tick.
func InitReminderWorker(ctx context.Context, sweeper *scheduler.Sweeper, interval time.Duration, logger *zap.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		logger.Info("reminder worker started", zap.Duration("interval", interval))

		for {
			select {
			case <-ctx.Done():
				logger.Info("reminder worker shutting down")
				return
			case <-ticker.C:
				report := sweeper.Sweep(ctx)
				if report.Processed > 0 || report.Failed > 0 {
					logger.Info("reminder sweep finished",
						zap.Int("processed", report.Processed),
						zap.Int("failed", report.Failed),
						zap.Strings("errors", report.Errors))
				}
			}
		}
	}()
}
