package background

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredDeleter removes rows whose expiry predates the cutoff and
// reports how many were removed.
type ExpiredDeleter interface {
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupManager periodically sweeps expired authorization codes and
// access grants. Expired rows are already unusable; the sweep only
// bounds table growth, so retention sets how long they linger for
// audit queries.
type CleanupManager struct {
	codes     ExpiredDeleter
	grants    ExpiredDeleter
	logger    *slog.Logger
	interval  time.Duration
	retention time.Duration
	stopCh    chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	codes ExpiredDeleter,
	grants ExpiredDeleter,
	logger *slog.Logger,
	interval time.Duration,
	retention time.Duration,
) *CleanupManager {
	return &CleanupManager{
		codes:     codes,
		grants:    grants,
		logger:    logger,
		interval:  interval,
		retention: retention,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic sweep task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runSweep(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// runSweep removes expired credential rows past retention
func (cm *CleanupManager) runSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-cm.retention)

	codesDeleted, err := cm.codes.DeleteExpiredBefore(sweepCtx, cutoff)
	if err != nil {
		cm.logger.Error("failed to sweep expired authorization codes", slog.Any("error", err))
	}

	grantsDeleted, err := cm.grants.DeleteExpiredBefore(sweepCtx, cutoff)
	if err != nil {
		cm.logger.Error("failed to sweep expired access grants", slog.Any("error", err))
	}

	if codesDeleted > 0 || grantsDeleted > 0 {
		cm.logger.Info("expired credential sweep completed",
			slog.Int64("codes_deleted", codesDeleted),
			slog.Int64("grants_deleted", grantsDeleted))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
