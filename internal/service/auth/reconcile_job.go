package auth

import (
	"context"
	"time"

	"storelinker-service/internal/pkg/session"

	"go.uber.org/zap"
)

// Reconciler repairs ledger divergence for every user.
type Reconciler interface {
	ReconcileAll(ctx context.Context) (*session.ReconcileReport, error)
}

// ReconcileJob runs ReconcileAll on a fixed interval until its context ends.
type ReconcileJob struct {
	store    Reconciler
	interval time.Duration
	logger   *zap.Logger
}

func NewReconcileJob(store Reconciler, interval time.Duration, logger *zap.Logger) *ReconcileJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileJob{store: store, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled. A non-positive interval disables the job.
func (j *ReconcileJob) Run(ctx context.Context) {
	if j.interval <= 0 {
		j.logger.Info("session reconciliation job disabled")
		return
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("session reconciliation job started", zap.Duration("interval", j.interval))
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("session reconciliation job stopped")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single pass and logs the outcome.
func (j *ReconcileJob) RunOnce(ctx context.Context) *session.ReconcileReport {
	report, err := j.store.ReconcileAll(ctx)
	if err != nil {
		j.logger.Error("session reconciliation failed", zap.Error(err))
		return report
	}
	if report.SessionsAdded > 0 || report.SessionsEnded > 0 || report.Failed > 0 {
		j.logger.Info("session reconciliation finished",
			zap.Int("users", report.Users),
			zap.Int("added", report.SessionsAdded),
			zap.Int("ended", report.SessionsEnded),
			zap.Int("orphaned", report.Orphaned),
			zap.Int("failed", report.Failed),
		)
	}
	return report
}
