package jobs

import (
	"context"
	"time"

	"autograde-backend/internal/logger"
)

// SweepIdleSessions ends appraisal sessions nobody has touched within the
// configured idle TTL. Their running enrichments are cancelled.
func (jr *JobRunner) SweepIdleSessions() {
	jr.runWithRecovery("SweepIdleSessions", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		n, err := jr.appraisals.SweepIdleSessions(ctx)
		if err != nil {
			logger.Error("Failed to sweep idle sessions", "error", err)
			return
		}
		logger.Info("Idle sessions swept", "count", n)
	})
}

// PurgeExpiredAppraisals deletes archived appraisals older than the
// retention period.
func (jr *JobRunner) PurgeExpiredAppraisals() {
	jr.runWithRecovery("PurgeExpiredAppraisals", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		retention := time.Duration(jr.config.Scheduler.RetentionDays) * 24 * time.Hour
		n, err := jr.appraisals.PurgeExpiredRecords(ctx, retention)
		if err != nil {
			logger.Error("Failed to purge expired appraisals", "error", err)
			return
		}
		logger.Info("Purged expired appraisals", "count", n, "retention_days", jr.config.Scheduler.RetentionDays)
	})
}
