package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"autograde-backend/internal/jobs"
	"autograde-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner
func NewScheduler(jobRunner *jobs.JobRunner) *Scheduler {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	s.registerJobs()
	return s
}

// registerJobs registers the scheduled jobs. A job with a blank schedule is
// not registered.
func (s *Scheduler) registerJobs() {
	cfg := s.jobs.Config().Scheduler

	registered := 0
	register := func(name, spec string, job func()) {
		if spec == "" {
			logger.Info("Job disabled", "job", name)
			return
		}
		if _, err := s.cron.AddFunc(spec, job); err != nil {
			logger.Error("Failed to register job", "job", name, "schedule", spec, "error", err)
			return
		}
		registered++
	}

	// Idle sessions live in this process only
	register("SweepIdleSessions", cfg.SweepIdleSessions, s.jobs.SweepIdleSessions)

	// Archive retention
	register("PurgeExpiredAppraisals", cfg.PurgeExpiredAppraisals, s.jobs.PurgeExpiredAppraisals)

	logger.Info("Cron jobs registered", "count", registered)
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true if the scheduler has jobs registered
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}

// JobCount returns the number of registered jobs.
func (s *Scheduler) JobCount() int {
	return len(s.cron.Entries())
}
