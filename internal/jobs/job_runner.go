package jobs

import (
	"fmt"

	"autograde-backend/internal/config"
	"autograde-backend/internal/logger"
	"autograde-backend/internal/repository"
	"autograde-backend/internal/service"
	"autograde-backend/internal/storage"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	appraisals service.AppraisalService
	config     *config.Config
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(appraisals service.AppraisalService, cfg *config.Config) *JobRunner {
	return &JobRunner{
		appraisals: appraisals,
		config:     cfg,
	}
}

// NewArchiveJobRunner builds a runner for a process that holds no live
// sessions. Purged records still take their stored photos with them, so the
// configured photo storage is opened here too.
func NewArchiveJobRunner(cfg *config.Config, repo repository.AppraisalRepository) (*JobRunner, error) {
	photos, err := storage.NewLocalStorage(cfg.Storage.BaseURL, cfg.Storage.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("open photo storage: %w", err)
	}
	svc := service.NewAppraisalService(service.NewSessionStore(), repo, photos, nil, service.AppraisalOptions{})
	cfg.Scheduler.SweepIdleSessions = ""
	return NewJobRunner(svc, cfg), nil
}

// Config returns the configuration the runner was built with.
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RunAllMaintenanceJobs runs every job once (for manual execution)
func (jr *JobRunner) RunAllMaintenanceJobs() {
	jr.SweepIdleSessions()
	jr.PurgeExpiredAppraisals()
}
