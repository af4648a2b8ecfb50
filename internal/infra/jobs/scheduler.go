package jobs

import (
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/secboard/api/pkg/logger"
)

// Scheduler periodically enqueues maintenance tasks on a cron schedule.
type Scheduler struct {
	scheduler *asynq.Scheduler
	logger    *logger.Logger
}

// NewScheduler creates a scheduler that enqueues a retention sweep on
// the given cron spec.
func NewScheduler(cfg ClientConfig, retentionSpec string, log *logger.Logger) (*Scheduler, error) {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		nil,
	)

	task, err := NewRetentionSweepTask(RetentionSweepPayload{})
	if err != nil {
		return nil, fmt.Errorf("failed to create retention task: %w", err)
	}

	entryID, err := scheduler.Register(retentionSpec, task)
	if err != nil {
		return nil, fmt.Errorf("failed to register retention schedule: %w", err)
	}
	log.Info("retention sweep scheduled",
		"spec", retentionSpec,
		"entry_id", entryID,
	)

	return &Scheduler{
		scheduler: scheduler,
		logger:    log.With("component", "job_scheduler"),
	}, nil
}

// Run starts the scheduler and blocks until shutdown.
func (s *Scheduler) Run() error {
	s.logger.Info("starting job scheduler")
	return s.scheduler.Run()
}

// Stop shuts the scheduler down.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping job scheduler")
	s.scheduler.Shutdown()
}
