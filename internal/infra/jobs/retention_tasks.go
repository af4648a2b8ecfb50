package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/secboard/api/internal/app/retention"
	"github.com/secboard/api/internal/metrics"
	"github.com/secboard/api/pkg/logger"
)

// TypeRetentionSweep deletes aged-out logs and records.
const TypeRetentionSweep = "maintenance:retention_sweep"

// QueueMaintenance is the queue maintenance tasks run on.
const QueueMaintenance = "maintenance"

// RetentionSweepPayload is the payload for retention sweep tasks.
type RetentionSweepPayload struct {
	// DryRun overrides the configured dry-run flag when true.
	DryRun bool `json:"dry_run,omitempty"`
}

// NewRetentionSweepTask creates a retention sweep task.
func NewRetentionSweepTask(payload RetentionSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeRetentionSweep, data,
		asynq.Queue(QueueMaintenance),
		asynq.MaxRetry(2),
	), nil
}

// RetentionTaskHandler runs retention sweeps.
type RetentionTaskHandler struct {
	service *retention.Service
	logger  *logger.Logger
}

// NewRetentionTaskHandler creates a new RetentionTaskHandler.
func NewRetentionTaskHandler(service *retention.Service, log *logger.Logger) *RetentionTaskHandler {
	return &RetentionTaskHandler{
		service: service,
		logger:  log.With("component", "retention_task_handler"),
	}
}

// HandleRetentionSweep handles one sweep task.
func (h *RetentionTaskHandler) HandleRetentionSweep(ctx context.Context, task *asynq.Task) error {
	var payload RetentionSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		metrics.JobsTotal.WithLabelValues(TypeRetentionSweep, "failed").Inc()
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	report, err := h.service.Sweep(ctx)
	if err != nil {
		metrics.JobsTotal.WithLabelValues(TypeRetentionSweep, "failed").Inc()
		h.logger.WithError(err).Error("retention sweep failed")
		return err
	}

	metrics.JobsTotal.WithLabelValues(TypeRetentionSweep, "succeeded").Inc()
	h.logger.Info("retention sweep task completed",
		"logs_deleted", report.LogsDeleted,
		"dry_run", report.DryRun,
	)
	return nil
}
