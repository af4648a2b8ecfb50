package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/secboard/api/internal/metrics"
	"github.com/secboard/api/pkg/logger"
)

// TypeArchiveUpload archives the raw bytes of a processed upload.
const TypeArchiveUpload = "archive:upload"

// QueueArchive is the queue archive tasks run on.
const QueueArchive = "archive"

// ArchiveUploadPayload is the payload for upload archive tasks.
type ArchiveUploadPayload struct {
	LogID    string `json:"log_id"`
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
}

// NewArchiveUploadTask creates an archive task for a processed upload.
func NewArchiveUploadTask(payload ArchiveUploadPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeArchiveUpload, data,
		asynq.Queue(QueueArchive),
		asynq.MaxRetry(5),
		asynq.Timeout(2*time.Minute),
	), nil
}

// ObjectStore is the archive destination.
type ObjectStore interface {
	Put(ctx context.Context, logID, filename string, data []byte) (string, error)
}

// ArchiveTaskHandler writes archived uploads to object storage.
type ArchiveTaskHandler struct {
	store  ObjectStore
	logger *logger.Logger
}

// NewArchiveTaskHandler creates a new ArchiveTaskHandler.
func NewArchiveTaskHandler(store ObjectStore, log *logger.Logger) *ArchiveTaskHandler {
	return &ArchiveTaskHandler{
		store:  store,
		logger: log.With("component", "archive_task_handler"),
	}
}

// HandleArchiveUpload handles one archive task.
func (h *ArchiveTaskHandler) HandleArchiveUpload(ctx context.Context, task *asynq.Task) error {
	var payload ArchiveUploadPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		metrics.JobsTotal.WithLabelValues(TypeArchiveUpload, "failed").Inc()
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	key, err := h.store.Put(ctx, payload.LogID, payload.Filename, payload.Data)
	if err != nil {
		metrics.JobsTotal.WithLabelValues(TypeArchiveUpload, "failed").Inc()
		h.logger.WithError(err).Error("upload archive failed", "log_id", payload.LogID)
		return err
	}

	metrics.JobsTotal.WithLabelValues(TypeArchiveUpload, "succeeded").Inc()
	h.logger.Info("upload archive completed",
		"log_id", payload.LogID,
		"key", key,
	)
	return nil
}
