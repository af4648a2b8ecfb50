package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/secboard/api/pkg/logger"
)

// Client manages enqueueing background jobs using Asynq.
type Client struct {
	client *asynq.Client
	logger *logger.Logger
}

// ClientConfig contains configuration for the job client.
type ClientConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NewClient creates a new job client for enqueueing tasks.
func NewClient(cfg ClientConfig, log *logger.Logger) (*Client, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	client := asynq.NewClient(redisOpt)

	return &Client{
		client: client,
		logger: log.With("component", "job_client"),
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueArchiveUpload enqueues an upload archive job.
func (c *Client) EnqueueArchiveUpload(ctx context.Context, payload ArchiveUploadPayload) error {
	task, err := NewArchiveUploadTask(payload)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		c.logger.Error("failed to enqueue upload archive",
			"log_id", payload.LogID,
			"error", err,
		)
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Info("upload archive queued",
		"task_id", info.ID,
		"log_id", payload.LogID,
		"queue", info.Queue,
	)
	return nil
}

// EnqueueRetentionSweep enqueues a retention sweep job.
func (c *Client) EnqueueRetentionSweep(ctx context.Context, payload RetentionSweepPayload) error {
	task, err := NewRetentionSweepTask(payload)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		c.logger.Error("failed to enqueue retention sweep", "error", err)
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Info("retention sweep queued",
		"task_id", info.ID,
		"queue", info.Queue,
	)
	return nil
}
