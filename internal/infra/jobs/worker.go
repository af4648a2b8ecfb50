package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/secboard/api/internal/app/retention"
	"github.com/secboard/api/pkg/logger"
)

// WorkerConfig holds the configuration for the job worker.
type WorkerConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
	QueueDefault  int
	QueueArchive  int
}

// WorkerOption is a functional option for configuring the Worker.
type WorkerOption func(*Worker)

// Worker processes background jobs.
type Worker struct {
	server           *asynq.Server
	mux              *asynq.ServeMux
	logger           *logger.Logger
	archiveStore     ObjectStore
	retentionService *retention.Service
}

// WithArchiveStore enables upload archive handling.
func WithArchiveStore(store ObjectStore) WorkerOption {
	return func(w *Worker) {
		w.archiveStore = store
	}
}

// WithRetentionService enables retention sweep handling.
func WithRetentionService(service *retention.Service) WorkerOption {
	return func(w *Worker) {
		w.retentionService = service
	}
}

// NewWorker creates a new background job worker.
func NewWorker(cfg WorkerConfig, log *logger.Logger, opts ...WorkerOption) (*Worker, error) {
	if cfg.QueueDefault <= 0 {
		cfg.QueueDefault = 6
	}
	if cfg.QueueArchive <= 0 {
		cfg.QueueArchive = 3
	}

	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				"default":        cfg.QueueDefault,
				QueueArchive:     cfg.QueueArchive,
				QueueMaintenance: 1,
			},
		},
	)

	w := &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
		logger: log,
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.archiveStore != nil {
		handler := NewArchiveTaskHandler(w.archiveStore, log)
		w.mux.HandleFunc(TypeArchiveUpload, handler.HandleArchiveUpload)
		log.Info("archive task handler registered")
	}

	if w.retentionService != nil {
		handler := NewRetentionTaskHandler(w.retentionService, log)
		w.mux.HandleFunc(TypeRetentionSweep, handler.HandleRetentionSweep)
		log.Info("retention task handler registered")
	}

	return w, nil
}

// Start starts the worker.
func (w *Worker) Start() error {
	w.logger.Info("starting job worker")
	return w.server.Start(w.mux)
}

// Stop stops the worker gracefully.
func (w *Worker) Stop() {
	w.logger.Info("stopping job worker")
	w.server.Shutdown()
}

// Run runs the worker until shutdown.
func (w *Worker) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Start(w.mux)
	}()

	select {
	case <-ctx.Done():
		w.Stop()
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("worker error: %w", err)
		}
		return nil
	}
}
