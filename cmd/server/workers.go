package main

import (
	"context"

	"github.com/secboard/api/internal/config"
	"github.com/secboard/api/internal/infra/jobs"
	"github.com/secboard/api/internal/infra/objectstore"
	"github.com/secboard/api/pkg/logger"
)

// Workers holds the background job infrastructure. Everything is
// optional: archival and retention each enable their own pieces.
type Workers struct {
	Client    *jobs.Client
	Worker    *jobs.Worker
	Scheduler *jobs.Scheduler
}

// NewWorkers initializes the asynq client, worker and scheduler as
// required by the archive and retention configuration.
func NewWorkers(ctx context.Context, cfg *config.Config, repos *Repositories, log *logger.Logger) (*Workers, error) {
	if !cfg.Archive.Enabled && !cfg.Retention.Enabled {
		return &Workers{}, nil
	}

	clientCfg := jobs.ClientConfig{
		RedisAddr:     cfg.Redis.Addr(),
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
	}

	client, err := jobs.NewClient(clientCfg, log)
	if err != nil {
		return nil, err
	}

	opts := []jobs.WorkerOption{}

	if cfg.Archive.Enabled {
		store, err := objectstore.NewS3Store(ctx, cfg.Archive, log)
		if err != nil {
			return nil, err
		}
		opts = append(opts, jobs.WithArchiveStore(store))
	}

	if cfg.Retention.Enabled {
		opts = append(opts, jobs.WithRetentionService(newRetentionService(cfg, repos, log)))
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisAddr:     cfg.Redis.Addr(),
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
		Concurrency:   cfg.Worker.Concurrency,
		QueueDefault:  cfg.Worker.QueueDefault,
		QueueArchive:  cfg.Worker.QueueArchive,
	}, log, opts...)
	if err != nil {
		return nil, err
	}

	w := &Workers{Client: client, Worker: worker}

	if cfg.Retention.Enabled {
		scheduler, err := jobs.NewScheduler(clientCfg, cfg.Retention.Schedule, log)
		if err != nil {
			return nil, err
		}
		w.Scheduler = scheduler
	}

	return w, nil
}

// Start launches the worker and scheduler goroutines.
func (w *Workers) Start(log *logger.Logger) error {
	if w.Worker != nil {
		if err := w.Worker.Start(); err != nil {
			return err
		}
	}
	if w.Scheduler != nil {
		go func() {
			if err := w.Scheduler.Run(); err != nil {
				log.Error("job scheduler stopped", "error", err)
			}
		}()
	}
	return nil
}

// Stop shuts down the scheduler, worker and client in order.
func (w *Workers) Stop(log *logger.Logger) {
	if w.Scheduler != nil {
		w.Scheduler.Stop()
	}
	if w.Worker != nil {
		w.Worker.Stop()
	}
	if w.Client != nil {
		if err := w.Client.Close(); err != nil {
			log.Error("failed to close job client", "error", err)
		}
	}
}
