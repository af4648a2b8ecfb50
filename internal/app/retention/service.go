// Package retention sweeps aged-out ingestion logs and normalized
// records on a schedule.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/secboard/api/internal/config"
	"github.com/secboard/api/internal/metrics"
	"github.com/secboard/api/pkg/logger"
)

// Store is the slice of a repository the sweeper needs.
type Store interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// NamedStore pairs a record store with its family label for logging
// and metrics.
type NamedStore struct {
	Family string
	Store  Store
}

// Report summarizes one sweep.
type Report struct {
	LogsDeleted    int64
	RecordsDeleted map[string]int64
	DryRun         bool
}

// Service deletes ingestion logs older than the log window and records
// not seen within the record window.
type Service struct {
	cfg     config.RetentionConfig
	logs    Store
	records []NamedStore
	logger  *logger.Logger
}

// NewService creates a retention service.
func NewService(cfg config.RetentionConfig, logs Store, records []NamedStore, log *logger.Logger) *Service {
	return &Service{
		cfg:     cfg,
		logs:    logs,
		records: records,
		logger:  log.With("component", "retention"),
	}
}

// Sweep runs one retention pass. A dry run logs the cutoffs without
// deleting anything.
func (s *Service) Sweep(ctx context.Context) (*Report, error) {
	if s.cfg.SweepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SweepTimeout)
		defer cancel()
	}

	now := time.Now().UTC()
	logCutoff := now.AddDate(0, 0, -s.cfg.LogDays)
	recordCutoff := now.AddDate(0, 0, -s.cfg.RecordDays)

	report := &Report{
		RecordsDeleted: make(map[string]int64, len(s.records)),
		DryRun:         s.cfg.DryRun,
	}

	if s.cfg.DryRun {
		s.logger.Info("retention dry run, nothing deleted",
			"log_cutoff", logCutoff,
			"record_cutoff", recordCutoff,
		)
		return report, nil
	}

	deleted, err := s.logs.DeleteOlderThan(ctx, logCutoff)
	if err != nil {
		return report, fmt.Errorf("failed to sweep ingestion logs: %w", err)
	}
	report.LogsDeleted = deleted
	metrics.RetentionDeletedTotal.WithLabelValues("ingestion_log").Add(float64(deleted))

	for _, rs := range s.records {
		deleted, err := rs.Store.DeleteOlderThan(ctx, recordCutoff)
		if err != nil {
			return report, fmt.Errorf("failed to sweep %s records: %w", rs.Family, err)
		}
		report.RecordsDeleted[rs.Family] = deleted
		metrics.RetentionDeletedTotal.WithLabelValues(rs.Family).Add(float64(deleted))
	}

	s.logger.Info("retention sweep completed",
		"logs_deleted", report.LogsDeleted,
		"records_deleted", report.RecordsDeleted,
	)
	return report, nil
}
