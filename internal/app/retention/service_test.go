package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secboard/api/internal/config"
	"github.com/secboard/api/pkg/logger"
)

type storeStub struct {
	deleted int64
	err     error
	cutoffs []time.Time
}

func (s *storeStub) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.cutoffs = append(s.cutoffs, cutoff)
	if s.err != nil {
		return 0, s.err
	}
	return s.deleted, nil
}

func testConfig() config.RetentionConfig {
	return config.RetentionConfig{
		LogDays:    90,
		RecordDays: 365,
	}
}

func TestSweepDeletesLogsAndRecords(t *testing.T) {
	logs := &storeStub{deleted: 12}
	detections := &storeStub{deleted: 7}
	tickets := &storeStub{deleted: 3}

	svc := NewService(testConfig(), logs, []NamedStore{
		{Family: "detection", Store: detections},
		{Family: "ticket", Store: tickets},
	}, logger.NewDevelopment())

	report, err := svc.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(12), report.LogsDeleted)
	assert.Equal(t, int64(7), report.RecordsDeleted["detection"])
	assert.Equal(t, int64(3), report.RecordsDeleted["ticket"])
	assert.False(t, report.DryRun)

	// Logs use the shorter window, records the longer one.
	require.Len(t, logs.cutoffs, 1)
	require.Len(t, detections.cutoffs, 1)
	assert.True(t, logs.cutoffs[0].After(detections.cutoffs[0]))
}

func TestSweepDryRunDeletesNothing(t *testing.T) {
	cfg := testConfig()
	cfg.DryRun = true

	logs := &storeStub{deleted: 12}
	records := &storeStub{deleted: 7}

	svc := NewService(cfg, logs, []NamedStore{{Family: "detection", Store: records}}, logger.NewDevelopment())

	report, err := svc.Sweep(context.Background())
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Zero(t, report.LogsDeleted)
	assert.Empty(t, logs.cutoffs)
	assert.Empty(t, records.cutoffs)
}

func TestSweepPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("connection reset")
	logs := &storeStub{}
	records := &storeStub{err: boom}

	svc := NewService(testConfig(), logs, []NamedStore{{Family: "detection", Store: records}}, logger.NewDevelopment())

	_, err := svc.Sweep(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "detection")
}
