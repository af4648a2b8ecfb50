package ingest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secboard/api/pkg/domain/detection"
	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/pagination"
)

// detectionRepoStub is an in-memory detection.Repository keyed by
// duplicate key.
type detectionRepoStub struct {
	mu        sync.Mutex
	byKey     map[string]*detection.Detection
	refreshes []string
}

func newDetectionRepoStub() *detectionRepoStub {
	return &detectionRepoStub{byKey: make(map[string]*detection.Detection)}
}

func (s *detectionRepoStub) GetByKey(_ context.Context, key string) (*detection.Detection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byKey[key]
	if !ok {
		return nil, fmt.Errorf("detection %q: %w", key, shared.ErrNotFound)
	}
	return d, nil
}

func (s *detectionRepoStub) Create(_ context.Context, d *detection.Detection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey[d.DuplicateKey()] = d
	return nil
}

func (s *detectionRepoStub) Update(_ context.Context, d *detection.Detection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey[d.DuplicateKey()] = d
	return nil
}

func (s *detectionRepoStub) Refresh(_ context.Context, key string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes = append(s.refreshes, key)
	return nil
}

func (s *detectionRepoStub) List(_ context.Context, _ detection.Filter, page pagination.Pagination) (pagination.Result[*detection.Detection], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]*detection.Detection, 0, len(s.byKey))
	for _, d := range s.byKey {
		all = append(all, d)
	}
	return pagination.NewResult(all, int64(len(all)), page), nil
}

func (s *detectionRepoStub) DeleteOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (s *detectionRepoStub) only(t *testing.T) *detection.Detection {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.Len(t, s.byKey, 1)
	for _, d := range s.byKey {
		return d
	}
	return nil
}

var secureworksHeader = []string{
	"Created At", "Title", "Severity", "Threat Score", "Detector",
	"Sensor Type", "Domain", "Combined Username", "Source IP",
	"Destination IP", "Hostname", "Investigations", "Confidence",
	"MITRE ATT&CK", "Status", "Status Reason", "Tenant", "Description",
}

func secureworksRow(h *SecureworksHandler, fields []string) Row {
	idx := ResolveHeader(secureworksHeader, h.Specs())
	return NewRow(padRow(fields, len(secureworksHeader)), secureworksHeader, idx)
}

func TestSecureworksHandlerMapsRow(t *testing.T) {
	repo := newDetectionRepoStub()
	h := NewSecureworksHandler(repo)
	reportDate := time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC)

	row := secureworksRow(h, []string{
		"2025/08/27 02:29:55 UTC", "Test Alert", "MEDIUM", "42.5", "endpoint",
		"EDR", "CORP", "corp-jdoe", "10.0.0.5",
		"10.0.0.9", "host-1", "INV-100", "0.8",
		"T1059", "Open", "", "tenant-1", "Suspicious activity",
	})

	outcome, err := h.HandleRow(context.Background(), row, reportDate)
	require.NoError(t, err)
	assert.Equal(t, OutcomeInserted, outcome)

	rec := repo.only(t)
	assert.Equal(t, detection.SourceSecureworks, rec.Source())
	assert.Equal(t, "Test Alert", rec.Title())
	assert.Equal(t, shared.SeverityMedium, rec.Severity())
	assert.Equal(t, shared.StatusOpen, rec.Status())
	assert.Equal(t, "host-1", rec.Hostname())
	assert.Equal(t, "10.0.0.5", rec.SourceIP())
	assert.Equal(t, "tenant-1", rec.Tenant())
	require.NotNil(t, rec.ThreatScore())
	assert.Equal(t, 42.5, *rec.ThreatScore())
	require.NotNil(t, rec.DetectedAt())
	assert.True(t, rec.DetectedAt().Equal(time.Date(2025, 8, 27, 2, 29, 55, 0, time.UTC)))
	require.NotNil(t, rec.TechniqueRef())
	assert.Equal(t, "T1059", *rec.TechniqueRef())
	assert.Equal(t, "Suspicious activity", rec.Raw()["Description"])
}

func TestSecureworksHandlerIdempotentReimport(t *testing.T) {
	repo := newDetectionRepoStub()
	h := NewSecureworksHandler(repo)
	reportDate := time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC)

	fields := []string{
		"2025/08/27 02:29:55 UTC", "Test Alert", "MEDIUM", "42.5", "endpoint",
		"EDR", "CORP", "corp-jdoe", "10.0.0.5",
		"10.0.0.9", "host-1", "", "",
		"T1059", "Open", "", "tenant-1", "",
	}

	_, err := h.HandleRow(context.Background(), secureworksRow(h, fields), reportDate)
	require.NoError(t, err)

	outcome, err := h.HandleRow(context.Background(), secureworksRow(h, fields), reportDate)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRefreshed, outcome)
	assert.Len(t, repo.refreshes, 1)
	assert.Len(t, repo.byKey, 1)
}

func TestSecureworksHandlerUpdatesOnStatusChange(t *testing.T) {
	repo := newDetectionRepoStub()
	h := NewSecureworksHandler(repo)
	reportDate := time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC)

	fields := []string{
		"2025/08/27 02:29:55 UTC", "Test Alert", "MEDIUM", "", "endpoint",
		"EDR", "", "", "10.0.0.5",
		"", "host-1", "", "",
		"", "Open", "", "tenant-1", "",
	}
	_, err := h.HandleRow(context.Background(), secureworksRow(h, fields), reportDate)
	require.NoError(t, err)

	fields[14] = "Resolved"
	outcome, err := h.HandleRow(context.Background(), secureworksRow(h, fields), reportDate)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)
	assert.Equal(t, shared.StatusResolved, repo.only(t).Status())
	assert.Empty(t, repo.refreshes)
}

func TestSecureworksHandlerRejectsMissingTitle(t *testing.T) {
	h := NewSecureworksHandler(newDetectionRepoStub())
	row := secureworksRow(h, []string{"2025/08/27 02:29:55 UTC", "", "HIGH"})

	_, err := h.HandleRow(context.Background(), row, time.Now())
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestSecureworksHandlerUnparseableDateFallsBackToReportDate(t *testing.T) {
	repo := newDetectionRepoStub()
	h := NewSecureworksHandler(repo)
	reportDate := time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC)

	row := secureworksRow(h, []string{"garbage date", "Test Alert", "HIGH"})
	_, err := h.HandleRow(context.Background(), row, reportDate)
	require.NoError(t, err)

	rec := repo.only(t)
	assert.Nil(t, rec.DetectedAt())
	assert.Contains(t, rec.DuplicateKey(), "-20250827")
}

var falconHeader = []string{
	"Detect Time", "Hostname", "Username", "Severity", "Tactic",
	"Technique", "Detect Description", "File Name", "Command Line", "Status",
}

func falconRow(h *FalconHandler, fields []string) Row {
	idx := ResolveHeader(falconHeader, h.Specs())
	return NewRow(padRow(fields, len(falconHeader)), falconHeader, idx)
}

func TestFalconHandlerMapsRow(t *testing.T) {
	repo := newDetectionRepoStub()
	h := NewFalconHandler(repo)
	reportDate := time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC)

	row := falconRow(h, []string{
		"2025-08-27T08:00:00Z", "host-9", "jdoe", "High", "Execution",
		"T1204", "User executed a flagged binary", "evil.exe", "evil.exe -x", "New",
	})

	outcome, err := h.HandleRow(context.Background(), row, reportDate)
	require.NoError(t, err)
	assert.Equal(t, OutcomeInserted, outcome)

	rec := repo.only(t)
	assert.Equal(t, detection.SourceFalcon, rec.Source())
	assert.Equal(t, "T1204", rec.Title())
	assert.Equal(t, shared.SeverityHigh, rec.Severity())
	assert.Equal(t, shared.StatusOpen, rec.Status())
	assert.Equal(t, "host-9", rec.Hostname())
	require.NotNil(t, rec.FileName())
	assert.Equal(t, "evil.exe", *rec.FileName())
	require.NotNil(t, rec.CommandLine())
}

func TestFalconHandlerTitleFallsBackToHostname(t *testing.T) {
	repo := newDetectionRepoStub()
	h := NewFalconHandler(repo)

	row := falconRow(h, []string{"", "host-9", "", "Low", "", "", "", "", "", ""})
	_, err := h.HandleRow(context.Background(), row, time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "Falcon detection on host-9", repo.only(t).Title())
}

func TestFalconHandlerRejectsRowWithoutIdentity(t *testing.T) {
	h := NewFalconHandler(newDetectionRepoStub())

	row := falconRow(h, []string{"2025-08-27T08:00:00Z", "", "", "High"})
	_, err := h.HandleRow(context.Background(), row, time.Now())
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
