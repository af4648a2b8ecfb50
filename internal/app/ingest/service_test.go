package ingest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secboard/api/internal/config"
	"github.com/secboard/api/pkg/domain/ingestion"
	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/logger"
	"github.com/secboard/api/pkg/pagination"
)

type logRepoStub struct {
	mu        sync.Mutex
	created   []*ingestion.Log
	finalized []*ingestion.Log
	createErr error
}

func (s *logRepoStub) Create(_ context.Context, l *ingestion.Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, l)
	return nil
}

func (s *logRepoStub) Finalize(_ context.Context, l *ingestion.Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalized = append(s.finalized, l)
	return nil
}

func (s *logRepoStub) GetByID(_ context.Context, id shared.ID) (*ingestion.Log, error) {
	return nil, fmt.Errorf("log %s: %w", id, shared.ErrNotFound)
}

func (s *logRepoStub) List(_ context.Context, _ ingestion.Filter, page pagination.Pagination) (pagination.Result[*ingestion.Log], error) {
	return pagination.NewResult[*ingestion.Log](nil, 0, page), nil
}

func (s *logRepoStub) DeleteOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (s *logRepoStub) lastFinalized(t *testing.T) *ingestion.Log {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.finalized)
	return s.finalized[len(s.finalized)-1]
}

type checksumStub struct {
	mu         sync.Mutex
	seen       map[string]bool
	remembered []string
}

func newChecksumStub() *checksumStub {
	return &checksumStub{seen: make(map[string]bool)}
}

func (c *checksumStub) Seen(_ context.Context, checksum string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen[checksum], nil
}

func (c *checksumStub) Remember(_ context.Context, checksum string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[checksum] = true
	c.remembered = append(c.remembered, checksum)
	return nil
}

type serviceFixture struct {
	service   *Service
	logs      *logRepoStub
	repo      *detectionRepoStub
	checksums *checksumStub
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	logs := &logRepoStub{}
	repo := newDetectionRepoStub()
	checksums := newChecksumStub()

	router := NewRouter([]*Profile{
		{Tag: TagEDRSecureworks, FileType: ingestion.FileTypeCSV, Handler: NewSecureworksHandler(repo)},
		{Tag: TagPhishingTicket, FileType: ingestion.FileTypeCSV, Restricted: true, Handler: NewSecureworksHandler(repo)},
		{Tag: TagScorecardPDF, FileType: ingestion.FileTypePDF},
	})

	cfg := config.IngestConfig{
		MaxUploadBytes:   1 << 20,
		ErrorSampleLimit: 3,
		DuplicateWindow:  time.Hour,
	}

	return &serviceFixture{
		service:   NewService(router, logs, checksums, nil, cfg, logger.NewDevelopment()),
		logs:      logs,
		repo:      repo,
		checksums: checksums,
	}
}

const secureworksCSV = "Created At,Title,Severity,Hostname,Status\n" +
	"2025/08/27 02:29:55 UTC,Alert One,HIGH,host-1,Open\n" +
	"2025/08/27 03:10:00 UTC,Alert Two,LOW,host-2,Open\n"

func TestProcessUploadSuccess(t *testing.T) {
	f := newServiceFixture(t)

	result, err := f.service.ProcessUpload(context.Background(), UploadInput{
		Filename: "secureworks-20250827.csv",
		Data:     []byte(secureworksCSV),
	})
	require.NoError(t, err)

	assert.Equal(t, TagEDRSecureworks, result.SourceTag)
	assert.Equal(t, 2, result.RowsProcessed)
	assert.Equal(t, 0, result.RowErrors)
	assert.Equal(t, ingestion.StatusSuccess, result.Status)
	assert.False(t, result.DuplicateUpload)
	assert.Len(t, f.repo.byKey, 2)

	entry := f.logs.lastFinalized(t)
	assert.Equal(t, ingestion.StatusSuccess, entry.Status())
	assert.Equal(t, 2, entry.RowsProcessed())
	assert.Equal(t, "secureworks-20250827.csv", entry.OriginalName())
	assert.Equal(t, "edr-secureworks_20250827.csv", entry.Filename())
	assert.True(t, entry.IsFinalized())

	// Checksum remembered for duplicate flagging.
	assert.Len(t, f.checksums.remembered, 1)
}

func TestProcessUploadCountsRowErrors(t *testing.T) {
	f := newServiceFixture(t)

	// Second data row is missing its title and fails mapping; the upload
	// still succeeds.
	data := "Created At,Title,Severity,Hostname,Status\n" +
		"2025/08/27 02:29:55 UTC,Alert One,HIGH,host-1,Open\n" +
		"2025/08/27 03:10:00 UTC,,HIGH,host-2,Open\n"

	result, err := f.service.ProcessUpload(context.Background(), UploadInput{
		Filename: "secureworks-20250827.csv",
		Data:     []byte(data),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.RowsProcessed)
	assert.Equal(t, 1, result.RowErrors)
	assert.Equal(t, ingestion.StatusSuccess, result.Status)
	require.Len(t, result.ErrorSample, 1)
	assert.Contains(t, result.ErrorSample[0], "row 2")
}

func TestProcessUploadErrorSampleIsBounded(t *testing.T) {
	f := newServiceFixture(t)

	data := "Created At,Title,Severity\n"
	for i := 0; i < 6; i++ {
		data += "2025/08/27 02:29:55 UTC,,HIGH\n"
	}

	result, err := f.service.ProcessUpload(context.Background(), UploadInput{
		Filename: "secureworks-20250827.csv",
		Data:     []byte(data),
	})
	require.NoError(t, err)

	assert.Equal(t, 6, result.RowErrors)
	assert.Len(t, result.ErrorSample, 3)
}

func TestProcessUploadPartialWhenNoRowSurvives(t *testing.T) {
	f := newServiceFixture(t)

	data := "Created At,Title,Severity\n2025/08/27 02:29:55 UTC,,HIGH\n"
	result, err := f.service.ProcessUpload(context.Background(), UploadInput{
		Filename: "secureworks-20250827.csv",
		Data:     []byte(data),
	})
	require.NoError(t, err)

	assert.Equal(t, ingestion.StatusPartial, result.Status)
	assert.Equal(t, 0, result.RowsProcessed)
	assert.Equal(t, ingestion.StatusPartial, f.logs.lastFinalized(t).Status())
}

func TestProcessUploadFailsOnHeaderOnlyFile(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.ProcessUpload(context.Background(), UploadInput{
		Filename: "secureworks-20250827.csv",
		Data:     []byte("Created At,Title,Severity\n"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrMalformedInput)

	// The log entry is still finalized, as failed.
	entry := f.logs.lastFinalized(t)
	assert.Equal(t, ingestion.StatusFailed, entry.Status())
	assert.Contains(t, entry.ErrorLog(), "could not be parsed")

	// A failed upload is never remembered as seen.
	assert.Empty(t, f.checksums.remembered)
}

func TestProcessUploadRejectsEmptyFile(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.ProcessUpload(context.Background(), UploadInput{
		Filename: "secureworks-20250827.csv",
		Data:     nil,
	})
	assert.ErrorIs(t, err, shared.ErrMalformedInput)
	assert.Empty(t, f.logs.created)
}

func TestProcessUploadRejectsOversizeFile(t *testing.T) {
	f := newServiceFixture(t)
	f.service.cfg.MaxUploadBytes = 10

	_, err := f.service.ProcessUpload(context.Background(), UploadInput{
		Filename: "secureworks-20250827.csv",
		Data:     []byte(secureworksCSV),
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Empty(t, f.logs.created)
}

func TestProcessUploadRejectsUnknownFilename(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.ProcessUpload(context.Background(), UploadInput{
		Filename: "mystery-export.csv",
		Data:     []byte(secureworksCSV),
	})
	assert.ErrorIs(t, err, shared.ErrUnrecognizedFormat)
	assert.Empty(t, f.logs.created)
}

func TestProcessUploadRestrictedSourceRequiresAdmin(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.ProcessUpload(context.Background(), UploadInput{
		Filename: "phishing-20250827.csv",
		Data:     []byte(secureworksCSV),
	})
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Empty(t, f.logs.created)

	result, err := f.service.ProcessUpload(context.Background(), UploadInput{
		Filename: "phishing-20250827.csv",
		Data:     []byte(secureworksCSV),
		IsAdmin:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, ingestion.StatusSuccess, result.Status)
}

func TestProcessUploadFlagsDuplicateUpload(t *testing.T) {
	f := newServiceFixture(t)

	first, err := f.service.ProcessUpload(context.Background(), UploadInput{
		Filename: "secureworks-20250827.csv",
		Data:     []byte(secureworksCSV),
	})
	require.NoError(t, err)
	assert.False(t, first.DuplicateUpload)

	second, err := f.service.ProcessUpload(context.Background(), UploadInput{
		Filename: "secureworks-20250827.csv",
		Data:     []byte(secureworksCSV),
	})
	require.NoError(t, err)
	assert.True(t, second.DuplicateUpload)

	// Re-imports stay idempotent: no new records, only refreshes.
	assert.Len(t, f.repo.byKey, 2)
	assert.Len(t, f.repo.refreshes, 2)
}

func TestProcessUploadPDFPlaceholderSkipsRowProcessing(t *testing.T) {
	f := newServiceFixture(t)

	result, err := f.service.ProcessUpload(context.Background(), UploadInput{
		Filename: "scorecard-20250827.pdf",
		Data:     []byte("%PDF-1.7 fake body"),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.RowsProcessed)
	assert.Equal(t, 0, result.RowErrors)
	assert.Equal(t, ingestion.StatusSuccess, result.Status)
	assert.Equal(t, ingestion.FileTypePDF, f.logs.lastFinalized(t).FileType())
}

func TestProcessUploadPadsShortRows(t *testing.T) {
	f := newServiceFixture(t)

	// The second row omits trailing empty fields; it is padded, not lost.
	data := "Created At,Title,Severity,Hostname,Status\n" +
		"2025/08/27 02:29:55 UTC,Alert One,HIGH\n"

	result, err := f.service.ProcessUpload(context.Background(), UploadInput{
		Filename: "secureworks-20250827.csv",
		Data:     []byte(data),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowsProcessed)
	assert.Equal(t, 0, result.RowErrors)
}
