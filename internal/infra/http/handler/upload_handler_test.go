package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secboard/api/internal/app/ingest"
	"github.com/secboard/api/internal/config"
	"github.com/secboard/api/internal/infra/http/middleware"
	"github.com/secboard/api/pkg/domain/detection"
	"github.com/secboard/api/pkg/domain/ingestion"
	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/jwt"
	"github.com/secboard/api/pkg/logger"
	"github.com/secboard/api/pkg/pagination"
)

// ingestionRepoStub is an in-memory ingestion.Repository.
type ingestionRepoStub struct {
	mu      sync.Mutex
	entries map[string]*ingestion.Log
}

func newIngestionRepoStub() *ingestionRepoStub {
	return &ingestionRepoStub{entries: make(map[string]*ingestion.Log)}
}

func (s *ingestionRepoStub) Create(_ context.Context, l *ingestion.Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[l.ID().String()] = l
	return nil
}

func (s *ingestionRepoStub) Finalize(_ context.Context, l *ingestion.Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[l.ID().String()] = l
	return nil
}

func (s *ingestionRepoStub) GetByID(_ context.Context, id shared.ID) (*ingestion.Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.entries[id.String()]
	if !ok {
		return nil, fmt.Errorf("ingestion log %s: %w", id, shared.ErrNotFound)
	}
	return l, nil
}

func (s *ingestionRepoStub) List(_ context.Context, _ ingestion.Filter, page pagination.Pagination) (pagination.Result[*ingestion.Log], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]*ingestion.Log, 0, len(s.entries))
	for _, l := range s.entries {
		all = append(all, l)
	}
	return pagination.NewResult(all, int64(len(all)), page), nil
}

func (s *ingestionRepoStub) DeleteOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

// detectionStoreStub is an in-memory detection.Repository.
type detectionStoreStub struct {
	mu    sync.Mutex
	byKey map[string]*detection.Detection
}

func newDetectionStoreStub() *detectionStoreStub {
	return &detectionStoreStub{byKey: make(map[string]*detection.Detection)}
}

func (s *detectionStoreStub) GetByKey(_ context.Context, key string) (*detection.Detection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byKey[key]
	if !ok {
		return nil, fmt.Errorf("detection %q: %w", key, shared.ErrNotFound)
	}
	return d, nil
}

func (s *detectionStoreStub) Create(_ context.Context, d *detection.Detection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey[d.DuplicateKey()] = d
	return nil
}

func (s *detectionStoreStub) Update(_ context.Context, d *detection.Detection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey[d.DuplicateKey()] = d
	return nil
}

func (s *detectionStoreStub) Refresh(_ context.Context, _ string, _ time.Time) error {
	return nil
}

func (s *detectionStoreStub) List(_ context.Context, _ detection.Filter, page pagination.Pagination) (pagination.Result[*detection.Detection], error) {
	return pagination.NewResult[*detection.Detection](nil, 0, page), nil
}

func (s *detectionStoreStub) DeleteOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func newUploadHandler() *UploadHandler {
	router := ingest.NewRouter([]*ingest.Profile{
		{
			Tag:      ingest.TagEDRSecureworks,
			FileType: ingestion.FileTypeCSV,
			Handler:  ingest.NewSecureworksHandler(newDetectionStoreStub()),
		},
		{
			Tag:        ingest.TagPhishingTicket,
			FileType:   ingestion.FileTypeCSV,
			Restricted: true,
			Handler:    ingest.NewSecureworksHandler(newDetectionStoreStub()),
		},
	})

	service := ingest.NewService(
		router,
		newIngestionRepoStub(),
		nil,
		nil,
		config.IngestConfig{MaxUploadBytes: 1 << 20, ErrorSampleLimit: 5},
		logger.NewDevelopment(),
	)
	return NewUploadHandler(service, logger.NewDevelopment())
}

func multipartRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func asAdmin(r *http.Request) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.RoleKey, jwt.RoleAdmin)
	return r.WithContext(ctx)
}

func errorCode(t *testing.T, body *bytes.Buffer) string {
	t.Helper()
	var resp struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(body.Bytes(), &resp))
	return resp.Code
}

const uploadCSV = "Created At,Title,Severity,Hostname,Status\n" +
	"2025/08/27 02:29:55 UTC,Test Alert,MEDIUM,host-1,Open\n"

func TestUploadSuccess(t *testing.T) {
	h := newUploadHandler()

	rec := httptest.NewRecorder()
	h.Upload(rec, multipartRequest(t, "secureworks-20250827.csv", []byte(uploadCSV)))

	require.Equal(t, http.StatusCreated, rec.Code)

	var result ingest.UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, ingest.TagEDRSecureworks, result.SourceTag)
	assert.Equal(t, 1, result.RowsProcessed)
	assert.Equal(t, string(ingestion.StatusSuccess), string(result.Status))
}

func TestUploadMissingFileField(t *testing.T) {
	h := newUploadHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", nil)
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadEmptyFile(t *testing.T) {
	h := newUploadHandler()

	rec := httptest.NewRecorder()
	h.Upload(rec, multipartRequest(t, "secureworks-20250827.csv", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "EMPTY_FILE", errorCode(t, rec.Body))
}

func TestUploadUnknownFormat(t *testing.T) {
	h := newUploadHandler()

	rec := httptest.NewRecorder()
	h.Upload(rec, multipartRequest(t, "mystery.csv", []byte(uploadCSV)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNKNOWN_FORMAT", errorCode(t, rec.Body))
}

func TestUploadUnparseableFile(t *testing.T) {
	h := newUploadHandler()

	rec := httptest.NewRecorder()
	h.Upload(rec, multipartRequest(t, "secureworks-20250827.csv", []byte("header only\n")))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "PARSE_FAILURE", errorCode(t, rec.Body))
}

func TestUploadRestrictedSource(t *testing.T) {
	h := newUploadHandler()

	rec := httptest.NewRecorder()
	h.Upload(rec, multipartRequest(t, "phishing-20250827.csv", []byte(uploadCSV)))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec.Body))

	rec = httptest.NewRecorder()
	h.Upload(rec, asAdmin(multipartRequest(t, "phishing-20250827.csv", []byte(uploadCSV))))
	assert.Equal(t, http.StatusCreated, rec.Code)
}
