package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secboard/api/pkg/domain/ingestion"
	"github.com/secboard/api/pkg/logger"
)

func seededIngestionHandler(t *testing.T) (*IngestionHandler, *ingestion.Log) {
	t.Helper()

	repo := newIngestionRepoStub()
	entry, err := ingestion.NewLog(
		"edr-falcon_20250827.csv",
		"falcon-20250827.csv",
		ingestion.FileTypeCSV,
		"edr-falcon",
		"deadbeef",
		time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	entry.MarkSuccess(10, 1, "row 3: missing title")
	require.NoError(t, repo.Create(context.Background(), entry))

	return NewIngestionHandler(repo, logger.NewDevelopment()), entry
}

func TestIngestionList(t *testing.T) {
	h, entry := seededIngestionHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ingestions", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListResponse[*IngestionResponse]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, entry.ID().String(), resp.Data[0].ID)
	assert.Equal(t, "edr-falcon", resp.Data[0].SourceTag)
	assert.Equal(t, "success", resp.Data[0].Status)
	assert.Equal(t, "2025-08-27", resp.Data[0].ReportDate)
	assert.Equal(t, int64(1), resp.Total)
}

func TestIngestionListRejectsInvalidStatus(t *testing.T) {
	h, _ := seededIngestionHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ingestions?status=bogus", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestionListRejectsInvalidSince(t *testing.T) {
	h, _ := seededIngestionHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ingestions?since=yesterday", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func ingestionTestRouter(h *IngestionHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/v1/ingestions/{id}", h.Get)
	return r
}

func TestIngestionGet(t *testing.T) {
	h, entry := seededIngestionHandler(t)
	router := ingestionTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ingestions/"+entry.ID().String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp IngestionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, entry.ID().String(), resp.ID)
	assert.Equal(t, 10, resp.RowsProcessed)
	assert.Equal(t, 1, resp.RowErrors)
	assert.Equal(t, "row 3: missing title", resp.ErrorLog)
	require.NotNil(t, resp.FinalizedAt)
}

func TestIngestionGetNotFound(t *testing.T) {
	h, _ := seededIngestionHandler(t)
	router := ingestionTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ingestions/00000000-0000-0000-0000-000000000001", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIngestionGetInvalidID(t *testing.T) {
	h, _ := seededIngestionHandler(t)
	router := ingestionTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ingestions/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
