package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/secboard/api/pkg/apierror"
	"github.com/secboard/api/pkg/domain/ingestion"
	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/logger"
	"github.com/secboard/api/pkg/pagination"
)

// IngestionHandler handles HTTP requests for ingestion log entries.
type IngestionHandler struct {
	repo   ingestion.Repository
	logger *logger.Logger
}

// NewIngestionHandler creates a new IngestionHandler.
func NewIngestionHandler(repo ingestion.Repository, log *logger.Logger) *IngestionHandler {
	return &IngestionHandler{
		repo:   repo,
		logger: log.With("handler", "ingestion"),
	}
}

// IngestionResponse represents one ingestion log entry.
type IngestionResponse struct {
	ID              string     `json:"id"`
	Filename        string     `json:"filename"`
	OriginalName    string     `json:"original_name"`
	FileType        string     `json:"file_type"`
	SourceTag       string     `json:"source_tag"`
	Checksum        string     `json:"checksum"`
	RowsProcessed   int        `json:"rows_processed"`
	RowErrors       int        `json:"row_errors"`
	ReportDate      string     `json:"report_date"`
	ImportedAt      time.Time  `json:"imported_at"`
	Status          string     `json:"status"`
	ErrorLog        string     `json:"error_log,omitempty"`
	DuplicateUpload bool       `json:"duplicate_upload"`
	FinalizedAt     *time.Time `json:"finalized_at,omitempty"`
}

func toIngestionResponse(l *ingestion.Log) *IngestionResponse {
	return &IngestionResponse{
		ID:              l.ID().String(),
		Filename:        l.Filename(),
		OriginalName:    l.OriginalName(),
		FileType:        string(l.FileType()),
		SourceTag:       l.SourceTag(),
		Checksum:        l.Checksum(),
		RowsProcessed:   l.RowsProcessed(),
		RowErrors:       l.RowErrors(),
		ReportDate:      l.ReportDate().Format("2006-01-02"),
		ImportedAt:      l.ImportedAt(),
		Status:          l.Status().String(),
		ErrorLog:        l.ErrorLog(),
		DuplicateUpload: l.DuplicateUpload(),
		FinalizedAt:     l.FinalizedAt(),
	}
}

// List handles GET /api/v1/ingestions
// @Summary      List ingestion log entries
// @Description  Get a paginated list of uploads, newest first
// @Tags         Ingestions
// @Produce      json
// @Param        source_tag  query     string  false  "Filter by source tag"
// @Param        status      query     string  false  "Filter by status (PENDING, SUCCESS, PARTIAL, FAILED)"
// @Param        since       query     string  false  "Only entries imported at or after this time (RFC 3339)"
// @Param        page        query     int     false  "Page number" default(1)
// @Param        per_page    query     int     false  "Items per page" default(20)
// @Success      200  {object}  ListResponse[IngestionResponse]
// @Failure      400  {object}  apierror.Error
// @Security     BearerAuth
// @Router       /ingestions [get]
func (h *IngestionHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := ingestion.Filter{
		SourceTag: r.URL.Query().Get("source_tag"),
		Status:    ingestion.Status(r.URL.Query().Get("status")),
	}

	if filter.Status != "" && !filter.Status.IsValid() {
		apierror.BadRequest("Invalid status filter").WriteJSON(w)
		return
	}

	if since := r.URL.Query().Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			apierror.BadRequest("Invalid since parameter, expected RFC 3339").WriteJSON(w)
			return
		}
		filter.Since = &t
	}

	page := pagination.New(
		parseQueryInt(r.URL.Query().Get("page"), 1),
		parseQueryInt(r.URL.Query().Get("per_page"), 20),
	)

	result, err := h.repo.List(r.Context(), filter, page)
	if err != nil {
		h.logger.WithError(err).Error("list ingestion logs failed")
		apierror.InternalError(err).WriteJSON(w)
		return
	}

	items := make([]*IngestionResponse, len(result.Data))
	for i, l := range result.Data {
		items[i] = toIngestionResponse(l)
	}

	resp := ListResponse[*IngestionResponse]{
		Data:       items,
		Total:      result.Total,
		Page:       result.Page,
		PerPage:    result.PerPage,
		TotalPages: result.TotalPages,
		Links:      NewPaginationLinks(r, result.Page, result.PerPage, result.TotalPages),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Get handles GET /api/v1/ingestions/{id}
// @Summary      Get an ingestion log entry
// @Tags         Ingestions
// @Produce      json
// @Param        id  path      string  true  "Ingestion ID"
// @Success      200  {object}  IngestionResponse
// @Failure      400  {object}  apierror.Error
// @Failure      404  {object}  apierror.Error
// @Security     BearerAuth
// @Router       /ingestions/{id} [get]
func (h *IngestionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IDFromString(chi.URLParam(r, "id"))
	if err != nil {
		apierror.BadRequest("Invalid ingestion ID").WriteJSON(w)
		return
	}

	entry, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			apierror.NotFound("Ingestion").WriteJSON(w)
			return
		}
		h.logger.WithError(err).Error("get ingestion log failed", "id", id.String())
		apierror.InternalError(err).WriteJSON(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toIngestionResponse(entry))
}
