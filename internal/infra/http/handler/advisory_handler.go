package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/secboard/api/pkg/apierror"
	"github.com/secboard/api/pkg/domain/advisory"
	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/logger"
	"github.com/secboard/api/pkg/pagination"
)

// AdvisoryHandler handles HTTP requests for threat advisories.
type AdvisoryHandler struct {
	repo   advisory.Repository
	logger *logger.Logger
}

// NewAdvisoryHandler creates a new AdvisoryHandler.
func NewAdvisoryHandler(repo advisory.Repository, log *logger.Logger) *AdvisoryHandler {
	return &AdvisoryHandler{
		repo:   repo,
		logger: log.With("handler", "advisory"),
	}
}

// AdvisoryResponse represents a threat advisory record.
type AdvisoryResponse struct {
	ID              string     `json:"id"`
	DuplicateKey    string     `json:"duplicate_key"`
	Name            string     `json:"name"`
	Source          string     `json:"source"`
	Severity        string     `json:"severity"`
	Status          string     `json:"status"`
	CVERefs         string     `json:"cve_refs,omitempty"`
	Vendor          string     `json:"vendor,omitempty"`
	Product         string     `json:"product,omitempty"`
	Description     *string    `json:"description,omitempty"`
	Link            *string    `json:"link,omitempty"`
	ReleaseDate     *time.Time `json:"release_date,omitempty"`
	ReportDate      string     `json:"report_date"`
	OccurrenceCount int        `json:"occurrence_count"`
	FirstSeenAt     time.Time  `json:"first_seen_at"`
	LastSeenAt      time.Time  `json:"last_seen_at"`
}

func toAdvisoryResponse(a *advisory.Advisory) *AdvisoryResponse {
	return &AdvisoryResponse{
		ID:              a.ID().String(),
		DuplicateKey:    a.DuplicateKey(),
		Name:            a.Name(),
		Source:          a.Source(),
		Severity:        a.Severity().String(),
		Status:          a.Status().String(),
		CVERefs:         a.CVERefs(),
		Vendor:          a.Vendor(),
		Product:         a.Product(),
		Description:     a.Description(),
		Link:            a.Link(),
		ReleaseDate:     a.ReleaseDate(),
		ReportDate:      a.ReportDate().Format("2006-01-02"),
		OccurrenceCount: a.OccurrenceCount(),
		FirstSeenAt:     a.FirstSeenAt(),
		LastSeenAt:      a.LastSeenAt(),
	}
}

// List handles GET /api/v1/advisories
// @Summary      List threat advisories
// @Tags         Advisories
// @Produce      json
// @Param        source    query     string  false  "Filter by advisory source"
// @Param        severity  query     string  false  "Filter by severity"
// @Param        status    query     string  false  "Filter by status"
// @Param        page      query     int     false  "Page number" default(1)
// @Param        per_page  query     int     false  "Items per page" default(20)
// @Success      200  {object}  ListResponse[AdvisoryResponse]
// @Security     BearerAuth
// @Router       /advisories [get]
func (h *AdvisoryHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := advisory.Filter{
		Source:   r.URL.Query().Get("source"),
		Severity: shared.Severity(r.URL.Query().Get("severity")),
		Status:   shared.RecordStatus(r.URL.Query().Get("status")),
	}

	page := pagination.New(
		parseQueryInt(r.URL.Query().Get("page"), 1),
		parseQueryInt(r.URL.Query().Get("per_page"), 20),
	)

	result, err := h.repo.List(r.Context(), filter, page)
	if err != nil {
		h.logger.WithError(err).Error("list advisories failed")
		apierror.InternalError(err).WriteJSON(w)
		return
	}

	items := make([]*AdvisoryResponse, len(result.Data))
	for i, a := range result.Data {
		items[i] = toAdvisoryResponse(a)
	}

	resp := ListResponse[*AdvisoryResponse]{
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
