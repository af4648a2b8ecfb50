package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/secboard/api/pkg/apierror"
	"github.com/secboard/api/pkg/domain/cloudfinding"
	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/logger"
	"github.com/secboard/api/pkg/pagination"
)

// CloudFindingHandler handles HTTP requests for cloud compliance findings.
type CloudFindingHandler struct {
	repo   cloudfinding.Repository
	logger *logger.Logger
}

// NewCloudFindingHandler creates a new CloudFindingHandler.
func NewCloudFindingHandler(repo cloudfinding.Repository, log *logger.Logger) *CloudFindingHandler {
	return &CloudFindingHandler{
		repo:   repo,
		logger: log.With("handler", "cloudfinding"),
	}
}

// CloudFindingResponse represents a cloud compliance finding.
type CloudFindingResponse struct {
	ID              string    `json:"id"`
	ControlID       string    `json:"control_id"`
	Title           string    `json:"title"`
	Severity        string    `json:"severity"`
	Status          string    `json:"status"`
	Provider        string    `json:"provider,omitempty"`
	AccountID       string    `json:"account_id,omitempty"`
	Region          string    `json:"region,omitempty"`
	Resource        string    `json:"resource,omitempty"`
	Service         string    `json:"service,omitempty"`
	Description     *string   `json:"description,omitempty"`
	Remediation     *string   `json:"remediation,omitempty"`
	ReportDate      string    `json:"report_date"`
	OccurrenceCount int       `json:"occurrence_count"`
	FirstSeenAt     time.Time `json:"first_seen_at"`
	LastSeenAt      time.Time `json:"last_seen_at"`
}

func toCloudFindingResponse(f *cloudfinding.Finding) *CloudFindingResponse {
	return &CloudFindingResponse{
		ID:              f.ID().String(),
		ControlID:       f.ControlID(),
		Title:           f.Title(),
		Severity:        f.Severity().String(),
		Status:          f.Status().String(),
		Provider:        f.Provider(),
		AccountID:       f.AccountID(),
		Region:          f.Region(),
		Resource:        f.Resource(),
		Service:         f.Service(),
		Description:     f.Description(),
		Remediation:     f.Remediation(),
		ReportDate:      f.ReportDate().Format("2006-01-02"),
		OccurrenceCount: f.OccurrenceCount(),
		FirstSeenAt:     f.FirstSeenAt(),
		LastSeenAt:      f.LastSeenAt(),
	}
}

// List handles GET /api/v1/cloud-findings
// @Summary      List cloud compliance findings
// @Tags         CloudFindings
// @Produce      json
// @Param        severity  query     string  false  "Filter by severity"
// @Param        status    query     string  false  "Filter by status"
// @Param        provider  query     string  false  "Filter by cloud provider"
// @Param        region    query     string  false  "Filter by region"
// @Param        page      query     int     false  "Page number" default(1)
// @Param        per_page  query     int     false  "Items per page" default(20)
// @Success      200  {object}  ListResponse[CloudFindingResponse]
// @Security     BearerAuth
// @Router       /cloud-findings [get]
func (h *CloudFindingHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := cloudfinding.Filter{
		Severity: shared.Severity(r.URL.Query().Get("severity")),
		Status:   shared.RecordStatus(r.URL.Query().Get("status")),
		Provider: r.URL.Query().Get("provider"),
		Region:   r.URL.Query().Get("region"),
	}

	page := pagination.New(
		parseQueryInt(r.URL.Query().Get("page"), 1),
		parseQueryInt(r.URL.Query().Get("per_page"), 20),
	)

	result, err := h.repo.List(r.Context(), filter, page)
	if err != nil {
		h.logger.WithError(err).Error("list cloud findings failed")
		apierror.InternalError(err).WriteJSON(w)
		return
	}

	items := make([]*CloudFindingResponse, len(result.Data))
	for i, f := range result.Data {
		items[i] = toCloudFindingResponse(f)
	}

	resp := ListResponse[*CloudFindingResponse]{
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
