package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/secboard/api/pkg/apierror"
	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/domain/vulnerability"
	"github.com/secboard/api/pkg/logger"
	"github.com/secboard/api/pkg/pagination"
)

// VulnerabilityHandler handles HTTP requests for scanner vulnerabilities.
type VulnerabilityHandler struct {
	repo   vulnerability.Repository
	logger *logger.Logger
}

// NewVulnerabilityHandler creates a new VulnerabilityHandler.
func NewVulnerabilityHandler(repo vulnerability.Repository, log *logger.Logger) *VulnerabilityHandler {
	return &VulnerabilityHandler{
		repo:   repo,
		logger: log.With("handler", "vulnerability"),
	}
}

// VulnerabilityResponse represents a vulnerability record.
type VulnerabilityResponse struct {
	ID              string    `json:"id"`
	DuplicateKey    string    `json:"duplicate_key"`
	PluginID        string    `json:"plugin_id"`
	Hostname        string    `json:"hostname"`
	Port            int       `json:"port"`
	Protocol        string    `json:"protocol,omitempty"`
	Name            string    `json:"name"`
	Severity        string    `json:"severity"`
	Status          string    `json:"status"`
	CVSSScore       *float64  `json:"cvss_score,omitempty"`
	Synopsis        *string   `json:"synopsis,omitempty"`
	Description     *string   `json:"description,omitempty"`
	Solution        *string   `json:"solution,omitempty"`
	SeeAlso         *string   `json:"see_also,omitempty"`
	IPAddress       string    `json:"ip_address,omitempty"`
	ReportDate      string    `json:"report_date"`
	OccurrenceCount int       `json:"occurrence_count"`
	FirstSeenAt     time.Time `json:"first_seen_at"`
	LastSeenAt      time.Time `json:"last_seen_at"`
}

func toVulnerabilityResponse(v *vulnerability.Vulnerability) *VulnerabilityResponse {
	return &VulnerabilityResponse{
		ID:              v.ID().String(),
		DuplicateKey:    v.DuplicateKey(),
		PluginID:        v.PluginID(),
		Hostname:        v.Hostname(),
		Port:            v.Port(),
		Protocol:        v.Protocol(),
		Name:            v.Name(),
		Severity:        v.Severity().String(),
		Status:          v.Status().String(),
		CVSSScore:       v.CVSSScore(),
		Synopsis:        v.Synopsis(),
		Description:     v.Description(),
		Solution:        v.Solution(),
		SeeAlso:         v.SeeAlso(),
		IPAddress:       v.IPAddress(),
		ReportDate:      v.ReportDate().Format("2006-01-02"),
		OccurrenceCount: v.OccurrenceCount(),
		FirstSeenAt:     v.FirstSeenAt(),
		LastSeenAt:      v.LastSeenAt(),
	}
}

// List handles GET /api/v1/vulnerabilities
// @Summary      List vulnerabilities
// @Description  Get a paginated list of scanner findings, most recently seen first
// @Tags         Vulnerabilities
// @Produce      json
// @Param        severity   query     string  false  "Filter by severity"
// @Param        status     query     string  false  "Filter by status"
// @Param        hostname   query     string  false  "Filter by hostname"
// @Param        plugin_id  query     string  false  "Filter by scanner plugin ID"
// @Param        page       query     int     false  "Page number" default(1)
// @Param        per_page   query     int     false  "Items per page" default(20)
// @Success      200  {object}  ListResponse[VulnerabilityResponse]
// @Failure      400  {object}  apierror.Error
// @Security     BearerAuth
// @Router       /vulnerabilities [get]
func (h *VulnerabilityHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := vulnerability.Filter{
		Severity: shared.Severity(r.URL.Query().Get("severity")),
		Status:   shared.RecordStatus(r.URL.Query().Get("status")),
		Hostname: r.URL.Query().Get("hostname"),
		PluginID: r.URL.Query().Get("plugin_id"),
	}

	page := pagination.New(
		parseQueryInt(r.URL.Query().Get("page"), 1),
		parseQueryInt(r.URL.Query().Get("per_page"), 20),
	)

	result, err := h.repo.List(r.Context(), filter, page)
	if err != nil {
		h.logger.WithError(err).Error("list vulnerabilities failed")
		apierror.InternalError(err).WriteJSON(w)
		return
	}

	items := make([]*VulnerabilityResponse, len(result.Data))
	for i, v := range result.Data {
		items[i] = toVulnerabilityResponse(v)
	}

	resp := ListResponse[*VulnerabilityResponse]{
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
