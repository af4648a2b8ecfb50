package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/secboard/api/pkg/apierror"
	"github.com/secboard/api/pkg/domain/detection"
	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/logger"
	"github.com/secboard/api/pkg/pagination"
)

// DetectionHandler handles HTTP requests for EDR and SIEM detections.
type DetectionHandler struct {
	repo   detection.Repository
	logger *logger.Logger
}

// NewDetectionHandler creates a new DetectionHandler.
func NewDetectionHandler(repo detection.Repository, log *logger.Logger) *DetectionHandler {
	return &DetectionHandler{
		repo:   repo,
		logger: log.With("handler", "detection"),
	}
}

// DetectionResponse represents a detection record.
type DetectionResponse struct {
	ID              string     `json:"id"`
	DuplicateKey    string     `json:"duplicate_key"`
	Source          string     `json:"source"`
	Title           string     `json:"title"`
	Severity        string     `json:"severity"`
	Status          string     `json:"status"`
	ThreatScore     *float64   `json:"threat_score,omitempty"`
	Confidence      *float64   `json:"confidence,omitempty"`
	StatusReason    *string    `json:"status_reason,omitempty"`
	TechniqueRef    *string    `json:"technique_ref,omitempty"`
	Tactic          *string    `json:"tactic,omitempty"`
	Description     *string    `json:"description,omitempty"`
	FileName        *string    `json:"file_name,omitempty"`
	CommandLine     *string    `json:"command_line,omitempty"`
	Detector        string     `json:"detector,omitempty"`
	SensorType      string     `json:"sensor_type,omitempty"`
	Domain          string     `json:"domain,omitempty"`
	Username        string     `json:"username,omitempty"`
	SourceIP        string     `json:"source_ip,omitempty"`
	DestinationIP   string     `json:"destination_ip,omitempty"`
	Hostname        string     `json:"hostname,omitempty"`
	Tenant          string     `json:"tenant,omitempty"`
	DetectedAt      *time.Time `json:"detected_at,omitempty"`
	ReportDate      string     `json:"report_date"`
	OccurrenceCount int        `json:"occurrence_count"`
	FirstSeenAt     time.Time  `json:"first_seen_at"`
	LastSeenAt      time.Time  `json:"last_seen_at"`
}

func toDetectionResponse(d *detection.Detection) *DetectionResponse {
	return &DetectionResponse{
		ID:              d.ID().String(),
		DuplicateKey:    d.DuplicateKey(),
		Source:          string(d.Source()),
		Title:           d.Title(),
		Severity:        d.Severity().String(),
		Status:          d.Status().String(),
		ThreatScore:     d.ThreatScore(),
		Confidence:      d.Confidence(),
		StatusReason:    d.StatusReason(),
		TechniqueRef:    d.TechniqueRef(),
		Tactic:          d.Tactic(),
		Description:     d.Description(),
		FileName:        d.FileName(),
		CommandLine:     d.CommandLine(),
		Detector:        d.Detector(),
		SensorType:      d.SensorType(),
		Domain:          d.Domain(),
		Username:        d.Username(),
		SourceIP:        d.SourceIP(),
		DestinationIP:   d.DestinationIP(),
		Hostname:        d.Hostname(),
		Tenant:          d.Tenant(),
		DetectedAt:      d.DetectedAt(),
		ReportDate:      d.ReportDate().Format("2006-01-02"),
		OccurrenceCount: d.OccurrenceCount(),
		FirstSeenAt:     d.FirstSeenAt(),
		LastSeenAt:      d.LastSeenAt(),
	}
}

// List handles GET /api/v1/detections
// @Summary      List detections
// @Description  Get a paginated list of detections, most recently seen first
// @Tags         Detections
// @Produce      json
// @Param        source    query     string  false  "Filter by source (edr, siem)"
// @Param        severity  query     string  false  "Filter by severity"
// @Param        status    query     string  false  "Filter by status"
// @Param        hostname  query     string  false  "Filter by hostname"
// @Param        page      query     int     false  "Page number" default(1)
// @Param        per_page  query     int     false  "Items per page" default(20)
// @Success      200  {object}  ListResponse[DetectionResponse]
// @Failure      400  {object}  apierror.Error
// @Security     BearerAuth
// @Router       /detections [get]
func (h *DetectionHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := detection.Filter{
		Source:   detection.Source(r.URL.Query().Get("source")),
		Severity: shared.Severity(r.URL.Query().Get("severity")),
		Status:   shared.RecordStatus(r.URL.Query().Get("status")),
		Hostname: r.URL.Query().Get("hostname"),
	}

	if filter.Source != "" && !filter.Source.IsValid() {
		apierror.BadRequest("Invalid source filter").WriteJSON(w)
		return
	}

	page := pagination.New(
		parseQueryInt(r.URL.Query().Get("page"), 1),
		parseQueryInt(r.URL.Query().Get("per_page"), 20),
	)

	result, err := h.repo.List(r.Context(), filter, page)
	if err != nil {
		h.logger.WithError(err).Error("list detections failed")
		apierror.InternalError(err).WriteJSON(w)
		return
	}

	items := make([]*DetectionResponse, len(result.Data))
	for i, d := range result.Data {
		items[i] = toDetectionResponse(d)
	}

	resp := ListResponse[*DetectionResponse]{
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
