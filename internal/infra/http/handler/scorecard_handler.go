package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/secboard/api/pkg/apierror"
	"github.com/secboard/api/pkg/domain/scorecard"
	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/logger"
	"github.com/secboard/api/pkg/pagination"
)

// ScorecardHandler handles HTTP requests for security rating summaries
// and their issue details.
type ScorecardHandler struct {
	summaries scorecard.SummaryRepository
	issues    scorecard.IssueRepository
	logger    *logger.Logger
}

// NewScorecardHandler creates a new ScorecardHandler.
func NewScorecardHandler(summaries scorecard.SummaryRepository, issues scorecard.IssueRepository, log *logger.Logger) *ScorecardHandler {
	return &ScorecardHandler{
		summaries: summaries,
		issues:    issues,
		logger:    log.With("handler", "scorecard"),
	}
}

// ScorecardSummaryResponse represents one per-category rating row.
type ScorecardSummaryResponse struct {
	ID              string    `json:"id"`
	DuplicateKey    string    `json:"duplicate_key"`
	Category        string    `json:"category"`
	Score           *float64  `json:"score,omitempty"`
	Grade           string    `json:"grade,omitempty"`
	IssueCount      *float64  `json:"issue_count,omitempty"`
	ReportDate      string    `json:"report_date"`
	OccurrenceCount int       `json:"occurrence_count"`
	FirstSeenAt     time.Time `json:"first_seen_at"`
	LastSeenAt      time.Time `json:"last_seen_at"`
}

// ScorecardIssueResponse represents one vendor issue row.
type ScorecardIssueResponse struct {
	ID              string     `json:"id"`
	IssueID         string     `json:"issue_id"`
	Category        string     `json:"category"`
	Title           string     `json:"title"`
	Severity        string     `json:"severity"`
	Status          string     `json:"status"`
	Asset           string     `json:"asset,omitempty"`
	Description     *string    `json:"description,omitempty"`
	FirstSeenVendor *time.Time `json:"first_seen_vendor,omitempty"`
	ReportDate      string     `json:"report_date"`
	OccurrenceCount int        `json:"occurrence_count"`
	FirstSeenAt     time.Time  `json:"first_seen_at"`
	LastSeenAt      time.Time  `json:"last_seen_at"`
}

func toScorecardSummaryResponse(s *scorecard.Summary) *ScorecardSummaryResponse {
	return &ScorecardSummaryResponse{
		ID:              s.ID().String(),
		DuplicateKey:    s.DuplicateKey(),
		Category:        s.Category(),
		Score:           s.Score(),
		Grade:           s.Grade(),
		IssueCount:      s.IssueCount(),
		ReportDate:      s.ReportDate().Format("2006-01-02"),
		OccurrenceCount: s.OccurrenceCount(),
		FirstSeenAt:     s.FirstSeenAt(),
		LastSeenAt:      s.LastSeenAt(),
	}
}

func toScorecardIssueResponse(i *scorecard.Issue) *ScorecardIssueResponse {
	return &ScorecardIssueResponse{
		ID:              i.ID().String(),
		IssueID:         i.IssueID(),
		Category:        i.Category(),
		Title:           i.Title(),
		Severity:        i.Severity().String(),
		Status:          i.Status().String(),
		Asset:           i.Asset(),
		Description:     i.Description(),
		FirstSeenVendor: i.FirstSeenVendor(),
		ReportDate:      i.ReportDate().Format("2006-01-02"),
		OccurrenceCount: i.OccurrenceCount(),
		FirstSeenAt:     i.FirstSeenAt(),
		LastSeenAt:      i.LastSeenAt(),
	}
}

// ListSummaries handles GET /api/v1/scorecard/summaries
// @Summary      List scorecard summaries
// @Tags         Scorecards
// @Produce      json
// @Param        category  query     string  false  "Filter by rating category"
// @Param        since     query     string  false  "Only rows with report date at or after this date (RFC 3339)"
// @Param        page      query     int     false  "Page number" default(1)
// @Param        per_page  query     int     false  "Items per page" default(20)
// @Success      200  {object}  ListResponse[ScorecardSummaryResponse]
// @Failure      400  {object}  apierror.Error
// @Security     BearerAuth
// @Router       /scorecard/summaries [get]
func (h *ScorecardHandler) ListSummaries(w http.ResponseWriter, r *http.Request) {
	filter := scorecard.SummaryFilter{
		Category: r.URL.Query().Get("category"),
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

	result, err := h.summaries.List(r.Context(), filter, page)
	if err != nil {
		h.logger.WithError(err).Error("list scorecard summaries failed")
		apierror.InternalError(err).WriteJSON(w)
		return
	}

	items := make([]*ScorecardSummaryResponse, len(result.Data))
	for i, s := range result.Data {
		items[i] = toScorecardSummaryResponse(s)
	}

	resp := ListResponse[*ScorecardSummaryResponse]{
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

// ListIssues handles GET /api/v1/scorecard/issues
// @Summary      List scorecard issues
// @Tags         Scorecards
// @Produce      json
// @Param        category  query     string  false  "Filter by rating category"
// @Param        severity  query     string  false  "Filter by severity"
// @Param        status    query     string  false  "Filter by status"
// @Param        page      query     int     false  "Page number" default(1)
// @Param        per_page  query     int     false  "Items per page" default(20)
// @Success      200  {object}  ListResponse[ScorecardIssueResponse]
// @Security     BearerAuth
// @Router       /scorecard/issues [get]
func (h *ScorecardHandler) ListIssues(w http.ResponseWriter, r *http.Request) {
	filter := scorecard.IssueFilter{
		Category: r.URL.Query().Get("category"),
		Severity: shared.Severity(r.URL.Query().Get("severity")),
		Status:   shared.RecordStatus(r.URL.Query().Get("status")),
	}

	page := pagination.New(
		parseQueryInt(r.URL.Query().Get("page"), 1),
		parseQueryInt(r.URL.Query().Get("per_page"), 20),
	)

	result, err := h.issues.List(r.Context(), filter, page)
	if err != nil {
		h.logger.WithError(err).Error("list scorecard issues failed")
		apierror.InternalError(err).WriteJSON(w)
		return
	}

	items := make([]*ScorecardIssueResponse, len(result.Data))
	for i, issue := range result.Data {
		items[i] = toScorecardIssueResponse(issue)
	}

	resp := ListResponse[*ScorecardIssueResponse]{
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
