package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/secboard/api/pkg/apierror"
	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/domain/ticket"
	"github.com/secboard/api/pkg/logger"
	"github.com/secboard/api/pkg/pagination"
)

// TicketHandler handles HTTP requests for incident and request tickets.
type TicketHandler struct {
	repo   ticket.Repository
	logger *logger.Logger
}

// NewTicketHandler creates a new TicketHandler.
func NewTicketHandler(repo ticket.Repository, log *logger.Logger) *TicketHandler {
	return &TicketHandler{
		repo:   repo,
		logger: log.With("handler", "ticket"),
	}
}

// TicketResponse represents a ticket record.
type TicketResponse struct {
	ID              string     `json:"id"`
	DuplicateKey    string     `json:"duplicate_key"`
	Kind            string     `json:"kind"`
	Subject         string     `json:"subject"`
	Status          string     `json:"status"`
	Severity        string     `json:"severity"`
	TicketKey       string     `json:"ticket_key,omitempty"`
	Reporter        string     `json:"reporter,omitempty"`
	ReporterDomain  string     `json:"reporter_domain,omitempty"`
	Assignee        string     `json:"assignee,omitempty"`
	Category        string     `json:"category,omitempty"`
	Description     *string    `json:"description,omitempty"`
	Resolution      *string    `json:"resolution,omitempty"`
	ReportedAt      *time.Time `json:"reported_at,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ReportDate      string     `json:"report_date"`
	OccurrenceCount int        `json:"occurrence_count"`
	FirstSeenAt     time.Time  `json:"first_seen_at"`
	LastSeenAt      time.Time  `json:"last_seen_at"`
}

func toTicketResponse(t *ticket.Ticket) *TicketResponse {
	return &TicketResponse{
		ID:              t.ID().String(),
		DuplicateKey:    t.DuplicateKey(),
		Kind:            string(t.Kind()),
		Subject:         t.Subject(),
		Status:          t.Status().String(),
		Severity:        t.Severity().String(),
		TicketKey:       t.TicketKey(),
		Reporter:        t.Reporter(),
		ReporterDomain:  t.ReporterDomain(),
		Assignee:        t.Assignee(),
		Category:        t.Category(),
		Description:     t.Description(),
		Resolution:      t.Resolution(),
		ReportedAt:      t.ReportedAt(),
		ResolvedAt:      t.ResolvedAt(),
		ReportDate:      t.ReportDate().Format("2006-01-02"),
		OccurrenceCount: t.OccurrenceCount(),
		FirstSeenAt:     t.FirstSeenAt(),
		LastSeenAt:      t.LastSeenAt(),
	}
}

// List handles GET /api/v1/tickets
// @Summary      List tickets
// @Tags         Tickets
// @Produce      json
// @Param        kind      query     string  false  "Filter by kind (incident, request)"
// @Param        status    query     string  false  "Filter by status"
// @Param        category  query     string  false  "Filter by category"
// @Param        assignee  query     string  false  "Filter by assignee"
// @Param        page      query     int     false  "Page number" default(1)
// @Param        per_page  query     int     false  "Items per page" default(20)
// @Success      200  {object}  ListResponse[TicketResponse]
// @Failure      400  {object}  apierror.Error
// @Security     BearerAuth
// @Router       /tickets [get]
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := ticket.Filter{
		Kind:     ticket.Kind(r.URL.Query().Get("kind")),
		Status:   shared.RecordStatus(r.URL.Query().Get("status")),
		Category: r.URL.Query().Get("category"),
		Assignee: r.URL.Query().Get("assignee"),
	}

	if filter.Kind != "" && !filter.Kind.IsValid() {
		apierror.BadRequest("Invalid kind filter").WriteJSON(w)
		return
	}

	page := pagination.New(
		parseQueryInt(r.URL.Query().Get("page"), 1),
		parseQueryInt(r.URL.Query().Get("per_page"), 20),
	)

	result, err := h.repo.List(r.Context(), filter, page)
	if err != nil {
		h.logger.WithError(err).Error("list tickets failed")
		apierror.InternalError(err).WriteJSON(w)
		return
	}

	items := make([]*TicketResponse, len(result.Data))
	for i, t := range result.Data {
		items[i] = toTicketResponse(t)
	}

	resp := ListResponse[*TicketResponse]{
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
