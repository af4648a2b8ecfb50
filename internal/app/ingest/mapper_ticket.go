package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/domain/ticket"
)

func ticketReconciler(repo ticket.Repository) *Reconciler[*ticket.Ticket] {
	return NewReconciler[*ticket.Ticket](
		repo,
		"ticket",
		func(t *ticket.Ticket) string { return t.DuplicateKey() },
		func(existing, incoming *ticket.Ticket) bool { return existing.MeaningfulFieldsDiffer(incoming) },
		func(existing, incoming *ticket.Ticket) { existing.ApplyUpdate(incoming) },
	)
}

// PhishingHandler maps phishing-report tracker exports.
type PhishingHandler struct {
	reconciler *Reconciler[*ticket.Ticket]
}

// NewPhishingHandler creates the handler.
func NewPhishingHandler(repo ticket.Repository) *PhishingHandler {
	return &PhishingHandler{reconciler: ticketReconciler(repo)}
}

// Specs returns the phishing tracker header table.
func (h *PhishingHandler) Specs() []FieldSpec {
	return []FieldSpec{
		{Name: "subject", Synonyms: []string{"Subject", "Email Subject"}, Fallback: 0},
		{Name: "reporter", Synonyms: []string{"Reporter", "Reported By", "From"}, Fallback: 1},
		{Name: "reported", Synonyms: []string{"Reported", "Date Reported", "Created"}, Fallback: 2},
		{Name: "status", Synonyms: []string{"Status"}, Fallback: 3},
		{Name: "category", Synonyms: []string{"Category", "Classification"}, Fallback: 4},
		{Name: "description", Synonyms: []string{"Description", "Notes"}, Fallback: -1},
	}
}

// HandleRow maps one phishing report and reconciles it.
func (h *PhishingHandler) HandleRow(ctx context.Context, row Row, reportDate time.Time) (Outcome, error) {
	subject := row.Get("subject")
	if subject == "" {
		return "", fmt.Errorf("%w: missing subject", shared.ErrInvalidInput)
	}

	reporter := row.Get("reporter")
	reporterDomain := reporterDomainOf(reporter)

	reportedAt := ParseDate(row.Get("reported"))
	day := reportDate
	if reportedAt != nil {
		day = *reportedAt
	}

	// Identity: the same campaign reported by the same organization on the
	// same day is one ticket, however many users forwarded it.
	key := DeriveKey(day, subject, reporterDomain, DayBucket(day).Format("20060102"))

	rec, err := ticket.New(key, ticket.KindPhishing, subject, reportDate)
	if err != nil {
		return "", err
	}
	rec.SetStatus(NormalizeStatus(row.Get("status")))
	rec.SetReporter(reporter, reporterDomain)
	rec.SetAssignment("", row.Get("category"))
	rec.SetDescription(OptionalString(row.Get("description")))
	rec.SetReportedAt(reportedAt)

	return h.reconciler.Reconcile(ctx, rec)
}

// reporterDomainOf extracts the registrable domain from a reporter address,
// so "alice@mail.corp.example.co.uk" groups under "example.co.uk".
func reporterDomainOf(reporter string) string {
	addr := strings.TrimSpace(strings.ToLower(reporter))
	if at := strings.LastIndex(addr, "@"); at >= 0 {
		addr = addr[at+1:]
	}
	if addr == "" {
		return ""
	}
	if etld, err := publicsuffix.EffectiveTLDPlusOne(addr); err == nil {
		return etld
	}
	return addr
}

// GenericTicketHandler maps issue-tracker exports keyed by ticket key.
type GenericTicketHandler struct {
	reconciler *Reconciler[*ticket.Ticket]
}

// NewGenericTicketHandler creates the handler.
func NewGenericTicketHandler(repo ticket.Repository) *GenericTicketHandler {
	return &GenericTicketHandler{reconciler: ticketReconciler(repo)}
}

// Specs returns the tracker header table.
func (h *GenericTicketHandler) Specs() []FieldSpec {
	return []FieldSpec{
		{Name: "ticket_key", Synonyms: []string{"Issue Key", "Key", "Ticket ID", "Ticket"}, Fallback: 0},
		{Name: "subject", Synonyms: []string{"Summary", "Subject", "Title"}, Fallback: 1},
		{Name: "status", Synonyms: []string{"Status"}, Fallback: 2},
		{Name: "priority", Synonyms: []string{"Priority", "Severity"}, Fallback: 3},
		{Name: "assignee", Synonyms: []string{"Assignee", "Assigned To"}, Fallback: 4},
		{Name: "created", Synonyms: []string{"Created", "Created At"}, Fallback: 5},
		{Name: "resolved", Synonyms: []string{"Resolved", "Resolution Date"}, Fallback: 6},
		{Name: "category", Synonyms: []string{"Category", "Component", "Labels"}, Fallback: -1},
		{Name: "description", Synonyms: []string{"Description"}, Fallback: -1},
	}
}

// HandleRow maps one tracker row and reconciles it.
func (h *GenericTicketHandler) HandleRow(ctx context.Context, row Row, reportDate time.Time) (Outcome, error) {
	ticketKey := row.Get("ticket_key")
	if ticketKey == "" {
		return "", fmt.Errorf("%w: missing ticket key", shared.ErrInvalidInput)
	}
	subject := row.Get("subject")
	if subject == "" {
		subject = ticketKey
	}

	createdAt := ParseDate(row.Get("created"))
	day := reportDate
	if createdAt != nil {
		day = *createdAt
	}

	// The tracker key alone pins identity; the ticket keeps one record
	// across every export that mentions it.
	key := DeriveKey(day, ticketKey)

	rec, err := ticket.New(key, ticket.KindGeneric, subject, reportDate)
	if err != nil {
		return "", err
	}
	rec.SetTicketKey(ticketKey)
	rec.SetStatus(NormalizeStatus(row.Get("status")))
	rec.SetSeverity(NormalizeSeverity(row.Get("priority"), SeverityFallbackGeneric))
	rec.SetAssignment(row.Get("assignee"), row.Get("category"))
	rec.SetDescription(OptionalString(row.Get("description")))
	rec.SetReportedAt(createdAt)
	rec.SetResolvedAt(ParseDate(row.Get("resolved")))

	return h.reconciler.Reconcile(ctx, rec)
}
