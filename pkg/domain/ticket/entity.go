// Package ticket models workflow items ingested from ticketing exports.
// Two kinds exist: phishing reports (identified by subject, reporter domain
// and report day) and generic tracker tickets (identified by ticket key).
package ticket

import (
	"fmt"
	"time"

	"github.com/secboard/api/pkg/domain/shared"
)

// Kind distinguishes the ticket families.
type Kind string

// Ticket kinds.
const (
	KindPhishing Kind = "phishing"
	KindGeneric  Kind = "generic"
)

// IsValid checks if the kind is known.
func (k Kind) IsValid() bool {
	return k == KindPhishing || k == KindGeneric
}

// Ticket is one normalized ticketing record.
type Ticket struct {
	id           shared.ID
	duplicateKey string
	kind         Kind
	subject      string
	status       shared.RecordStatus
	severity     shared.Severity

	ticketKey      string
	reporter       string
	reporterDomain string
	assignee       string
	category       string

	description *string
	resolution  *string

	reportedAt *time.Time
	resolvedAt *time.Time
	reportDate time.Time

	occurrenceCount int
	firstSeenAt     time.Time
	lastSeenAt      time.Time
}

// New creates a ticket on first sight of its duplicate key.
func New(duplicateKey string, kind Kind, subject string, reportDate time.Time) (*Ticket, error) {
	if duplicateKey == "" {
		return nil, fmt.Errorf("%w: duplicate key is required", shared.ErrValidation)
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: invalid ticket kind %q", shared.ErrValidation, kind)
	}
	if subject == "" {
		return nil, fmt.Errorf("%w: subject is required", shared.ErrValidation)
	}

	now := time.Now().UTC()
	return &Ticket{
		id:              shared.NewID(),
		duplicateKey:    duplicateKey,
		kind:            kind,
		subject:         subject,
		status:          shared.StatusOpen,
		severity:        shared.SeverityInfo,
		reportDate:      reportDate,
		occurrenceCount: 1,
		firstSeenAt:     now,
		lastSeenAt:      now,
	}, nil
}

func (t *Ticket) ID() shared.ID               { return t.id }
func (t *Ticket) DuplicateKey() string        { return t.duplicateKey }
func (t *Ticket) Kind() Kind                  { return t.kind }
func (t *Ticket) Subject() string             { return t.subject }
func (t *Ticket) Status() shared.RecordStatus { return t.status }
func (t *Ticket) Severity() shared.Severity   { return t.severity }
func (t *Ticket) TicketKey() string           { return t.ticketKey }
func (t *Ticket) Reporter() string            { return t.reporter }
func (t *Ticket) ReporterDomain() string      { return t.reporterDomain }
func (t *Ticket) Assignee() string            { return t.assignee }
func (t *Ticket) Category() string            { return t.category }
func (t *Ticket) Description() *string        { return t.description }
func (t *Ticket) Resolution() *string         { return t.resolution }
func (t *Ticket) ReportedAt() *time.Time      { return t.reportedAt }
func (t *Ticket) ResolvedAt() *time.Time      { return t.resolvedAt }
func (t *Ticket) ReportDate() time.Time       { return t.reportDate }
func (t *Ticket) OccurrenceCount() int        { return t.occurrenceCount }
func (t *Ticket) FirstSeenAt() time.Time      { return t.firstSeenAt }
func (t *Ticket) LastSeenAt() time.Time       { return t.lastSeenAt }

// SetStatus sets the normalized status.
func (t *Ticket) SetStatus(s shared.RecordStatus) { t.status = s }

// SetSeverity sets the normalized severity.
func (t *Ticket) SetSeverity(s shared.Severity) { t.severity = s }

// SetTicketKey sets the tracker key, e.g. "SEC-1042".
func (t *Ticket) SetTicketKey(k string) { t.ticketKey = k }

// SetReporter sets the reporter address and its registrable domain.
func (t *Ticket) SetReporter(reporter, reporterDomain string) {
	t.reporter = reporter
	t.reporterDomain = reporterDomain
}

// SetAssignment sets assignee and category.
func (t *Ticket) SetAssignment(assignee, category string) {
	t.assignee = assignee
	t.category = category
}

// SetDescription sets the description.
func (t *Ticket) SetDescription(v *string) { t.description = v }

// SetResolution sets the resolution text.
func (t *Ticket) SetResolution(v *string) { t.resolution = v }

// SetReportedAt sets when the ticket was opened at the source.
func (t *Ticket) SetReportedAt(v *time.Time) { t.reportedAt = v }

// SetResolvedAt sets when the ticket was closed at the source.
func (t *Ticket) SetResolvedAt(v *time.Time) { t.resolvedAt = v }

// MeaningfulFieldsDiffer reports whether any reconciled field changed
// between the stored record and the incoming one.
func (t *Ticket) MeaningfulFieldsDiffer(incoming *Ticket) bool {
	return t.status != incoming.status ||
		t.severity != incoming.severity ||
		shared.StringChanged(t.subject, incoming.subject) ||
		shared.StringChanged(t.assignee, incoming.assignee) ||
		shared.StringPtrChanged(t.description, incoming.description) ||
		shared.StringPtrChanged(t.resolution, incoming.resolution) ||
		resolvedChanged(t.resolvedAt, incoming.resolvedAt)
}

func resolvedChanged(a, b *time.Time) bool {
	if a == nil && b == nil {
		return false
	}
	if a == nil || b == nil {
		return true
	}
	return !a.Equal(*b)
}

// ApplyUpdate copies business fields from the incoming record and
// refreshes the freshness stamp.
func (t *Ticket) ApplyUpdate(incoming *Ticket) {
	t.subject = incoming.subject
	t.status = incoming.status
	t.severity = incoming.severity
	t.reporter = incoming.reporter
	t.reporterDomain = incoming.reporterDomain
	t.assignee = incoming.assignee
	t.category = incoming.category
	t.description = incoming.description
	t.resolution = incoming.resolution
	t.reportedAt = incoming.reportedAt
	t.resolvedAt = incoming.resolvedAt
	t.Touch()
}

// Touch refreshes the last-seen stamp and increments the occurrence counter.
func (t *Ticket) Touch() {
	t.occurrenceCount++
	t.lastSeenAt = time.Now().UTC()
}

// Reconstitute recreates a Ticket from persistence.
func Reconstitute(
	id shared.ID,
	duplicateKey string,
	kind Kind,
	subject string,
	status shared.RecordStatus,
	severity shared.Severity,
	ticketKey, reporter, reporterDomain, assignee, category string,
	description, resolution *string,
	reportedAt, resolvedAt *time.Time,
	reportDate time.Time,
	occurrenceCount int,
	firstSeenAt, lastSeenAt time.Time,
) *Ticket {
	return &Ticket{
		id:              id,
		duplicateKey:    duplicateKey,
		kind:            kind,
		subject:         subject,
		status:          status,
		severity:        severity,
		ticketKey:       ticketKey,
		reporter:        reporter,
		reporterDomain:  reporterDomain,
		assignee:        assignee,
		category:        category,
		description:     description,
		resolution:      resolution,
		reportedAt:      reportedAt,
		resolvedAt:      resolvedAt,
		reportDate:      reportDate,
		occurrenceCount: occurrenceCount,
		firstSeenAt:     firstSeenAt,
		lastSeenAt:      lastSeenAt,
	}
}
