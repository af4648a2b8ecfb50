// Package cloudfinding models CSPM control findings. Cloud exports carry a
// stable control identifier per row, so that identifier is used directly as
// the duplicate key instead of deriving one.
package cloudfinding

import (
	"fmt"
	"time"

	"github.com/secboard/api/pkg/domain/shared"
)

// Finding is one normalized cloud-posture control finding.
type Finding struct {
	id        shared.ID
	controlID string
	title     string
	severity  shared.Severity
	status    shared.RecordStatus

	provider  string
	accountID string
	region    string
	resource  string
	service   string

	description *string
	remediation *string

	reportDate      time.Time
	occurrenceCount int
	firstSeenAt     time.Time
	lastSeenAt      time.Time
}

// New creates a finding on first sight of its control ID.
func New(controlID, title string, severity shared.Severity, reportDate time.Time) (*Finding, error) {
	if controlID == "" {
		return nil, fmt.Errorf("%w: control id is required", shared.ErrValidation)
	}
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", shared.ErrValidation)
	}

	now := time.Now().UTC()
	return &Finding{
		id:              shared.NewID(),
		controlID:       controlID,
		title:           title,
		severity:        severity,
		status:          shared.StatusOpen,
		reportDate:      reportDate,
		occurrenceCount: 1,
		firstSeenAt:     now,
		lastSeenAt:      now,
	}, nil
}

func (f *Finding) ID() shared.ID                { return f.id }
func (f *Finding) ControlID() string            { return f.controlID }
func (f *Finding) Title() string                { return f.title }
func (f *Finding) Severity() shared.Severity    { return f.severity }
func (f *Finding) Status() shared.RecordStatus  { return f.status }
func (f *Finding) Provider() string             { return f.provider }
func (f *Finding) AccountID() string            { return f.accountID }
func (f *Finding) Region() string               { return f.region }
func (f *Finding) Resource() string             { return f.resource }
func (f *Finding) Service() string              { return f.service }
func (f *Finding) Description() *string         { return f.description }
func (f *Finding) Remediation() *string         { return f.remediation }
func (f *Finding) ReportDate() time.Time        { return f.reportDate }
func (f *Finding) OccurrenceCount() int         { return f.occurrenceCount }
func (f *Finding) FirstSeenAt() time.Time       { return f.firstSeenAt }
func (f *Finding) LastSeenAt() time.Time        { return f.lastSeenAt }

// SetStatus sets the normalized status.
func (f *Finding) SetStatus(s shared.RecordStatus) { f.status = s }

// SetScope sets the cloud scope fields in one call.
func (f *Finding) SetScope(provider, accountID, region, resource, service string) {
	f.provider = provider
	f.accountID = accountID
	f.region = region
	f.resource = resource
	f.service = service
}

// SetDescription sets the description.
func (f *Finding) SetDescription(v *string) { f.description = v }

// SetRemediation sets the remediation text.
func (f *Finding) SetRemediation(v *string) { f.remediation = v }

// MeaningfulFieldsDiffer reports whether any reconciled field changed
// between the stored record and the incoming one.
func (f *Finding) MeaningfulFieldsDiffer(incoming *Finding) bool {
	return f.severity != incoming.severity ||
		f.status != incoming.status ||
		shared.StringChanged(f.title, incoming.title) ||
		shared.StringChanged(f.resource, incoming.resource) ||
		shared.StringPtrChanged(f.description, incoming.description) ||
		shared.StringPtrChanged(f.remediation, incoming.remediation)
}

// ApplyUpdate copies business fields from the incoming record and
// refreshes the freshness stamp.
func (f *Finding) ApplyUpdate(incoming *Finding) {
	f.title = incoming.title
	f.severity = incoming.severity
	f.status = incoming.status
	f.provider = incoming.provider
	f.accountID = incoming.accountID
	f.region = incoming.region
	f.resource = incoming.resource
	f.service = incoming.service
	f.description = incoming.description
	f.remediation = incoming.remediation
	f.Touch()
}

// Touch refreshes the last-seen stamp and increments the occurrence counter.
func (f *Finding) Touch() {
	f.occurrenceCount++
	f.lastSeenAt = time.Now().UTC()
}

// Reconstitute recreates a Finding from persistence.
func Reconstitute(
	id shared.ID,
	controlID, title string,
	severity shared.Severity,
	status shared.RecordStatus,
	provider, accountID, region, resource, service string,
	description, remediation *string,
	reportDate time.Time,
	occurrenceCount int,
	firstSeenAt, lastSeenAt time.Time,
) *Finding {
	return &Finding{
		id:              id,
		controlID:       controlID,
		title:           title,
		severity:        severity,
		status:          status,
		provider:        provider,
		accountID:       accountID,
		region:          region,
		resource:        resource,
		service:         service,
		description:     description,
		remediation:     remediation,
		reportDate:      reportDate,
		occurrenceCount: occurrenceCount,
		firstSeenAt:     firstSeenAt,
		lastSeenAt:      lastSeenAt,
	}
}
