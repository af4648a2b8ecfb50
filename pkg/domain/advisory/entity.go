// Package advisory models threat advisories published by intel feeds.
package advisory

import (
	"fmt"
	"time"

	"github.com/secboard/api/pkg/domain/shared"
)

// Advisory is one normalized threat advisory. Identity is the advisory name
// plus its feed, release date and the report day it arrived under, so the
// same bulletin in consecutive daily feeds lands on one record.
type Advisory struct {
	id           shared.ID
	duplicateKey string
	name         string
	source       string
	severity     shared.Severity
	status       shared.RecordStatus

	cveRefs     string
	vendor      string
	product     string
	description *string
	link        *string

	releaseDate *time.Time
	reportDate  time.Time

	occurrenceCount int
	firstSeenAt     time.Time
	lastSeenAt      time.Time
}

// New creates an advisory on first sight of its duplicate key.
func New(duplicateKey, name, source string, severity shared.Severity, reportDate time.Time) (*Advisory, error) {
	if duplicateKey == "" {
		return nil, fmt.Errorf("%w: duplicate key is required", shared.ErrValidation)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", shared.ErrValidation)
	}

	now := time.Now().UTC()
	return &Advisory{
		id:              shared.NewID(),
		duplicateKey:    duplicateKey,
		name:            name,
		source:          source,
		severity:        severity,
		status:          shared.StatusOpen,
		reportDate:      reportDate,
		occurrenceCount: 1,
		firstSeenAt:     now,
		lastSeenAt:      now,
	}, nil
}

func (a *Advisory) ID() shared.ID               { return a.id }
func (a *Advisory) DuplicateKey() string        { return a.duplicateKey }
func (a *Advisory) Name() string                { return a.name }
func (a *Advisory) Source() string              { return a.source }
func (a *Advisory) Severity() shared.Severity   { return a.severity }
func (a *Advisory) Status() shared.RecordStatus { return a.status }
func (a *Advisory) CVERefs() string             { return a.cveRefs }
func (a *Advisory) Vendor() string              { return a.vendor }
func (a *Advisory) Product() string             { return a.product }
func (a *Advisory) Description() *string        { return a.description }
func (a *Advisory) Link() *string               { return a.link }
func (a *Advisory) ReleaseDate() *time.Time     { return a.releaseDate }
func (a *Advisory) ReportDate() time.Time       { return a.reportDate }
func (a *Advisory) OccurrenceCount() int        { return a.occurrenceCount }
func (a *Advisory) FirstSeenAt() time.Time      { return a.firstSeenAt }
func (a *Advisory) LastSeenAt() time.Time       { return a.lastSeenAt }

// SetStatus sets the normalized status.
func (a *Advisory) SetStatus(s shared.RecordStatus) { a.status = s }

// SetCVERefs sets the comma-joined CVE references.
func (a *Advisory) SetCVERefs(refs string) { a.cveRefs = refs }

// SetAffected sets vendor and product.
func (a *Advisory) SetAffected(vendor, product string) {
	a.vendor = vendor
	a.product = product
}

// SetDescription sets the description.
func (a *Advisory) SetDescription(v *string) { a.description = v }

// SetLink sets the advisory link.
func (a *Advisory) SetLink(v *string) { a.link = v }

// SetReleaseDate sets the feed release date.
func (a *Advisory) SetReleaseDate(v *time.Time) { a.releaseDate = v }

// MeaningfulFieldsDiffer reports whether any reconciled field changed
// between the stored record and the incoming one.
func (a *Advisory) MeaningfulFieldsDiffer(incoming *Advisory) bool {
	return a.severity != incoming.severity ||
		a.status != incoming.status ||
		shared.StringChanged(a.cveRefs, incoming.cveRefs) ||
		shared.StringChanged(a.vendor, incoming.vendor) ||
		shared.StringChanged(a.product, incoming.product) ||
		shared.StringPtrChanged(a.description, incoming.description) ||
		shared.StringPtrChanged(a.link, incoming.link)
}

// ApplyUpdate copies business fields from the incoming record and
// refreshes the freshness stamp.
func (a *Advisory) ApplyUpdate(incoming *Advisory) {
	a.severity = incoming.severity
	a.status = incoming.status
	a.cveRefs = incoming.cveRefs
	a.vendor = incoming.vendor
	a.product = incoming.product
	a.description = incoming.description
	a.link = incoming.link
	a.Touch()
}

// Touch refreshes the last-seen stamp and increments the occurrence counter.
func (a *Advisory) Touch() {
	a.occurrenceCount++
	a.lastSeenAt = time.Now().UTC()
}

// Reconstitute recreates an Advisory from persistence.
func Reconstitute(
	id shared.ID,
	duplicateKey, name, source string,
	severity shared.Severity,
	status shared.RecordStatus,
	cveRefs, vendor, product string,
	description, link *string,
	releaseDate *time.Time,
	reportDate time.Time,
	occurrenceCount int,
	firstSeenAt, lastSeenAt time.Time,
) *Advisory {
	return &Advisory{
		id:              id,
		duplicateKey:    duplicateKey,
		name:            name,
		source:          source,
		severity:        severity,
		status:          status,
		cveRefs:         cveRefs,
		vendor:          vendor,
		product:         product,
		description:     description,
		link:            link,
		releaseDate:     releaseDate,
		reportDate:      reportDate,
		occurrenceCount: occurrenceCount,
		firstSeenAt:     firstSeenAt,
		lastSeenAt:      lastSeenAt,
	}
}
