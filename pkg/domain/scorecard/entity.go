// Package scorecard models external security rating exports. Two shapes
// exist: per-category summary rows keyed by category and report day, and
// issue-detail rows carrying a stable issue identifier from the rating
// vendor.
package scorecard

import (
	"fmt"
	"time"

	"github.com/secboard/api/pkg/domain/shared"
)

// Summary is one per-category score row for a report day.
type Summary struct {
	id           shared.ID
	duplicateKey string
	category     string
	score        *float64
	grade        string
	issueCount   *float64
	reportDate   time.Time

	occurrenceCount int
	firstSeenAt     time.Time
	lastSeenAt      time.Time
}

// NewSummary creates a summary row on first sight of its duplicate key.
func NewSummary(duplicateKey, category string, reportDate time.Time) (*Summary, error) {
	if duplicateKey == "" {
		return nil, fmt.Errorf("%w: duplicate key is required", shared.ErrValidation)
	}
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", shared.ErrValidation)
	}

	now := time.Now().UTC()
	return &Summary{
		id:              shared.NewID(),
		duplicateKey:    duplicateKey,
		category:        category,
		reportDate:      reportDate,
		occurrenceCount: 1,
		firstSeenAt:     now,
		lastSeenAt:      now,
	}, nil
}

func (s *Summary) ID() shared.ID          { return s.id }
func (s *Summary) DuplicateKey() string   { return s.duplicateKey }
func (s *Summary) Category() string       { return s.category }
func (s *Summary) Score() *float64        { return s.score }
func (s *Summary) Grade() string          { return s.grade }
func (s *Summary) IssueCount() *float64   { return s.issueCount }
func (s *Summary) ReportDate() time.Time  { return s.reportDate }
func (s *Summary) OccurrenceCount() int   { return s.occurrenceCount }
func (s *Summary) FirstSeenAt() time.Time { return s.firstSeenAt }
func (s *Summary) LastSeenAt() time.Time  { return s.lastSeenAt }

// SetScore sets the numeric score.
func (s *Summary) SetScore(v *float64) { s.score = v }

// SetGrade sets the letter grade.
func (s *Summary) SetGrade(g string) { s.grade = g }

// SetIssueCount sets the vendor-reported issue count for the category.
func (s *Summary) SetIssueCount(v *float64) { s.issueCount = v }

// MeaningfulFieldsDiffer reports whether any reconciled field changed
// between the stored row and the incoming one.
func (s *Summary) MeaningfulFieldsDiffer(incoming *Summary) bool {
	return shared.FloatPtrChanged(s.score, incoming.score) ||
		shared.StringChanged(s.grade, incoming.grade) ||
		shared.FloatPtrChanged(s.issueCount, incoming.issueCount)
}

// ApplyUpdate copies business fields from the incoming row and refreshes
// the freshness stamp.
func (s *Summary) ApplyUpdate(incoming *Summary) {
	s.score = incoming.score
	s.grade = incoming.grade
	s.issueCount = incoming.issueCount
	s.Touch()
}

// Touch refreshes the last-seen stamp and increments the occurrence counter.
func (s *Summary) Touch() {
	s.occurrenceCount++
	s.lastSeenAt = time.Now().UTC()
}

// ReconstituteSummary recreates a Summary from persistence.
func ReconstituteSummary(
	id shared.ID,
	duplicateKey, category string,
	score *float64,
	grade string,
	issueCount *float64,
	reportDate time.Time,
	occurrenceCount int,
	firstSeenAt, lastSeenAt time.Time,
) *Summary {
	return &Summary{
		id:              id,
		duplicateKey:    duplicateKey,
		category:        category,
		score:           score,
		grade:           grade,
		issueCount:      issueCount,
		reportDate:      reportDate,
		occurrenceCount: occurrenceCount,
		firstSeenAt:     firstSeenAt,
		lastSeenAt:      lastSeenAt,
	}
}

// Issue is one issue-detail row. The vendor's issue ID is stable across
// exports and serves directly as the duplicate key.
type Issue struct {
	id       shared.ID
	issueID  string
	category string
	title    string
	severity shared.Severity
	status   shared.RecordStatus

	asset       string
	description *string

	firstSeenVendor *time.Time
	reportDate      time.Time

	occurrenceCount int
	firstSeenAt     time.Time
	lastSeenAt      time.Time
}

// NewIssue creates an issue row on first sight of its vendor issue ID.
func NewIssue(issueID, category, title string, severity shared.Severity, reportDate time.Time) (*Issue, error) {
	if issueID == "" {
		return nil, fmt.Errorf("%w: issue id is required", shared.ErrValidation)
	}
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", shared.ErrValidation)
	}

	now := time.Now().UTC()
	return &Issue{
		id:              shared.NewID(),
		issueID:         issueID,
		category:        category,
		title:           title,
		severity:        severity,
		status:          shared.StatusOpen,
		reportDate:      reportDate,
		occurrenceCount: 1,
		firstSeenAt:     now,
		lastSeenAt:      now,
	}, nil
}

func (i *Issue) ID() shared.ID                { return i.id }
func (i *Issue) IssueID() string              { return i.issueID }
func (i *Issue) Category() string             { return i.category }
func (i *Issue) Title() string                { return i.title }
func (i *Issue) Severity() shared.Severity    { return i.severity }
func (i *Issue) Status() shared.RecordStatus  { return i.status }
func (i *Issue) Asset() string                { return i.asset }
func (i *Issue) Description() *string         { return i.description }
func (i *Issue) FirstSeenVendor() *time.Time  { return i.firstSeenVendor }
func (i *Issue) ReportDate() time.Time        { return i.reportDate }
func (i *Issue) OccurrenceCount() int         { return i.occurrenceCount }
func (i *Issue) FirstSeenAt() time.Time       { return i.firstSeenAt }
func (i *Issue) LastSeenAt() time.Time        { return i.lastSeenAt }

// SetStatus sets the normalized status.
func (i *Issue) SetStatus(s shared.RecordStatus) { i.status = s }

// SetAsset sets the affected asset.
func (i *Issue) SetAsset(a string) { i.asset = a }

// SetDescription sets the description.
func (i *Issue) SetDescription(v *string) { i.description = v }

// SetFirstSeenVendor sets the vendor's own first-seen stamp.
func (i *Issue) SetFirstSeenVendor(v *time.Time) { i.firstSeenVendor = v }

// MeaningfulFieldsDiffer reports whether any reconciled field changed
// between the stored row and the incoming one.
func (i *Issue) MeaningfulFieldsDiffer(incoming *Issue) bool {
	return i.severity != incoming.severity ||
		i.status != incoming.status ||
		shared.StringChanged(i.title, incoming.title) ||
		shared.StringChanged(i.asset, incoming.asset) ||
		shared.StringPtrChanged(i.description, incoming.description)
}

// ApplyUpdate copies business fields from the incoming row and refreshes
// the freshness stamp.
func (i *Issue) ApplyUpdate(incoming *Issue) {
	i.category = incoming.category
	i.title = incoming.title
	i.severity = incoming.severity
	i.status = incoming.status
	i.asset = incoming.asset
	i.description = incoming.description
	i.firstSeenVendor = incoming.firstSeenVendor
	i.Touch()
}

// Touch refreshes the last-seen stamp and increments the occurrence counter.
func (i *Issue) Touch() {
	i.occurrenceCount++
	i.lastSeenAt = time.Now().UTC()
}

// ReconstituteIssue recreates an Issue from persistence.
func ReconstituteIssue(
	id shared.ID,
	issueID, category, title string,
	severity shared.Severity,
	status shared.RecordStatus,
	asset string,
	description *string,
	firstSeenVendor *time.Time,
	reportDate time.Time,
	occurrenceCount int,
	firstSeenAt, lastSeenAt time.Time,
) *Issue {
	return &Issue{
		id:              id,
		issueID:         issueID,
		category:        category,
		title:           title,
		severity:        severity,
		status:          status,
		asset:           asset,
		description:     description,
		firstSeenVendor: firstSeenVendor,
		reportDate:      reportDate,
		occurrenceCount: occurrenceCount,
		firstSeenAt:     firstSeenAt,
		lastSeenAt:      lastSeenAt,
	}
}
