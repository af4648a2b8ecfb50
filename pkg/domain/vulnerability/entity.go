// Package vulnerability models normalized scanner findings. A finding's
// identity is the plugin that fired against a host and port, so rescans of
// the same host collapse onto one record instead of piling up duplicates.
package vulnerability

import (
	"fmt"
	"time"

	"github.com/secboard/api/pkg/domain/shared"
)

// Vulnerability is one normalized scanner finding.
type Vulnerability struct {
	id           shared.ID
	duplicateKey string
	pluginID     string
	hostname     string
	port         int
	protocol     string
	name         string
	severity     shared.Severity
	status       shared.RecordStatus

	cvssScore   *float64
	synopsis    *string
	description *string
	solution    *string
	seeAlso     *string
	pluginOut   *string

	ipAddress  string
	reportDate time.Time

	occurrenceCount int
	firstSeenAt     time.Time
	lastSeenAt      time.Time
}

// New creates a vulnerability on first sight of its duplicate key.
func New(duplicateKey, pluginID, hostname string, port int, name string, severity shared.Severity, reportDate time.Time) (*Vulnerability, error) {
	if duplicateKey == "" {
		return nil, fmt.Errorf("%w: duplicate key is required", shared.ErrValidation)
	}
	if pluginID == "" {
		return nil, fmt.Errorf("%w: plugin id is required", shared.ErrValidation)
	}
	if hostname == "" {
		return nil, fmt.Errorf("%w: hostname is required", shared.ErrValidation)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", shared.ErrValidation)
	}

	now := time.Now().UTC()
	return &Vulnerability{
		id:              shared.NewID(),
		duplicateKey:    duplicateKey,
		pluginID:        pluginID,
		hostname:        hostname,
		port:            port,
		name:            name,
		severity:        severity,
		status:          shared.StatusOpen,
		reportDate:      reportDate,
		occurrenceCount: 1,
		firstSeenAt:     now,
		lastSeenAt:      now,
	}, nil
}

// ID returns the vulnerability ID.
func (v *Vulnerability) ID() shared.ID { return v.id }

// DuplicateKey returns the derived idempotency key.
func (v *Vulnerability) DuplicateKey() string { return v.duplicateKey }

// PluginID returns the scanner plugin identifier.
func (v *Vulnerability) PluginID() string { return v.pluginID }

// Hostname returns the affected hostname.
func (v *Vulnerability) Hostname() string { return v.hostname }

// Port returns the affected port, 0 when portless.
func (v *Vulnerability) Port() int { return v.port }

// Protocol returns the transport protocol.
func (v *Vulnerability) Protocol() string { return v.protocol }

// Name returns the finding name.
func (v *Vulnerability) Name() string { return v.name }

// Severity returns the normalized severity.
func (v *Vulnerability) Severity() shared.Severity { return v.severity }

// Status returns the normalized status.
func (v *Vulnerability) Status() shared.RecordStatus { return v.status }

// CVSSScore returns the CVSS score, if present.
func (v *Vulnerability) CVSSScore() *float64 { return v.cvssScore }

// Synopsis returns the short summary, if present.
func (v *Vulnerability) Synopsis() *string { return v.synopsis }

// Description returns the long description, if present.
func (v *Vulnerability) Description() *string { return v.description }

// Solution returns the remediation text, if present.
func (v *Vulnerability) Solution() *string { return v.solution }

// SeeAlso returns reference links, if present.
func (v *Vulnerability) SeeAlso() *string { return v.seeAlso }

// PluginOutput returns the raw plugin output, if present.
func (v *Vulnerability) PluginOutput() *string { return v.pluginOut }

// IPAddress returns the scanned IP.
func (v *Vulnerability) IPAddress() string { return v.ipAddress }

// ReportDate returns the report date of the import that created the record.
func (v *Vulnerability) ReportDate() time.Time { return v.reportDate }

// OccurrenceCount returns how many times this finding has been sighted.
func (v *Vulnerability) OccurrenceCount() int { return v.occurrenceCount }

// FirstSeenAt returns when the record was first created.
func (v *Vulnerability) FirstSeenAt() time.Time { return v.firstSeenAt }

// LastSeenAt returns the freshness stamp.
func (v *Vulnerability) LastSeenAt() time.Time { return v.lastSeenAt }

// SetStatus sets the normalized status.
func (v *Vulnerability) SetStatus(s shared.RecordStatus) { v.status = s }

// SetProtocol sets the transport protocol.
func (v *Vulnerability) SetProtocol(p string) { v.protocol = p }

// SetCVSSScore sets the CVSS score.
func (v *Vulnerability) SetCVSSScore(score *float64) { v.cvssScore = score }

// SetIPAddress sets the scanned IP.
func (v *Vulnerability) SetIPAddress(ip string) { v.ipAddress = ip }

// SetTexts sets the descriptive text blocks in one call.
func (v *Vulnerability) SetTexts(synopsis, description, solution, seeAlso, pluginOutput *string) {
	v.synopsis = synopsis
	v.description = description
	v.solution = solution
	v.seeAlso = seeAlso
	v.pluginOut = pluginOutput
}

// MeaningfulFieldsDiffer reports whether any reconciled field changed
// between the stored record and the incoming one.
func (v *Vulnerability) MeaningfulFieldsDiffer(incoming *Vulnerability) bool {
	return v.severity != incoming.severity ||
		v.status != incoming.status ||
		shared.FloatPtrChanged(v.cvssScore, incoming.cvssScore) ||
		shared.StringChanged(v.name, incoming.name) ||
		shared.StringPtrChanged(v.synopsis, incoming.synopsis) ||
		shared.StringPtrChanged(v.description, incoming.description) ||
		shared.StringPtrChanged(v.solution, incoming.solution) ||
		shared.StringPtrChanged(v.pluginOut, incoming.pluginOut)
}

// ApplyUpdate copies business fields from the incoming record and
// refreshes the freshness stamp. Identity fields stay untouched.
func (v *Vulnerability) ApplyUpdate(incoming *Vulnerability) {
	v.name = incoming.name
	v.severity = incoming.severity
	v.status = incoming.status
	v.cvssScore = incoming.cvssScore
	v.synopsis = incoming.synopsis
	v.description = incoming.description
	v.solution = incoming.solution
	v.seeAlso = incoming.seeAlso
	v.pluginOut = incoming.pluginOut
	v.protocol = incoming.protocol
	v.ipAddress = incoming.ipAddress
	v.Touch()
}

// Touch refreshes the last-seen stamp and increments the occurrence counter.
func (v *Vulnerability) Touch() {
	v.occurrenceCount++
	v.lastSeenAt = time.Now().UTC()
}

// Reconstitute recreates a Vulnerability from persistence.
func Reconstitute(
	id shared.ID,
	duplicateKey, pluginID, hostname string,
	port int,
	protocol, name string,
	severity shared.Severity,
	status shared.RecordStatus,
	cvssScore *float64,
	synopsis, description, solution, seeAlso, pluginOutput *string,
	ipAddress string,
	reportDate time.Time,
	occurrenceCount int,
	firstSeenAt, lastSeenAt time.Time,
) *Vulnerability {
	return &Vulnerability{
		id:              id,
		duplicateKey:    duplicateKey,
		pluginID:        pluginID,
		hostname:        hostname,
		port:            port,
		protocol:        protocol,
		name:            name,
		severity:        severity,
		status:          status,
		cvssScore:       cvssScore,
		synopsis:        synopsis,
		description:     description,
		solution:        solution,
		seeAlso:         seeAlso,
		pluginOut:       pluginOutput,
		ipAddress:       ipAddress,
		reportDate:      reportDate,
		occurrenceCount: occurrenceCount,
		firstSeenAt:     firstSeenAt,
		lastSeenAt:      lastSeenAt,
	}
}
