// Package detection models normalized EDR detections. Both supported EDR
// exports (Falcon and Secureworks) map into the same entity; vendor-specific
// columns the fixed mapping omits are preserved in the Raw side-channel.
package detection

import (
	"fmt"
	"time"

	"github.com/secboard/api/pkg/domain/shared"
)

// Source identifies the EDR product a detection came from.
type Source string

// Detection sources.
const (
	SourceFalcon      Source = "falcon"
	SourceSecureworks Source = "secureworks"
)

// IsValid checks if the source is a known EDR product.
func (s Source) IsValid() bool {
	return s == SourceFalcon || s == SourceSecureworks
}

// Detection is one normalized EDR detection event. Its duplicate key is
// derived from a narrow identity-field set so the same underlying event
// recurring across overlapping exports collides onto one record.
type Detection struct {
	id           shared.ID
	duplicateKey string
	source       Source
	title        string
	severity     shared.Severity
	status       shared.RecordStatus

	threatScore   *float64
	confidence    *float64
	statusReason  *string
	techniqueRef  *string
	investigation *string
	description   *string
	tactic        *string
	fileName      *string
	commandLine   *string

	detector      string
	sensorType    string
	domain        string
	username      string
	sourceIP      string
	destinationIP string
	hostname      string
	tenant        string

	detectedAt *time.Time
	reportDate time.Time

	occurrenceCount int
	raw             map[string]string

	firstSeenAt time.Time
	lastSeenAt  time.Time
}

// New creates a detection on first sight of its duplicate key.
func New(duplicateKey string, source Source, title string, severity shared.Severity, reportDate time.Time) (*Detection, error) {
	if duplicateKey == "" {
		return nil, fmt.Errorf("%w: duplicate key is required", shared.ErrValidation)
	}
	if !source.IsValid() {
		return nil, fmt.Errorf("%w: invalid detection source %q", shared.ErrValidation, source)
	}
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", shared.ErrValidation)
	}

	now := time.Now().UTC()
	return &Detection{
		id:              shared.NewID(),
		duplicateKey:    duplicateKey,
		source:          source,
		title:           title,
		severity:        severity,
		status:          shared.StatusOpen,
		reportDate:      reportDate,
		occurrenceCount: 1,
		firstSeenAt:     now,
		lastSeenAt:      now,
	}, nil
}

// Getters

// ID returns the detection ID.
func (d *Detection) ID() shared.ID { return d.id }

// DuplicateKey returns the derived idempotency key.
func (d *Detection) DuplicateKey() string { return d.duplicateKey }

// Source returns the EDR product.
func (d *Detection) Source() Source { return d.source }

// Title returns the detection title.
func (d *Detection) Title() string { return d.title }

// Severity returns the normalized severity.
func (d *Detection) Severity() shared.Severity { return d.severity }

// Status returns the normalized status.
func (d *Detection) Status() shared.RecordStatus { return d.status }

// ThreatScore returns the vendor threat score, if present.
func (d *Detection) ThreatScore() *float64 { return d.threatScore }

// Confidence returns the vendor confidence, if present.
func (d *Detection) Confidence() *float64 { return d.confidence }

// StatusReason returns the vendor status reason, if present.
func (d *Detection) StatusReason() *string { return d.statusReason }

// TechniqueRef returns the MITRE ATT&CK reference, if present.
func (d *Detection) TechniqueRef() *string { return d.techniqueRef }

// Investigation returns the investigation notes, if present.
func (d *Detection) Investigation() *string { return d.investigation }

// Description returns the description, if present.
func (d *Detection) Description() *string { return d.description }

// Tactic returns the ATT&CK tactic, if present.
func (d *Detection) Tactic() *string { return d.tactic }

// FileName returns the implicated file name, if present.
func (d *Detection) FileName() *string { return d.fileName }

// CommandLine returns the implicated command line, if present.
func (d *Detection) CommandLine() *string { return d.commandLine }

// Detector returns the detecting engine name.
func (d *Detection) Detector() string { return d.detector }

// SensorType returns the sensor type.
func (d *Detection) SensorType() string { return d.sensorType }

// Domain returns the AD/network domain.
func (d *Detection) Domain() string { return d.domain }

// Username returns the associated username.
func (d *Detection) Username() string { return d.username }

// SourceIP returns the source IP.
func (d *Detection) SourceIP() string { return d.sourceIP }

// DestinationIP returns the destination IP.
func (d *Detection) DestinationIP() string { return d.destinationIP }

// Hostname returns the affected hostname.
func (d *Detection) Hostname() string { return d.hostname }

// Tenant returns the vendor tenant identifier.
func (d *Detection) Tenant() string { return d.tenant }

// DetectedAt returns the vendor detection timestamp, if parseable.
func (d *Detection) DetectedAt() *time.Time { return d.detectedAt }

// ReportDate returns the report date of the import that created the record.
func (d *Detection) ReportDate() time.Time { return d.reportDate }

// OccurrenceCount returns how many times this event has been sighted.
func (d *Detection) OccurrenceCount() int { return d.occurrenceCount }

// Raw returns the serialized original field values keyed by header name.
func (d *Detection) Raw() map[string]string { return d.raw }

// FirstSeenAt returns when the record was first created.
func (d *Detection) FirstSeenAt() time.Time { return d.firstSeenAt }

// LastSeenAt returns the freshness stamp.
func (d *Detection) LastSeenAt() time.Time { return d.lastSeenAt }

// Setters used by the row mappers

// SetStatus sets the normalized status.
func (d *Detection) SetStatus(s shared.RecordStatus) { d.status = s }

// SetThreatScore sets the vendor threat score.
func (d *Detection) SetThreatScore(v *float64) { d.threatScore = v }

// SetConfidence sets the vendor confidence.
func (d *Detection) SetConfidence(v *float64) { d.confidence = v }

// SetStatusReason sets the vendor status reason.
func (d *Detection) SetStatusReason(v *string) { d.statusReason = v }

// SetTechniqueRef sets the MITRE ATT&CK reference.
func (d *Detection) SetTechniqueRef(v *string) { d.techniqueRef = v }

// SetInvestigation sets the investigation notes.
func (d *Detection) SetInvestigation(v *string) { d.investigation = v }

// SetDescription sets the description.
func (d *Detection) SetDescription(v *string) { d.description = v }

// SetTactic sets the ATT&CK tactic.
func (d *Detection) SetTactic(v *string) { d.tactic = v }

// SetFileName sets the implicated file name.
func (d *Detection) SetFileName(v *string) { d.fileName = v }

// SetCommandLine sets the implicated command line.
func (d *Detection) SetCommandLine(v *string) { d.commandLine = v }

// SetNetwork sets the network-related fields.
func (d *Detection) SetNetwork(domain, sourceIP, destinationIP, hostname string) {
	d.domain = domain
	d.sourceIP = sourceIP
	d.destinationIP = destinationIP
	d.hostname = hostname
}

// SetContext sets detector context fields.
func (d *Detection) SetContext(detector, sensorType, username, tenant string) {
	d.detector = detector
	d.sensorType = sensorType
	d.username = username
	d.tenant = tenant
}

// SetDetectedAt sets the vendor detection timestamp.
func (d *Detection) SetDetectedAt(t *time.Time) { d.detectedAt = t }

// SetRaw captures the original field values so unmapped vendor columns
// are never lost.
func (d *Detection) SetRaw(raw map[string]string) { d.raw = raw }

// Reconciliation support

// MeaningfulFieldsDiffer reports whether any field compared during
// reconciliation changed between the stored record and the incoming one.
// Numeric fields differ only beyond a small epsilon; optional strings treat
// nil and empty as equally absent.
func (d *Detection) MeaningfulFieldsDiffer(incoming *Detection) bool {
	return d.severity != incoming.severity ||
		d.status != incoming.status ||
		shared.FloatPtrChanged(d.threatScore, incoming.threatScore) ||
		shared.FloatPtrChanged(d.confidence, incoming.confidence) ||
		shared.StringPtrChanged(d.statusReason, incoming.statusReason) ||
		shared.StringPtrChanged(d.techniqueRef, incoming.techniqueRef) ||
		shared.StringPtrChanged(d.investigation, incoming.investigation) ||
		shared.StringPtrChanged(d.description, incoming.description)
}

// ApplyUpdate copies all business fields from the incoming record onto the
// stored one and refreshes the freshness stamp. Identity and first-seen
// fields are left untouched.
func (d *Detection) ApplyUpdate(incoming *Detection) {
	d.title = incoming.title
	d.severity = incoming.severity
	d.status = incoming.status
	d.threatScore = incoming.threatScore
	d.confidence = incoming.confidence
	d.statusReason = incoming.statusReason
	d.techniqueRef = incoming.techniqueRef
	d.investigation = incoming.investigation
	d.description = incoming.description
	d.tactic = incoming.tactic
	d.fileName = incoming.fileName
	d.commandLine = incoming.commandLine
	d.detector = incoming.detector
	d.sensorType = incoming.sensorType
	d.domain = incoming.domain
	d.username = incoming.username
	d.sourceIP = incoming.sourceIP
	d.destinationIP = incoming.destinationIP
	d.hostname = incoming.hostname
	d.tenant = incoming.tenant
	d.detectedAt = incoming.detectedAt
	d.raw = incoming.raw
	d.Touch()
}

// Touch refreshes the last-seen stamp and increments the occurrence
// counter. Called on every repeated sighting, changed or not.
func (d *Detection) Touch() {
	d.occurrenceCount++
	d.lastSeenAt = time.Now().UTC()
}

// Reconstitute recreates a Detection from persistence.
func Reconstitute(
	id shared.ID,
	duplicateKey string,
	source Source,
	title string,
	severity shared.Severity,
	status shared.RecordStatus,
	threatScore, confidence *float64,
	statusReason, techniqueRef, investigation, description, tactic, fileName, commandLine *string,
	detector, sensorType, domain, username, sourceIP, destinationIP, hostname, tenant string,
	detectedAt *time.Time,
	reportDate time.Time,
	occurrenceCount int,
	raw map[string]string,
	firstSeenAt, lastSeenAt time.Time,
) *Detection {
	return &Detection{
		id:              id,
		duplicateKey:    duplicateKey,
		source:          source,
		title:           title,
		severity:        severity,
		status:          status,
		threatScore:     threatScore,
		confidence:      confidence,
		statusReason:    statusReason,
		techniqueRef:    techniqueRef,
		investigation:   investigation,
		description:     description,
		tactic:          tactic,
		fileName:        fileName,
		commandLine:     commandLine,
		detector:        detector,
		sensorType:      sensorType,
		domain:          domain,
		username:        username,
		sourceIP:        sourceIP,
		destinationIP:   destinationIP,
		hostname:        hostname,
		tenant:          tenant,
		detectedAt:      detectedAt,
		reportDate:      reportDate,
		occurrenceCount: occurrenceCount,
		raw:             raw,
		firstSeenAt:     firstSeenAt,
		lastSeenAt:      lastSeenAt,
	}
}
