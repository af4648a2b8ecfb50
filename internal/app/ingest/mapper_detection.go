package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/secboard/api/pkg/domain/detection"
	"github.com/secboard/api/pkg/domain/shared"
)

// detectionReconciler wires the shared detection reconciler used by both
// EDR handlers.
func detectionReconciler(repo detection.Repository) *Reconciler[*detection.Detection] {
	return NewReconciler[*detection.Detection](
		repo,
		"detection",
		func(d *detection.Detection) string { return d.DuplicateKey() },
		func(existing, incoming *detection.Detection) bool { return existing.MeaningfulFieldsDiffer(incoming) },
		func(existing, incoming *detection.Detection) { existing.ApplyUpdate(incoming) },
	)
}

// SecureworksHandler maps Secureworks Taegis detection exports.
type SecureworksHandler struct {
	reconciler *Reconciler[*detection.Detection]
}

// NewSecureworksHandler creates the handler.
func NewSecureworksHandler(repo detection.Repository) *SecureworksHandler {
	return &SecureworksHandler{reconciler: detectionReconciler(repo)}
}

// Specs returns the Secureworks header table. Fallback indices follow the
// console's fixed export order for legacy files without a header match.
func (h *SecureworksHandler) Specs() []FieldSpec {
	return []FieldSpec{
		{Name: "created_at", Synonyms: []string{"Created At", "Created", "Create Time"}, Fallback: 0},
		{Name: "title", Synonyms: []string{"Title", "Alert Title", "Name"}, Fallback: 1},
		{Name: "severity", Synonyms: []string{"Severity", "Priority"}, Fallback: 2},
		{Name: "threat_score", Synonyms: []string{"Threat Score", "Score"}, Fallback: 3},
		{Name: "detector", Synonyms: []string{"Detector", "Detection Engine"}, Fallback: 4},
		{Name: "sensor_type", Synonyms: []string{"Sensor Type", "Sensor"}, Fallback: 5},
		{Name: "domain", Synonyms: []string{"Domain"}, Fallback: 6},
		{Name: "username", Synonyms: []string{"Combined Username", "Username", "User"}, Fallback: 7},
		{Name: "source_ip", Synonyms: []string{"Source IP", "Src IP"}, Fallback: 8},
		{Name: "destination_ip", Synonyms: []string{"Destination IP", "Dst IP"}, Fallback: 9},
		{Name: "hostname", Synonyms: []string{"Hostname", "Host"}, Fallback: 10},
		{Name: "investigations", Synonyms: []string{"Investigations", "Investigation"}, Fallback: 11},
		{Name: "confidence", Synonyms: []string{"Confidence"}, Fallback: 12},
		{Name: "technique", Synonyms: []string{"MITRE ATT&CK", "MITRE ATTACK", "Technique"}, Fallback: 13},
		{Name: "status", Synonyms: []string{"Status", "State"}, Fallback: 14},
		{Name: "status_reason", Synonyms: []string{"Status Reason"}, Fallback: 15},
		{Name: "tenant", Synonyms: []string{"Tenant", "Tenant ID"}, Fallback: 16},
		{Name: "description", Synonyms: []string{"Description"}, Fallback: 18},
	}
}

// HandleRow maps one Secureworks row and reconciles it.
func (h *SecureworksHandler) HandleRow(ctx context.Context, row Row, reportDate time.Time) (Outcome, error) {
	title := row.Get("title")
	if title == "" {
		return "", fmt.Errorf("%w: missing title", shared.ErrInvalidInput)
	}

	detectedAt := ParseDate(row.Get("created_at"))
	day := reportDate
	if detectedAt != nil {
		day = *detectedAt
	}

	// Identity: the same alert recurring across overlapping exports is one
	// record. Title, day, hostname, source IP, detector and tenant pin it.
	key := DeriveKey(day,
		title,
		DayBucket(day).Format("20060102"),
		row.Get("hostname"),
		row.Get("source_ip"),
		row.Get("detector"),
		row.Get("tenant"),
	)

	severity := NormalizeSeverity(row.Get("severity"), SeverityFallbackAlert)
	rec, err := detection.New(key, detection.SourceSecureworks, title, severity, reportDate)
	if err != nil {
		return "", err
	}

	rec.SetStatus(NormalizeStatus(row.Get("status")))
	rec.SetThreatScore(ParseFloat(row.Get("threat_score")))
	rec.SetConfidence(ParseFloat(row.Get("confidence")))
	rec.SetStatusReason(OptionalString(row.Get("status_reason")))
	rec.SetTechniqueRef(OptionalString(row.Get("technique")))
	rec.SetInvestigation(OptionalString(row.Get("investigations")))
	rec.SetDescription(OptionalString(row.Get("description")))
	rec.SetNetwork(row.Get("domain"), row.Get("source_ip"), row.Get("destination_ip"), row.Get("hostname"))
	rec.SetContext(row.Get("detector"), row.Get("sensor_type"), row.Get("username"), row.Get("tenant"))
	rec.SetDetectedAt(detectedAt)
	rec.SetRaw(row.Raw())

	return h.reconciler.Reconcile(ctx, rec)
}

// FalconHandler maps CrowdStrike Falcon detection exports.
type FalconHandler struct {
	reconciler *Reconciler[*detection.Detection]
}

// NewFalconHandler creates the handler.
func NewFalconHandler(repo detection.Repository) *FalconHandler {
	return &FalconHandler{reconciler: detectionReconciler(repo)}
}

// Specs returns the Falcon header table.
func (h *FalconHandler) Specs() []FieldSpec {
	return []FieldSpec{
		{Name: "detect_time", Synonyms: []string{"Detect Time", "Detected Time", "Timestamp"}, Fallback: 0},
		{Name: "hostname", Synonyms: []string{"Hostname", "Host"}, Fallback: 1},
		{Name: "username", Synonyms: []string{"Username", "User Name", "User"}, Fallback: 2},
		{Name: "severity", Synonyms: []string{"Severity", "Max Severity"}, Fallback: 3},
		{Name: "tactic", Synonyms: []string{"Tactic"}, Fallback: 4},
		{Name: "technique", Synonyms: []string{"Technique"}, Fallback: 5},
		{Name: "description", Synonyms: []string{"Detect Description", "Description"}, Fallback: 6},
		{Name: "file_name", Synonyms: []string{"File Name", "Filename"}, Fallback: 7},
		{Name: "command_line", Synonyms: []string{"Command Line", "Cmd Line"}, Fallback: 8},
		{Name: "status", Synonyms: []string{"Status"}, Fallback: 9},
	}
}

// HandleRow maps one Falcon row and reconciles it.
func (h *FalconHandler) HandleRow(ctx context.Context, row Row, reportDate time.Time) (Outcome, error) {
	hostname := row.Get("hostname")
	technique := row.Get("technique")
	if hostname == "" && technique == "" {
		return "", fmt.Errorf("%w: row carries neither hostname nor technique", shared.ErrInvalidInput)
	}

	detectedAt := ParseDate(row.Get("detect_time"))
	day := reportDate
	if detectedAt != nil {
		day = *detectedAt
	}

	key := DeriveKey(day,
		hostname,
		technique,
		row.Get("file_name"),
		DayBucket(day).Format("20060102"),
	)

	title := technique
	if title == "" {
		title = "Falcon detection on " + hostname
	}

	severity := NormalizeSeverity(row.Get("severity"), SeverityFallbackAlert)
	rec, err := detection.New(key, detection.SourceFalcon, title, severity, reportDate)
	if err != nil {
		return "", err
	}

	rec.SetStatus(NormalizeStatus(row.Get("status")))
	rec.SetTactic(OptionalString(row.Get("tactic")))
	rec.SetTechniqueRef(OptionalString(technique))
	rec.SetDescription(OptionalString(row.Get("description")))
	rec.SetFileName(OptionalString(row.Get("file_name")))
	rec.SetCommandLine(OptionalString(row.Get("command_line")))
	rec.SetNetwork("", "", "", hostname)
	rec.SetContext("falcon", "", row.Get("username"), "")
	rec.SetDetectedAt(detectedAt)
	rec.SetRaw(row.Raw())

	return h.reconciler.Reconcile(ctx, rec)
}
