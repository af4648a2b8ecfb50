package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/domain/vulnerability"
)

// VulnerabilityHandler maps scanner export rows. Fallback indices follow
// the classic scanner CSV column order: Plugin ID, CVE, CVSS, Risk, Host,
// Protocol, Port, Name, Synopsis, Description, Solution, See Also, Plugin
// Output.
type VulnerabilityHandler struct {
	reconciler *Reconciler[*vulnerability.Vulnerability]
}

// NewVulnerabilityHandler creates the handler.
func NewVulnerabilityHandler(repo vulnerability.Repository) *VulnerabilityHandler {
	return &VulnerabilityHandler{
		reconciler: NewReconciler[*vulnerability.Vulnerability](
			repo,
			"vulnerability",
			func(v *vulnerability.Vulnerability) string { return v.DuplicateKey() },
			func(existing, incoming *vulnerability.Vulnerability) bool {
				return existing.MeaningfulFieldsDiffer(incoming)
			},
			func(existing, incoming *vulnerability.Vulnerability) { existing.ApplyUpdate(incoming) },
		),
	}
}

// Specs returns the scanner header table.
func (h *VulnerabilityHandler) Specs() []FieldSpec {
	return []FieldSpec{
		{Name: "plugin_id", Synonyms: []string{"Plugin ID", "Plugin", "ID"}, Fallback: 0},
		{Name: "cvss", Synonyms: []string{"CVSS v3.0 Base Score", "CVSS v2.0 Base Score", "CVSS"}, Fallback: 2},
		{Name: "risk", Synonyms: []string{"Risk", "Severity"}, Fallback: 3},
		{Name: "host", Synonyms: []string{"Host", "Hostname", "DNS Name"}, Fallback: 4},
		{Name: "protocol", Synonyms: []string{"Protocol"}, Fallback: 5},
		{Name: "port", Synonyms: []string{"Port"}, Fallback: 6},
		{Name: "name", Synonyms: []string{"Name", "Plugin Name", "Title"}, Fallback: 7},
		{Name: "synopsis", Synonyms: []string{"Synopsis"}, Fallback: 8},
		{Name: "description", Synonyms: []string{"Description"}, Fallback: 9},
		{Name: "solution", Synonyms: []string{"Solution"}, Fallback: 10},
		{Name: "see_also", Synonyms: []string{"See Also", "References"}, Fallback: 11},
		{Name: "plugin_output", Synonyms: []string{"Plugin Output", "Output"}, Fallback: 12},
		{Name: "ip_address", Synonyms: []string{"IP Address", "IP Addresses", "IP"}, Fallback: -1},
	}
}

// HandleRow maps one scanner row and reconciles it.
func (h *VulnerabilityHandler) HandleRow(ctx context.Context, row Row, reportDate time.Time) (Outcome, error) {
	pluginID := row.Get("plugin_id")
	host := row.Get("host")
	if pluginID == "" {
		return "", fmt.Errorf("%w: missing plugin id", shared.ErrInvalidInput)
	}
	if host == "" {
		return "", fmt.Errorf("%w: missing host", shared.ErrInvalidInput)
	}

	name := row.Get("name")
	if name == "" {
		name = "Plugin " + pluginID
	}
	port := ParseInt(row.Get("port"))

	// Identity: one finding per plugin firing against a host and port.
	key := DeriveKey(reportDate, pluginID, host, fmt.Sprintf("%d", port))

	severity := NormalizeSeverity(row.Get("risk"), SeverityFallbackGeneric)
	rec, err := vulnerability.New(key, pluginID, host, port, name, severity, reportDate)
	if err != nil {
		return "", err
	}

	rec.SetProtocol(row.Get("protocol"))
	rec.SetCVSSScore(ParseFloat(row.Get("cvss")))
	rec.SetIPAddress(row.Get("ip_address"))
	rec.SetTexts(
		OptionalString(row.Get("synopsis")),
		OptionalString(row.Get("description")),
		OptionalString(row.Get("solution")),
		OptionalString(row.Get("see_also")),
		OptionalString(row.Get("plugin_output")),
	)

	return h.reconciler.Reconcile(ctx, rec)
}
