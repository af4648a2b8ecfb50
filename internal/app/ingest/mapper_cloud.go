package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/secboard/api/pkg/domain/cloudfinding"
	"github.com/secboard/api/pkg/domain/shared"
)

// CloudFindingHandler maps CSPM export rows. Cloud exports carry a stable
// control identifier, so no key derivation happens here; the control ID is
// the duplicate key directly.
type CloudFindingHandler struct {
	reconciler *Reconciler[*cloudfinding.Finding]
}

// NewCloudFindingHandler creates the handler.
func NewCloudFindingHandler(repo cloudfinding.Repository) *CloudFindingHandler {
	return &CloudFindingHandler{
		reconciler: NewReconciler[*cloudfinding.Finding](
			repo,
			"cloud_finding",
			func(f *cloudfinding.Finding) string { return f.ControlID() },
			func(existing, incoming *cloudfinding.Finding) bool {
				return existing.MeaningfulFieldsDiffer(incoming)
			},
			func(existing, incoming *cloudfinding.Finding) { existing.ApplyUpdate(incoming) },
		),
	}
}

// Specs returns the CSPM header table.
func (h *CloudFindingHandler) Specs() []FieldSpec {
	return []FieldSpec{
		{Name: "control_id", Synonyms: []string{"Control ID", "Check ID", "ID"}, Fallback: 0},
		{Name: "title", Synonyms: []string{"Check Title", "Title", "Control"}, Fallback: 1},
		{Name: "severity", Synonyms: []string{"Severity"}, Fallback: 2},
		{Name: "status", Synonyms: []string{"Status", "Result"}, Fallback: 3},
		{Name: "provider", Synonyms: []string{"Provider", "Cloud Provider"}, Fallback: 4},
		{Name: "account_id", Synonyms: []string{"Account ID", "Account", "Subscription"}, Fallback: 5},
		{Name: "region", Synonyms: []string{"Region", "Location"}, Fallback: 6},
		{Name: "resource", Synonyms: []string{"Resource", "Resource ID", "Resource ARN"}, Fallback: 7},
		{Name: "service", Synonyms: []string{"Service"}, Fallback: -1},
		{Name: "description", Synonyms: []string{"Description", "Risk"}, Fallback: -1},
		{Name: "remediation", Synonyms: []string{"Remediation", "Recommendation"}, Fallback: -1},
	}
}

// HandleRow maps one CSPM row and reconciles it.
func (h *CloudFindingHandler) HandleRow(ctx context.Context, row Row, reportDate time.Time) (Outcome, error) {
	controlID := strings.ToLower(row.Get("control_id"))
	if controlID == "" {
		return "", fmt.Errorf("%w: missing control id", shared.ErrInvalidInput)
	}
	title := row.Get("title")
	if title == "" {
		title = "Control " + controlID
	}

	severity := NormalizeSeverity(row.Get("severity"), SeverityFallbackGeneric)
	rec, err := cloudfinding.New(controlID, title, severity, reportDate)
	if err != nil {
		return "", err
	}

	rec.SetStatus(normalizeCloudStatus(row.Get("status")))
	rec.SetScope(
		row.Get("provider"),
		row.Get("account_id"),
		row.Get("region"),
		row.Get("resource"),
		row.Get("service"),
	)
	rec.SetDescription(OptionalString(row.Get("description")))
	rec.SetRemediation(OptionalString(row.Get("remediation")))

	return h.reconciler.Reconcile(ctx, rec)
}

// normalizeCloudStatus folds CSPM pass/fail vocabulary into the closed
// status set before the generic mapping runs.
func normalizeCloudStatus(s string) shared.RecordStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pass", "passed", "ok", "compliant":
		return shared.StatusResolved
	case "fail", "failed", "alarm", "non-compliant", "noncompliant":
		return shared.StatusOpen
	default:
		return NormalizeStatus(s)
	}
}
