package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/secboard/api/pkg/domain/advisory"
	"github.com/secboard/api/pkg/domain/shared"
)

// AdvisoryHandler maps threat-intel advisory feed exports.
type AdvisoryHandler struct {
	reconciler *Reconciler[*advisory.Advisory]
}

// NewAdvisoryHandler creates the handler.
func NewAdvisoryHandler(repo advisory.Repository) *AdvisoryHandler {
	return &AdvisoryHandler{
		reconciler: NewReconciler[*advisory.Advisory](
			repo,
			"advisory",
			func(a *advisory.Advisory) string { return a.DuplicateKey() },
			func(existing, incoming *advisory.Advisory) bool { return existing.MeaningfulFieldsDiffer(incoming) },
			func(existing, incoming *advisory.Advisory) { existing.ApplyUpdate(incoming) },
		),
	}
}

// Specs returns the advisory feed header table.
func (h *AdvisoryHandler) Specs() []FieldSpec {
	return []FieldSpec{
		{Name: "name", Synonyms: []string{"Advisory", "Name", "Title"}, Fallback: 0},
		{Name: "source", Synonyms: []string{"Source", "Feed"}, Fallback: 1},
		{Name: "severity", Synonyms: []string{"Severity"}, Fallback: 2},
		{Name: "release_date", Synonyms: []string{"Release Date", "Published", "Date"}, Fallback: 3},
		{Name: "cve", Synonyms: []string{"CVE", "CVEs", "CVE IDs"}, Fallback: 4},
		{Name: "vendor", Synonyms: []string{"Vendor"}, Fallback: -1},
		{Name: "product", Synonyms: []string{"Product", "Affected Product"}, Fallback: -1},
		{Name: "description", Synonyms: []string{"Description", "Summary"}, Fallback: -1},
		{Name: "link", Synonyms: []string{"Link", "URL", "Reference"}, Fallback: -1},
	}
}

// HandleRow maps one advisory row and reconciles it.
func (h *AdvisoryHandler) HandleRow(ctx context.Context, row Row, reportDate time.Time) (Outcome, error) {
	name := row.Get("name")
	if name == "" {
		return "", fmt.Errorf("%w: missing advisory name", shared.ErrInvalidInput)
	}
	source := row.Get("source")

	releaseDate := ParseDate(row.Get("release_date"))
	releaseStr := ""
	if releaseDate != nil {
		releaseStr = DayBucket(*releaseDate).Format("20060102")
	}

	// Identity: the same bulletin republished in consecutive daily feeds is
	// one record per report day.
	key := DeriveKey(reportDate, name, source, releaseStr, DayBucket(reportDate).Format("20060102"))

	severity := NormalizeSeverity(row.Get("severity"), SeverityFallbackGeneric)
	rec, err := advisory.New(key, name, source, severity, reportDate)
	if err != nil {
		return "", err
	}

	rec.SetCVERefs(row.Get("cve"))
	rec.SetAffected(row.Get("vendor"), row.Get("product"))
	rec.SetDescription(OptionalString(row.Get("description")))
	rec.SetLink(OptionalString(row.Get("link")))
	rec.SetReleaseDate(releaseDate)

	return h.reconciler.Reconcile(ctx, rec)
}
