package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/secboard/api/pkg/domain/scorecard"
	"github.com/secboard/api/pkg/domain/shared"
)

// ScorecardSummaryHandler maps per-category rating summary rows.
type ScorecardSummaryHandler struct {
	reconciler *Reconciler[*scorecard.Summary]
}

// NewScorecardSummaryHandler creates the handler.
func NewScorecardSummaryHandler(repo scorecard.SummaryRepository) *ScorecardSummaryHandler {
	return &ScorecardSummaryHandler{
		reconciler: NewReconciler[*scorecard.Summary](
			repo,
			"scorecard_summary",
			func(s *scorecard.Summary) string { return s.DuplicateKey() },
			func(existing, incoming *scorecard.Summary) bool { return existing.MeaningfulFieldsDiffer(incoming) },
			func(existing, incoming *scorecard.Summary) { existing.ApplyUpdate(incoming) },
		),
	}
}

// Specs returns the summary header table.
func (h *ScorecardSummaryHandler) Specs() []FieldSpec {
	return []FieldSpec{
		{Name: "category", Synonyms: []string{"Category", "Factor", "Factor Name"}, Fallback: 0},
		{Name: "score", Synonyms: []string{"Score"}, Fallback: 1},
		{Name: "grade", Synonyms: []string{"Grade", "Letter Grade"}, Fallback: 2},
		{Name: "issues", Synonyms: []string{"Issues", "Issue Count"}, Fallback: -1},
	}
}

// HandleRow maps one summary row and reconciles it.
func (h *ScorecardSummaryHandler) HandleRow(ctx context.Context, row Row, reportDate time.Time) (Outcome, error) {
	category := row.Get("category")
	if category == "" {
		return "", fmt.Errorf("%w: missing category", shared.ErrInvalidInput)
	}

	// One row per category per report day.
	key := DeriveKey(reportDate, category, DayBucket(reportDate).Format("20060102"))

	rec, err := scorecard.NewSummary(key, category, reportDate)
	if err != nil {
		return "", err
	}
	rec.SetScore(ParseFloat(row.Get("score")))
	rec.SetGrade(row.Get("grade"))
	rec.SetIssueCount(ParseFloat(row.Get("issues")))

	return h.reconciler.Reconcile(ctx, rec)
}

// ScorecardIssueHandler maps issue-detail rows. The rating vendor assigns a
// stable issue ID, used directly as the duplicate key.
type ScorecardIssueHandler struct {
	reconciler *Reconciler[*scorecard.Issue]
}

// NewScorecardIssueHandler creates the handler.
func NewScorecardIssueHandler(repo scorecard.IssueRepository) *ScorecardIssueHandler {
	return &ScorecardIssueHandler{
		reconciler: NewReconciler[*scorecard.Issue](
			repo,
			"scorecard_issue",
			func(i *scorecard.Issue) string { return i.IssueID() },
			func(existing, incoming *scorecard.Issue) bool { return existing.MeaningfulFieldsDiffer(incoming) },
			func(existing, incoming *scorecard.Issue) { existing.ApplyUpdate(incoming) },
		),
	}
}

// Specs returns the issue-detail header table.
func (h *ScorecardIssueHandler) Specs() []FieldSpec {
	return []FieldSpec{
		{Name: "issue_id", Synonyms: []string{"Issue ID", "ID"}, Fallback: 0},
		{Name: "category", Synonyms: []string{"Category", "Factor"}, Fallback: 1},
		{Name: "title", Synonyms: []string{"Issue Type", "Title", "Finding"}, Fallback: 2},
		{Name: "severity", Synonyms: []string{"Severity"}, Fallback: 3},
		{Name: "status", Synonyms: []string{"Status"}, Fallback: 4},
		{Name: "asset", Synonyms: []string{"Asset", "Subdomain", "IP Address"}, Fallback: 5},
		{Name: "first_seen", Synonyms: []string{"First Seen", "First Seen Date"}, Fallback: -1},
		{Name: "description", Synonyms: []string{"Description", "Issue Description"}, Fallback: -1},
	}
}

// HandleRow maps one issue-detail row and reconciles it.
func (h *ScorecardIssueHandler) HandleRow(ctx context.Context, row Row, reportDate time.Time) (Outcome, error) {
	issueID := row.Get("issue_id")
	if issueID == "" {
		return "", fmt.Errorf("%w: missing issue id", shared.ErrInvalidInput)
	}
	title := row.Get("title")
	if title == "" {
		title = "Issue " + issueID
	}

	severity := NormalizeSeverity(row.Get("severity"), SeverityFallbackGeneric)
	rec, err := scorecard.NewIssue(issueID, row.Get("category"), title, severity, reportDate)
	if err != nil {
		return "", err
	}
	rec.SetStatus(NormalizeStatus(row.Get("status")))
	rec.SetAsset(row.Get("asset"))
	rec.SetDescription(OptionalString(row.Get("description")))
	rec.SetFirstSeenVendor(ParseDate(row.Get("first_seen")))

	return h.reconciler.Reconcile(ctx, rec)
}
