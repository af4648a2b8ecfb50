package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/secboard/api/pkg/domain/scorecard"
	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/pagination"
)

// ScorecardSummaryRepository implements scorecard.SummaryRepository
// using PostgreSQL.
type ScorecardSummaryRepository struct {
	db *DB
}

// NewScorecardSummaryRepository creates a new ScorecardSummaryRepository.
func NewScorecardSummaryRepository(db *DB) *ScorecardSummaryRepository {
	return &ScorecardSummaryRepository{db: db}
}

const scorecardSummaryColumns = `
	id, duplicate_key, category, score, grade, issue_count, report_date,
	occurrence_count, first_seen_at, last_seen_at
`

func (r *ScorecardSummaryRepository) GetByKey(ctx context.Context, key string) (*scorecard.Summary, error) {
	query := `SELECT ` + scorecardSummaryColumns + ` FROM scorecard_summaries WHERE duplicate_key = $1`
	rec, err := scanScorecardSummary(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: scorecard summary with key %s", shared.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to get scorecard summary: %w", err)
	}
	return rec, nil
}

func (r *ScorecardSummaryRepository) Create(ctx context.Context, s *scorecard.Summary) error {
	query := `
		INSERT INTO scorecard_summaries (` + scorecardSummaryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID(),
		s.DuplicateKey(),
		s.Category(),
		nullFloat(s.Score()),
		nullString(s.Grade()),
		nullFloat(s.IssueCount()),
		s.ReportDate(),
		s.OccurrenceCount(),
		s.FirstSeenAt(),
		s.LastSeenAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: scorecard summary with key %s", shared.ErrAlreadyExists, s.DuplicateKey())
		}
		return fmt.Errorf("failed to create scorecard summary: %w", err)
	}
	return nil
}

func (r *ScorecardSummaryRepository) Update(ctx context.Context, s *scorecard.Summary) error {
	query := `
		UPDATE scorecard_summaries
		SET score = $2, grade = $3, issue_count = $4,
		    occurrence_count = $5, last_seen_at = $6
		WHERE duplicate_key = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		s.DuplicateKey(),
		nullFloat(s.Score()),
		nullString(s.Grade()),
		nullFloat(s.IssueCount()),
		s.OccurrenceCount(),
		s.LastSeenAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to update scorecard summary: %w", err)
	}
	return requireAffected(res, "scorecard summary", s.DuplicateKey())
}

func (r *ScorecardSummaryRepository) Refresh(ctx context.Context, key string, seenAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE scorecard_summaries SET occurrence_count = occurrence_count + 1, last_seen_at = $2 WHERE duplicate_key = $1`,
		key, seenAt)
	if err != nil {
		return fmt.Errorf("failed to refresh scorecard summary: %w", err)
	}
	return requireAffected(res, "scorecard summary", key)
}

func (r *ScorecardSummaryRepository) List(ctx context.Context, filter scorecard.SummaryFilter, page pagination.Pagination) (pagination.Result[*scorecard.Summary], error) {
	var empty pagination.Result[*scorecard.Summary]

	conds := []string{"1=1"}
	args := []any{}
	arg := 1

	if filter.Category != "" {
		conds = append(conds, fmt.Sprintf("category = $%d", arg))
		args = append(args, filter.Category)
		arg++
	}
	if filter.Since != nil {
		conds = append(conds, fmt.Sprintf("report_date >= $%d", arg))
		args = append(args, *filter.Since)
		arg++
	}
	where := strings.Join(conds, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scorecard_summaries WHERE `+where, args...).Scan(&total); err != nil {
		return empty, fmt.Errorf("failed to count scorecard summaries: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM scorecard_summaries WHERE %s ORDER BY report_date DESC, category ASC LIMIT $%d OFFSET $%d`,
		scorecardSummaryColumns, where, arg, arg+1,
	)
	args = append(args, page.Limit(), page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return empty, fmt.Errorf("failed to list scorecard summaries: %w", err)
	}
	defer rows.Close()

	var recs []*scorecard.Summary
	for rows.Next() {
		rec, err := scanScorecardSummary(rows)
		if err != nil {
			return empty, fmt.Errorf("failed to scan scorecard summary: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return empty, fmt.Errorf("failed to iterate scorecard summaries: %w", err)
	}

	return pagination.NewResult(recs, total, page), nil
}

func (r *ScorecardSummaryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scorecard_summaries WHERE last_seen_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old scorecard summaries: %w", err)
	}
	return res.RowsAffected()
}

func scanScorecardSummary(row rowScanner) (*scorecard.Summary, error) {
	var (
		id              shared.ID
		duplicateKey    string
		category        string
		score           sql.NullFloat64
		grade           sql.NullString
		issueCount      sql.NullFloat64
		reportDate      time.Time
		occurrenceCount int
		firstSeenAt     time.Time
		lastSeenAt      time.Time
	)
	if err := row.Scan(
		&id, &duplicateKey, &category, &score, &grade, &issueCount, &reportDate,
		&occurrenceCount, &firstSeenAt, &lastSeenAt,
	); err != nil {
		return nil, err
	}

	return scorecard.ReconstituteSummary(
		id, duplicateKey, category,
		nullFloatValue(score),
		nullStringValue(grade),
		nullFloatValue(issueCount),
		reportDate,
		occurrenceCount,
		firstSeenAt, lastSeenAt,
	), nil
}

// ScorecardIssueRepository implements scorecard.IssueRepository using
// PostgreSQL.
type ScorecardIssueRepository struct {
	db *DB
}

// NewScorecardIssueRepository creates a new ScorecardIssueRepository.
func NewScorecardIssueRepository(db *DB) *ScorecardIssueRepository {
	return &ScorecardIssueRepository{db: db}
}

const scorecardIssueColumns = `
	id, issue_id, category, title, severity, status, asset, description,
	first_seen_vendor, report_date, occurrence_count, first_seen_at, last_seen_at
`

func (r *ScorecardIssueRepository) GetByKey(ctx context.Context, key string) (*scorecard.Issue, error) {
	query := `SELECT ` + scorecardIssueColumns + ` FROM scorecard_issues WHERE issue_id = $1`
	rec, err := scanScorecardIssue(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: scorecard issue %s", shared.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to get scorecard issue: %w", err)
	}
	return rec, nil
}

func (r *ScorecardIssueRepository) Create(ctx context.Context, i *scorecard.Issue) error {
	query := `
		INSERT INTO scorecard_issues (` + scorecardIssueColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		i.ID(),
		i.IssueID(),
		nullString(i.Category()),
		i.Title(),
		i.Severity().String(),
		i.Status().String(),
		nullString(i.Asset()),
		nullStringPtr(i.Description()),
		nullTime(i.FirstSeenVendor()),
		i.ReportDate(),
		i.OccurrenceCount(),
		i.FirstSeenAt(),
		i.LastSeenAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: scorecard issue %s", shared.ErrAlreadyExists, i.IssueID())
		}
		return fmt.Errorf("failed to create scorecard issue: %w", err)
	}
	return nil
}

func (r *ScorecardIssueRepository) Update(ctx context.Context, i *scorecard.Issue) error {
	query := `
		UPDATE scorecard_issues
		SET category = $2, title = $3, severity = $4, status = $5,
		    asset = $6, description = $7, first_seen_vendor = $8,
		    occurrence_count = $9, last_seen_at = $10
		WHERE issue_id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		i.IssueID(),
		nullString(i.Category()),
		i.Title(),
		i.Severity().String(),
		i.Status().String(),
		nullString(i.Asset()),
		nullStringPtr(i.Description()),
		nullTime(i.FirstSeenVendor()),
		i.OccurrenceCount(),
		i.LastSeenAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to update scorecard issue: %w", err)
	}
	return requireAffected(res, "scorecard issue", i.IssueID())
}

func (r *ScorecardIssueRepository) Refresh(ctx context.Context, key string, seenAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE scorecard_issues SET occurrence_count = occurrence_count + 1, last_seen_at = $2 WHERE issue_id = $1`,
		key, seenAt)
	if err != nil {
		return fmt.Errorf("failed to refresh scorecard issue: %w", err)
	}
	return requireAffected(res, "scorecard issue", key)
}

func (r *ScorecardIssueRepository) List(ctx context.Context, filter scorecard.IssueFilter, page pagination.Pagination) (pagination.Result[*scorecard.Issue], error) {
	var empty pagination.Result[*scorecard.Issue]

	conds := []string{"1=1"}
	args := []any{}
	arg := 1

	if filter.Category != "" {
		conds = append(conds, fmt.Sprintf("category = $%d", arg))
		args = append(args, filter.Category)
		arg++
	}
	if filter.Severity != "" {
		conds = append(conds, fmt.Sprintf("severity = $%d", arg))
		args = append(args, filter.Severity.String())
		arg++
	}
	if filter.Status != "" {
		conds = append(conds, fmt.Sprintf("status = $%d", arg))
		args = append(args, filter.Status.String())
		arg++
	}
	where := strings.Join(conds, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scorecard_issues WHERE `+where, args...).Scan(&total); err != nil {
		return empty, fmt.Errorf("failed to count scorecard issues: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM scorecard_issues WHERE %s ORDER BY last_seen_at DESC LIMIT $%d OFFSET $%d`,
		scorecardIssueColumns, where, arg, arg+1,
	)
	args = append(args, page.Limit(), page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return empty, fmt.Errorf("failed to list scorecard issues: %w", err)
	}
	defer rows.Close()

	var recs []*scorecard.Issue
	for rows.Next() {
		rec, err := scanScorecardIssue(rows)
		if err != nil {
			return empty, fmt.Errorf("failed to scan scorecard issue: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return empty, fmt.Errorf("failed to iterate scorecard issues: %w", err)
	}

	return pagination.NewResult(recs, total, page), nil
}

func (r *ScorecardIssueRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scorecard_issues WHERE last_seen_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old scorecard issues: %w", err)
	}
	return res.RowsAffected()
}

func scanScorecardIssue(row rowScanner) (*scorecard.Issue, error) {
	var (
		id              shared.ID
		issueID         string
		category        sql.NullString
		title           string
		severity        string
		status          string
		asset           sql.NullString
		description     sql.NullString
		firstSeenVendor sql.NullTime
		reportDate      time.Time
		occurrenceCount int
		firstSeenAt     time.Time
		lastSeenAt      time.Time
	)
	if err := row.Scan(
		&id, &issueID, &category, &title, &severity, &status, &asset, &description,
		&firstSeenVendor, &reportDate, &occurrenceCount, &firstSeenAt, &lastSeenAt,
	); err != nil {
		return nil, err
	}

	return scorecard.ReconstituteIssue(
		id, issueID,
		nullStringValue(category),
		title,
		shared.Severity(severity),
		shared.RecordStatus(status),
		nullStringValue(asset),
		nullStringPtrValue(description),
		nullTimeValue(firstSeenVendor),
		reportDate,
		occurrenceCount,
		firstSeenAt, lastSeenAt,
	), nil
}
