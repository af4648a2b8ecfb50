package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/secboard/api/pkg/domain/cloudfinding"
	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/pagination"
)

// CloudFindingRepository implements cloudfinding.Repository using PostgreSQL.
type CloudFindingRepository struct {
	db *DB
}

// NewCloudFindingRepository creates a new CloudFindingRepository.
func NewCloudFindingRepository(db *DB) *CloudFindingRepository {
	return &CloudFindingRepository{db: db}
}

const cloudFindingColumns = `
	id, control_id, title, severity, status, provider, account_id,
	region, resource, service, description, remediation, report_date,
	occurrence_count, first_seen_at, last_seen_at
`

// GetByKey retrieves a finding by its control ID.
func (r *CloudFindingRepository) GetByKey(ctx context.Context, key string) (*cloudfinding.Finding, error) {
	query := `SELECT ` + cloudFindingColumns + ` FROM cloud_findings WHERE control_id = $1`
	rec, err := scanCloudFinding(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: cloud finding with control id %s", shared.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to get cloud finding: %w", err)
	}
	return rec, nil
}

// Create inserts a new finding.
func (r *CloudFindingRepository) Create(ctx context.Context, f *cloudfinding.Finding) error {
	query := `
		INSERT INTO cloud_findings (` + cloudFindingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.db.ExecContext(ctx, query,
		f.ID(),
		f.ControlID(),
		f.Title(),
		f.Severity().String(),
		f.Status().String(),
		nullString(f.Provider()),
		nullString(f.AccountID()),
		nullString(f.Region()),
		nullString(f.Resource()),
		nullString(f.Service()),
		nullStringPtr(f.Description()),
		nullStringPtr(f.Remediation()),
		f.ReportDate(),
		f.OccurrenceCount(),
		f.FirstSeenAt(),
		f.LastSeenAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: cloud finding with control id %s", shared.ErrAlreadyExists, f.ControlID())
		}
		return fmt.Errorf("failed to create cloud finding: %w", err)
	}
	return nil
}

// Update rewrites the business fields of an existing finding.
func (r *CloudFindingRepository) Update(ctx context.Context, f *cloudfinding.Finding) error {
	query := `
		UPDATE cloud_findings
		SET title = $2, severity = $3, status = $4, provider = $5,
		    account_id = $6, region = $7, resource = $8, service = $9,
		    description = $10, remediation = $11, occurrence_count = $12,
		    last_seen_at = $13
		WHERE control_id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		f.ControlID(),
		f.Title(),
		f.Severity().String(),
		f.Status().String(),
		nullString(f.Provider()),
		nullString(f.AccountID()),
		nullString(f.Region()),
		nullString(f.Resource()),
		nullString(f.Service()),
		nullStringPtr(f.Description()),
		nullStringPtr(f.Remediation()),
		f.OccurrenceCount(),
		f.LastSeenAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to update cloud finding: %w", err)
	}
	return requireAffected(res, "cloud finding", f.ControlID())
}

// Refresh bumps the last-seen stamp and occurrence counter only.
func (r *CloudFindingRepository) Refresh(ctx context.Context, key string, seenAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cloud_findings SET occurrence_count = occurrence_count + 1, last_seen_at = $2 WHERE control_id = $1`,
		key, seenAt)
	if err != nil {
		return fmt.Errorf("failed to refresh cloud finding: %w", err)
	}
	return requireAffected(res, "cloud finding", key)
}

// List retrieves findings matching the filter, newest first.
func (r *CloudFindingRepository) List(ctx context.Context, filter cloudfinding.Filter, page pagination.Pagination) (pagination.Result[*cloudfinding.Finding], error) {
	var empty pagination.Result[*cloudfinding.Finding]

	conds := []string{"1=1"}
	args := []any{}
	arg := 1

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
	if filter.Provider != "" {
		conds = append(conds, fmt.Sprintf("provider = $%d", arg))
		args = append(args, filter.Provider)
		arg++
	}
	if filter.Region != "" {
		conds = append(conds, fmt.Sprintf("region = $%d", arg))
		args = append(args, filter.Region)
		arg++
	}
	where := strings.Join(conds, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cloud_findings WHERE `+where, args...).Scan(&total); err != nil {
		return empty, fmt.Errorf("failed to count cloud findings: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM cloud_findings WHERE %s ORDER BY last_seen_at DESC LIMIT $%d OFFSET $%d`,
		cloudFindingColumns, where, arg, arg+1,
	)
	args = append(args, page.Limit(), page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return empty, fmt.Errorf("failed to list cloud findings: %w", err)
	}
	defer rows.Close()

	var recs []*cloudfinding.Finding
	for rows.Next() {
		rec, err := scanCloudFinding(rows)
		if err != nil {
			return empty, fmt.Errorf("failed to scan cloud finding: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return empty, fmt.Errorf("failed to iterate cloud findings: %w", err)
	}

	return pagination.NewResult(recs, total, page), nil
}

// DeleteOlderThan removes findings not seen since the cutoff.
func (r *CloudFindingRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cloud_findings WHERE last_seen_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old cloud findings: %w", err)
	}
	return res.RowsAffected()
}

func scanCloudFinding(row rowScanner) (*cloudfinding.Finding, error) {
	var (
		id              shared.ID
		controlID       string
		title           string
		severity        string
		status          string
		provider        sql.NullString
		accountID       sql.NullString
		region          sql.NullString
		resource        sql.NullString
		service         sql.NullString
		description     sql.NullString
		remediation     sql.NullString
		reportDate      time.Time
		occurrenceCount int
		firstSeenAt     time.Time
		lastSeenAt      time.Time
	)
	if err := row.Scan(
		&id, &controlID, &title, &severity, &status, &provider, &accountID,
		&region, &resource, &service, &description, &remediation, &reportDate,
		&occurrenceCount, &firstSeenAt, &lastSeenAt,
	); err != nil {
		return nil, err
	}

	return cloudfinding.Reconstitute(
		id, controlID, title,
		shared.Severity(severity),
		shared.RecordStatus(status),
		nullStringValue(provider), nullStringValue(accountID), nullStringValue(region),
		nullStringValue(resource), nullStringValue(service),
		nullStringPtrValue(description), nullStringPtrValue(remediation),
		reportDate,
		occurrenceCount,
		firstSeenAt, lastSeenAt,
	), nil
}
