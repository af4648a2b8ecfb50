package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/secboard/api/pkg/domain/advisory"
	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/pagination"
)

// AdvisoryRepository implements advisory.Repository using PostgreSQL.
type AdvisoryRepository struct {
	db *DB
}

// NewAdvisoryRepository creates a new AdvisoryRepository.
func NewAdvisoryRepository(db *DB) *AdvisoryRepository {
	return &AdvisoryRepository{db: db}
}

const advisoryColumns = `
	id, duplicate_key, name, source, severity, status, cve_refs,
	vendor, product, description, link, release_date, report_date,
	occurrence_count, first_seen_at, last_seen_at
`

// GetByKey retrieves an advisory by its duplicate key.
func (r *AdvisoryRepository) GetByKey(ctx context.Context, key string) (*advisory.Advisory, error) {
	query := `SELECT ` + advisoryColumns + ` FROM advisories WHERE duplicate_key = $1`
	rec, err := scanAdvisory(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: advisory with key %s", shared.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to get advisory: %w", err)
	}
	return rec, nil
}

// Create inserts a new advisory.
func (r *AdvisoryRepository) Create(ctx context.Context, a *advisory.Advisory) error {
	query := `
		INSERT INTO advisories (` + advisoryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID(),
		a.DuplicateKey(),
		a.Name(),
		a.Source(),
		a.Severity().String(),
		a.Status().String(),
		nullString(a.CVERefs()),
		nullString(a.Vendor()),
		nullString(a.Product()),
		nullStringPtr(a.Description()),
		nullStringPtr(a.Link()),
		nullTime(a.ReleaseDate()),
		a.ReportDate(),
		a.OccurrenceCount(),
		a.FirstSeenAt(),
		a.LastSeenAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: advisory with key %s", shared.ErrAlreadyExists, a.DuplicateKey())
		}
		return fmt.Errorf("failed to create advisory: %w", err)
	}
	return nil
}

// Update rewrites the business fields of an existing advisory.
func (r *AdvisoryRepository) Update(ctx context.Context, a *advisory.Advisory) error {
	query := `
		UPDATE advisories
		SET severity = $2, status = $3, cve_refs = $4, vendor = $5,
		    product = $6, description = $7, link = $8, release_date = $9,
		    occurrence_count = $10, last_seen_at = $11
		WHERE duplicate_key = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		a.DuplicateKey(),
		a.Severity().String(),
		a.Status().String(),
		nullString(a.CVERefs()),
		nullString(a.Vendor()),
		nullString(a.Product()),
		nullStringPtr(a.Description()),
		nullStringPtr(a.Link()),
		nullTime(a.ReleaseDate()),
		a.OccurrenceCount(),
		a.LastSeenAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to update advisory: %w", err)
	}
	return requireAffected(res, "advisory", a.DuplicateKey())
}

// Refresh bumps the last-seen stamp and occurrence counter only.
func (r *AdvisoryRepository) Refresh(ctx context.Context, key string, seenAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE advisories SET occurrence_count = occurrence_count + 1, last_seen_at = $2 WHERE duplicate_key = $1`,
		key, seenAt)
	if err != nil {
		return fmt.Errorf("failed to refresh advisory: %w", err)
	}
	return requireAffected(res, "advisory", key)
}

// List retrieves advisories matching the filter, newest first.
func (r *AdvisoryRepository) List(ctx context.Context, filter advisory.Filter, page pagination.Pagination) (pagination.Result[*advisory.Advisory], error) {
	var empty pagination.Result[*advisory.Advisory]

	conds := []string{"1=1"}
	args := []any{}
	arg := 1

	if filter.Source != "" {
		conds = append(conds, fmt.Sprintf("source = $%d", arg))
		args = append(args, filter.Source)
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
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM advisories WHERE `+where, args...).Scan(&total); err != nil {
		return empty, fmt.Errorf("failed to count advisories: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM advisories WHERE %s ORDER BY last_seen_at DESC LIMIT $%d OFFSET $%d`,
		advisoryColumns, where, arg, arg+1,
	)
	args = append(args, page.Limit(), page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return empty, fmt.Errorf("failed to list advisories: %w", err)
	}
	defer rows.Close()

	var recs []*advisory.Advisory
	for rows.Next() {
		rec, err := scanAdvisory(rows)
		if err != nil {
			return empty, fmt.Errorf("failed to scan advisory: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return empty, fmt.Errorf("failed to iterate advisories: %w", err)
	}

	return pagination.NewResult(recs, total, page), nil
}

// DeleteOlderThan removes advisories not seen since the cutoff.
func (r *AdvisoryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM advisories WHERE last_seen_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old advisories: %w", err)
	}
	return res.RowsAffected()
}

func scanAdvisory(row rowScanner) (*advisory.Advisory, error) {
	var (
		id              shared.ID
		duplicateKey    string
		name            string
		source          string
		severity        string
		status          string
		cveRefs         sql.NullString
		vendor          sql.NullString
		product         sql.NullString
		description     sql.NullString
		link            sql.NullString
		releaseDate     sql.NullTime
		reportDate      time.Time
		occurrenceCount int
		firstSeenAt     time.Time
		lastSeenAt      time.Time
	)
	if err := row.Scan(
		&id, &duplicateKey, &name, &source, &severity, &status, &cveRefs,
		&vendor, &product, &description, &link, &releaseDate, &reportDate,
		&occurrenceCount, &firstSeenAt, &lastSeenAt,
	); err != nil {
		return nil, err
	}

	return advisory.Reconstitute(
		id, duplicateKey, name, source,
		shared.Severity(severity),
		shared.RecordStatus(status),
		nullStringValue(cveRefs), nullStringValue(vendor), nullStringValue(product),
		nullStringPtrValue(description), nullStringPtrValue(link),
		nullTimeValue(releaseDate),
		reportDate,
		occurrenceCount,
		firstSeenAt, lastSeenAt,
	), nil
}
