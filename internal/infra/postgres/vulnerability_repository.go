package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/domain/vulnerability"
	"github.com/secboard/api/pkg/pagination"
)

// VulnerabilityRepository implements vulnerability.Repository using PostgreSQL.
type VulnerabilityRepository struct {
	db *DB
}

// NewVulnerabilityRepository creates a new VulnerabilityRepository.
func NewVulnerabilityRepository(db *DB) *VulnerabilityRepository {
	return &VulnerabilityRepository{db: db}
}

const vulnerabilityColumns = `
	id, duplicate_key, plugin_id, hostname, port, protocol, name,
	severity, status, cvss_score, synopsis, description, solution,
	see_also, plugin_output, ip_address, report_date, occurrence_count,
	first_seen_at, last_seen_at
`

// GetByKey retrieves a vulnerability by its duplicate key.
func (r *VulnerabilityRepository) GetByKey(ctx context.Context, key string) (*vulnerability.Vulnerability, error) {
	query := `SELECT ` + vulnerabilityColumns + ` FROM vulnerabilities WHERE duplicate_key = $1`
	rec, err := scanVulnerability(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: vulnerability with key %s", shared.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to get vulnerability: %w", err)
	}
	return rec, nil
}

// Create inserts a new vulnerability.
func (r *VulnerabilityRepository) Create(ctx context.Context, v *vulnerability.Vulnerability) error {
	query := `
		INSERT INTO vulnerabilities (` + vulnerabilityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err := r.db.ExecContext(ctx, query,
		v.ID(),
		v.DuplicateKey(),
		v.PluginID(),
		v.Hostname(),
		v.Port(),
		nullString(v.Protocol()),
		v.Name(),
		v.Severity().String(),
		v.Status().String(),
		nullFloat(v.CVSSScore()),
		nullStringPtr(v.Synopsis()),
		nullStringPtr(v.Description()),
		nullStringPtr(v.Solution()),
		nullStringPtr(v.SeeAlso()),
		nullStringPtr(v.PluginOutput()),
		nullString(v.IPAddress()),
		v.ReportDate(),
		v.OccurrenceCount(),
		v.FirstSeenAt(),
		v.LastSeenAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: vulnerability with key %s", shared.ErrAlreadyExists, v.DuplicateKey())
		}
		return fmt.Errorf("failed to create vulnerability: %w", err)
	}
	return nil
}

// Update rewrites the business fields of an existing vulnerability.
func (r *VulnerabilityRepository) Update(ctx context.Context, v *vulnerability.Vulnerability) error {
	query := `
		UPDATE vulnerabilities
		SET name = $2, severity = $3, status = $4, cvss_score = $5,
		    synopsis = $6, description = $7, solution = $8, see_also = $9,
		    plugin_output = $10, protocol = $11, ip_address = $12,
		    occurrence_count = $13, last_seen_at = $14
		WHERE duplicate_key = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		v.DuplicateKey(),
		v.Name(),
		v.Severity().String(),
		v.Status().String(),
		nullFloat(v.CVSSScore()),
		nullStringPtr(v.Synopsis()),
		nullStringPtr(v.Description()),
		nullStringPtr(v.Solution()),
		nullStringPtr(v.SeeAlso()),
		nullStringPtr(v.PluginOutput()),
		nullString(v.Protocol()),
		nullString(v.IPAddress()),
		v.OccurrenceCount(),
		v.LastSeenAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to update vulnerability: %w", err)
	}
	return requireAffected(res, "vulnerability", v.DuplicateKey())
}

// Refresh bumps the last-seen stamp and occurrence counter only.
func (r *VulnerabilityRepository) Refresh(ctx context.Context, key string, seenAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE vulnerabilities SET occurrence_count = occurrence_count + 1, last_seen_at = $2 WHERE duplicate_key = $1`,
		key, seenAt)
	if err != nil {
		return fmt.Errorf("failed to refresh vulnerability: %w", err)
	}
	return requireAffected(res, "vulnerability", key)
}

// List retrieves vulnerabilities matching the filter, newest first.
func (r *VulnerabilityRepository) List(ctx context.Context, filter vulnerability.Filter, page pagination.Pagination) (pagination.Result[*vulnerability.Vulnerability], error) {
	var empty pagination.Result[*vulnerability.Vulnerability]

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
	if filter.Hostname != "" {
		conds = append(conds, fmt.Sprintf("hostname = $%d", arg))
		args = append(args, filter.Hostname)
		arg++
	}
	if filter.PluginID != "" {
		conds = append(conds, fmt.Sprintf("plugin_id = $%d", arg))
		args = append(args, filter.PluginID)
		arg++
	}
	where := strings.Join(conds, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vulnerabilities WHERE `+where, args...).Scan(&total); err != nil {
		return empty, fmt.Errorf("failed to count vulnerabilities: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM vulnerabilities WHERE %s ORDER BY last_seen_at DESC LIMIT $%d OFFSET $%d`,
		vulnerabilityColumns, where, arg, arg+1,
	)
	args = append(args, page.Limit(), page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return empty, fmt.Errorf("failed to list vulnerabilities: %w", err)
	}
	defer rows.Close()

	var recs []*vulnerability.Vulnerability
	for rows.Next() {
		rec, err := scanVulnerability(rows)
		if err != nil {
			return empty, fmt.Errorf("failed to scan vulnerability: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return empty, fmt.Errorf("failed to iterate vulnerabilities: %w", err)
	}

	return pagination.NewResult(recs, total, page), nil
}

// DeleteOlderThan removes vulnerabilities not seen since the cutoff.
func (r *VulnerabilityRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM vulnerabilities WHERE last_seen_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old vulnerabilities: %w", err)
	}
	return res.RowsAffected()
}

func scanVulnerability(row rowScanner) (*vulnerability.Vulnerability, error) {
	var (
		id              shared.ID
		duplicateKey    string
		pluginID        string
		hostname        string
		port            int
		protocol        sql.NullString
		name            string
		severity        string
		status          string
		cvssScore       sql.NullFloat64
		synopsis        sql.NullString
		description     sql.NullString
		solution        sql.NullString
		seeAlso         sql.NullString
		pluginOutput    sql.NullString
		ipAddress       sql.NullString
		reportDate      time.Time
		occurrenceCount int
		firstSeenAt     time.Time
		lastSeenAt      time.Time
	)
	if err := row.Scan(
		&id, &duplicateKey, &pluginID, &hostname, &port, &protocol, &name,
		&severity, &status, &cvssScore, &synopsis, &description, &solution,
		&seeAlso, &pluginOutput, &ipAddress, &reportDate, &occurrenceCount,
		&firstSeenAt, &lastSeenAt,
	); err != nil {
		return nil, err
	}

	return vulnerability.Reconstitute(
		id, duplicateKey, pluginID, hostname, port,
		nullStringValue(protocol), name,
		shared.Severity(severity),
		shared.RecordStatus(status),
		nullFloatValue(cvssScore),
		nullStringPtrValue(synopsis), nullStringPtrValue(description),
		nullStringPtrValue(solution), nullStringPtrValue(seeAlso), nullStringPtrValue(pluginOutput),
		nullStringValue(ipAddress),
		reportDate,
		occurrenceCount,
		firstSeenAt, lastSeenAt,
	), nil
}
