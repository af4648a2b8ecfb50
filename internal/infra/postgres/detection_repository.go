package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/secboard/api/pkg/domain/detection"
	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/pagination"
)

// DetectionRepository implements detection.Repository using PostgreSQL.
type DetectionRepository struct {
	db *DB
}

// NewDetectionRepository creates a new DetectionRepository.
func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

const detectionColumns = `
	id, duplicate_key, source, title, severity, status,
	threat_score, confidence, status_reason, technique_ref, investigation,
	description, tactic, file_name, command_line,
	detector, sensor_type, domain, username, source_ip, destination_ip,
	hostname, tenant, detected_at, report_date, occurrence_count, raw,
	first_seen_at, last_seen_at
`

// GetByKey retrieves a detection by its duplicate key.
func (r *DetectionRepository) GetByKey(ctx context.Context, key string) (*detection.Detection, error) {
	query := `SELECT ` + detectionColumns + ` FROM detections WHERE duplicate_key = $1`
	rec, err := scanDetection(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: detection with key %s", shared.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to get detection: %w", err)
	}
	return rec, nil
}

// Create inserts a new detection.
func (r *DetectionRepository) Create(ctx context.Context, d *detection.Detection) error {
	rawJSON, err := toJSONB(d.Raw())
	if err != nil {
		return fmt.Errorf("failed to marshal raw capture: %w", err)
	}

	query := `
		INSERT INTO detections (` + detectionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)
	`
	_, err = r.db.ExecContext(ctx, query,
		d.ID(),
		d.DuplicateKey(),
		string(d.Source()),
		d.Title(),
		d.Severity().String(),
		d.Status().String(),
		nullFloat(d.ThreatScore()),
		nullFloat(d.Confidence()),
		nullStringPtr(d.StatusReason()),
		nullStringPtr(d.TechniqueRef()),
		nullStringPtr(d.Investigation()),
		nullStringPtr(d.Description()),
		nullStringPtr(d.Tactic()),
		nullStringPtr(d.FileName()),
		nullStringPtr(d.CommandLine()),
		nullString(d.Detector()),
		nullString(d.SensorType()),
		nullString(d.Domain()),
		nullString(d.Username()),
		nullString(d.SourceIP()),
		nullString(d.DestinationIP()),
		nullString(d.Hostname()),
		nullString(d.Tenant()),
		nullTime(d.DetectedAt()),
		d.ReportDate(),
		d.OccurrenceCount(),
		rawJSON,
		d.FirstSeenAt(),
		d.LastSeenAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: detection with key %s", shared.ErrAlreadyExists, d.DuplicateKey())
		}
		return fmt.Errorf("failed to create detection: %w", err)
	}
	return nil
}

// Update rewrites the business fields of an existing detection.
func (r *DetectionRepository) Update(ctx context.Context, d *detection.Detection) error {
	rawJSON, err := toJSONB(d.Raw())
	if err != nil {
		return fmt.Errorf("failed to marshal raw capture: %w", err)
	}

	query := `
		UPDATE detections
		SET title = $2, severity = $3, status = $4,
		    threat_score = $5, confidence = $6, status_reason = $7,
		    technique_ref = $8, investigation = $9, description = $10,
		    tactic = $11, file_name = $12, command_line = $13,
		    detector = $14, sensor_type = $15, domain = $16, username = $17,
		    source_ip = $18, destination_ip = $19, hostname = $20, tenant = $21,
		    detected_at = $22, occurrence_count = $23, raw = $24, last_seen_at = $25
		WHERE duplicate_key = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		d.DuplicateKey(),
		d.Title(),
		d.Severity().String(),
		d.Status().String(),
		nullFloat(d.ThreatScore()),
		nullFloat(d.Confidence()),
		nullStringPtr(d.StatusReason()),
		nullStringPtr(d.TechniqueRef()),
		nullStringPtr(d.Investigation()),
		nullStringPtr(d.Description()),
		nullStringPtr(d.Tactic()),
		nullStringPtr(d.FileName()),
		nullStringPtr(d.CommandLine()),
		nullString(d.Detector()),
		nullString(d.SensorType()),
		nullString(d.Domain()),
		nullString(d.Username()),
		nullString(d.SourceIP()),
		nullString(d.DestinationIP()),
		nullString(d.Hostname()),
		nullString(d.Tenant()),
		nullTime(d.DetectedAt()),
		d.OccurrenceCount(),
		rawJSON,
		d.LastSeenAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to update detection: %w", err)
	}
	return requireAffected(res, "detection", d.DuplicateKey())
}

// Refresh bumps the last-seen stamp and occurrence counter only.
func (r *DetectionRepository) Refresh(ctx context.Context, key string, seenAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE detections SET occurrence_count = occurrence_count + 1, last_seen_at = $2 WHERE duplicate_key = $1`,
		key, seenAt)
	if err != nil {
		return fmt.Errorf("failed to refresh detection: %w", err)
	}
	return requireAffected(res, "detection", key)
}

// List retrieves detections matching the filter, newest first.
func (r *DetectionRepository) List(ctx context.Context, filter detection.Filter, page pagination.Pagination) (pagination.Result[*detection.Detection], error) {
	var empty pagination.Result[*detection.Detection]

	conds := []string{"1=1"}
	args := []any{}
	arg := 1

	if filter.Source != "" {
		conds = append(conds, fmt.Sprintf("source = $%d", arg))
		args = append(args, string(filter.Source))
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
	if filter.Hostname != "" {
		conds = append(conds, fmt.Sprintf("hostname = $%d", arg))
		args = append(args, filter.Hostname)
		arg++
	}
	where := strings.Join(conds, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM detections WHERE `+where, args...).Scan(&total); err != nil {
		return empty, fmt.Errorf("failed to count detections: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM detections WHERE %s ORDER BY last_seen_at DESC LIMIT $%d OFFSET $%d`,
		detectionColumns, where, arg, arg+1,
	)
	args = append(args, page.Limit(), page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return empty, fmt.Errorf("failed to list detections: %w", err)
	}
	defer rows.Close()

	var recs []*detection.Detection
	for rows.Next() {
		rec, err := scanDetection(rows)
		if err != nil {
			return empty, fmt.Errorf("failed to scan detection: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return empty, fmt.Errorf("failed to iterate detections: %w", err)
	}

	return pagination.NewResult(recs, total, page), nil
}

// DeleteOlderThan removes detections not seen since the cutoff.
func (r *DetectionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM detections WHERE last_seen_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old detections: %w", err)
	}
	return res.RowsAffected()
}

func scanDetection(row rowScanner) (*detection.Detection, error) {
	var (
		id              shared.ID
		duplicateKey    string
		source          string
		title           string
		severity        string
		status          string
		threatScore     sql.NullFloat64
		confidence      sql.NullFloat64
		statusReason    sql.NullString
		techniqueRef    sql.NullString
		investigation   sql.NullString
		description     sql.NullString
		tactic          sql.NullString
		fileName        sql.NullString
		commandLine     sql.NullString
		detector        sql.NullString
		sensorType      sql.NullString
		domain          sql.NullString
		username        sql.NullString
		sourceIP        sql.NullString
		destinationIP   sql.NullString
		hostname        sql.NullString
		tenant          sql.NullString
		detectedAt      sql.NullTime
		reportDate      time.Time
		occurrenceCount int
		rawBytes        []byte
		firstSeenAt     time.Time
		lastSeenAt      time.Time
	)
	if err := row.Scan(
		&id, &duplicateKey, &source, &title, &severity, &status,
		&threatScore, &confidence, &statusReason, &techniqueRef, &investigation,
		&description, &tactic, &fileName, &commandLine,
		&detector, &sensorType, &domain, &username, &sourceIP, &destinationIP,
		&hostname, &tenant, &detectedAt, &reportDate, &occurrenceCount, &rawBytes,
		&firstSeenAt, &lastSeenAt,
	); err != nil {
		return nil, err
	}

	raw, err := fromJSONB(rawBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal raw capture: %w", err)
	}

	return detection.Reconstitute(
		id, duplicateKey,
		detection.Source(source),
		title,
		shared.Severity(severity),
		shared.RecordStatus(status),
		nullFloatValue(threatScore), nullFloatValue(confidence),
		nullStringPtrValue(statusReason), nullStringPtrValue(techniqueRef),
		nullStringPtrValue(investigation), nullStringPtrValue(description),
		nullStringPtrValue(tactic), nullStringPtrValue(fileName), nullStringPtrValue(commandLine),
		nullStringValue(detector), nullStringValue(sensorType), nullStringValue(domain),
		nullStringValue(username), nullStringValue(sourceIP), nullStringValue(destinationIP),
		nullStringValue(hostname), nullStringValue(tenant),
		nullTimeValue(detectedAt),
		reportDate,
		occurrenceCount,
		raw,
		firstSeenAt, lastSeenAt,
	), nil
}

// requireAffected converts a zero-row write into ErrNotFound.
func requireAffected(res sql.Result, entity, key string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check %s write result: %w", entity, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s with key %s", shared.ErrNotFound, entity, key)
	}
	return nil
}
