package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/secboard/api/pkg/domain/ingestion"
	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/pagination"
)

// IngestionLogRepository implements ingestion.Repository using PostgreSQL.
type IngestionLogRepository struct {
	db *DB
}

// NewIngestionLogRepository creates a new IngestionLogRepository.
func NewIngestionLogRepository(db *DB) *IngestionLogRepository {
	return &IngestionLogRepository{db: db}
}

const ingestionLogColumns = `
	id, filename, original_name, file_type, source_tag, checksum,
	rows_processed, row_errors, report_date, imported_at, status,
	error_log, duplicate_upload, finalized_at
`

// Create persists a new pending log entry.
func (r *IngestionLogRepository) Create(ctx context.Context, log *ingestion.Log) error {
	query := `
		INSERT INTO ingestion_logs (` + ingestionLogColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		log.ID(),
		log.Filename(),
		log.OriginalName(),
		string(log.FileType()),
		log.SourceTag(),
		log.Checksum(),
		log.RowsProcessed(),
		log.RowErrors(),
		log.ReportDate(),
		log.ImportedAt(),
		log.Status().String(),
		nullString(log.ErrorLog()),
		log.DuplicateUpload(),
		nullTime(log.FinalizedAt()),
	)
	if err != nil {
		return fmt.Errorf("failed to create ingestion log: %w", err)
	}
	return nil
}

// Finalize writes the terminal status and counters of a log entry.
func (r *IngestionLogRepository) Finalize(ctx context.Context, log *ingestion.Log) error {
	query := `
		UPDATE ingestion_logs
		SET status = $2, rows_processed = $3, row_errors = $4,
		    error_log = $5, duplicate_upload = $6, finalized_at = $7
		WHERE id = $1 AND finalized_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query,
		log.ID(),
		log.Status().String(),
		log.RowsProcessed(),
		log.RowErrors(),
		nullString(log.ErrorLog()),
		log.DuplicateUpload(),
		nullTime(log.FinalizedAt()),
	)
	if err != nil {
		return fmt.Errorf("failed to finalize ingestion log: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check finalize result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: ingestion log %s missing or already finalized", shared.ErrNotFound, log.ID())
	}
	return nil
}

// GetByID retrieves a log entry by ID.
func (r *IngestionLogRepository) GetByID(ctx context.Context, id shared.ID) (*ingestion.Log, error) {
	query := `SELECT ` + ingestionLogColumns + ` FROM ingestion_logs WHERE id = $1`
	log, err := scanIngestionLog(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: ingestion log %s", shared.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get ingestion log: %w", err)
	}
	return log, nil
}

// List retrieves log entries matching the filter, newest first.
func (r *IngestionLogRepository) List(ctx context.Context, filter ingestion.Filter, page pagination.Pagination) (pagination.Result[*ingestion.Log], error) {
	var empty pagination.Result[*ingestion.Log]

	conds := []string{"1=1"}
	args := []any{}
	arg := 1

	if filter.SourceTag != "" {
		conds = append(conds, fmt.Sprintf("source_tag = $%d", arg))
		args = append(args, filter.SourceTag)
		arg++
	}
	if filter.Status != "" {
		conds = append(conds, fmt.Sprintf("status = $%d", arg))
		args = append(args, filter.Status.String())
		arg++
	}
	if filter.Since != nil {
		conds = append(conds, fmt.Sprintf("imported_at >= $%d", arg))
		args = append(args, *filter.Since)
		arg++
	}
	where := strings.Join(conds, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM ingestion_logs WHERE ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return empty, fmt.Errorf("failed to count ingestion logs: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM ingestion_logs WHERE %s ORDER BY imported_at DESC LIMIT $%d OFFSET $%d`,
		ingestionLogColumns, where, arg, arg+1,
	)
	args = append(args, page.Limit(), page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return empty, fmt.Errorf("failed to list ingestion logs: %w", err)
	}
	defer rows.Close()

	var logs []*ingestion.Log
	for rows.Next() {
		log, err := scanIngestionLog(rows)
		if err != nil {
			return empty, fmt.Errorf("failed to scan ingestion log: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return empty, fmt.Errorf("failed to iterate ingestion logs: %w", err)
	}

	return pagination.NewResult(logs, total, page), nil
}

// DeleteOlderThan removes finalized entries older than the cutoff.
func (r *IngestionLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM ingestion_logs WHERE finalized_at IS NOT NULL AND imported_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old ingestion logs: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIngestionLog(row rowScanner) (*ingestion.Log, error) {
	var (
		id              shared.ID
		filename        string
		originalName    string
		fileType        string
		sourceTag       string
		checksum        string
		rowsProcessed   int
		rowErrors       int
		reportDate      time.Time
		importedAt      time.Time
		status          string
		errorLog        sql.NullString
		duplicateUpload bool
		finalizedAt     sql.NullTime
	)
	if err := row.Scan(
		&id, &filename, &originalName, &fileType, &sourceTag, &checksum,
		&rowsProcessed, &rowErrors, &reportDate, &importedAt, &status,
		&errorLog, &duplicateUpload, &finalizedAt,
	); err != nil {
		return nil, err
	}

	return ingestion.Reconstitute(
		id, filename, originalName,
		ingestion.FileType(fileType),
		sourceTag, checksum,
		rowsProcessed, rowErrors,
		reportDate, importedAt,
		ingestion.Status(status),
		nullStringValue(errorLog),
		duplicateUpload,
		nullTimeValue(finalizedAt),
	), nil
}
