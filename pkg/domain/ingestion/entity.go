// Package ingestion holds the audit trail of upload attempts. One log entry
// exists per uploaded file, created before processing starts and finalized
// exactly once, so every attempt is accounted for even when processing dies.
package ingestion

import (
	"fmt"
	"time"

	"github.com/secboard/api/pkg/domain/shared"
)

// Status is the lifecycle state of an ingestion log entry.
type Status string

// Ingestion statuses.
const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// IsValid checks if the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusPartial, StatusFailed:
		return true
	default:
		return false
	}
}

// String returns the status as a string.
func (s Status) String() string {
	return string(s)
}

// FileType distinguishes the accepted upload payloads.
type FileType string

// File types.
const (
	FileTypeCSV FileType = "csv"
	FileTypePDF FileType = "pdf"
)

// Log is the audit record of one upload attempt.
type Log struct {
	id              shared.ID
	filename        string
	originalName    string
	fileType        FileType
	sourceTag       string
	checksum        string
	rowsProcessed   int
	rowErrors       int
	reportDate      time.Time
	importedAt      time.Time
	status          Status
	errorLog        string
	duplicateUpload bool
	finalizedAt     *time.Time
}

// NewLog creates a pending log entry for an upload attempt.
func NewLog(filename, originalName string, fileType FileType, sourceTag, checksum string, reportDate time.Time) (*Log, error) {
	if filename == "" {
		return nil, fmt.Errorf("%w: filename is required", shared.ErrValidation)
	}
	if sourceTag == "" {
		return nil, fmt.Errorf("%w: source tag is required", shared.ErrValidation)
	}
	if checksum == "" {
		return nil, fmt.Errorf("%w: checksum is required", shared.ErrValidation)
	}

	return &Log{
		id:           shared.NewID(),
		filename:     filename,
		originalName: originalName,
		fileType:     fileType,
		sourceTag:    sourceTag,
		checksum:     checksum,
		reportDate:   reportDate,
		importedAt:   time.Now().UTC(),
		status:       StatusPending,
	}, nil
}

// Reconstitute recreates a Log from persistence.
func Reconstitute(
	id shared.ID,
	filename, originalName string,
	fileType FileType,
	sourceTag, checksum string,
	rowsProcessed, rowErrors int,
	reportDate, importedAt time.Time,
	status Status,
	errorLog string,
	duplicateUpload bool,
	finalizedAt *time.Time,
) *Log {
	return &Log{
		id:              id,
		filename:        filename,
		originalName:    originalName,
		fileType:        fileType,
		sourceTag:       sourceTag,
		checksum:        checksum,
		rowsProcessed:   rowsProcessed,
		rowErrors:       rowErrors,
		reportDate:      reportDate,
		importedAt:      importedAt,
		status:          status,
		errorLog:        errorLog,
		duplicateUpload: duplicateUpload,
		finalizedAt:     finalizedAt,
	}
}

// Getters

// ID returns the log ID.
func (l *Log) ID() shared.ID { return l.id }

// Filename returns the stored filename.
func (l *Log) Filename() string { return l.filename }

// OriginalName returns the name the file was uploaded under.
func (l *Log) OriginalName() string { return l.originalName }

// FileType returns the detected file type.
func (l *Log) FileType() FileType { return l.fileType }

// SourceTag returns the detected source-format tag.
func (l *Log) SourceTag() string { return l.sourceTag }

// Checksum returns the SHA-256 checksum of the raw upload.
func (l *Log) Checksum() string { return l.checksum }

// RowsProcessed returns the number of rows successfully processed.
func (l *Log) RowsProcessed() int { return l.rowsProcessed }

// RowErrors returns the number of rows that failed mapping.
func (l *Log) RowErrors() int { return l.rowErrors }

// ReportDate returns the report date extracted from the filename.
func (l *Log) ReportDate() time.Time { return l.reportDate }

// ImportedAt returns when processing started.
func (l *Log) ImportedAt() time.Time { return l.importedAt }

// Status returns the current status.
func (l *Log) Status() Status { return l.status }

// ErrorLog returns the captured error text, if any.
func (l *Log) ErrorLog() string { return l.errorLog }

// DuplicateUpload reports whether a byte-identical file was seen recently.
func (l *Log) DuplicateUpload() bool { return l.duplicateUpload }

// FinalizedAt returns when the entry left the pending state.
func (l *Log) FinalizedAt() *time.Time { return l.finalizedAt }

// State transitions

// MarkSuccess finalizes the entry after a run that processed at least one
// row. Row-level errors do not demote the status; they are reported through
// the counters and the bounded error sample.
func (l *Log) MarkSuccess(rowsProcessed, rowErrors int, errorLog string) {
	l.status = StatusSuccess
	l.rowsProcessed = rowsProcessed
	l.rowErrors = rowErrors
	l.errorLog = errorLog
	l.finalize()
}

// MarkPartial finalizes the entry when the file was structurally valid but
// no row survived mapping.
func (l *Log) MarkPartial(rowErrors int, errorLog string) {
	l.status = StatusPartial
	l.rowErrors = rowErrors
	l.errorLog = errorLog
	l.finalize()
}

// MarkFailed finalizes the entry after a file-level failure.
func (l *Log) MarkFailed(errorLog string) {
	l.status = StatusFailed
	l.errorLog = errorLog
	l.finalize()
}

// FlagDuplicateUpload marks that the same checksum was uploaded recently.
// Informational only, re-imports stay idempotent through duplicate keys.
func (l *Log) FlagDuplicateUpload() {
	l.duplicateUpload = true
}

// IsFinalized reports whether the entry has left the pending state.
func (l *Log) IsFinalized() bool {
	return l.status != StatusPending
}

func (l *Log) finalize() {
	now := time.Now().UTC()
	l.finalizedAt = &now
}
