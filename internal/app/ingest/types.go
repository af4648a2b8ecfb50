// Package ingest implements the multi-format CSV ingestion pipeline:
// tokenizing vendor exports, resolving headers against per-format synonym
// tables, mapping rows into typed records, deriving duplicate keys and
// reconciling against stored records.
package ingest

import (
	"context"
	"time"

	"github.com/secboard/api/pkg/domain/ingestion"
	"github.com/secboard/api/pkg/domain/shared"
)

const (
	// DefaultErrorSampleLimit bounds how many row errors are kept verbatim
	// in the ingestion log when no limit is configured.
	DefaultErrorSampleLimit = 10

	// MaxRowsPerFile caps a single upload. Vendor exports above this are
	// almost certainly concatenation mistakes.
	MaxRowsPerFile = 500000
)

// Outcome classifies the result of reconciling one mapped row.
type Outcome string

// Reconciliation outcomes.
const (
	OutcomeInserted  Outcome = "inserted"
	OutcomeUpdated   Outcome = "updated"
	OutcomeRefreshed Outcome = "refreshed"
)

// UploadInput carries one uploaded file into the pipeline.
type UploadInput struct {
	Filename string
	Data     []byte
	IsAdmin  bool
}

// UploadResult reports the outcome of processing one upload.
type UploadResult struct {
	IngestionID     shared.ID        `json:"ingestion_id"`
	SourceTag       string           `json:"type"`
	Filename        string           `json:"filename"`
	RowsProcessed   int              `json:"rows_processed"`
	RowErrors       int              `json:"row_errors"`
	Status          ingestion.Status `json:"status"`
	ErrorSample     []string         `json:"error_sample,omitempty"`
	DuplicateUpload bool             `json:"duplicate_upload,omitempty"`
}

// RowHandler maps and reconciles rows for one source format. Implementations
// hold their record family's repository and reconciler.
type RowHandler interface {
	// Specs returns the declarative header table for the format.
	Specs() []FieldSpec

	// HandleRow maps one tokenized row and reconciles the result.
	HandleRow(ctx context.Context, row Row, reportDate time.Time) (Outcome, error)
}

// ChecksumCache remembers content checksums of recent uploads so repeated
// byte-identical files can be flagged.
type ChecksumCache interface {
	// Seen reports whether the checksum was remembered within the window.
	Seen(ctx context.Context, checksum string) (bool, error)

	// Remember records the checksum for the given window.
	Remember(ctx context.Context, checksum string, window time.Duration) error
}

// Archiver stores the raw upload bytes after processing, typically by
// enqueuing a background job.
type Archiver interface {
	Archive(ctx context.Context, logID shared.ID, filename string, data []byte) error
}
