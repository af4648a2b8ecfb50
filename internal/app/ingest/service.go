package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/secboard/api/internal/config"
	"github.com/secboard/api/internal/metrics"
	"github.com/secboard/api/pkg/domain/ingestion"
	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/logger"
)

// Service runs the full pipeline for one uploaded file: format routing,
// tokenizing, header resolution, per-row mapping and reconciliation, and
// the ingestion-log lifecycle around all of it.
//
// Processing is synchronous per upload; rows are handled strictly in order.
// Row-level failures never abort the file, file-level failures always leave
// a finalized FAILED log entry.
type Service struct {
	router    *Router
	logRepo   ingestion.Repository
	checksums ChecksumCache
	archiver  Archiver
	cfg       config.IngestConfig
	logger    *logger.Logger
}

// NewService wires the pipeline. checksums and archiver may be nil when the
// corresponding infrastructure is disabled.
func NewService(
	router *Router,
	logRepo ingestion.Repository,
	checksums ChecksumCache,
	archiver Archiver,
	cfg config.IngestConfig,
	log *logger.Logger,
) *Service {
	if cfg.ErrorSampleLimit <= 0 {
		cfg.ErrorSampleLimit = DefaultErrorSampleLimit
	}
	return &Service{
		router:    router,
		logRepo:   logRepo,
		checksums: checksums,
		archiver:  archiver,
		cfg:       cfg,
		logger:    log.With("service", "ingest"),
	}
}

// ProcessUpload ingests one uploaded file end to end.
func (s *Service) ProcessUpload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	if len(input.Data) == 0 {
		return nil, fmt.Errorf("%w: empty file", shared.ErrMalformedInput)
	}
	if int64(len(input.Data)) > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", shared.ErrInvalidInput, s.cfg.MaxUploadBytes)
	}

	profile, reportDate, err := s.router.Detect(input.Filename)
	if err != nil {
		return nil, err
	}

	// Privilege gate runs before any file content is inspected.
	if profile.Restricted && !input.IsAdmin {
		return nil, fmt.Errorf("%w: source %q requires administrator access", shared.ErrForbidden, profile.Tag)
	}

	sum := sha256.Sum256(input.Data)
	checksum := hex.EncodeToString(sum[:])

	entry, err := ingestion.NewLog(
		storedFilename(profile.Tag, reportDate, input.Filename),
		input.Filename,
		profile.FileType,
		profile.Tag,
		checksum,
		reportDate,
	)
	if err != nil {
		return nil, err
	}

	if s.seenRecently(ctx, checksum) {
		entry.FlagDuplicateUpload()
		metrics.DuplicateUploadsTotal.WithLabelValues(profile.Tag).Inc()
	}

	if err := s.logRepo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("create ingestion log: %w", err)
	}

	start := time.Now()
	rowsProcessed, rowErrors, sample, procErr := s.process(ctx, profile, reportDate, input.Data)

	switch {
	case procErr != nil:
		entry.MarkFailed(failureMessage(procErr))
	case rowsProcessed == 0 && rowErrors > 0:
		entry.MarkPartial(rowErrors, strings.Join(sample, "\n"))
	default:
		entry.MarkSuccess(rowsProcessed, rowErrors, strings.Join(sample, "\n"))
	}

	// The finalization write must land even when processing failed; its own
	// failure is the one persistence error that escalates to the caller.
	if err := s.logRepo.Finalize(ctx, entry); err != nil {
		return nil, fmt.Errorf("finalize ingestion log: %w", err)
	}

	metrics.UploadsTotal.WithLabelValues(profile.Tag, entry.Status().String()).Inc()
	metrics.UploadDuration.WithLabelValues(profile.Tag).Observe(time.Since(start).Seconds())
	metrics.RowsProcessedTotal.WithLabelValues(profile.Tag).Add(float64(rowsProcessed))
	metrics.RowErrorsTotal.WithLabelValues(profile.Tag).Add(float64(rowErrors))

	if procErr != nil {
		s.logger.WithError(procErr).Error("upload failed",
			"ingestion_id", entry.ID().String(),
			"source_tag", profile.Tag,
			"filename", input.Filename,
		)
		return nil, procErr
	}

	s.remember(ctx, checksum)
	s.archive(ctx, entry.ID(), input.Filename, input.Data)

	s.logger.Info("upload processed",
		"ingestion_id", entry.ID().String(),
		"source_tag", profile.Tag,
		"filename", input.Filename,
		"rows_processed", rowsProcessed,
		"row_errors", rowErrors,
		"status", entry.Status().String(),
		"duration", time.Since(start).String(),
	)

	return &UploadResult{
		IngestionID:     entry.ID(),
		SourceTag:       profile.Tag,
		Filename:        input.Filename,
		RowsProcessed:   rowsProcessed,
		RowErrors:       rowErrors,
		Status:          entry.Status(),
		ErrorSample:     sample,
		DuplicateUpload: entry.DuplicateUpload(),
	}, nil
}

// process runs tokenization and the per-row loop. Returned error means a
// file-level failure; row-level errors come back through the counters.
func (s *Service) process(ctx context.Context, profile *Profile, reportDate time.Time, data []byte) (processed, failed int, sample []string, err error) {
	// The PDF placeholder format has no rows to map; the file is archived
	// as-is for later manual scoring.
	if profile.Handler == nil {
		return 0, 0, nil, nil
	}

	text, err := DecodeText(data)
	if err != nil {
		return 0, 0, nil, err
	}

	records, err := Tokenize(text)
	if err != nil {
		return 0, 0, nil, err
	}

	header := records[0]
	idx := ResolveHeader(header, profile.Handler.Specs())

	for i, fields := range records[1:] {
		if len(fields) < len(header) {
			// Trailing-empty-field truncation from some exporters. Soft
			// warning only.
			s.logger.Warn("short row padded",
				"source_tag", profile.Tag,
				"row", i+1,
				"got", len(fields),
				"want", len(header),
			)
			fields = padRow(fields, len(header))
		}

		if rowErr := s.handleRow(ctx, profile, NewRow(fields, header, idx), reportDate); rowErr != nil {
			failed++
			if len(sample) < s.cfg.ErrorSampleLimit {
				sample = append(sample, fmt.Sprintf("row %d: %v", i+1, rowErr))
			}
			continue
		}
		processed++
	}

	return processed, failed, sample, nil
}

// handleRow isolates one row's mapping and reconciliation, converting
// panics in vendor-data edge cases into counted row errors.
func (s *Service) handleRow(ctx context.Context, profile *Profile, row Row, reportDate time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("row mapping panic: %v", r)
		}
	}()

	_, err = profile.Handler.HandleRow(ctx, row, reportDate)
	return err
}

func (s *Service) seenRecently(ctx context.Context, checksum string) bool {
	if s.checksums == nil || s.cfg.DuplicateWindow <= 0 {
		return false
	}
	seen, err := s.checksums.Seen(ctx, checksum)
	if err != nil {
		// Duplicate flagging is informational; cache trouble never blocks
		// an upload.
		s.logger.WithError(err).Warn("checksum cache lookup failed")
		return false
	}
	return seen
}

func (s *Service) remember(ctx context.Context, checksum string) {
	if s.checksums == nil || s.cfg.DuplicateWindow <= 0 {
		return
	}
	if err := s.checksums.Remember(ctx, checksum, s.cfg.DuplicateWindow); err != nil {
		s.logger.WithError(err).Warn("checksum cache store failed")
	}
}

func (s *Service) archive(ctx context.Context, logID shared.ID, filename string, data []byte) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.Archive(ctx, logID, filename, data); err != nil {
		s.logger.WithError(err).Warn("archive enqueue failed", "ingestion_id", logID.String())
	}
}

// storedFilename builds the canonical internal name for an upload.
func storedFilename(tag string, reportDate time.Time, original string) string {
	ext := ".csv"
	if dot := strings.LastIndex(original, "."); dot >= 0 {
		ext = strings.ToLower(original[dot:])
	}
	return fmt.Sprintf("%s_%s%s", tag, reportDate.Format("20060102"), ext)
}

// failureMessage maps a file-level error to the operator-facing categories
// kept in the ingestion log. Never the raw column dump.
func failureMessage(err error) string {
	switch {
	case shared.IsMalformedInput(err):
		return "file could not be parsed as CSV: " + err.Error()
	case shared.IsUnrecognizedFormat(err):
		return "unrecognized source format: " + err.Error()
	default:
		return "processing failed: " + err.Error()
	}
}
