package jobs

import (
	"context"

	"github.com/secboard/api/internal/app/ingest"
	"github.com/secboard/api/pkg/domain/shared"
)

// ArchiverAdapter wraps the job Client to implement ingest.Archiver by
// enqueueing an archive task instead of writing inline.
type ArchiverAdapter struct {
	client *Client
}

// NewArchiverAdapter creates a new adapter.
func NewArchiverAdapter(client *Client) *ArchiverAdapter {
	return &ArchiverAdapter{client: client}
}

// Archive enqueues the raw upload bytes for background archiving.
func (a *ArchiverAdapter) Archive(ctx context.Context, logID shared.ID, filename string, data []byte) error {
	return a.client.EnqueueArchiveUpload(ctx, ArchiveUploadPayload{
		LogID:    logID.String(),
		Filename: filename,
		Data:     data,
	})
}

// NoOpArchiver discards uploads. Used when archiving is disabled.
type NoOpArchiver struct{}

// Archive does nothing.
func (NoOpArchiver) Archive(context.Context, shared.ID, string, []byte) error {
	return nil
}

var _ ingest.Archiver = (*ArchiverAdapter)(nil)
var _ ingest.Archiver = (*NoOpArchiver)(nil)
