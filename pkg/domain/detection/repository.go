package detection

import (
	"context"
	"time"

	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/pagination"
)

// Filter narrows detection listings.
type Filter struct {
	Source   Source
	Severity shared.Severity
	Status   shared.RecordStatus
	Hostname string
}

// Repository persists detections keyed by duplicate key.
type Repository interface {
	// GetByKey retrieves a detection by its duplicate key.
	// Returns shared.ErrNotFound when absent.
	GetByKey(ctx context.Context, key string) (*Detection, error)

	// Create inserts a new detection.
	Create(ctx context.Context, d *Detection) error

	// Update rewrites the business fields of an existing detection.
	Update(ctx context.Context, d *Detection) error

	// Refresh bumps only the last-seen stamp and occurrence counter.
	// Used when a re-seen record has no meaningful change.
	Refresh(ctx context.Context, key string, seenAt time.Time) error

	// List retrieves detections matching the filter, newest first.
	List(ctx context.Context, filter Filter, page pagination.Pagination) (pagination.Result[*Detection], error)

	// DeleteOlderThan removes records not seen since the cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
