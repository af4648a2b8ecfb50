package advisory

import (
	"context"
	"time"

	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/pagination"
)

// Filter narrows advisory listings.
type Filter struct {
	Source   string
	Severity shared.Severity
	Status   shared.RecordStatus
}

// Repository persists advisories keyed by duplicate key.
type Repository interface {
	// GetByKey retrieves an advisory by its duplicate key.
	// Returns shared.ErrNotFound when absent.
	GetByKey(ctx context.Context, key string) (*Advisory, error)

	// Create inserts a new advisory.
	Create(ctx context.Context, a *Advisory) error

	// Update rewrites the business fields of an existing advisory.
	Update(ctx context.Context, a *Advisory) error

	// Refresh bumps only the last-seen stamp and occurrence counter.
	Refresh(ctx context.Context, key string, seenAt time.Time) error

	// List retrieves advisories matching the filter, newest first.
	List(ctx context.Context, filter Filter, page pagination.Pagination) (pagination.Result[*Advisory], error)

	// DeleteOlderThan removes records not seen since the cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
