package cloudfinding

import (
	"context"
	"time"

	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/pagination"
)

// Filter narrows cloud finding listings.
type Filter struct {
	Severity shared.Severity
	Status   shared.RecordStatus
	Provider string
	Region   string
}

// Repository persists cloud findings keyed by control ID.
type Repository interface {
	// GetByKey retrieves a finding by its control ID.
	// Returns shared.ErrNotFound when absent.
	GetByKey(ctx context.Context, key string) (*Finding, error)

	// Create inserts a new finding.
	Create(ctx context.Context, f *Finding) error

	// Update rewrites the business fields of an existing finding.
	Update(ctx context.Context, f *Finding) error

	// Refresh bumps only the last-seen stamp and occurrence counter.
	Refresh(ctx context.Context, key string, seenAt time.Time) error

	// List retrieves findings matching the filter, newest first.
	List(ctx context.Context, filter Filter, page pagination.Pagination) (pagination.Result[*Finding], error)

	// DeleteOlderThan removes records not seen since the cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
