package ticket

import (
	"context"
	"time"

	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/pagination"
)

// Filter narrows ticket listings.
type Filter struct {
	Kind     Kind
	Status   shared.RecordStatus
	Category string
	Assignee string
}

// Repository persists tickets keyed by duplicate key.
type Repository interface {
	// GetByKey retrieves a ticket by its duplicate key.
	// Returns shared.ErrNotFound when absent.
	GetByKey(ctx context.Context, key string) (*Ticket, error)

	// Create inserts a new ticket.
	Create(ctx context.Context, t *Ticket) error

	// Update rewrites the business fields of an existing ticket.
	Update(ctx context.Context, t *Ticket) error

	// Refresh bumps only the last-seen stamp and occurrence counter.
	Refresh(ctx context.Context, key string, seenAt time.Time) error

	// List retrieves tickets matching the filter, newest first.
	List(ctx context.Context, filter Filter, page pagination.Pagination) (pagination.Result[*Ticket], error)

	// DeleteOlderThan removes records not seen since the cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
