package ingestion

import (
	"context"
	"time"

	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/pagination"
)

// Filter narrows log listings.
type Filter struct {
	SourceTag string
	Status    Status
	Since     *time.Time
}

// Repository persists ingestion log entries.
type Repository interface {
	// Create persists a new pending entry before processing starts.
	Create(ctx context.Context, log *Log) error

	// Finalize writes the terminal status, counters and error text.
	// The entry is never mutated again afterward.
	Finalize(ctx context.Context, log *Log) error

	// GetByID retrieves a log entry by ID.
	GetByID(ctx context.Context, id shared.ID) (*Log, error)

	// List retrieves log entries matching the filter, newest first.
	List(ctx context.Context, filter Filter, page pagination.Pagination) (pagination.Result[*Log], error)

	// DeleteOlderThan removes finalized entries older than the cutoff.
	// Used by the administrative retention operation only.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
