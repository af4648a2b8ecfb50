package vulnerability

import (
	"context"
	"time"

	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/pagination"
)

// Filter narrows vulnerability listings.
type Filter struct {
	Severity shared.Severity
	Status   shared.RecordStatus
	Hostname string
	PluginID string
}

// Repository persists vulnerabilities keyed by duplicate key.
type Repository interface {
	// GetByKey retrieves a vulnerability by its duplicate key.
	// Returns shared.ErrNotFound when absent.
	GetByKey(ctx context.Context, key string) (*Vulnerability, error)

	// Create inserts a new vulnerability.
	Create(ctx context.Context, v *Vulnerability) error

	// Update rewrites the business fields of an existing vulnerability.
	Update(ctx context.Context, v *Vulnerability) error

	// Refresh bumps only the last-seen stamp and occurrence counter.
	Refresh(ctx context.Context, key string, seenAt time.Time) error

	// List retrieves vulnerabilities matching the filter, newest first.
	List(ctx context.Context, filter Filter, page pagination.Pagination) (pagination.Result[*Vulnerability], error)

	// DeleteOlderThan removes records not seen since the cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
