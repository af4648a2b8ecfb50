package scorecard

import (
	"context"
	"time"

	"github.com/secboard/api/pkg/domain/shared"
	"github.com/secboard/api/pkg/pagination"
)

// SummaryFilter narrows summary listings.
type SummaryFilter struct {
	Category string
	Since    *time.Time
}

// SummaryRepository persists per-category summary rows keyed by
// duplicate key.
type SummaryRepository interface {
	GetByKey(ctx context.Context, key string) (*Summary, error)
	Create(ctx context.Context, s *Summary) error
	Update(ctx context.Context, s *Summary) error
	Refresh(ctx context.Context, key string, seenAt time.Time) error
	List(ctx context.Context, filter SummaryFilter, page pagination.Pagination) (pagination.Result[*Summary], error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// IssueFilter narrows issue listings.
type IssueFilter struct {
	Category string
	Severity shared.Severity
	Status   shared.RecordStatus
}

// IssueRepository persists issue-detail rows keyed by vendor issue ID.
type IssueRepository interface {
	GetByKey(ctx context.Context, key string) (*Issue, error)
	Create(ctx context.Context, i *Issue) error
	Update(ctx context.Context, i *Issue) error
	Refresh(ctx context.Context, key string, seenAt time.Time) error
	List(ctx context.Context, filter IssueFilter, page pagination.Pagination) (pagination.Result[*Issue], error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
