package ingest

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/secboard/api/internal/metrics"
	"github.com/secboard/api/pkg/domain/shared"
)

// Store is the four-operation persistence contract the reconciler consumes.
// Every record family's repository satisfies it.
type Store[T any] interface {
	GetByKey(ctx context.Context, key string) (T, error)
	Create(ctx context.Context, record T) error
	Update(ctx context.Context, record T) error
	Refresh(ctx context.Context, key string, seenAt time.Time) error
}

// keyLocks serializes reconciliation per duplicate key so two uploads
// carrying the same record cannot race the read-then-write sequence.
// Striped rather than per-key to keep memory bounded.
type keyLocks struct {
	stripes [64]sync.Mutex
}

func (k *keyLocks) lock(key string) func() {
	h := fnv.New32a()
	h.Write([]byte(key))
	m := &k.stripes[h.Sum32()%uint32(len(k.stripes))]
	m.Lock()
	return m.Unlock
}

// Reconciler decides insert, update or no-op-refresh for one record family.
//
// The no-op-vs-update distinction is the point: rewriting every re-seen row
// would destroy the record of what actually changed between imports, which
// downstream reporting depends on. A re-seen record with no meaningful
// change only gets its freshness stamp and occurrence counter bumped.
type Reconciler[T any] struct {
	store   Store[T]
	family  string
	keyOf   func(T) string
	changed func(existing, incoming T) bool
	merge   func(existing, incoming T)
	locks   keyLocks
}

// NewReconciler wires a reconciler for one record family.
func NewReconciler[T any](
	store Store[T],
	family string,
	keyOf func(T) string,
	changed func(existing, incoming T) bool,
	merge func(existing, incoming T),
) *Reconciler[T] {
	return &Reconciler[T]{
		store:   store,
		family:  family,
		keyOf:   keyOf,
		changed: changed,
		merge:   merge,
	}
}

// Reconcile looks up the stored record by the incoming record's key and
// applies the insert / update / refresh decision.
func (r *Reconciler[T]) Reconcile(ctx context.Context, incoming T) (Outcome, error) {
	key := r.keyOf(incoming)
	if key == "" {
		return "", fmt.Errorf("%w: empty duplicate key", shared.ErrInvalidInput)
	}

	start := time.Now()
	unlock := r.locks.lock(key)
	defer unlock()

	outcome, err := r.reconcile(ctx, key, incoming)
	if err != nil {
		return "", err
	}

	metrics.ReconcileOutcomesTotal.WithLabelValues(r.family, string(outcome)).Inc()
	metrics.ReconcileDuration.WithLabelValues(r.family).Observe(time.Since(start).Seconds())
	return outcome, nil
}

func (r *Reconciler[T]) reconcile(ctx context.Context, key string, incoming T) (Outcome, error) {
	existing, err := r.store.GetByKey(ctx, key)
	if err != nil {
		if shared.IsNotFound(err) {
			if err := r.store.Create(ctx, incoming); err != nil {
				return "", fmt.Errorf("create %s record: %w", r.family, err)
			}
			return OutcomeInserted, nil
		}
		return "", fmt.Errorf("lookup %s record: %w", r.family, err)
	}

	if r.changed(existing, incoming) {
		r.merge(existing, incoming)
		if err := r.store.Update(ctx, existing); err != nil {
			return "", fmt.Errorf("update %s record: %w", r.family, err)
		}
		return OutcomeUpdated, nil
	}

	if err := r.store.Refresh(ctx, key, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("refresh %s record: %w", r.family, err)
	}
	return OutcomeRefreshed, nil
}
