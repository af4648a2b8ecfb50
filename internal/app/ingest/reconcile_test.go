package ingest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secboard/api/pkg/domain/shared"
)

type fakeRecord struct {
	key string
	val string
}

type fakeStore struct {
	mu        sync.Mutex
	records   map[string]*fakeRecord
	refreshes int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*fakeRecord)}
}

func (s *fakeStore) GetByKey(_ context.Context, key string) (*fakeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, fmt.Errorf("record %q: %w", key, shared.ErrNotFound)
	}
	return rec, nil
}

func (s *fakeStore) Create(_ context.Context, rec *fakeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.key] = rec
	return nil
}

func (s *fakeStore) Update(_ context.Context, rec *fakeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.key] = rec
	return nil
}

func (s *fakeStore) Refresh(_ context.Context, _ string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++
	return nil
}

func newTestReconciler(store *fakeStore) *Reconciler[*fakeRecord] {
	return NewReconciler[*fakeRecord](
		store,
		"test",
		func(r *fakeRecord) string { return r.key },
		func(existing, incoming *fakeRecord) bool { return existing.val != incoming.val },
		func(existing, incoming *fakeRecord) { existing.val = incoming.val },
	)
}

func TestReconcilerInsertsUnknownKey(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store)

	outcome, err := r.Reconcile(context.Background(), &fakeRecord{key: "k1", val: "a"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeInserted, outcome)
	assert.Equal(t, "a", store.records["k1"].val)
}

func TestReconcilerRefreshesUnchangedRecord(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store)

	_, err := r.Reconcile(context.Background(), &fakeRecord{key: "k1", val: "a"})
	require.NoError(t, err)

	outcome, err := r.Reconcile(context.Background(), &fakeRecord{key: "k1", val: "a"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeRefreshed, outcome)
	assert.Equal(t, 1, store.refreshes)
}

func TestReconcilerUpdatesChangedRecord(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store)

	_, err := r.Reconcile(context.Background(), &fakeRecord{key: "k1", val: "a"})
	require.NoError(t, err)

	outcome, err := r.Reconcile(context.Background(), &fakeRecord{key: "k1", val: "b"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)
	assert.Equal(t, "b", store.records["k1"].val)
	assert.Equal(t, 0, store.refreshes)
}

func TestReconcilerRejectsEmptyKey(t *testing.T) {
	r := newTestReconciler(newFakeStore())

	_, err := r.Reconcile(context.Background(), &fakeRecord{key: "", val: "a"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestReconcilerConcurrentSameKey(t *testing.T) {
	store := newFakeStore()
	r := newTestReconciler(store)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Reconcile(context.Background(), &fakeRecord{key: "k1", val: "a"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Exactly one insert; every other attempt lands as a refresh.
	assert.Len(t, store.records, 1)
	assert.Equal(t, 19, store.refreshes)
}
