package store

import (
	"context"
	"math/big"
	"sync"

	"github.com/StrathCole/oracle-push/pkg/feeder/feed"
	"github.com/StrathCole/oracle-push/pkg/feeder/gate"
)

// MemoryStore keeps state in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values feed.State
	stale  map[feed.ID]struct{}
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store seeded with initial, which may be nil.
func NewMemoryStore(initial feed.State) *MemoryStore {
	values := feed.State{}
	if initial != nil {
		values = initial.Clone()
	}
	return &MemoryStore{values: values, stale: make(map[feed.ID]struct{})}
}

// Snapshot returns a copy of the current state.
func (m *MemoryStore) Snapshot(_ context.Context) (feed.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values.Clone(), nil
}

// Record stores updated values and marks missing feeds stale.
func (m *MemoryStore) Record(_ context.Context, updates []gate.Update, missing []feed.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range updates {
		m.values[u.ID] = new(big.Int).Set(u.Encoded)
		delete(m.stale, u.ID)
	}
	for _, id := range missing {
		m.stale[id] = struct{}{}
	}
	return nil
}

// Stale returns the feeds marked stale.
func (m *MemoryStore) Stale(_ context.Context) ([]feed.ID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]feed.ID, 0, len(m.stale))
	for id := range m.stale {
		ids = append(ids, id)
	}
	feed.SortIDs(ids)
	return ids, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
