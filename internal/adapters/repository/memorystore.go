package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/gridelo/internal/domain/model"
)

// MemoryStore is a process-local Store with the same semantics as GormStore.
type MemoryStore struct {
	mu   sync.RWMutex
	snap model.Snapshot
	cfg  storeConfig
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...Option) *MemoryStore {
	cfg := defaultStoreConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &MemoryStore{snap: model.NewSnapshot(), cfg: cfg}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context) (model.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone(), nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, snap model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merge(snap)
	return nil
}

// Replace implements Store.
func (s *MemoryStore) Replace(_ context.Context, snap model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = model.NewSnapshot()
	s.merge(snap)
	return nil
}

func (s *MemoryStore) merge(snap model.Snapshot) {
	for _, id := range orderedIDs(snap) {
		s.snap.Put(id, snap.Ratings[id])
	}
	// Microsecond precision matches what the SQL store keeps.
	s.snap.UpdatedAt = s.cfg.now().UTC().Truncate(time.Microsecond)
	s.snap.Watermark = snap.Watermark
}

// LastUpdated implements Store.
func (s *MemoryStore) LastUpdated(_ context.Context) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap.Len() == 0 {
		return time.Time{}, false, nil
	}
	return s.snap.UpdatedAt, true, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
