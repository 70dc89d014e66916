package replica

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[int64]Record
}

func NewMemoryStore(seed ...Record) *MemoryStore {
	s := &MemoryStore{records: make(map[int64]Record, len(seed))}
	for _, r := range seed {
		s.records[r.ID] = r
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, id int64) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	return r, ok, nil
}

func (s *MemoryStore) UpsertStock(_ context.Context, id int64, stock int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = Record{ID: id, Stock: stock}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) Create(_ context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[r.ID]; ok {
		return opError("create", r.ID, ErrExists)
	}
	s.records[r.ID] = r
	return nil
}

func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

// Snapshot returns a copy of every record.
func (s *MemoryStore) Snapshot() map[int64]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]Record, len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out
}
