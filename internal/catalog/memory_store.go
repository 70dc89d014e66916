package catalog

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Repository.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[int64]Product
	nextID   int64
}

// NewMemoryStore returns a store holding seed. Seed products keep their ids;
// new products get ids above the highest seeded one.
func NewMemoryStore(seed ...Product) *MemoryStore {
	s := &MemoryStore{products: make(map[int64]Product, len(seed))}
	for _, p := range seed {
		s.products[p.ID] = p
		if p.ID > s.nextID {
			s.nextID = p.ID
		}
	}
	return s
}

func (s *MemoryStore) ListAll(_ context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id int64) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) Create(_ context.Context, p Product) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p.ID = s.nextID
	s.products[p.ID] = p
	return p, nil
}

func (s *MemoryStore) Update(_ context.Context, p Product) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return Product{}, ErrNotFound
	}
	s.products[p.ID] = p
	return p, nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.products)), nil
}
