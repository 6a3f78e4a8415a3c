package memory

import (
	"context"
	"sort"
	"sync"

	"der-explorer/internal/polling"
	"der-explorer/internal/store"
)

// Store is an in-memory entity store.
type Store struct {
	mu   sync.RWMutex
	data map[polling.Kind]map[polling.ID]polling.Entity
}

// NewStore constructs a store.
func NewStore() *Store {
	return &Store{data: make(map[polling.Kind]map[polling.ID]polling.Entity)}
}

// Upsert stores copies of the entities, replacing any with the same id.
func (s *Store) Upsert(ctx context.Context, kind polling.Kind, entities []polling.Entity) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	byID := s.data[kind]
	if byID == nil {
		byID = make(map[polling.ID]polling.Entity)
		s.data[kind] = byID
	}
	for _, e := range entities {
		byID[e.ID] = e.Clone()
	}
	return nil
}

// Get loads one entity.
func (s *Store) Get(ctx context.Context, kind polling.Kind, id polling.ID) (polling.Entity, error) {
	_ = ctx
	s.mu.RLock()
	e, ok := s.data[kind][id]
	s.mu.RUnlock()
	if !ok {
		return polling.Entity{}, store.ErrNotFound
	}
	return e.Clone(), nil
}

// List returns every entity of a kind ordered by id.
func (s *Store) List(ctx context.Context, kind polling.Kind) ([]polling.Entity, error) {
	_ = ctx
	s.mu.RLock()
	out := make([]polling.Entity, 0, len(s.data[kind]))
	for _, e := range s.data[kind] {
		out = append(out, e.Clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
