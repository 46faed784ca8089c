// internal/catalog/memory.go
package catalog

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-memory catalog used in tests and single-process setups.
type MemoryStore struct {
	mu     sync.RWMutex
	titles map[string]*Title
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{titles: make(map[string]*Title)}
}

func (s *MemoryStore) AddTitle(ctx context.Context, t *Title) (*Title, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *t
	if stored.Status == "" {
		stored.Status = StatusActive
	}
	if stored.Available == 0 {
		stored.Available = stored.TotalCopies
	}
	s.titles[stored.ISBN] = &stored

	out := stored
	return &out, nil
}

func (s *MemoryStore) GetTitle(ctx context.Context, isbn string) (*Title, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.titles[isbn]
	if !ok {
		return nil, ErrNotFound
	}
	out := *t
	return &out, nil
}

func (s *MemoryStore) UpdateTitle(ctx context.Context, t *Title) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.titles[t.ISBN]; !ok {
		return ErrNotFound
	}
	stored := *t
	s.titles[t.ISBN] = &stored
	return nil
}

func (s *MemoryStore) RemoveTitle(ctx context.Context, isbn string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.titles[isbn]
	if !ok {
		return ErrNotFound
	}
	t.Status = StatusRetired
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, query string) ([]*Title, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	var out []*Title
	for _, t := range s.titles {
		if strings.Contains(strings.ToLower(t.Name), q) || strings.Contains(strings.ToLower(t.Author), q) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}
