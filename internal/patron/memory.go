// internal/patron/memory.go
package patron

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory patron directory used in tests and
// single-process setups.
type MemoryStore struct {
	mu      sync.RWMutex
	patrons map[string]*Patron
	creds   map[string]*Credential
	byEmail map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		patrons: make(map[string]*Patron),
		creds:   make(map[string]*Credential),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryStore) AddPatron(ctx context.Context, p *Patron, c *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Email != "" {
		if _, ok := s.byEmail[p.Email]; ok {
			return ErrDuplicateEmail
		}
	}
	stored := *p
	s.patrons[stored.ID] = &stored
	if p.Email != "" {
		s.byEmail[p.Email] = stored.ID
	}
	if c != nil {
		cred := *c
		s.creds[stored.ID] = &cred
	}
	return nil
}

func (s *MemoryStore) FindPatron(ctx context.Context, id string) (*Patron, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.patrons[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *p
	return &out, nil
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*Patron, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	out := *s.patrons[id]
	return &out, nil
}

func (s *MemoryStore) CredentialByPatron(ctx context.Context, id string) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.creds[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *c
	return &out, nil
}

func (s *MemoryStore) ApplyFine(ctx context.Context, id string, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.patrons[id]
	if !ok {
		return ErrNotFound
	}
	p.FineBalance += amount
	return nil
}

func (s *MemoryStore) PayFine(ctx context.Context, id string, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.patrons[id]
	if !ok {
		return ErrNotFound
	}
	p.FineBalance -= amount
	if p.FineBalance < 0 {
		p.FineBalance = 0
	}
	return nil
}

func (s *MemoryStore) FineBalance(ctx context.Context, id string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.patrons[id]
	if !ok {
		return 0, ErrNotFound
	}
	return p.FineBalance, nil
}

func (s *MemoryStore) Deactivate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.patrons[id]
	if !ok {
		return ErrNotFound
	}
	p.Active = false
	return nil
}
