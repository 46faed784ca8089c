// internal/loan/memory.go
package loan

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps loans in memory. All reads return clones so callers can
// never observe a half-applied update.
type MemoryStore struct {
	mu    sync.RWMutex
	loans map[uuid.UUID]*Loan

	// failNext, when set, makes the next write fail. Lets tests exercise
	// the engine's compensation path without a real database outage.
	failNext error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{loans: make(map[uuid.UUID]*Loan)}
}

// FailNextWrite arranges for the next Insert or Update to return err.
func (s *MemoryStore) FailNextWrite(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

func (s *MemoryStore) takeFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *MemoryStore) Insert(ctx context.Context, l *Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure(); err != nil {
		return err
	}
	s.loans[l.ID] = l.Clone()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.loans[id]
	if !ok {
		return nil, ErrNotFound
	}
	return l.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, l *Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure(); err != nil {
		return err
	}
	stored, ok := s.loans[l.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != l.Version {
		return ErrVersionConflict
	}
	next := l.Clone()
	next.Version++
	s.loans[l.ID] = next
	l.Version = next.Version
	return nil
}

func (s *MemoryStore) ByPatron(ctx context.Context, patronKey string) ([]*Loan, error) {
	return s.filter(func(l *Loan) bool { return l.PatronKey == patronKey }), nil
}

func (s *MemoryStore) ByTitle(ctx context.Context, titleKey string) ([]*Loan, error) {
	return s.filter(func(l *Loan) bool { return l.TitleKey == titleKey }), nil
}

func (s *MemoryStore) Active(ctx context.Context) ([]*Loan, error) {
	return s.filter(func(l *Loan) bool { return l.Status.Open() }), nil
}

func (s *MemoryStore) Overdue(ctx context.Context, asOf time.Time) ([]*Loan, error) {
	return s.filter(func(l *Loan) bool {
		return l.Status == StatusOverdue || l.OverdueAsOf(asOf)
	}), nil
}

func (s *MemoryStore) All(ctx context.Context) ([]*Loan, error) {
	return s.filter(func(*Loan) bool { return true }), nil
}

func (s *MemoryStore) filter(keep func(*Loan) bool) []*Loan {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Loan
	for _, l := range s.loans {
		if keep(l) {
			out = append(out, l.Clone())
		}
	}
	return out
}
