// internal/inventory/memory.go
package inventory

import (
	"context"
	"sync"
)

type entry struct {
	mu        sync.Mutex
	total     int
	available int
}

// MemoryLedger keeps per-title copy counts in memory. Each title has its own
// mutex so operations on unrelated titles never contend.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]*entry)}
}

// Register seeds the ledger with a title's copy counts. Registering an
// existing title resets its counts.
func (l *MemoryLedger) Register(titleKey string, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[titleKey] = &entry{total: total, available: total}
}

func (l *MemoryLedger) get(titleKey string) (*entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[titleKey]
	return e, ok
}

func (l *MemoryLedger) Reserve(ctx context.Context, titleKey string) error {
	e, ok := l.get(titleKey)
	if !ok {
		return ErrUnknownTitle
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.available == 0 {
		return ErrInsufficientCopies
	}
	e.available--
	return nil
}

func (l *MemoryLedger) Release(ctx context.Context, titleKey string) error {
	e, ok := l.get(titleKey)
	if !ok {
		return ErrUnknownTitle
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.available >= e.total {
		return &ConsistencyError{TitleKey: titleKey, Available: e.available + 1, Total: e.total}
	}
	e.available++
	return nil
}

func (l *MemoryLedger) Available(ctx context.Context, titleKey string) (int, error) {
	e, ok := l.get(titleKey)
	if !ok {
		return 0, ErrUnknownTitle
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.available, nil
}
