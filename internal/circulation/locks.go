// internal/circulation/locks.go
package circulation

import (
	"context"
	"sort"
	"sync"
	"time"
)

// keyedLocks serializes conflicting operations per entity key (title, patron,
// loan) while unrelated keys proceed in parallel. Acquisition is bounded: a
// stalled holder surfaces as ErrBusy to callers instead of wedging the engine.
type keyedLocks struct {
	mu      sync.Mutex
	slots   map[string]chan struct{}
	timeout time.Duration
}

func newKeyedLocks(timeout time.Duration) *keyedLocks {
	return &keyedLocks{
		slots:   make(map[string]chan struct{}),
		timeout: timeout,
	}
}

func (k *keyedLocks) slot(key string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, ok := k.slots[key]
	if !ok {
		s = make(chan struct{}, 1)
		k.slots[key] = s
	}
	return s
}

// acquire takes the locks for all keys, in sorted order so two operations
// touching the same pair of entities can never deadlock. It returns a release
// function, or ErrBusy if any lock could not be taken within the timeout.
func (k *keyedLocks) acquire(ctx context.Context, keys ...string) (func(), error) {
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)

	timer := time.NewTimer(k.timeout)
	defer timer.Stop()

	var held []chan struct{}
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}

	for _, key := range sorted {
		s := k.slot(key)
		select {
		case s <- struct{}{}:
			held = append(held, s)
		case <-timer.C:
			release()
			return nil, ErrBusy
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		}
	}

	return release, nil
}
