// internal/inventory/ledger.go
package inventory

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInsufficientCopies is returned by Reserve when no copy is available.
	ErrInsufficientCopies = errors.New("no copies available")
	// ErrUnknownTitle is returned when a title was never registered.
	ErrUnknownTitle = errors.New("title not registered in ledger")
)

// ConsistencyError signals an invariant breach: a release that would push the
// available count past the total. It is never expected in correct operation
// and must be reported, not clamped.
type ConsistencyError struct {
	TitleKey  string
	Available int
	Total     int
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("inventory consistency violation for title %s: available %d would exceed total %d",
		e.TitleKey, e.Available, e.Total)
}

// Ledger owns the available/total copy counts for each title. Reserve and
// Release are atomic: readers always see a count consistent with all
// completed calls, with no lost updates under concurrent access.
type Ledger interface {
	Reserve(ctx context.Context, titleKey string) error
	Release(ctx context.Context, titleKey string) error
	Available(ctx context.Context, titleKey string) (int, error)
}
