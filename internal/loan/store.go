// internal/loan/store.go
package loan

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no loan exists for the given ID.
	ErrNotFound = errors.New("loan not found")
	// ErrVersionConflict is returned by Update when the loan was modified
	// concurrently. The caller should re-read and retry or give up.
	ErrVersionConflict = errors.New("loan version conflict")
)

// Store is the authoritative set of loan records. Implementations are the
// engine's persistence sink: a state change is not considered applied until
// Insert/Update returns nil. Queries return point-in-time snapshots and never
// mutate status.
type Store interface {
	Insert(ctx context.Context, l *Loan) error
	Get(ctx context.Context, id uuid.UUID) (*Loan, error)
	// Update applies l if the stored version still matches l.Version, then
	// increments the version. Otherwise it returns ErrVersionConflict.
	Update(ctx context.Context, l *Loan) error

	ByPatron(ctx context.Context, patronKey string) ([]*Loan, error)
	ByTitle(ctx context.Context, titleKey string) ([]*Loan, error)
	// Active returns loans with status active or overdue.
	Active(ctx context.Context) ([]*Loan, error)
	// Overdue returns loans already marked overdue plus active loans whose
	// due date lies before asOf.
	Overdue(ctx context.Context, asOf time.Time) ([]*Loan, error)
	All(ctx context.Context) ([]*Loan, error)
}
