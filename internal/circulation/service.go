// internal/circulation/service.go
package circulation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"libris/internal/loan"
)

// Service defines the interface for the circulation engine.
type Service interface {
	Checkout(ctx context.Context, titleKey, patronKey string) (*loan.Loan, error)
	Return(ctx context.Context, loanID uuid.UUID) (*loan.Loan, error)
	Renew(ctx context.Context, loanID uuid.UUID) (*loan.Loan, error)
	MarkLost(ctx context.Context, loanID uuid.UUID) (*loan.Loan, error)

	// OverdueLoans materializes the overdue status of lapsed active loans
	// and returns every loan currently overdue.
	OverdueLoans(ctx context.Context) ([]*loan.Loan, error)
	// SweepOverdue bulk-materializes overdue transitions and reports how
	// many loans changed state.
	SweepOverdue(ctx context.Context) (int, error)
}

// Clock supplies "today" so tests can fix the date. Never read wall-clock
// time directly inside the engine.
type Clock interface {
	Today() time.Time
}

// SystemClock returns a Clock that reads the system date in UTC,
// truncated to midnight.
func SystemClock() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Today() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}

// HoldQueue reports pending reservations for a title. A pending hold blocks
// renewal. The engine defaults to a queue with no holds when none is wired.
type HoldQueue interface {
	HasPendingHold(ctx context.Context, titleKey string) (bool, error)
}

type noHolds struct{}

func (noHolds) HasPendingHold(context.Context, string) (bool, error) {
	return false, nil
}
