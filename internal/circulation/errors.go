// internal/circulation/errors.go
package circulation

import (
	"errors"
	"fmt"
)

var (
	// Not-found errors: caller referenced an entity that does not exist.
	ErrTitleNotFound  = errors.New("title not found")
	ErrPatronNotFound = errors.New("patron not found")
	ErrLoanNotFound   = errors.New("loan not found")

	// ErrNotAvailable means the title has no circulating copies left.
	// Inventory-driven, distinct from policy violations.
	ErrNotAvailable = errors.New("no copies available for checkout")

	// State-conflict errors: the requested transition is illegal in the
	// loan's current state.
	ErrDuplicateLoan       = errors.New("patron already holds this title")
	ErrAlreadyClosed       = errors.New("loan is already returned or lost")
	ErrNotRenewable        = errors.New("only active or overdue loans can be renewed")
	ErrRenewalLimitReached = errors.New("maximum renewals reached for this loan")
	ErrTitleRequested      = errors.New("title has been requested by another patron")

	// ErrBusy means a bounded lock acquisition timed out. Retryable.
	ErrBusy = errors.New("engine busy: could not acquire entity lock")
)

// PolicyViolationError carries the specific borrowing rule that was violated,
// for UI display.
type PolicyViolationError struct {
	Reason string
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("policy violation: %s", e.Reason)
}

// Retryable reports whether the caller may simply retry the operation.
// Only transient lock-timeout failures qualify.
func Retryable(err error) bool {
	return errors.Is(err, ErrBusy)
}
