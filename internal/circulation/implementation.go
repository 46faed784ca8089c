// internal/circulation/implementation.go
package circulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"libris/internal/catalog"
	"libris/internal/inventory"
	"libris/internal/loan"
	"libris/internal/logging"
	"libris/internal/patron"
	"libris/internal/policy"
)

const defaultLockTimeout = 2 * time.Second

// engine implements the Service interface. All mutations go through per-entity
// locks; the loan store acts as the persistence sink, so a state change is
// only considered applied once the store acknowledges it.
type engine struct {
	loans   loan.Store
	ledger  inventory.Ledger
	catalog catalog.Store
	patrons patron.Directory
	clock   Clock
	holds   HoldQueue
	locks   *keyedLocks
	log     *logging.Logger

	tracer    trace.Tracer
	checkouts metric.Int64Counter
	returns   metric.Int64Counter
}

// Option configures the engine.
type Option func(*engine)

// WithClock replaces the system clock, letting tests fix "today".
func WithClock(c Clock) Option {
	return func(e *engine) { e.clock = c }
}

// WithHoldQueue wires a reservation queue; pending holds block renewals.
func WithHoldQueue(h HoldQueue) Option {
	return func(e *engine) { e.holds = h }
}

// WithLockTimeout bounds how long an operation waits for entity locks.
func WithLockTimeout(d time.Duration) Option {
	return func(e *engine) { e.locks = newKeyedLocks(d) }
}

// WithLogger sets the logger used for consistency-violation and
// compensation reporting.
func WithLogger(l *logging.Logger) Option {
	return func(e *engine) { e.log = l }
}

// NewService creates a new circulation engine instance.
func NewService(loans loan.Store, ledger inventory.Ledger, cat catalog.Store, patrons patron.Directory, opts ...Option) Service {
	e := &engine{
		loans:   loans,
		ledger:  ledger,
		catalog: cat,
		patrons: patrons,
		clock:   SystemClock(),
		holds:   noHolds{},
		locks:   newKeyedLocks(defaultLockTimeout),
		log:     logging.Nop(),
		tracer:  otel.Tracer("libris/circulation"),
	}
	for _, opt := range opts {
		opt(e)
	}

	meter := otel.Meter("libris/circulation")
	e.checkouts, _ = meter.Int64Counter("circulation.checkouts",
		metric.WithDescription("Number of successful checkouts"))
	e.returns, _ = meter.Int64Counter("circulation.returns",
		metric.WithDescription("Number of successful returns"))

	return e
}

// Checkout lends one copy of a title to a patron. Policy checks run before
// any inventory is reserved; a rejection leaves inventory and loan records
// untouched. The ledger's atomic decrement is the true availability gate.
func (e *engine) Checkout(ctx context.Context, titleKey, patronKey string) (*loan.Loan, error) {
	ctx, span := e.tracer.Start(ctx, "circulation.checkout",
		trace.WithAttributes(
			attribute.String("title.key", titleKey),
			attribute.String("patron.key", patronKey),
		),
	)
	defer span.End()

	release, err := e.locks.acquire(ctx, "title:"+titleKey, "patron:"+patronKey)
	if err != nil {
		return nil, err
	}
	defer release()

	t, err := e.catalog.GetTitle(ctx, titleKey)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, ErrTitleNotFound
		}
		return nil, fmt.Errorf("lookup title: %w", err)
	}
	p, err := e.patrons.FindPatron(ctx, patronKey)
	if err != nil {
		if errors.Is(err, patron.ErrNotFound) {
			return nil, ErrPatronNotFound
		}
		return nil, fmt.Errorf("lookup patron: %w", err)
	}

	if t.Status == catalog.StatusRetired {
		return nil, ErrNotAvailable
	}
	if t.ReferenceOnly {
		return nil, &PolicyViolationError{Reason: policy.ReasonReferenceOnly}
	}

	available, err := e.ledger.Available(ctx, titleKey)
	if err != nil {
		return nil, fmt.Errorf("read availability: %w", err)
	}
	if available == 0 {
		return nil, ErrNotAvailable
	}

	patronLoans, err := e.loans.ByPatron(ctx, patronKey)
	if err != nil {
		return nil, fmt.Errorf("load patron loans: %w", err)
	}
	openCount := 0
	for _, l := range patronLoans {
		if l.Status.Open() {
			openCount++
		}
	}
	if !policy.CanBorrow(p, openCount) {
		return nil, &PolicyViolationError{Reason: policy.BorrowDenialReason(p, openCount)}
	}
	if policy.HasDuplicateActiveLoan(patronLoans, titleKey) {
		return nil, ErrDuplicateLoan
	}

	if err := e.ledger.Reserve(ctx, titleKey); err != nil {
		if errors.Is(err, inventory.ErrInsufficientCopies) {
			return nil, ErrNotAvailable
		}
		return nil, fmt.Errorf("reserve copy: %w", err)
	}

	today := e.clock.Today()
	l := &loan.Loan{
		ID:        uuid.New(),
		TitleKey:  titleKey,
		PatronKey: patronKey,
		LoanDate:  today,
		DueDate:   today.AddDate(0, 0, policy.LoanPeriodDays(p.Category)),
		Status:    loan.StatusActive,
		Version:   1,
	}

	if err := e.loans.Insert(ctx, l); err != nil {
		// The sink did not acknowledge, so the checkout never happened:
		// put the reserved copy back.
		if relErr := e.ledger.Release(ctx, titleKey); relErr != nil {
			e.log.Error("failed to compensate reservation after persist failure",
				"title_key", titleKey, "error", relErr)
		}
		return nil, fmt.Errorf("persist loan: %w", err)
	}

	e.checkouts.Add(ctx, 1)
	span.SetAttributes(attribute.String("loan.id", l.ID.String()))
	return l, nil
}

// Return closes out a loan: sets the return date, computes any late fine,
// releases the copy back to inventory, and charges the patron.
func (e *engine) Return(ctx context.Context, loanID uuid.UUID) (*loan.Loan, error) {
	ctx, span := e.tracer.Start(ctx, "circulation.return",
		trace.WithAttributes(attribute.String("loan.id", loanID.String())),
	)
	defer span.End()

	release, err := e.locks.acquire(ctx, "loan:"+loanID.String())
	if err != nil {
		return nil, err
	}
	defer release()

	l, err := e.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !l.Status.Open() {
		return nil, ErrAlreadyClosed
	}

	today := e.clock.Today()
	returnDate := today
	l.ReturnDate = &returnDate
	l.FineAmount = policy.ComputeFine(l.DueDate, today)
	l.Status = loan.StatusReturned

	if err := e.loans.Update(ctx, l); err != nil {
		if errors.Is(err, loan.ErrVersionConflict) {
			return nil, ErrBusy
		}
		return nil, fmt.Errorf("persist return: %w", err)
	}

	if err := e.ledger.Release(ctx, l.TitleKey); err != nil {
		var consistency *inventory.ConsistencyError
		if errors.As(err, &consistency) {
			e.log.Error("inventory consistency violation on return",
				"loan_id", l.ID.String(), "title_key", l.TitleKey, "error", err)
		}
		return nil, fmt.Errorf("release copy: %w", err)
	}

	if l.FineAmount > 0 {
		if err := e.patrons.ApplyFine(ctx, l.PatronKey, l.FineAmount); err != nil {
			e.log.Error("failed to apply late fine",
				"loan_id", l.ID.String(), "patron_key", l.PatronKey, "amount", l.FineAmount, "error", err)
			return nil, fmt.Errorf("apply fine: %w", err)
		}
	}

	e.returns.Add(ctx, 1)
	return l, nil
}

// Renew extends a loan's due date by the patron's loan period, clearing an
// overdue status if the loan had lapsed.
func (e *engine) Renew(ctx context.Context, loanID uuid.UUID) (*loan.Loan, error) {
	ctx, span := e.tracer.Start(ctx, "circulation.renew",
		trace.WithAttributes(attribute.String("loan.id", loanID.String())),
	)
	defer span.End()

	release, err := e.locks.acquire(ctx, "loan:"+loanID.String())
	if err != nil {
		return nil, err
	}
	defer release()

	l, err := e.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !l.Status.Open() {
		return nil, ErrNotRenewable
	}
	if l.RenewalCount >= policy.MaxRenewals {
		return nil, ErrRenewalLimitReached
	}

	requested, err := e.holds.HasPendingHold(ctx, l.TitleKey)
	if err != nil {
		return nil, fmt.Errorf("check holds: %w", err)
	}
	if requested {
		return nil, ErrTitleRequested
	}

	p, err := e.patrons.FindPatron(ctx, l.PatronKey)
	if err != nil {
		if errors.Is(err, patron.ErrNotFound) {
			return nil, ErrPatronNotFound
		}
		return nil, fmt.Errorf("lookup patron: %w", err)
	}

	l.DueDate = e.clock.Today().AddDate(0, 0, policy.LoanPeriodDays(p.Category))
	l.Status = loan.StatusActive
	l.RenewalCount++

	if err := e.loans.Update(ctx, l); err != nil {
		if errors.Is(err, loan.ErrVersionConflict) {
			return nil, ErrBusy
		}
		return nil, fmt.Errorf("persist renewal: %w", err)
	}

	return l, nil
}

// MarkLost closes a loan as lost and charges the patron the loss fee.
// The copy is permanently removed from circulating availability, so the
// ledger is deliberately not released.
func (e *engine) MarkLost(ctx context.Context, loanID uuid.UUID) (*loan.Loan, error) {
	ctx, span := e.tracer.Start(ctx, "circulation.mark_lost",
		trace.WithAttributes(attribute.String("loan.id", loanID.String())),
	)
	defer span.End()

	release, err := e.locks.acquire(ctx, "loan:"+loanID.String())
	if err != nil {
		return nil, err
	}
	defer release()

	l, err := e.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !l.Status.Open() {
		return nil, ErrAlreadyClosed
	}

	t, err := e.catalog.GetTitle(ctx, l.TitleKey)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, ErrTitleNotFound
		}
		return nil, fmt.Errorf("lookup title: %w", err)
	}

	l.Status = loan.StatusLost
	l.FineAmount = policy.LossCharge(t.Price)

	if err := e.loans.Update(ctx, l); err != nil {
		if errors.Is(err, loan.ErrVersionConflict) {
			return nil, ErrBusy
		}
		return nil, fmt.Errorf("persist loss: %w", err)
	}

	if err := e.patrons.ApplyFine(ctx, l.PatronKey, l.FineAmount); err != nil {
		e.log.Error("failed to apply loss charge",
			"loan_id", l.ID.String(), "patron_key", l.PatronKey, "amount", l.FineAmount, "error", err)
		return nil, fmt.Errorf("apply loss charge: %w", err)
	}

	return l, nil
}

// OverdueLoans returns every loan currently overdue, materializing the
// overdue status of active loans that have lapsed past their due date.
func (e *engine) OverdueLoans(ctx context.Context) ([]*loan.Loan, error) {
	today := e.clock.Today()
	candidates, err := e.loans.Overdue(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("query overdue loans: %w", err)
	}

	out := make([]*loan.Loan, 0, len(candidates))
	for _, l := range candidates {
		if l.OverdueAsOf(today) {
			updated, _, err := e.materializeOverdue(ctx, l.ID)
			if err != nil {
				// Could not persist the transition right now; the status
				// is still derivable, so report the loan as overdue.
				l.Status = loan.StatusOverdue
			} else {
				l = updated
			}
		}
		if l.Status == loan.StatusOverdue {
			out = append(out, l)
		}
	}
	return out, nil
}

// SweepOverdue bulk-materializes active-to-overdue transitions using the same
// state-machine rules as the lazy path. Idempotent; never touches returned or
// lost loans.
func (e *engine) SweepOverdue(ctx context.Context) (int, error) {
	ctx, span := e.tracer.Start(ctx, "circulation.sweep_overdue")
	defer span.End()

	today := e.clock.Today()
	candidates, err := e.loans.Overdue(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("query overdue loans: %w", err)
	}

	changed := 0
	for _, l := range candidates {
		if !l.OverdueAsOf(today) {
			continue
		}
		_, transitioned, err := e.materializeOverdue(ctx, l.ID)
		if err != nil {
			if Retryable(err) || errors.Is(err, loan.ErrVersionConflict) {
				continue // a concurrent caller owns this loan right now
			}
			return changed, err
		}
		if transitioned {
			changed++
		}
	}

	span.SetAttributes(attribute.Int("loans.transitioned", changed))
	return changed, nil
}

// materializeOverdue re-reads the loan under its lock and persists the
// overdue status if it still applies. A loan that was returned, lost, or
// renewed in the meantime is left alone.
func (e *engine) materializeOverdue(ctx context.Context, loanID uuid.UUID) (*loan.Loan, bool, error) {
	release, err := e.locks.acquire(ctx, "loan:"+loanID.String())
	if err != nil {
		return nil, false, err
	}
	defer release()

	l, err := e.getLoan(ctx, loanID)
	if err != nil {
		return nil, false, err
	}
	if !l.OverdueAsOf(e.clock.Today()) {
		return l, false, nil
	}

	l.Status = loan.StatusOverdue
	if err := e.loans.Update(ctx, l); err != nil {
		return nil, false, err
	}
	return l, true, nil
}

func (e *engine) getLoan(ctx context.Context, loanID uuid.UUID) (*loan.Loan, error) {
	l, err := e.loans.Get(ctx, loanID)
	if err != nil {
		if errors.Is(err, loan.ErrNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("load loan: %w", err)
	}
	return l, nil
}
