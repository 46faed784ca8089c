// internal/policy/policy.go

// Package policy holds the deterministic ruleset governing borrowing
// eligibility, loan duration, renewals, and fines. Pure functions, no I/O.
package policy

import (
	"time"

	"libris/internal/loan"
	"libris/internal/patron"
)

const (
	// DailyFineRate is charged per whole day a loan is returned late.
	DailyFineRate = 0.50
	// LossChargeMultiplier is applied to the title price when a copy is lost.
	LossChargeMultiplier = 1.5
	// MaxRenewals caps successful renewals per loan.
	MaxRenewals = 2
)

// Borrowing denial reason codes, surfaced to the UI verbatim.
const (
	ReasonLoanLimitReached = "loan limit reached"
	ReasonOutstandingFines = "outstanding fines"
	ReasonAccountInactive  = "account inactive"
	ReasonReferenceOnly    = "title is reference only"
)

// LoanPeriodDays returns the loan duration for a patron category.
func LoanPeriodDays(category patron.Category) int {
	switch category {
	case patron.CategoryFaculty:
		return 28 // 4 weeks
	case patron.CategoryStaff:
		return 21 // 3 weeks
	default:
		return 14 // 2 weeks for students and visitors
	}
}

// CanBorrow reports whether the patron may take out another loan.
func CanBorrow(p *patron.Patron, activeLoanCount int) bool {
	return p.Active && p.FineBalance == 0 && activeLoanCount < p.MaxLoans
}

// BorrowDenialReason names the first rule that blocks the patron.
// Only meaningful when CanBorrow returned false.
func BorrowDenialReason(p *patron.Patron, activeLoanCount int) string {
	switch {
	case activeLoanCount >= p.MaxLoans:
		return ReasonLoanLimitReached
	case p.FineBalance > 0:
		return ReasonOutstandingFines
	default:
		return ReasonAccountInactive
	}
}

// HasDuplicateActiveLoan reports whether any of the patron's loans already
// holds a copy of the title.
func HasDuplicateActiveLoan(loans []*loan.Loan, titleKey string) bool {
	for _, l := range loans {
		if l.TitleKey == titleKey && l.Status.Open() {
			return true
		}
	}
	return false
}

// ComputeFine charges DailyFineRate per whole day between the due date and
// the return date. Returning on or before the due date costs nothing.
func ComputeFine(dueDate, returnDate time.Time) float64 {
	daysLate := int(returnDate.Truncate(24*time.Hour).Sub(dueDate.Truncate(24*time.Hour)).Hours() / 24)
	if daysLate <= 0 {
		return 0
	}
	return float64(daysLate) * DailyFineRate
}

// LossCharge is the fee for a lost copy.
func LossCharge(titlePrice float64) float64 {
	return titlePrice * LossChargeMultiplier
}
