// internal/loan/domain.go
package loan

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a loan. Returned and lost are terminal.
type Status string

const (
	StatusActive   Status = "active"
	StatusOverdue  Status = "overdue"
	StatusReturned Status = "returned"
	StatusLost     Status = "lost"
)

// Open reports whether the loan still holds a copy (active or overdue).
func (s Status) Open() bool {
	return s == StatusActive || s == StatusOverdue
}

// Loan records one copy of one title lent to one patron.
type Loan struct {
	ID           uuid.UUID  `json:"id"`
	TitleKey     string     `json:"title_key"`
	PatronKey    string     `json:"patron_key"`
	LoanDate     time.Time  `json:"loan_date"`
	DueDate      time.Time  `json:"due_date"`
	ReturnDate   *time.Time `json:"return_date,omitempty"`
	Status       Status     `json:"status"`
	RenewalCount int        `json:"renewal_count"`
	FineAmount   float64    `json:"fine_amount"`
	Version      int        `json:"version"`
}

// OverdueAsOf reports whether an active loan has lapsed past its due date.
// The stored status is unchanged; materializing the overdue transition is the
// circulation engine's job.
func (l *Loan) OverdueAsOf(asOf time.Time) bool {
	return l.Status == StatusActive && asOf.After(l.DueDate)
}

// Clone returns an independent copy of the loan.
func (l *Loan) Clone() *Loan {
	out := *l
	if l.ReturnDate != nil {
		rd := *l.ReturnDate
		out.ReturnDate = &rd
	}
	return &out
}
