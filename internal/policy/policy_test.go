// internal/policy/policy_test.go
package policy_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"libris/internal/loan"
	"libris/internal/patron"
	"libris/internal/policy"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestLoanPeriodDays(t *testing.T) {
	assert.Equal(t, 14, policy.LoanPeriodDays(patron.CategoryStudent))
	assert.Equal(t, 14, policy.LoanPeriodDays(patron.CategoryVisitor))
	assert.Equal(t, 21, policy.LoanPeriodDays(patron.CategoryStaff))
	assert.Equal(t, 28, policy.LoanPeriodDays(patron.CategoryFaculty))
}

func TestCanBorrow(t *testing.T) {
	tests := []struct {
		name      string
		patron    patron.Patron
		active    int
		want      bool
		wantDeny  string
	}{
		{
			name:   "eligible",
			patron: patron.Patron{Active: true, MaxLoans: 5},
			active: 2,
			want:   true,
		},
		{
			name:     "loan limit reached",
			patron:   patron.Patron{Active: true, MaxLoans: 5},
			active:   5,
			want:     false,
			wantDeny: policy.ReasonLoanLimitReached,
		},
		{
			name:     "outstanding fines",
			patron:   patron.Patron{Active: true, MaxLoans: 5, FineBalance: 1.50},
			active:   0,
			want:     false,
			wantDeny: policy.ReasonOutstandingFines,
		},
		{
			name:     "inactive account",
			patron:   patron.Patron{Active: false, MaxLoans: 5},
			active:   0,
			want:     false,
			wantDeny: policy.ReasonAccountInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.CanBorrow(&tt.patron, tt.active)
			assert.Equal(t, tt.want, got)
			if !tt.want {
				assert.Equal(t, tt.wantDeny, policy.BorrowDenialReason(&tt.patron, tt.active))
			}
		})
	}
}

func TestHasDuplicateActiveLoan(t *testing.T) {
	loans := []*loan.Loan{
		{TitleKey: "isbn-1", Status: loan.StatusReturned},
		{TitleKey: "isbn-2", Status: loan.StatusOverdue},
		{TitleKey: "isbn-3", Status: loan.StatusLost},
	}

	assert.False(t, policy.HasDuplicateActiveLoan(loans, "isbn-1"), "returned loan is not a duplicate")
	assert.True(t, policy.HasDuplicateActiveLoan(loans, "isbn-2"), "overdue loan still holds the copy")
	assert.False(t, policy.HasDuplicateActiveLoan(loans, "isbn-3"), "lost loan is closed")
	assert.False(t, policy.HasDuplicateActiveLoan(loans, "isbn-4"))
}

func TestComputeFine(t *testing.T) {
	due := date(2024, time.January, 1)

	assert.Equal(t, 1.50, policy.ComputeFine(due, date(2024, time.January, 4)))
	assert.Equal(t, 0.0, policy.ComputeFine(due, date(2023, time.December, 30)))
	assert.Equal(t, 0.0, policy.ComputeFine(due, due), "on-time return costs nothing")
	assert.Equal(t, 0.50, policy.ComputeFine(due, date(2024, time.January, 2)))
}

func TestLossCharge(t *testing.T) {
	assert.Equal(t, 30.0, policy.LossCharge(20.0))
	assert.Equal(t, 0.0, policy.LossCharge(0))
}

func TestComputeFineProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		due := date(2024, time.January, 1).AddDate(0, 0, rapid.IntRange(-400, 400).Draw(t, "dueOffset"))
		ret := due.AddDate(0, 0, rapid.IntRange(-400, 400).Draw(t, "lateDays"))

		fine := policy.ComputeFine(due, ret)
		if fine < 0 {
			t.Fatalf("fine must never be negative, got %v", fine)
		}
		if !ret.After(due) && fine != 0 {
			t.Fatalf("on-time return must cost nothing, got %v", fine)
		}
		if ret.After(due) {
			days := int(ret.Sub(due).Hours() / 24)
			want := float64(days) * policy.DailyFineRate
			if fine != want {
				t.Fatalf("fine for %d days late: got %v, want %v", days, fine, want)
			}
		}
	})
}
