// internal/reports/aggregator_test.go
package reports_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libris/internal/loan"
	"libris/internal/reports"
)

func seedLoans(t *testing.T, store *loan.MemoryStore, titleKey, patronKey string, n int, fine float64) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		l := &loan.Loan{
			ID:         uuid.New(),
			TitleKey:   titleKey,
			PatronKey:  patronKey,
			LoanDate:   time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
			DueDate:    time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
			Status:     loan.StatusReturned,
			FineAmount: fine,
			Version:    1,
		}
		require.NoError(t, store.Insert(ctx, l))
	}
}

func TestPopularTitles(t *testing.T) {
	ctx := context.Background()
	store := loan.NewMemoryStore()
	seedLoans(t, store, "isbn-b", "patron-1", 3, 0)
	seedLoans(t, store, "isbn-a", "patron-2", 3, 0)
	seedLoans(t, store, "isbn-c", "patron-3", 5, 0)

	agg := reports.NewAggregator(store)

	got, err := agg.PopularTitles(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, reports.TitleCount{TitleKey: "isbn-c", Loans: 5}, got[0])
	// Equal counts break ties by title key ascending.
	assert.Equal(t, reports.TitleCount{TitleKey: "isbn-a", Loans: 3}, got[1])
}

func TestMostActivePatrons(t *testing.T) {
	ctx := context.Background()
	store := loan.NewMemoryStore()
	seedLoans(t, store, "isbn-a", "patron-2", 2, 0)
	seedLoans(t, store, "isbn-b", "patron-1", 2, 0)
	seedLoans(t, store, "isbn-c", "patron-3", 4, 0)

	agg := reports.NewAggregator(store)

	got, err := agg.MostActivePatrons(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, reports.PatronCount{PatronKey: "patron-3", Loans: 4}, got[0])
	assert.Equal(t, reports.PatronCount{PatronKey: "patron-1", Loans: 2}, got[1])
	assert.Equal(t, reports.PatronCount{PatronKey: "patron-2", Loans: 2}, got[2])
}

func TestTotalOutstandingFines(t *testing.T) {
	ctx := context.Background()
	store := loan.NewMemoryStore()
	seedLoans(t, store, "isbn-a", "patron-1", 2, 1.50)
	seedLoans(t, store, "isbn-b", "patron-2", 1, 0)

	agg := reports.NewAggregator(store)

	total, err := agg.TotalOutstandingFines(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3.00, total)
}

func TestEmptyStore(t *testing.T) {
	ctx := context.Background()
	agg := reports.NewAggregator(loan.NewMemoryStore())

	titles, err := agg.PopularTitles(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, titles)

	total, err := agg.TotalOutstandingFines(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}
