// internal/reports/aggregator.go

// Package reports computes read-only derived views over loan store snapshots.
package reports

import (
	"context"
	"fmt"
	"sort"

	"libris/internal/loan"
)

// TitleCount pairs a title with its all-time loan count.
type TitleCount struct {
	TitleKey string `json:"title_key"`
	Loans    int    `json:"loans"`
}

// PatronCount pairs a patron with their all-time loan count.
type PatronCount struct {
	PatronKey string `json:"patron_key"`
	Loans     int    `json:"loans"`
}

// Aggregator derives analytics from loan snapshots. It never mutates state.
type Aggregator struct {
	loans loan.Store
}

func NewAggregator(loans loan.Store) *Aggregator {
	return &Aggregator{loans: loans}
}

// PopularTitles returns the most-borrowed titles, counting returned and lost
// loans as well as open ones. Ordering is deterministic: count descending,
// title key ascending on ties.
func (a *Aggregator) PopularTitles(ctx context.Context, limit int) ([]TitleCount, error) {
	all, err := a.loans.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load loans: %w", err)
	}

	counts := make(map[string]int)
	for _, l := range all {
		counts[l.TitleKey]++
	}

	out := make([]TitleCount, 0, len(counts))
	for key, n := range counts {
		out = append(out, TitleCount{TitleKey: key, Loans: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Loans != out[j].Loans {
			return out[i].Loans > out[j].Loans
		}
		return out[i].TitleKey < out[j].TitleKey
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MostActivePatrons is the patron-side counterpart of PopularTitles.
func (a *Aggregator) MostActivePatrons(ctx context.Context, limit int) ([]PatronCount, error) {
	all, err := a.loans.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load loans: %w", err)
	}

	counts := make(map[string]int)
	for _, l := range all {
		counts[l.PatronKey]++
	}

	out := make([]PatronCount, 0, len(counts))
	for key, n := range counts {
		out = append(out, PatronCount{PatronKey: key, Loans: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Loans != out[j].Loans {
			return out[i].Loans > out[j].Loans
		}
		return out[i].PatronKey < out[j].PatronKey
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// TotalOutstandingFines sums the loan-level fine snapshots. The patron fine
// balance stays authoritative for borrowing eligibility; this figure is the
// historical total of fines assessed through circulation.
func (a *Aggregator) TotalOutstandingFines(ctx context.Context) (float64, error) {
	all, err := a.loans.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("load loans: %w", err)
	}

	var total float64
	for _, l := range all {
		total += l.FineAmount
	}
	return total, nil
}
