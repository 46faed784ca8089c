// internal/inventory/memory_test.go
package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"libris/internal/inventory"
)

func TestReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	ledger := inventory.NewMemoryLedger()
	ledger.Register("isbn-1", 2)

	require.NoError(t, ledger.Reserve(ctx, "isbn-1"))
	require.NoError(t, ledger.Reserve(ctx, "isbn-1"))

	err := ledger.Reserve(ctx, "isbn-1")
	assert.ErrorIs(t, err, inventory.ErrInsufficientCopies)

	require.NoError(t, ledger.Release(ctx, "isbn-1"))
	available, err := ledger.Available(ctx, "isbn-1")
	require.NoError(t, err)
	assert.Equal(t, 1, available)
}

func TestReleaseBeyondTotalIsConsistencyViolation(t *testing.T) {
	ctx := context.Background()
	ledger := inventory.NewMemoryLedger()
	ledger.Register("isbn-1", 1)

	err := ledger.Release(ctx, "isbn-1")
	var consistency *inventory.ConsistencyError
	require.ErrorAs(t, err, &consistency)
	assert.Equal(t, "isbn-1", consistency.TitleKey)

	// The violation must not be clamped into the count.
	available, err := ledger.Available(ctx, "isbn-1")
	require.NoError(t, err)
	assert.Equal(t, 1, available)
}

func TestUnknownTitle(t *testing.T) {
	ctx := context.Background()
	ledger := inventory.NewMemoryLedger()

	assert.ErrorIs(t, ledger.Reserve(ctx, "nope"), inventory.ErrUnknownTitle)
	assert.ErrorIs(t, ledger.Release(ctx, "nope"), inventory.ErrUnknownTitle)
	_, err := ledger.Available(ctx, "nope")
	assert.ErrorIs(t, err, inventory.ErrUnknownTitle)
}

func TestConcurrentReserveSingleCopy(t *testing.T) {
	ctx := context.Background()
	ledger := inventory.NewMemoryLedger()
	ledger.Register("isbn-1", 1)

	const attempts = 32
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = ledger.Reserve(ctx, "isbn-1")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, inventory.ErrInsufficientCopies)
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent reserve may win the last copy")
}

func TestLedgerInvariantProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		total := rapid.IntRange(1, 5).Draw(t, "total")
		ledger := inventory.NewMemoryLedger()
		ledger.Register("isbn-1", total)

		reserved := 0
		ops := rapid.IntRange(1, 50).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			if rapid.Bool().Draw(t, "reserve") {
				err := ledger.Reserve(ctx, "isbn-1")
				if reserved < total {
					if err != nil {
						t.Fatalf("reserve with copies on shelf failed: %v", err)
					}
					reserved++
				} else if !errors.Is(err, inventory.ErrInsufficientCopies) {
					t.Fatalf("reserve past zero must fail, got %v", err)
				}
			} else {
				err := ledger.Release(ctx, "isbn-1")
				if reserved > 0 {
					if err != nil {
						t.Fatalf("release of a reserved copy failed: %v", err)
					}
					reserved--
				} else if err == nil {
					t.Fatal("release beyond total must fail")
				}
			}

			available, err := ledger.Available(ctx, "isbn-1")
			if err != nil {
				t.Fatalf("available: %v", err)
			}
			if available < 0 || available > total {
				t.Fatalf("invariant violated: available %d, total %d", available, total)
			}
			if available != total-reserved {
				t.Fatalf("lost update: available %d, expected %d", available, total-reserved)
			}
		}
	})
}
