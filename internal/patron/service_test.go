// internal/patron/service_test.go
package patron_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libris/internal/patron"
)

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc := patron.NewService(patron.NewMemoryStore())

	p, err := svc.Register(ctx, "Ada", "ada@example.com", "s3cret", patron.CategoryFaculty)
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, 10, p.MaxLoans, "faculty may hold ten loans")
	assert.True(t, p.Active)
	assert.Zero(t, p.FineBalance)
}

func TestRegisterUnknownCategory(t *testing.T) {
	svc := patron.NewService(patron.NewMemoryStore())

	_, err := svc.Register(context.Background(), "Ada", "ada@example.com", "s3cret", patron.Category("alumni"))
	assert.Error(t, err)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := patron.NewService(patron.NewMemoryStore())

	_, err := svc.Register(ctx, "Ada", "ada@example.com", "s3cret", patron.CategoryStudent)
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Grace", "ada@example.com", "hunter2", patron.CategoryStudent)
	assert.ErrorIs(t, err, patron.ErrDuplicateEmail)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := patron.NewService(patron.NewMemoryStore())

	registered, err := svc.Register(ctx, "Ada", "ada@example.com", "s3cret", patron.CategoryStudent)
	require.NoError(t, err)

	p, err := svc.Authenticate(ctx, "ada@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, p.ID)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	ctx := context.Background()
	svc := patron.NewService(patron.NewMemoryStore())

	_, err := svc.Register(ctx, "Ada", "ada@example.com", "s3cret", patron.CategoryStudent)
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "ada@example.com", "wrong")
	assert.Error(t, err)
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	svc := patron.NewService(patron.NewMemoryStore())

	_, err := svc.Authenticate(context.Background(), "nobody@example.com", "s3cret")
	assert.Error(t, err)
}

func TestFineAccounting(t *testing.T) {
	ctx := context.Background()
	store := patron.NewMemoryStore()
	svc := patron.NewService(store)

	p, err := svc.Register(ctx, "Ada", "ada@example.com", "s3cret", patron.CategoryStudent)
	require.NoError(t, err)

	require.NoError(t, store.ApplyFine(ctx, p.ID, 3.00))
	balance, err := store.FineBalance(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.00, balance)

	// Overpayment never drives the balance negative.
	require.NoError(t, store.PayFine(ctx, p.ID, 5.00))
	balance, err = store.FineBalance(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, balance)
}
