// internal/patron/directory.go
package patron

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no patron exists for the given key.
	ErrNotFound = errors.New("patron not found")
	// ErrDuplicateEmail is returned when registering an email already in use.
	ErrDuplicateEmail = errors.New("email already registered")
)

// Directory is the patron lookup and fine ledger contract the circulation
// engine depends on. The patron's fine balance is authoritative for borrowing
// eligibility and is mutated only through ApplyFine/PayFine.
type Directory interface {
	FindPatron(ctx context.Context, id string) (*Patron, error)
	ApplyFine(ctx context.Context, id string, amount float64) error
	PayFine(ctx context.Context, id string, amount float64) error
	FineBalance(ctx context.Context, id string) (float64, error)
	Deactivate(ctx context.Context, id string) error
}

// Store extends Directory with the write operations the registration
// service needs.
type Store interface {
	Directory

	AddPatron(ctx context.Context, p *Patron, c *Credential) error
	FindByEmail(ctx context.Context, email string) (*Patron, error)
	CredentialByPatron(ctx context.Context, id string) (*Credential, error)
}
