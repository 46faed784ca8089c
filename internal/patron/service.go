// internal/patron/service.go
package patron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Service handles patron registration and authentication.
type Service struct {
	store       Store
	rateLimiter *rate.Limiter
}

func NewService(store Store) *Service {
	return &Service{
		store:       store,
		rateLimiter: rate.NewLimiter(rate.Every(1*time.Minute), 5), // 5 requests per minute
	}
}

// Register creates a new patron account with hashed credentials.
// The loan limit is derived from the patron category.
func (s *Service) Register(ctx context.Context, name, email, password string, category Category) (*Patron, error) {
	if !s.rateLimiter.Allow() {
		return nil, fmt.Errorf("rate limit exceeded")
	}
	if !category.Valid() {
		return nil, fmt.Errorf("unknown patron category %q", category)
	}

	passwordHash, salt, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	p := &Patron{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Category:     category,
		MaxLoans:     category.MaxLoans(),
		Active:       true,
		RegisteredAt: time.Now().UTC(),
	}
	c := &Credential{
		PatronID:     p.ID,
		PasswordHash: passwordHash,
		Salt:         salt,
	}

	if err := s.store.AddPatron(ctx, p, c); err != nil {
		return nil, fmt.Errorf("failed to add patron: %w", err)
	}

	return p, nil
}

// Authenticate verifies a patron's credentials and returns the patron if successful.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Patron, error) {
	if !s.rateLimiter.Allow() {
		return nil, fmt.Errorf("rate limit exceeded")
	}

	p, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	c, err := s.store.CredentialByPatron(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	ok, err := verifyPassword(password, c.Salt, c.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("authentication failed: invalid credentials")
	}

	return p, nil
}
