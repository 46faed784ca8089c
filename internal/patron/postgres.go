// internal/patron/postgres.go
package patron

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore persists patrons and their credentials.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) AddPatron(ctx context.Context, p *Patron, c *Credential) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	patronQuery := `
		INSERT INTO patrons (id, name, email, category, max_loans, fine_balance, active, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.ExecContext(ctx, patronQuery,
		p.ID, p.Name, p.Email, p.Category, p.MaxLoans, p.FineBalance, p.Active, p.RegisteredAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert patron: %w", err)
	}

	if c != nil {
		credQuery := `
			INSERT INTO credentials (patron_id, password_hash, salt)
			VALUES ($1, $2, $3)
		`
		if _, err := tx.ExecContext(ctx, credQuery, c.PatronID, c.PasswordHash, c.Salt); err != nil {
			return fmt.Errorf("insert credential: %w", err)
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) FindPatron(ctx context.Context, id string) (*Patron, error) {
	return s.findOne(ctx, "id", id)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*Patron, error) {
	return s.findOne(ctx, "email", email)
}

func (s *PostgresStore) findOne(ctx context.Context, column, value string) (*Patron, error) {
	query := fmt.Sprintf(`
		SELECT id, name, email, category, max_loans, fine_balance, active, registered_at
		FROM patrons
		WHERE %s = $1
	`, column)
	p := &Patron{}
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&p.ID, &p.Name, &p.Email, &p.Category, &p.MaxLoans, &p.FineBalance, &p.Active, &p.RegisteredAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get patron: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) CredentialByPatron(ctx context.Context, id string) (*Credential, error) {
	query := `
		SELECT patron_id, password_hash, salt
		FROM credentials
		WHERE patron_id = $1
	`
	c := &Credential{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(&c.PatronID, &c.PasswordHash, &c.Salt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ApplyFine(ctx context.Context, id string, amount float64) error {
	query := `
		UPDATE patrons
		SET fine_balance = fine_balance + $1, updated_at = NOW()
		WHERE id = $2
	`
	return s.exec(ctx, query, amount, id)
}

func (s *PostgresStore) PayFine(ctx context.Context, id string, amount float64) error {
	query := `
		UPDATE patrons
		SET fine_balance = GREATEST(0, fine_balance - $1), updated_at = NOW()
		WHERE id = $2
	`
	return s.exec(ctx, query, amount, id)
}

func (s *PostgresStore) FineBalance(ctx context.Context, id string) (float64, error) {
	var balance float64
	err := s.db.QueryRowContext(ctx, `SELECT fine_balance FROM patrons WHERE id = $1`, id).Scan(&balance)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("get fine balance: %w", err)
	}
	return balance, nil
}

func (s *PostgresStore) Deactivate(ctx context.Context, id string) error {
	query := `
		UPDATE patrons
		SET active = FALSE, updated_at = NOW()
		WHERE id = $1
	`
	return s.exec(ctx, query, id)
}

func (s *PostgresStore) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update patron: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
