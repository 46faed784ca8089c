// internal/loan/postgres.go
package loan

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresStore persists loans as a read-model row plus an append-only
// circulation journal. Both are written in one transaction, so the journal
// version doubles as the optimistic concurrency gate: a duplicate
// (loan_id, version) insert means another writer got there first.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func eventTypeFor(l *Loan, initial bool) string {
	if initial {
		return "LoanCheckedOut"
	}
	switch l.Status {
	case StatusReturned:
		return "LoanReturned"
	case StatusLost:
		return "LoanLost"
	case StatusOverdue:
		return "LoanMarkedOverdue"
	default:
		return "LoanRenewed"
	}
}

func (s *PostgresStore) appendEvent(ctx context.Context, tx *sql.Tx, l *Loan, version int, initial bool) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal loan event: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO loan_events (loan_id, event_type, event_data, version, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, l.ID, eventTypeFor(l, initial), data, version, time.Now().UTC())
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrVersionConflict
		}
		return fmt.Errorf("append loan event: %w", err)
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, l *Loan) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.appendEvent(ctx, tx, l, 1, true); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO loans (id, title_key, patron_key, loan_date, due_date, status, renewal_count, fine_amount, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, l.ID, l.TitleKey, l.PatronKey, l.LoanDate, l.DueDate, l.Status, l.RenewalCount, l.FineAmount, l.Version)
	if err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}

	return tx.Commit()
}

func (s *PostgresStore) Update(ctx context.Context, l *Loan) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.appendEvent(ctx, tx, l, l.Version+1, false); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE loans
		SET due_date = $1, return_date = $2, status = $3, renewal_count = $4, fine_amount = $5,
		    version = version + 1, updated_at = NOW()
		WHERE id = $6 AND version = $7
	`, l.DueDate, l.ReturnDate, l.Status, l.RenewalCount, l.FineAmount, l.ID, l.Version)
	if err != nil {
		return fmt.Errorf("update loan: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM loans WHERE id = $1)`, l.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check loan existence: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	l.Version++
	return nil
}

const loanColumns = `id, title_key, patron_key, loan_date, due_date, return_date, status, renewal_count, fine_amount, version`

func scanLoan(row interface{ Scan(...any) error }) (*Loan, error) {
	l := &Loan{}
	var returnDate sql.NullTime
	err := row.Scan(
		&l.ID, &l.TitleKey, &l.PatronKey, &l.LoanDate, &l.DueDate, &returnDate,
		&l.Status, &l.RenewalCount, &l.FineAmount, &l.Version,
	)
	if err != nil {
		return nil, err
	}
	if returnDate.Valid {
		rd := returnDate.Time
		l.ReturnDate = &rd
	}
	return l, nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Loan, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id)
	l, err := scanLoan(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get loan: %w", err)
	}
	return l, nil
}

func (s *PostgresStore) ByPatron(ctx context.Context, patronKey string) ([]*Loan, error) {
	return s.query(ctx, `SELECT `+loanColumns+` FROM loans WHERE patron_key = $1`, patronKey)
}

func (s *PostgresStore) ByTitle(ctx context.Context, titleKey string) ([]*Loan, error) {
	return s.query(ctx, `SELECT `+loanColumns+` FROM loans WHERE title_key = $1`, titleKey)
}

func (s *PostgresStore) Active(ctx context.Context) ([]*Loan, error) {
	return s.query(ctx, `SELECT `+loanColumns+` FROM loans WHERE status IN ('active', 'overdue')`)
}

func (s *PostgresStore) Overdue(ctx context.Context, asOf time.Time) ([]*Loan, error) {
	return s.query(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE status = 'overdue' OR (status = 'active' AND due_date < $1)`,
		asOf)
}

func (s *PostgresStore) All(ctx context.Context) ([]*Loan, error) {
	return s.query(ctx, `SELECT `+loanColumns+` FROM loans`)
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*Loan, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query loans: %w", err)
	}
	defer rows.Close()

	var loans []*Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate loans: %w", err)
	}
	return loans, nil
}
