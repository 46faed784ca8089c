// internal/inventory/postgres.go
package inventory

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresLedger performs availability updates against the titles read model.
// The UPDATE's WHERE clause is the atomic gate: two concurrent reserves for
// the last copy cannot both match `available > 0`.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) Reserve(ctx context.Context, titleKey string) error {
	query := `
		UPDATE titles
		SET available = available - 1, updated_at = NOW()
		WHERE isbn = $1 AND available > 0
	`
	res, err := l.db.ExecContext(ctx, query, titleKey)
	if err != nil {
		return fmt.Errorf("reserve copy: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := l.Available(ctx, titleKey); err != nil {
			return err
		}
		return ErrInsufficientCopies
	}
	return nil
}

func (l *PostgresLedger) Release(ctx context.Context, titleKey string) error {
	query := `
		UPDATE titles
		SET available = available + 1, updated_at = NOW()
		WHERE isbn = $1 AND available < total_copies
	`
	res, err := l.db.ExecContext(ctx, query, titleKey)
	if err != nil {
		return fmt.Errorf("release copy: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		available, total, err := l.counts(ctx, titleKey)
		if err != nil {
			return err
		}
		return &ConsistencyError{TitleKey: titleKey, Available: available + 1, Total: total}
	}
	return nil
}

func (l *PostgresLedger) counts(ctx context.Context, titleKey string) (available, total int, err error) {
	err = l.db.QueryRowContext(ctx, `SELECT available, total_copies FROM titles WHERE isbn = $1`, titleKey).
		Scan(&available, &total)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, 0, ErrUnknownTitle
		}
		return 0, 0, fmt.Errorf("read availability: %w", err)
	}
	return available, total, nil
}

func (l *PostgresLedger) Available(ctx context.Context, titleKey string) (int, error) {
	var available int
	err := l.db.QueryRowContext(ctx, `SELECT available FROM titles WHERE isbn = $1`, titleKey).Scan(&available)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrUnknownTitle
		}
		return 0, fmt.Errorf("read availability: %w", err)
	}
	return available, nil
}
