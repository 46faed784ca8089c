// internal/catalog/postgres.go
package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists titles in the read model backing the circulation engine.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) AddTitle(ctx context.Context, t *Title) (*Title, error) {
	stored := *t
	if stored.Status == "" {
		stored.Status = StatusActive
	}
	if stored.Available == 0 {
		stored.Available = stored.TotalCopies
	}

	query := `
		INSERT INTO titles (isbn, name, author, publisher, published_year, price, reference_only, total_copies, available, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		stored.ISBN, stored.Name, stored.Author, stored.Publisher, stored.PublishedYear,
		stored.Price, stored.ReferenceOnly, stored.TotalCopies, stored.Available, stored.Status,
	).Scan(&stored.CreatedAt, &stored.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert title: %w", err)
	}

	return &stored, nil
}

func (s *PostgresStore) GetTitle(ctx context.Context, isbn string) (*Title, error) {
	query := `
		SELECT isbn, name, author, publisher, published_year, price, reference_only, total_copies, available, status, created_at, updated_at
		FROM titles
		WHERE isbn = $1
	`
	t := &Title{}
	err := s.db.QueryRowContext(ctx, query, isbn).Scan(
		&t.ISBN, &t.Name, &t.Author, &t.Publisher, &t.PublishedYear,
		&t.Price, &t.ReferenceOnly, &t.TotalCopies, &t.Available, &t.Status,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get title: %w", err)
	}

	return t, nil
}

func (s *PostgresStore) UpdateTitle(ctx context.Context, t *Title) error {
	query := `
		UPDATE titles
		SET name = $1, author = $2, publisher = $3, published_year = $4, price = $5, reference_only = $6, updated_at = NOW()
		WHERE isbn = $7
	`
	res, err := s.db.ExecContext(ctx, query,
		t.Name, t.Author, t.Publisher, t.PublishedYear, t.Price, t.ReferenceOnly, t.ISBN)
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) RemoveTitle(ctx context.Context, isbn string) error {
	query := `
		UPDATE titles
		SET status = 'retired', updated_at = NOW()
		WHERE isbn = $1
	`
	res, err := s.db.ExecContext(ctx, query, isbn)
	if err != nil {
		return fmt.Errorf("retire title: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Search(ctx context.Context, query string) ([]*Title, error) {
	dbQuery := `
		SELECT isbn, name, author, publisher, published_year, price, reference_only, total_copies, available, status, created_at, updated_at
		FROM titles
		WHERE to_tsvector('english', name) @@ plainto_tsquery('english', $1)
		OR to_tsvector('english', author) @@ plainto_tsquery('english', $1)
		LIMIT 10
	`
	rows, err := s.db.QueryContext(ctx, dbQuery, query)
	if err != nil {
		return nil, fmt.Errorf("search titles: %w", err)
	}
	defer rows.Close()

	var titles []*Title
	for rows.Next() {
		t := &Title{}
		err := rows.Scan(
			&t.ISBN, &t.Name, &t.Author, &t.Publisher, &t.PublishedYear,
			&t.Price, &t.ReferenceOnly, &t.TotalCopies, &t.Available, &t.Status,
			&t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate titles: %w", err)
	}

	return titles, nil
}
