// internal/catalog/domain.go
package catalog

import "time"

// Title represents a catalog entry for a book with N physical copies.
// Available is a read-model snapshot; the inventory ledger owns the
// authoritative count and is the only component allowed to change it.
type Title struct {
	ISBN          string    `json:"isbn"`
	Name          string    `json:"name"`
	Author        string    `json:"author"`
	Publisher     string    `json:"publisher,omitempty"`
	PublishedYear int       `json:"published_year,omitempty"`
	Price         float64   `json:"price"`
	ReferenceOnly bool      `json:"reference_only"`
	TotalCopies   int       `json:"total_copies"`
	Available     int       `json:"available"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

const (
	StatusActive  = "active"
	StatusRetired = "retired"
)
