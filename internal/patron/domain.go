// internal/patron/domain.go
package patron

import "time"

// Category determines a patron's loan limit and loan period.
type Category string

const (
	CategoryStudent Category = "student"
	CategoryFaculty Category = "faculty"
	CategoryStaff   Category = "staff"
	CategoryVisitor Category = "visitor"
)

// MaxLoans returns how many concurrent loans the category allows.
func (c Category) MaxLoans() int {
	switch c {
	case CategoryFaculty:
		return 10
	case CategoryStaff:
		return 7
	case CategoryVisitor:
		return 3
	default:
		return 5
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryStudent, CategoryFaculty, CategoryStaff, CategoryVisitor:
		return true
	}
	return false
}

// Patron represents a borrower account.
type Patron struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Category     Category  `json:"category"`
	MaxLoans     int       `json:"max_loans"`
	FineBalance  float64   `json:"fine_balance"`
	Active       bool      `json:"active"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Credential holds a patron's login secret.
type Credential struct {
	PatronID     string `json:"patron_id"`
	PasswordHash string `json:"-"`
	Salt         string `json:"-"`
}
