// internal/catalog/store.go
package catalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no title exists for the given ISBN.
var ErrNotFound = errors.New("title not found")

// Store defines the interface for catalog persistence.
type Store interface {
	AddTitle(ctx context.Context, t *Title) (*Title, error)
	GetTitle(ctx context.Context, isbn string) (*Title, error)
	UpdateTitle(ctx context.Context, t *Title) error
	RemoveTitle(ctx context.Context, isbn string) error
	Search(ctx context.Context, query string) ([]*Title, error)
}
