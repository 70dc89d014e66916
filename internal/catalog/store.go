package catalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no product has the requested id.
var ErrNotFound = errors.New("catalog: product not found")

// Reader is the read side of the authoritative store used by resync.
type Reader interface {
	ListAll(ctx context.Context) ([]Product, error)
	FindByID(ctx context.Context, id int64) (Product, error)
}

// Repository is the authoritative product store.
type Repository interface {
	Reader
	// Create stores p and returns it with its assigned id.
	Create(ctx context.Context, p Product) (Product, error)
	// Update replaces the product with p.ID. ErrNotFound if absent.
	Update(ctx context.Context, p Product) (Product, error)
	// Delete removes the product. ErrNotFound if absent.
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}
