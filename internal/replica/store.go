// Package replica is the consumer side copy of the catalog. It is written
// only by the reconciler.
package replica

import (
	"context"
	"errors"
	"fmt"
)

// Record is the replicated state of one product.
type Record struct {
	ID    int64
	Stock int
}

// ErrExists is returned by Create when the id is already present.
var ErrExists = errors.New("replica: record already exists")

// Store is the replica table keyed by product id. Adapters mark connection
// level failures with errors.MarkTransient so that the consumer retries them.
type Store interface {
	// Get returns the record and whether it exists.
	Get(ctx context.Context, id int64) (Record, bool, error)
	// UpsertStock sets the stock of id, inserting the row if needed.
	UpsertStock(ctx context.Context, id int64, stock int) error
	// Delete removes id. Deleting an absent id is not an error.
	Delete(ctx context.Context, id int64) error
	// Create inserts r, failing with ErrExists if the id is taken.
	Create(ctx context.Context, r Record) error
	Count(ctx context.Context) (int64, error)
}

func opError(op string, id int64, err error) error {
	return fmt.Errorf("replica %s %d: %w", op, id, err)
}
