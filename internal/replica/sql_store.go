package replica

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	errspkg "github.com/drblury/catalogsync/internal/runtime/errors"
)

// dialect holds the statements that differ between SQL backends.
type dialect struct {
	schema      string
	get         string
	upsertStock string
	create      string
	delete      string
	transient   func(error) bool
}

// sqlStore implements Store over database/sql for a given dialect.
type sqlStore struct {
	db *sql.DB
	d  dialect
}

// Migrate creates the replica table if it does not exist.
func (s *sqlStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.d.schema); err != nil {
		return fmt.Errorf("migrate replica: %w", err)
	}
	return nil
}

func (s *sqlStore) Get(ctx context.Context, id int64) (Record, bool, error) {
	r := Record{ID: id}
	err := s.db.QueryRowContext(ctx, s.d.get, id).Scan(&r.Stock)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, s.classify("get", id, err)
	}
	return r, true, nil
}

func (s *sqlStore) UpsertStock(ctx context.Context, id int64, stock int) error {
	_, err := s.db.ExecContext(ctx, s.d.upsertStock, id, stock)
	return s.classify("upsert", id, err)
}

func (s *sqlStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, s.d.delete, id)
	return s.classify("delete", id, err)
}

func (s *sqlStore) Create(ctx context.Context, r Record) error {
	res, err := s.db.ExecContext(ctx, s.d.create, r.ID, r.Stock)
	if err != nil {
		return s.classify("create", r.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.classify("create", r.ID, err)
	}
	if n == 0 {
		return opError("create", r.ID, ErrExists)
	}
	return nil
}

func (s *sqlStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM replica_products").Scan(&n); err != nil {
		return 0, s.classify("count", 0, err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *sqlStore) Close() error {
	return s.db.Close()
}

func (s *sqlStore) classify(op string, id int64, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) || s.d.transient(err) {
		return errspkg.MarkTransient(opError(op, id, err))
	}
	return opError(op, id, err)
}
