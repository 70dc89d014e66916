package replica

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"
)

// PostgresSchema creates the replica table.
const PostgresSchema = `CREATE TABLE IF NOT EXISTS replica_products (
	id         BIGINT PRIMARY KEY,
	stock      INTEGER NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

var postgresDialect = dialect{
	schema: PostgresSchema,
	get:    "SELECT stock FROM replica_products WHERE id = $1",
	upsertStock: `INSERT INTO replica_products (id, stock, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET stock = EXCLUDED.stock, updated_at = now()`,
	create:    "INSERT INTO replica_products (id, stock) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING",
	delete:    "DELETE FROM replica_products WHERE id = $1",
	transient: postgresTransient,
}

// PostgresStore keeps the replica in PostgreSQL through lib/pq.
type PostgresStore struct {
	sqlStore
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{sqlStore{db: db, d: postgresDialect}}
}

// OpenPostgres connects to dsn, pings it and creates the replica table.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open replica database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping replica database: %w", err)
	}
	store := NewPostgresStore(db)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// postgresTransient matches network failures and the SQLSTATE classes that
// describe a lost connection, a rolled back transaction, exhausted resources
// or an operator intervention.
func postgresTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code.Class() {
	case "08", "40", "53", "57":
		return true
	}
	return false
}
