package replica

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// SQLiteSchema creates the replica table.
const SQLiteSchema = `CREATE TABLE IF NOT EXISTS replica_products (
	id         INTEGER PRIMARY KEY,
	stock      INTEGER NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

var sqliteDialect = dialect{
	schema: SQLiteSchema,
	get:    "SELECT stock FROM replica_products WHERE id = ?",
	upsertStock: `INSERT INTO replica_products (id, stock, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET stock = excluded.stock, updated_at = CURRENT_TIMESTAMP`,
	create:    "INSERT OR IGNORE INTO replica_products (id, stock) VALUES (?, ?)",
	delete:    "DELETE FROM replica_products WHERE id = ?",
	transient: sqliteTransient,
}

// SQLiteStore keeps the replica in a local SQLite file.
type SQLiteStore struct {
	sqlStore
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{sqlStore{db: db, d: sqliteDialect}}
}

// OpenSQLite opens path (":memory:" for a private in-memory database) and
// creates the replica table. The pool is limited to one connection: the
// reconciler is the only writer and an in-memory database is per connection.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open replica sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	store := NewSQLiteStore(db)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func sqliteTransient(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}
