package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	jsoncodec "github.com/drblury/catalogsync/internal/runtime/jsoncodec"
)

// Schema creates the products table used by PostgresStore.
const Schema = `CREATE TABLE IF NOT EXISTS products (
	id        BIGSERIAL PRIMARY KEY,
	variant   TEXT NOT NULL,
	name      TEXT NOT NULL,
	price     DOUBLE PRECISION NOT NULL,
	category  TEXT NOT NULL,
	image_url TEXT NOT NULL,
	stock     INTEGER NOT NULL,
	details   JSONB NOT NULL DEFAULT '{}'
)`

const selectColumns = "SELECT id, variant, name, price, category, image_url, stock, details FROM products"

// PostgresStore keeps the catalog in PostgreSQL. Variant attributes are
// stored as a JSON document next to the common columns.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects with lib/pq and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping catalog database: %w", err)
	}
	return db, nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the products table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate products: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (Product, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = $1", id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (s *PostgresStore) Create(ctx context.Context, p Product) (Product, error) {
	details, err := encodeDetails(p.Details)
	if err != nil {
		return Product{}, err
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO products (variant, name, price, category, image_url, stock, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		string(p.Variant()), p.Name, p.Price, p.Category, p.ImageURL, p.Stock, details,
	).Scan(&p.ID)
	if err != nil {
		return Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Update(ctx context.Context, p Product) (Product, error) {
	details, err := encodeDetails(p.Details)
	if err != nil {
		return Product{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET variant = $2, name = $3, price = $4, category = $5, image_url = $6, stock = $7, details = $8
		WHERE id = $1`,
		p.ID, string(p.Variant()), p.Name, p.Price, p.Category, p.ImageURL, p.Stock, details,
	)
	if err != nil {
		return Product{}, fmt.Errorf("update product %d: %w", p.ID, err)
	}
	if err := expectOneRow(res); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	return expectOneRow(res)
}

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (Product, error) {
	var (
		p       Product
		variant string
		details []byte
	)
	if err := row.Scan(&p.ID, &variant, &p.Name, &p.Price, &p.Category, &p.ImageURL, &p.Stock, &details); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, err
		}
		return Product{}, fmt.Errorf("scan product: %w", err)
	}
	d, err := decodeDetails(Variant(variant), details)
	if err != nil {
		return Product{}, fmt.Errorf("product %d: %w", p.ID, err)
	}
	p.Details = d
	return p, nil
}

func encodeDetails(d Details) ([]byte, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	b, err := jsoncodec.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode %s details: %w", d.Variant(), err)
	}
	return b, nil
}

func decodeDetails(v Variant, raw []byte) (Details, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	switch v {
	case VariantGeneric, "":
		return nil, nil
	case VariantClothes:
		var d Clothes
		if err := unmarshalInto(raw, &d, v); err != nil {
			return nil, err
		}
		return d, nil
	case VariantElectronics:
		var d Electronics
		if err := unmarshalInto(raw, &d, v); err != nil {
			return nil, err
		}
		return d, nil
	case VariantSmartphone:
		var d Smartphone
		if err := unmarshalInto(raw, &d, v); err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown variant %q", v)
	}
}

func unmarshalInto(raw []byte, dst any, v Variant) error {
	if err := jsoncodec.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s details: %w", v, err)
	}
	return nil
}
