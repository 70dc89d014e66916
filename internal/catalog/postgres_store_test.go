package catalog

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productColumns = []string{"id", "variant", "name", "price", "category", "image_url", "stock", "details"}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewPostgresStore(db), mock
}

func TestPostgresStoreListAll(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectColumns + " ORDER BY id")).
		WillReturnRows(sqlmock.NewRows(productColumns).
			AddRow(1, "generic", "Mug", 9.99, "clothes", "http://img/mug", 4, []byte("{}")).
			AddRow(42, "smartphone", "Pear 12", 799.0, "smartphone", "https://img/p12", 5, []byte(`{"brand":"Pear","ram":8}`)).
			AddRow(43, "clothes", "Tee", 15.0, "clothes", "https://img/tee", 0, []byte(`{"size":"M","brand":"Acme"}`)))

	products, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 3)

	assert.Nil(t, products[0].Details)
	phone, ok := products[1].Details.(Smartphone)
	require.True(t, ok)
	assert.Equal(t, 8, phone.RAM)
	brand, _ := products[1].Brand()
	assert.Equal(t, "Pear", brand)
	brand, _ = products[2].Brand()
	assert.Equal(t, "Acme", brand)
}

func TestPostgresStoreListAllError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectColumns)).WillReturnError(errors.New("connection refused"))

	_, err := store.ListAll(context.Background())
	assert.ErrorContains(t, err, "list products: connection refused")
}

func TestPostgresStoreFindByID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectColumns + " WHERE id = $1")).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows(productColumns).
			AddRow(42, "electronics", "Speaker", 49.0, "electronics", "https://img/spk", 5, []byte(`{"brand":"Volt"}`)))
	mock.ExpectQuery(regexp.QuoteMeta(selectColumns + " WHERE id = $1")).
		WithArgs(43).
		WillReturnError(sql.ErrNoRows)

	p, err := store.FindByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, Electronics{Brand: "Volt"}, p.Details)

	_, err = store.FindByID(context.Background(), 43)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStoreCreate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO products")).
		WithArgs("clothes", "Trail Jacket", 89.5, "clothes", "https://img.example.com/jacket.png", 12, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	p, err := store.Create(context.Background(), validProduct())
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.ID)
}

func TestPostgresStoreUpdateAndDelete(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET")).
		WithArgs(42, "clothes", "Trail Jacket", 89.5, "clothes", "https://img.example.com/jacket.png", 12, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM products WHERE id = $1")).
		WithArgs(42).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM products WHERE id = $1")).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 0))

	p := validProduct()
	p.ID = 42
	_, err := store.Update(context.Background(), p)
	require.NoError(t, err)

	p.ID = 7
	_, err = store.Update(context.Background(), p)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(context.Background(), 42))
	assert.ErrorIs(t, store.Delete(context.Background(), 7), ErrNotFound)
}

func TestPostgresStoreCountAndMigrate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS products")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM products")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	require.NoError(t, store.Migrate(context.Background()))
	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestDecodeDetailsRejectsUnknownVariant(t *testing.T) {
	_, err := decodeDetails("furniture", nil)
	assert.ErrorContains(t, err, `unknown variant "furniture"`)
}
