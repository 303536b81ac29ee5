package metadata

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (
  key        TEXT PRIMARY KEY,
  value      BLOB NOT NULL,
  updated_at INTEGER NOT NULL DEFAULT 0
);`)
	require.NoError(t, err)
	return db
}

var at = time.Date(2024, 1, 1, 12, 30, 0, 0, time.UTC)

func TestSetAndGet_InsertThenGet(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k1", []byte{0x01, 0x02}, at))

	rec, err := r.Get(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, []byte{0x01, 0x02}, rec.Value)
	require.True(t, at.Equal(rec.UpdatedAt))
}

func TestGet_NotExists_ReturnsNilNil(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	rec, err := r.Get(context.Background(), "absent")
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestSet_UpsertOverwritesValueAndTime(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", []byte("old"), at))
	later := at.Add(time.Minute)
	require.NoError(t, r.Set(ctx, "k", []byte("new"), later))

	rec, err := r.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("new"), rec.Value)
	require.True(t, later.Equal(rec.UpdatedAt))
}

func TestList_ReturnsAllPairs(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a", []byte{0xAA}, at))
	require.NoError(t, r.Set(ctx, "b", []byte{0xBB, 0xCC}, at))

	m, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, m, 2)
	assert.Equal(t, []byte{0xAA}, m["a"].Value)
	assert.Equal(t, []byte{0xBB, 0xCC}, m["b"].Value)
}

func TestDelete_RemovesKey_AndIsIdempotent(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "x", []byte{0x01}, at))
	require.NoError(t, r.Delete(ctx, "x"))

	rec, err := r.Get(ctx, "x")
	require.NoError(t, err)
	require.Nil(t, rec)

	require.NoError(t, r.Delete(ctx, "x"))
}

func TestClear_RemovesAllKeys(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a", []byte{1}, at))
	require.NoError(t, r.Set(ctx, "b", []byte{2}, at))
	require.NoError(t, r.Clear(ctx))

	m, err := r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestErrorsAreWrapped_ClosedDB(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Close())

	_, err := r.Get(ctx, "k")
	require.ErrorContains(t, err, "failed to get metadata[k]")

	err = r.Set(ctx, "k", []byte("v"), at)
	require.ErrorContains(t, err, "failed to set metadata[k]")

	err = r.Delete(ctx, "k")
	require.ErrorContains(t, err, "failed to delete metadata[k]")

	err = r.Clear(ctx)
	require.ErrorContains(t, err, "failed to clear metadata")

	_, err = r.List(ctx)
	require.ErrorContains(t, err, "failed to list metadata")
}

func TestList_ScanErrorWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"key", "value", "updated_at"}).AddRow("k", []byte("v"), "not-a-number")
	mock.ExpectQuery(`SELECT key, value, updated_at FROM metadata`).WillReturnRows(rows)

	_, err = NewSQLiteRepository(db).List(context.Background())
	require.ErrorContains(t, err, "failed to scan metadata row")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestList_RowsErrWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"key", "value", "updated_at"}).
		AddRow("k", []byte("v"), int64(1)).
		RowError(0, sql.ErrConnDone)
	mock.ExpectQuery(`SELECT key, value, updated_at FROM metadata`).WillReturnRows(rows)

	_, err = NewSQLiteRepository(db).List(context.Background())
	require.ErrorContains(t, err, "failed to iterate metadata rows")
}
