package database

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCacheStoreTest(t *testing.T) (*PostgresCacheStore, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	store := NewPostgresCacheStore(&PostgresDB{DB: sqlxDB})

	cleanup := func() {
		db.Close()
	}

	return store, mock, cleanup
}

func TestPostgresCacheStore_Load(t *testing.T) {
	store, mock, cleanup := setupCacheStoreTest(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("Existing key", func(t *testing.T) {
		mock.ExpectQuery(`SELECT payload FROM local_cache WHERE cache_key`).
			WithArgs("bookings_ana@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow([]byte(`[{"id":"local-1"}]`)))

		payload, err := store.Load(ctx, "bookings_ana@example.com")
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":"local-1"}]`, string(payload))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing key", func(t *testing.T) {
		mock.ExpectQuery(`SELECT payload FROM local_cache WHERE cache_key`).
			WithArgs("bookings_nobody").
			WillReturnRows(sqlmock.NewRows([]string{"payload"}))

		payload, err := store.Load(ctx, "bookings_nobody")
		require.NoError(t, err)
		assert.Nil(t, payload)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database error", func(t *testing.T) {
		mock.ExpectQuery(`SELECT payload FROM local_cache WHERE cache_key`).
			WithArgs("bookings_x").
			WillReturnError(fmt.Errorf("connection reset"))

		payload, err := store.Load(ctx, "bookings_x")
		assert.Error(t, err)
		assert.Nil(t, payload)
		assert.Contains(t, err.Error(), "failed to load cache key")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresCacheStore_Update(t *testing.T) {
	store, mock, cleanup := setupCacheStoreTest(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO local_cache .* DO NOTHING`).
			WithArgs("bookings_ana").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT payload FROM local_cache WHERE cache_key = .* FOR UPDATE`).
			WithArgs("bookings_ana").
			WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow([]byte(`[]`)))
		mock.ExpectExec(`UPDATE local_cache SET payload`).
			WithArgs("bookings_ana", `[{"id":"local-1"}]`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		var seen string
		err := store.Update(ctx, "bookings_ana", func(current []byte) ([]byte, error) {
			seen = string(current)
			return []byte(`[{"id":"local-1"}]`), nil
		})
		require.NoError(t, err)
		assert.Equal(t, "[]", seen)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Callback error rolls back", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO local_cache .* DO NOTHING`).
			WithArgs("bookings_ana").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT payload FROM local_cache WHERE cache_key = .* FOR UPDATE`).
			WithArgs("bookings_ana").
			WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow([]byte(`[]`)))
		mock.ExpectRollback()

		err := store.Update(ctx, "bookings_ana", func(current []byte) ([]byte, error) {
			return nil, fmt.Errorf("not found")
		})
		assert.EqualError(t, err, "not found")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Write failure rolls back", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO local_cache .* DO NOTHING`).
			WithArgs("bookings_ana").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT payload FROM local_cache WHERE cache_key = .* FOR UPDATE`).
			WithArgs("bookings_ana").
			WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow([]byte(`[]`)))
		mock.ExpectExec(`UPDATE local_cache SET payload`).
			WillReturnError(fmt.Errorf("disk full"))
		mock.ExpectRollback()

		err := store.Update(ctx, "bookings_ana", func(current []byte) ([]byte, error) {
			return []byte(`[]`), nil
		})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to write cache key")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresCacheStore_Keys(t *testing.T) {
	store, mock, cleanup := setupCacheStoreTest(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT cache_key FROM local_cache`).
		WithArgs("bookings_").
		WillReturnRows(sqlmock.NewRows([]string{"cache_key"}).
			AddRow("bookings_ana@example.com").
			AddRow("bookings_ben@example.com"))

	keys, err := store.Keys(context.Background(), "bookings_")
	require.NoError(t, err)
	assert.Equal(t, []string{"bookings_ana@example.com", "bookings_ben@example.com"}, keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS local_cache`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, EnsureSchema(context.Background(), &PostgresDB{DB: sqlx.NewDb(db, "sqlmock")}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryCacheStore(t *testing.T) {
	store := NewMemoryCacheStore()
	ctx := context.Background()

	payload, err := store.Load(ctx, "bookings_ana")
	require.NoError(t, err)
	assert.Nil(t, payload)

	require.NoError(t, store.Update(ctx, "bookings_ana", func(current []byte) ([]byte, error) {
		assert.Nil(t, current)
		return []byte(`[1]`), nil
	}))
	require.NoError(t, store.Update(ctx, "enquiries_ana", func([]byte) ([]byte, error) {
		return []byte(`[]`), nil
	}))

	payload, err = store.Load(ctx, "bookings_ana")
	require.NoError(t, err)
	assert.Equal(t, "[1]", string(payload))

	keys, err := store.Keys(ctx, "bookings_")
	require.NoError(t, err)
	assert.Equal(t, []string{"bookings_ana"}, keys)

	// A failing callback leaves the document untouched
	err = store.Update(ctx, "bookings_ana", func([]byte) ([]byte, error) {
		return nil, fmt.Errorf("boom")
	})
	assert.Error(t, err)
	payload, _ = store.Load(ctx, "bookings_ana")
	assert.Equal(t, "[1]", string(payload))
}

func TestMemoryCacheStore_ConcurrentUpdates(t *testing.T) {
	store := NewMemoryCacheStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Update(ctx, "counter", func(current []byte) ([]byte, error) {
				return append(current, 'x'), nil
			})
		}()
	}
	wg.Wait()

	payload, err := store.Load(ctx, "counter")
	require.NoError(t, err)
	assert.Len(t, payload, 50)
}

func TestNamespace(t *testing.T) {
	key := Namespace("bookings", "ana@example.com")
	assert.Equal(t, "bookings_ana@example.com", key)

	owner, ok := OwnerFromKey("bookings", key)
	assert.True(t, ok)
	assert.Equal(t, "ana@example.com", owner)

	_, ok = OwnerFromKey("bookings", "enquiries_ana@example.com")
	assert.False(t, ok)
	_, ok = OwnerFromKey("bookings", "bookings_")
	assert.False(t, ok)
}
