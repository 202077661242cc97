package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "ledger.db"),
		Profile: ProfileLedger,
		Name:    "ledger",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestNewAndMigrate(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Migrate())

	// Migration is idempotent.
	require.NoError(t, db.Migrate())

	// All core tables exist.
	for _, table := range []string{"customers", "funds", "positions", "transitions", "fund_price_history", "balance_snapshots"} {
		var name string
		err := db.Conn().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table,
		).Scan(&name)
		require.NoErrorf(t, err, "table %s should exist", table)
	}
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Migrate())
	assert.NoError(t, db.HealthCheck(context.Background()))
}

func TestWithTransaction(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Migrate())

	insert := "INSERT INTO funds (symbol, name, created_at) VALUES (?, ?, 0)"

	t.Run("commits on success", func(t *testing.T) {
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			_, err := tx.Exec(insert, "VFINX", "Vanguard 500 Index")
			return err
		})
		require.NoError(t, err)

		var count int
		require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM funds").Scan(&count))
		assert.Equal(t, 1, count)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			if _, err := tx.Exec(insert, "FMAGX", "Fidelity Magellan"); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		var count int
		require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM funds WHERE symbol = 'FMAGX'").Scan(&count))
		assert.Equal(t, 0, count)
	})

	t.Run("recovers from panic", func(t *testing.T) {
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			panic("unexpected")
		})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "panic in transaction")
	})
}

func TestWALCheckpoint(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Migrate())
	assert.NoError(t, db.WALCheckpoint("TRUNCATE"))
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Migrate())

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Greater(t, stats.PageSize, int64(0))
}

func TestSchemaSQL(t *testing.T) {
	schema, err := SchemaSQL("ledger")
	require.NoError(t, err)
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS transitions")

	_, err = SchemaSQL("nonexistent")
	assert.Error(t, err)
}
