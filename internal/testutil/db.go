// Package testutil provides shared helpers for package tests.
package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/deltastar/cfs/internal/database"
)

// OpenLedgerDB opens an in-memory SQLite database with the full ledger schema
// applied. The connection is closed when the test finishes.
func OpenLedgerDB(t *testing.T) *sql.DB {
	t.Helper()

	// Foreign keys on, to match the pragmas the production connection runs with.
	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	// The in-memory database lives in a single connection; a second connection
	// would see an empty database.
	db.SetMaxOpenConns(1)

	schema, err := database.SchemaSQL("ledger")
	if err != nil {
		t.Fatalf("failed to load ledger schema: %v", err)
	}
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to apply ledger schema: %v", err)
	}

	return db
}
