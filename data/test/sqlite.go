package test

import (
	"database/sql"
	"testing"

	"planlux/hale-sync/config"
	"planlux/hale-sync/data"
)

// NewSqliteDB returns a migrated in-memory store. The pool is pinned to a
// single connection because every new in-memory connection is a new database.
func NewSqliteDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("unable to open in-memory sqlite database: %s", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	cfg := &config.Config{DBDriver: config.SQLite, DBPath: ":memory:"}
	if err := data.MigrateDatabase(db, cfg); err != nil {
		t.Fatalf("unable to migrate in-memory sqlite database: %s", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}
