// Package storagetest provides migrated in-memory databases for store tests.
package storagetest

import (
	"context"
	"database/sql"
	"io"
	"testing"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/observability"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/storage"
)

// NewSQLite returns a migrated in-memory SQLite database closed at test end
func NewSQLite(t testing.TB) *sql.DB {
	t.Helper()

	db, err := storage.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := storage.Migrate(context.Background(), db, QuietLogger()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// QuietLogger returns a logger that discards everything
func QuietLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

// InsertUser creates a user row and returns its id
func InsertUser(t testing.TB, db *sql.DB, name, email string) int64 {
	t.Helper()

	var id int64
	err := db.QueryRow(
		"INSERT INTO users (name, email, password_hash) VALUES ($1, $2, $3) RETURNING id",
		name, email, "x",
	).Scan(&id)
	if err != nil {
		t.Fatalf("failed to insert user: %v", err)
	}
	return id
}

// InsertPermission creates a permission row and returns its id
func InsertPermission(t testing.TB, db *sql.DB, name string) int64 {
	t.Helper()

	var id int64
	if err := db.QueryRow("INSERT INTO permissions (name) VALUES ($1) RETURNING id", name).Scan(&id); err != nil {
		t.Fatalf("failed to insert permission: %v", err)
	}
	return id
}
