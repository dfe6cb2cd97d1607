// Package db opens the futbolbase SQLite store with production-safe pragmas
// and applies the schema. Shared by cmd/ingest and cmd/api.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// DBTX is the subset of database/sql methods the resolver and merge layers
// use, satisfied by both *sql.DB and *sql.Tx so writes can run inside a
// per-group transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens (creating if necessary) the database at path, applies pragmas
// and the schema, and verifies connectivity.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("db: mkdir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("db: %s: %w", p, err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("db: apply schema: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}

	return conn, nil
}

// OpenMemory opens an in-memory database for tests. MaxOpenConns is pinned
// to 1 before anything runs because every connection to ":memory:" is a
// separate database.
func OpenMemory(t testing.TB) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("db.OpenMemory: %v", err)
	}
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("db.OpenMemory: %v", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		t.Fatalf("db.OpenMemory: apply schema: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}
