// Package storage implements the TrustGraph — the typed, single-writer
// relational persistence layer for contracts, facts, clauses, bindings,
// cross-references, workspaces, and reasoning sessions (spec section 4.5).
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	_ "modernc.org/sqlite"
)

// DB wraps a single SQLite database file. Writes serialize through a
// dedicated single connection guarded by writeMu (SQLite's own
// single-writer semantics back this at the engine level, but the explicit
// mutex keeps multi-statement atomic inserts — e.g. InsertExtractionResult,
// which writes facts+clauses+bindings+cross-refs+slots as one unit — from
// interleaving at the Go level). Reads use a separate connection pool that
// never takes writeMu; SQLite's WAL mode gives those snapshot-like isolation.
type DB struct {
	writeConn *sql.DB
	readPool  *sql.DB
	writeMu   sync.Mutex
	logger    *slog.Logger
	path      string
}

// New opens the database file at path. When wal is true, journal_mode=WAL is
// set so readers never block the writer. foreign_keys is always enabled —
// the TrustGraph's cascade-delete invariants depend on it.
func New(ctx context.Context, path string, wal bool, logger *slog.Logger) (*DB, error) {
	dsn := path + "?_pragma=foreign_keys(1)"
	if wal {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	writeConn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open write connection: %w", err)
	}
	writeConn.SetMaxOpenConns(1) // SQLite allows exactly one writer at a time.

	readPool, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = writeConn.Close()
		return nil, fmt.Errorf("storage: open read pool: %w", err)
	}
	readPool.SetMaxOpenConns(4)

	if err := writeConn.PingContext(ctx); err != nil {
		_ = writeConn.Close()
		_ = readPool.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}

	return &DB{
		writeConn: writeConn,
		readPool:  readPool,
		logger:    logger,
		path:      path,
	}, nil
}

// Close releases both connections.
func (db *DB) Close() error {
	writeErr := db.writeConn.Close()
	readErr := db.readPool.Close()
	if writeErr != nil {
		return writeErr
	}
	return readErr
}

// withWriteTx runs fn inside a transaction on the single write connection,
// holding writeMu for the duration so Go-level multi-statement atomicity is
// never interleaved with a concurrent write from another goroutine.
func (db *DB) withWriteTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx, err := db.writeConn.BeginTx(ctx, nil)
	if err != nil {
		return NewUnavailableError("begin transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return NewUnavailableError("commit transaction", err)
	}
	return nil
}
