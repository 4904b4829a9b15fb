// Package db implements the wallet core's SQLite persistence: accounts,
// chain entities, dapps, asymmetric keys, addresses and dapp sessions.
// Entity functions take a Querier so they run the same inside and outside a
// transaction; multi-entity invariants (dapp + key + session creation) run
// inside one deferred transaction through the pool.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("db: not found")

// Querier is the query surface shared by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ConnectionPool owns the SQLite handle. SQLite serializes writers, so the
// pool keeps a single connection; callers must not hold a transaction across
// calls that can block indefinitely.
type ConnectionPool struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewConnectionPool opens (creating if needed) the database at path and runs
// migrations.
func NewConnectionPool(ctx context.Context, path string, logger *slog.Logger) (*ConnectionPool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn := fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		path,
	)
	handle, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	handle.SetMaxOpenConns(1)
	handle.SetConnMaxIdleTime(0)

	if err := migrate(ctx, handle); err != nil {
		_ = handle.Close()
		return nil, err
	}
	return &ConnectionPool{db: handle, logger: logger}, nil
}

// Conn returns the handle for plain reads and single-statement writes.
func (p *ConnectionPool) Conn() *sql.DB {
	return p.db
}

// Close closes the database handle.
func (p *ConnectionPool) Close() error {
	return p.db.Close()
}

// DeferredTransaction runs work atomically. SQLite transactions begin
// deferred: the first read takes a shared lock, the first write upgrades it,
// so the work observes one consistent snapshot and commits all or nothing.
func (p *ConnectionPool) DeferredTransaction(ctx context.Context, work func(tx *sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := work(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			p.logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// nowString is the canonical timestamp encoding in the database.
func nowString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// parseTime decodes a stored timestamp.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored timestamp %q: %w", s, err)
	}
	return t, nil
}
