// Package sqlite is the SQLite store: the audit trail plus a self-hosted
// household backend that implements anylist.Backend.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/revittco/anylist-mcp/internal/anylist"
	"github.com/revittco/anylist-mcp/internal/store"
	_ "modernc.org/sqlite"
)

var (
	_ store.Store     = (*DB)(nil)
	_ anylist.Backend = (*DB)(nil)
)

// queryable abstracts *sql.DB and *sql.Tx for shared query code.
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB implements store.Store and anylist.Backend. q is the connection pool,
// or the open transaction inside withTx.
type DB struct {
	db         *sql.DB
	q          queryable
	signingKey []byte
	tokenTTL   time.Duration
	now        func() time.Time
}

// Option configures a DB.
type Option func(*DB)

// WithTokenTTL sets the lifetime of issued access tokens.
func WithTokenTTL(d time.Duration) Option {
	return func(db *DB) { db.tokenTTL = d }
}

// WithClock overrides the clock used for tokens and timestamps.
func WithClock(now func() time.Time) Option {
	return func(db *DB) { db.now = now }
}

// pragmas are applied through the DSN so every pooled connection gets them.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
}

// New opens (creating if needed) the database at path and migrates it.
func New(ctx context.Context, path string, opts ...Option) (_ *DB, err error) {
	dsn := path + "?_pragma=" + strings.Join(pragmas, "&_pragma=")
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = conn.Close()
		}
	}()
	// One writer at a time; withTx relies on this.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := migrate(ctx, conn); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	d := &DB{db: conn, q: conn, tokenTTL: 30 * 24 * time.Hour, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	if d.signingKey, err = d.loadSigningKey(ctx); err != nil {
		return nil, fmt.Errorf("load signing key: %w", err)
	}
	return d, nil
}

// Ping checks database connectivity.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// withTx runs fn inside a transaction, reusing d.q when it already is one
// so MaxOpenConns(1) cannot deadlock.
func (d *DB) withTx(ctx context.Context, fn func(q queryable) error) error {
	if tx, ok := d.q.(*sql.Tx); ok {
		return fn(tx)
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}
