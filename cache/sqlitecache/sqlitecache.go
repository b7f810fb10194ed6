// Package sqlitecache implements cache.Store on a local SQLite file.
// One row per key. Zero CGO required.
package sqlitecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/foliolabs/folio/cache"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a structured logger for the store. If not set, no
// logs are emitted.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Store holds cache entries in a single SQLite table. All goroutines
// serialize through one connection, which eliminates SQLITE_BUSY errors
// from concurrent writers.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ cache.Store = (*Store)(nil)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Open opens (or creates) the database at dbPath and ensures the cache
// table exists.
func Open(ctx context.Context, dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlitecache: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: nopLogger}
	for _, o := range opts {
		o(s)
	}

	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS cache_entries (
		key TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache table: %w", err)
	}
	s.logger.Debug("sqlitecache: opened", "path", dbPath)
	return s, nil
}

func (s *Store) Read(ctx context.Context, key string) ([]byte, int64, error) {
	var payload []byte
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, created_at FROM cache_entries WHERE key = ?`, key,
	).Scan(&payload, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, cache.ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read entry: %w", err)
	}
	return payload, createdAt, nil
}

func (s *Store) Write(ctx context.Context, key string, payload []byte, createdAt int64) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache_entries (key, payload, created_at) VALUES (?, ?, ?)`,
		key, payload, createdAt,
	)
	if err != nil {
		s.logger.Error("sqlitecache: write failed", "key", key, "error", err, "duration", time.Since(start))
		return fmt.Errorf("write entry: %w", err)
	}
	s.logger.Debug("sqlitecache: write ok", "key", key, "bytes", len(payload), "duration", time.Since(start))
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

func (s *Store) Clear(ctx context.Context) error {
	start := time.Now()
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	if err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}
	n, _ := res.RowsAffected()
	s.logger.Debug("sqlitecache: cleared", "deleted", n, "duration", time.Since(start))
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
