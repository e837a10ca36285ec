package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

const (
	// DefaultBusyTimeoutMs is how long SQLite waits on a locked file.
	DefaultBusyTimeoutMs = 5000

	// DefaultTagCacheSize is the number of events whose tags are cached.
	DefaultTagCacheSize = 512
)

// Options configures a SQLiteStore.
type Options struct {
	Logger        *slog.Logger
	BusyTimeoutMs int
	TagCacheSize  int
}

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	path   string

	// mu serializes every operation against db, including multi-statement
	// sequences such as tag get-or-create. tags is only touched under mu.
	mu   sync.Mutex
	tags *tagCache

	closeOnce sync.Once // ensures Close() is idempotent
	closeErr  error     // stores the error from Close()
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DefaultDBPath returns the default database path (~/.tally/tally.db).
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".tally", "tally.db"), nil
}

// NewSQLiteStore opens the database at dbPath and ensures the schema.
// If the path is empty, it uses the default path (~/.tally/tally.db).
// A schema failure is logged but does not fail construction; operations
// that touch the missing structures return errors instead.
func NewSQLiteStore(dbPath string, opts *Options) (*SQLiteStore, error) {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	busyTimeout := opts.BusyTimeoutMs
	if busyTimeout <= 0 {
		busyTimeout = DefaultBusyTimeoutMs
	}

	if dbPath == "" {
		var err error
		dbPath, err = DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}

	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// modernc.org/sqlite uses _pragma=name(value) syntax
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)", dbPath, busyTimeout)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: everything already runs under the store lock.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		logger: logger,
		path:   dbPath,
		tags:   newTagCache(opts.TagCacheSize),
	}

	if err := store.EnsureSchema(context.Background()); err != nil {
		logger.Error("schema setup failed", "database_path", dbPath, "error", err)
	}

	return store, nil
}

// EnsureSchema creates every table and index that does not exist yet.
// A failing statement does not stop the remaining ones; all failures are
// returned together.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Debug("ensuring schema", "database_path", s.path)
	var errs []error
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to create schema: %w", errors.Join(errs...))
	}
	return nil
}

// Close closes the database connection.
// It is safe to call Close multiple times.
func (s *SQLiteStore) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.db != nil {
			// Merge the WAL into the main file so a plain file copy is complete.
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			s.closeErr = s.db.Close()
		}
		s.tags.Clear()
	})
	return s.closeErr
}

// DB returns the underlying database connection for advanced use cases.
// Callers bypass the store lock.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// fail logs a storage failure and returns it wrapped with the operation name.
func (s *SQLiteStore) fail(op string, err error, attrs ...any) error {
	if isTableNotFoundError(err) {
		attrs = append(attrs, "schema_missing", true)
	}
	s.logger.Warn(op+" failed", append(attrs, "error", err)...)
	return fmt.Errorf("failed to %s: %w", op, err)
}

// withTx runs fn inside a transaction, rolling back on any error.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// rowExists reports whether query returns at least one row.
func rowExists(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// nullableString converts an empty string to a NULL column value.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// stringPtr converts a nullable column value to a pointer.
func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// isTableNotFoundError checks if the error indicates a missing table.
func isTableNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "no such table")
}

// isDuplicateKeyError checks if the error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
