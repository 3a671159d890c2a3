package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Options configures how the database is opened.
type Options struct {
	// Path is the SQLite file path, or MemoryPath.
	Path string

	// BusyTimeout is how long a connection waits for a lock before failing.
	BusyTimeout time.Duration

	// JournalMode is the SQLite journal mode (WAL, DELETE, TRUNCATE, MEMORY).
	JournalMode string

	// MaxOpenConns bounds the connection pool. Forced to 1 for MemoryPath.
	MaxOpenConns int
}

// DefaultOptions returns the options used when only a path is known.
func DefaultOptions(path string) Options {
	return Options{
		Path:         path,
		BusyTimeout:  5 * time.Second,
		JournalMode:  "WAL",
		MaxOpenConns: 1,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions(o.Path)
	if o.BusyTimeout <= 0 {
		o.BusyTimeout = d.BusyTimeout
	}
	if o.JournalMode == "" {
		o.JournalMode = d.JournalMode
	}
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = d.MaxOpenConns
	}
	// Each connection to :memory: is a separate database.
	if o.Path == MemoryPath {
		o.MaxOpenConns = 1
	}
	return o
}

// DSN renders the go-sqlite3 data source name for these options.
func (o Options) DSN() string {
	q := url.Values{}
	q.Set("_foreign_keys", "on")
	q.Set("_busy_timeout", strconv.FormatInt(o.BusyTimeout.Milliseconds(), 10))
	q.Set("_journal_mode", o.JournalMode)
	q.Set("_synchronous", "NORMAL")
	q.Set("_txlock", "immediate")
	return o.Path + "?" + q.Encode()
}

// Store owns the connection pool for the keeper database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database described by opts and applies any
// pending schema migrations.
//
// This function is idempotent - safe to call multiple times on one path.
func Open(opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, errors.New("failed to open database: path is required")
	}
	opts = opts.withDefaults()

	db, err := sql.Open("sqlite3", opts.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxOpenConns)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB. Units of work draw their connections
// from it; direct use bypasses transaction grouping.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SchemaVersion returns the id of the newest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM migrations ORDER BY id DESC LIMIT 1
	`).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("schema version: %w", err)
	}
	return id, nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
