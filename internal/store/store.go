package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// DriverName is the database/sql driver registered by mattn/go-sqlite3.
const DriverName = "sqlite3"

// MemoryLocation is reported by Location for in-memory stores.
const MemoryLocation = ":memory:"

const schemaSQL = `CREATE TABLE IF NOT EXISTS Dict (key TEXT NOT NULL PRIMARY KEY, value TEXT)`

// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("store is closed")

// Options tune how a Store is opened.
type Options struct {
	// DisablePragmas skips the performance pragmas applied at open.
	DisablePragmas bool
}

// Store is the single handle to one backing SQLite database.
type Store struct {
	db       *sql.DB
	location string
	borrowed bool
	closed   bool
}

// Open creates or opens a SQLite database at the given path.
// Applies pragmas and creates the Dict table if it is absent.
//
// This function is idempotent - safe to call multiple times on the same path.
func Open(path string, opts Options) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("open store: empty path")
	}
	if path == MemoryLocation {
		return OpenMemory(opts)
	}
	return open(path, path, opts)
}

// OpenMemory creates a private in-memory database.
func OpenMemory(opts Options) (*Store, error) {
	dsn := fmt.Sprintf("file:sqldict-%s?mode=memory&cache=shared", uuid.NewString())
	return open(dsn, MemoryLocation, opts)
}

// Wrap adopts a connection pool owned by the caller. The Store uses db but
// Close leaves it open. Pragmas, when enabled, reach only the connection they
// run on; callers that share a pool should configure it themselves.
func Wrap(db *sql.DB, opts Options) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("wrap store: nil *sql.DB")
	}
	s := &Store{db: db, location: "borrowed", borrowed: true}
	if err := s.init(context.Background(), opts); err != nil {
		return nil, err
	}
	return s, nil
}

func open(dsn, location string, opts Options) (*Store, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows one writer at a time. One pooled connection also keeps
	// per-connection pragmas and shared-cache memory databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	s := &Store{db: db, location: location}
	if err := s.init(context.Background(), opts); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context, opts Options) error {
	if !opts.DisablePragmas {
		if err := applyPragmas(ctx, s.db); err != nil {
			return fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}
	err := s.InTx(ctx, Deferred, func(t Table) error {
		_, err := t.q.ExecContext(ctx, schemaSQL)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// applyPragmas sets the SQLite performance configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = 2",
		"PRAGMA synchronous = 1",
		"PRAGMA cache_size = -64000",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close releases the handle. A borrowed pool is left open.
// Calling Close more than once is a no-op.
func (s *Store) Close() error {
	if s == nil || s.db == nil || s.closed {
		return nil
	}
	s.closed = true
	if s.borrowed {
		return nil
	}
	return s.db.Close()
}

// Closed reports whether Close has been called.
func (s *Store) Closed() bool { return s.closed }

// Borrowed reports whether the pool belongs to the caller.
func (s *Store) Borrowed() bool { return s.borrowed }

// Location is the file path, MemoryLocation, or "borrowed".
func (s *Store) Location() string { return s.location }

// Table returns the statement vocabulary bound to the pool.
func (s *Store) Table() Table { return Table{q: s.db} }

// Vacuum rebuilds the database file, reclaiming free pages.
func (s *Store) Vacuum(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}

// QuickCheck runs PRAGMA quick_check and fails unless SQLite reports "ok".
func (s *Store) QuickCheck(ctx context.Context) error {
	var result string
	if err := s.db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("quick_check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("quick_check: %s", result)
	}
	return nil
}

// SizeBytes is page_count * page_size, the logical size of the database.
func (s *Store) SizeBytes(ctx context.Context) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	var pages, size int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pages); err != nil {
		return 0, fmt.Errorf("page_count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&size); err != nil {
		return 0, fmt.Errorf("page_size: %w", err)
	}
	return pages * size, nil
}

// pragma reads a single pragma value. Used by tests.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return "", fmt.Errorf("failed to query %s: %w", name, err)
	}
	return value, nil
}
