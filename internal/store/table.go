package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrNotFound is returned by Lookup when no row holds the key.
var ErrNotFound = errors.New("key not found")

// Querier is satisfied by *sql.DB and *sql.Conn.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Row is one stored Entry.
type Row struct {
	Key   string
	Value []byte
}

// Table issues the fixed statement vocabulary against the Dict table, either
// through the pool or through a connection pinned by InTx.
type Table struct {
	q Querier
}

// Lookup returns the stored value for key, or ErrNotFound.
func (t Table) Lookup(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := t.q.QueryRowContext(ctx, `SELECT value FROM Dict WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup: %w", err)
	}
	return value, nil
}

// Exists reports whether a row holds key without reading its value.
func (t Table) Exists(ctx context.Context, key string) (bool, error) {
	var one int
	err := t.q.QueryRowContext(ctx, `SELECT 1 FROM Dict WHERE key = ?`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return true, nil
}

// Upsert writes value under key, replacing any prior row.
func (t Table) Upsert(ctx context.Context, key string, value []byte) error {
	if _, err := t.q.ExecContext(ctx, `INSERT OR REPLACE INTO Dict (key, value) VALUES (?, ?)`, key, cell(value)); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// Remove deletes the row for key and reports whether one existed.
func (t Table) Remove(ctx context.Context, key string) (bool, error) {
	result, err := t.q.ExecContext(ctx, `DELETE FROM Dict WHERE key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("remove: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove: rows affected: %w", err)
	}
	return n > 0, nil
}

// Count returns the number of rows.
func (t Table) Count(ctx context.Context) (int, error) {
	var n int
	if err := t.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM Dict`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Page returns up to limit rows with keys strictly greater than after, in key
// order. Keys are never empty, so after == "" starts from the first row.
// The rows are fully read before Page returns; no cursor outlives the call.
func (t Table) Page(ctx context.Context, after string, limit int) ([]Row, error) {
	rows, err := t.q.QueryContext(ctx,
		`SELECT key, value FROM Dict WHERE key > ? ORDER BY key LIMIT ?`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return collect(rows, "scan")
}

// Glob returns every row whose key matches pattern under SQLite GLOB
// semantics (*, ?, [...], case-sensitive), in key order like Page.
// A pattern that matches nothing yields an empty, non-nil slice.
func (t Table) Glob(ctx context.Context, pattern string) ([]Row, error) {
	rows, err := t.q.QueryContext(ctx, `SELECT key, value FROM Dict WHERE key GLOB ? ORDER BY key`, pattern)
	if err != nil {
		return nil, fmt.Errorf("glob: %w", err)
	}
	return collect(rows, "glob")
}

func collect(rows *sql.Rows, op string) ([]Row, error) {
	defer rows.Close()

	out := []Row{}
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Key, &r.Value); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return out, nil
}

// cell binds UTF-8 payloads as TEXT so JSON stays readable in the file, and
// anything else as a BLOB.
func cell(value []byte) any {
	if utf8.Valid(value) {
		return string(value)
	}
	return value
}
