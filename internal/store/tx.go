package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// TxMode is the SQLite lock acquisition mode for an explicit transaction.
type TxMode int

const (
	// Deferred acquires locks lazily on first read or write.
	Deferred TxMode = iota
	// Immediate takes the write lock at BEGIN.
	Immediate
	// Exclusive blocks other readers and writers for the whole transaction.
	Exclusive
)

// ErrUnknownTxMode is returned for a mode outside Deferred..Exclusive.
var ErrUnknownTxMode = errors.New("unknown transaction mode")

// ParseTxMode maps "deferred", "immediate" or "exclusive" (any case) to a TxMode.
func ParseTxMode(s string) (TxMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deferred":
		return Deferred, nil
	case "immediate":
		return Immediate, nil
	case "exclusive":
		return Exclusive, nil
	default:
		return 0, fmt.Errorf("%w %q: must be one of deferred, immediate, exclusive", ErrUnknownTxMode, s)
	}
}

// Valid reports whether m is one of the three known modes.
func (m TxMode) Valid() bool { return m >= Deferred && m <= Exclusive }

func (m TxMode) String() string {
	switch m {
	case Deferred:
		return "DEFERRED"
	case Immediate:
		return "IMMEDIATE"
	case Exclusive:
		return "EXCLUSIVE"
	default:
		return fmt.Sprintf("TxMode(%d)", int(m))
	}
}

// InTx runs fn inside BEGIN <mode> ... COMMIT on one pinned connection.
//
// If fn returns an error or panics, ctx is done by the time fn returns, or
// COMMIT fails, the transaction is rolled back exactly once. Then the error is returned unchanged, or the panic
// resumes. Rollback runs on a context detached from ctx's cancellation, so a
// cancelled caller still leaves no partial transaction behind.
//
// An unknown mode is rejected before any statement is issued.
func (s *Store) InTx(ctx context.Context, mode TxMode, fn func(Table) error) (err error) {
	if !mode.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownTxMode, mode)
	}
	if s.closed {
		return ErrClosed
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("begin %s: acquire connection: %w", mode, err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN "+mode.String()); err != nil {
		return fmt.Errorf("begin %s: %w", mode, err)
	}

	finished := false
	defer func() {
		if finished {
			return
		}
		if _, rbErr := conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK"); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}()

	if err := fn(Table{q: conn}); err != nil {
		return err
	}
	// A scope cancelled while fn ran must not commit.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	finished = true
	return nil
}
