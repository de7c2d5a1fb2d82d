package sqldict

import (
	"context"
	"errors"

	"github.com/roach88/sqldict/internal/store"
)

// TxMode is the lock acquisition mode of a transaction.
type TxMode = store.TxMode

const (
	// Deferred takes locks on first use. It is the zero value.
	Deferred = store.Deferred
	// Immediate takes the write lock at BEGIN.
	Immediate = store.Immediate
	// Exclusive also keeps readers on other connections out.
	Exclusive = store.Exclusive
)

// ParseTxMode maps "deferred", "immediate" or "exclusive", in any case, to a
// TxMode. Anything else is an INVALID_ARGUMENT error.
func ParseTxMode(s string) (TxMode, error) {
	m, err := store.ParseTxMode(s)
	if err != nil {
		return 0, invalidArgument("transaction", "", "", err)
	}
	return m, nil
}

// Transaction runs fn inside BEGIN <mode> ... COMMIT on one connection.
//
// If fn returns an error or panics, the transaction is rolled back exactly
// once, and the error is returned unchanged or the panic continues. Values
// written through tx reach the overlay only after COMMIT succeeds.
//
// While fn runs, the Dict's own methods fail with ErrTxActive; use tx.
func (d *Dict[V]) Transaction(ctx context.Context, mode TxMode, fn func(tx *Tx[V]) error) error {
	if !mode.Valid() {
		operationsTotal.WithLabelValues("transaction").Inc()
		return invalidArgument("transaction", "", "", store.ErrUnknownTxMode)
	}
	if err := d.begin("transaction"); err != nil {
		return err
	}

	tx := &Tx[V]{d: d, staged: make(map[string]staged[V])}
	d.inTx = true
	defer func() {
		d.inTx = false
		tx.done = true
	}()

	var fnErr error
	err := d.store.InTx(ctx, mode, func(tbl store.Table) error {
		tx.tbl = tbl
		fnErr = fn(tx)
		return fnErr
	})
	if err != nil {
		if fnErr != nil {
			return err
		}
		return fault(d.log, "transaction", "", err)
	}

	tx.apply()
	return nil
}

type staged[V any] struct {
	v       V
	deleted bool
}

// Tx is the view of a Dict inside Transaction. It is valid only until the
// callback returns.
type Tx[V any] struct {
	d      *Dict[V]
	tbl    store.Table
	staged map[string]staged[V]
	done   bool
}

func (tx *Tx[V]) check(op string) error {
	operationsTotal.WithLabelValues("tx_" + op).Inc()
	if tx.done {
		return closedErr("tx_"+op, "transaction has finished")
	}
	return nil
}

// Get returns key's value as seen inside the transaction.
func (tx *Tx[V]) Get(ctx context.Context, key string) (V, error) {
	if err := tx.check("get"); err != nil {
		var zero V
		return zero, err
	}
	if s, ok := tx.staged[key]; ok && !s.deleted {
		return s.v, nil
	} else if !ok {
		if v, hit := tx.d.cached(key); hit {
			return v, nil
		}
	}
	return tx.d.lookup(ctx, tx.tbl, "tx_get", key)
}

// Set writes v under key within the transaction.
func (tx *Tx[V]) Set(ctx context.Context, key string, v V) error {
	if err := tx.check("set"); err != nil {
		return err
	}
	if err := tx.d.put(ctx, tx.tbl, "tx_set", key, v); err != nil {
		return err
	}
	tx.staged[key] = staged[V]{v: v}
	return nil
}

// Delete removes key within the transaction, failing with ErrKeyNotFound if
// it has no row.
func (tx *Tx[V]) Delete(ctx context.Context, key string) error {
	if err := tx.check("delete"); err != nil {
		return err
	}
	// The cached value goes even if the row is missing, as with Dict.Delete.
	tx.staged[key] = staged[V]{deleted: true}
	return tx.d.remove(ctx, tx.tbl, "tx_delete", key)
}

// Contains reports whether Get would succeed for key.
func (tx *Tx[V]) Contains(ctx context.Context, key string) (bool, error) {
	if err := tx.check("contains"); err != nil {
		return false, err
	}
	if s, ok := tx.staged[key]; ok && !s.deleted {
		return true, nil
	} else if !ok {
		if _, hit := tx.d.cached(key); hit {
			return true, nil
		}
	}
	return tx.d.exists(ctx, tx.tbl, "tx_contains", key)
}

// Len counts Entries, including uncommitted writes of this transaction.
func (tx *Tx[V]) Len(ctx context.Context) (int, error) {
	if err := tx.check("len"); err != nil {
		return 0, err
	}
	return tx.d.count(ctx, tx.tbl, "tx_len")
}

// Glob returns the values whose keys match pattern, as seen inside the
// transaction.
func (tx *Tx[V]) Glob(ctx context.Context, pattern string) ([]V, error) {
	if err := tx.check("glob"); err != nil {
		return nil, err
	}
	entries, err := tx.d.glob(ctx, tx.tbl, "tx_glob", pattern)
	if err != nil {
		return nil, err
	}
	return values(entries), nil
}

// apply moves the committed writes into the overlay.
func (tx *Tx[V]) apply() {
	if tx.d.overlay == nil {
		return
	}
	for key, s := range tx.staged {
		if s.deleted {
			tx.d.overlay.Delete(key)
		} else {
			tx.d.overlay.Put(key, s.v)
		}
	}
}

// IsTxActive returns true if err reports a Dict call made during one of its
// transactions.
func IsTxActive(err error) bool { return errors.Is(err, ErrTxActive) }
