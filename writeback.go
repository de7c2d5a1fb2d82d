package sqldict

import (
	"context"

	"github.com/roach88/sqldict/internal/store"
)

// Sync writes every overlay entry back to the Store in one IMMEDIATE
// transaction. Values mutated in place since they were cached are persisted
// with their current contents. Without writeback Sync does nothing.
func (d *Dict[V]) Sync(ctx context.Context) error {
	if err := d.begin("sync"); err != nil {
		return err
	}
	return d.sync(ctx, "sync")
}

// ClearCache drops every overlay entry without writing it back. Later reads
// go to the Store.
func (d *Dict[V]) ClearCache() {
	operationsTotal.WithLabelValues("clear_cache").Inc()
	if d.overlay != nil {
		d.overlay.Clear()
	}
}

func (d *Dict[V]) sync(ctx context.Context, op string) error {
	if d.overlay == nil || d.overlay.Len() == 0 {
		return nil
	}

	// Encode everything before the write lock is taken.
	var rows []store.Row
	var encErr error
	d.overlay.Range(func(key string, v V) bool {
		data, err := d.codec.Encode(v)
		if err != nil {
			encErr = invalidArgument(op, key, "encode cached value", err)
			return false
		}
		rows = append(rows, store.Row{Key: key, Value: data})
		return true
	})
	if encErr != nil {
		return encErr
	}

	err := d.store.InTx(ctx, store.Immediate, func(tbl store.Table) error {
		for _, r := range rows {
			if err := tbl.Upsert(ctx, r.Key, r.Value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fault(d.log, op, "", err)
	}

	syncEntriesTotal.Add(float64(len(rows)))
	d.log.WithField("entries", len(rows)).Debug("synced overlay")
	return nil
}
