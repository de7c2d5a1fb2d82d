// Package sqldict is a persistent, transactional string-keyed map backed by
// SQLite.
//
// A Dict stores each Entry as one row of a single table, encoding values
// through a codec.Codec. Writes are durable when Set returns. Reads may be
// served from an optional write-back overlay of decoded values, which Sync
// flushes back to the Store and Close always flushes before releasing the
// handle.
//
// Multi-step changes run inside Transaction, which holds one connection for
// the duration of the callback and commits only if it returns nil:
//
//	err := d.Transaction(ctx, sqldict.Immediate, func(tx *sqldict.Tx[int]) error {
//		n, err := tx.Get(ctx, "counter")
//		if err != nil && !sqldict.IsKeyNotFound(err) {
//			return err
//		}
//		return tx.Set(ctx, "counter", n+1)
//	})
//
// The whole dataset can be moved between a file and memory with Relocate,
// which uses SQLite's online backup so the source stays readable during the
// copy, and swaps the Dict over only once the copy is verified.
//
// A Dict is not safe for concurrent use.
package sqldict

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sqldict_operations_total",
		Help: "Total number of Dict operations, by operation.",
	}, []string{"op"})

	cacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sqldict_cache_lookups_total",
		Help: "Write-back overlay lookups, by result (hit or miss).",
	}, []string{"result"})

	syncEntriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sqldict_sync_entries_total",
		Help: "Cumulative number of overlay entries flushed to the store by Sync.",
	})

	backupPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sqldict_backup_pages_total",
		Help: "Cumulative number of database pages copied by Relocate and Backup.",
	})

	storageFaultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sqldict_storage_faults_total",
		Help: "Total number of operations that failed with a storage fault, by operation.",
	}, []string{"op"})
)
