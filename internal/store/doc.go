// Package store owns the SQLite handle behind a sqldict Dict.
//
// The store is deliberately small. It issues a fixed vocabulary of statements
// against one two-column table:
//
//	CREATE TABLE IF NOT EXISTS Dict (key TEXT NOT NULL PRIMARY KEY, value TEXT)
//
// Statements: point lookup, point upsert (INSERT OR REPLACE), point delete,
// COUNT(*), keyset-paginated scan, GLOB scan, VACUUM and the online-backup
// copy. Values are opaque bytes; the store never inspects them.
//
// # Database Configuration
//
// Unless disabled, every handle is opened with:
//   - journal_mode=WAL: Concurrent readers during a write
//   - temp_store=2: Temporary tables and indices in memory
//   - synchronous=1 (NORMAL): Safe in WAL mode, fewer fsyncs
//   - cache_size=-64000: Roughly 64MB page cache
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// The pool is capped at one connection, so every statement from a Store is
// serialised and per-connection pragmas stay in effect.
//
// # In-Memory Stores
//
// In-memory databases are opened as file:sqldict-<uuid>?mode=memory&cache=shared.
// The name is unique per Store, so two in-memory stores never alias. The
// database lives as long as the Store's connection does.
//
// # Transactions
//
// InTx pins the connection and issues BEGIN DEFERRED, IMMEDIATE or EXCLUSIVE.
// It commits when the callback returns nil and rolls back exactly once on an
// error, a panic or a failed COMMIT.
//
// # Backup
//
// CopyTo drives sqlite3_backup_step through mattn/go-sqlite3's SQLiteBackup.
// The source stays readable during the copy, and SQLite restarts the copy if
// another connection writes to the source mid-way. The destination therefore
// always holds a consistent snapshot.
package store
