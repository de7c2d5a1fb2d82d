package sqldict

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/roach88/sqldict/internal/store"
)

// Progress observes a copy after every backup step with the number of pages
// copied so far and the total page count.
type Progress func(copied, total int)

// Relocate moves every Entry to dest and switches the Dict over to it.
//
// The data is copied with SQLite's online backup, so this Dict stays
// readable throughout, then checked with PRAGMA quick_check and a row count.
// Only then is the handle swapped and the previous store closed; a borrowed
// pool is left open. If anything fails before the swap the Dict is
// unchanged, and a destination file created by the call is removed.
func (d *Dict[V]) Relocate(ctx context.Context, dest Destination, progress Progress) error {
	if err := d.begin("relocate"); err != nil {
		return err
	}

	from := d.store.Location()
	logger := d.log.WithFields(log.Fields{"from": from, "to": dest.String()})
	logger.Info("relocating dict")

	dst, err := d.copyOut(ctx, "relocate", dest, progress)
	if err != nil {
		return err
	}

	old := d.store
	d.store = dst
	if err := old.Close(); err != nil {
		logger.WithField("err", err).Warn("failed to close previous store after relocation")
	}

	logger.Info("relocated dict")
	return nil
}

// Backup writes a verified copy of the Store to a new file at path, keeping
// the Dict on its current store. Cached values are not written; call Sync
// first to include them.
func (d *Dict[V]) Backup(ctx context.Context, path string, progress Progress) error {
	if err := d.begin("backup"); err != nil {
		return err
	}
	dest := File(path)
	if dest.IsMemory() {
		return invalidArgument("backup", "", "backup needs a file path", nil)
	}

	dst, err := d.copyOut(ctx, "backup", dest, progress)
	if err != nil {
		return err
	}
	if err := dst.Close(); err != nil {
		return fault(d.log, "backup", "", err)
	}
	d.log.WithField("path", path).Info("backed up dict")
	return nil
}

// Vacuum rebuilds the backing database, reclaiming free pages. Entries are
// unaffected.
func (d *Dict[V]) Vacuum(ctx context.Context) error {
	if err := d.begin("vacuum"); err != nil {
		return err
	}
	if err := d.store.Vacuum(ctx); err != nil {
		return fault(d.log, "vacuum", "", err)
	}
	return nil
}

// SizeBytes reports the logical size of the backing database in bytes.
func (d *Dict[V]) SizeBytes(ctx context.Context) (int64, error) {
	if err := d.begin("size"); err != nil {
		return 0, err
	}
	n, err := d.store.SizeBytes(ctx)
	if err != nil {
		return 0, fault(d.log, "size", "", err)
	}
	return n, nil
}

// copyOut opens dest, copies the Store into it and verifies the copy. On
// failure dest is closed and, for a file, removed.
func (d *Dict[V]) copyOut(ctx context.Context, op string, dest Destination, progress Progress) (*store.Store, error) {
	dst, err := d.openDestination(op, dest)
	if err != nil {
		return nil, err
	}

	var reported int
	opts := store.BackupOptions{
		StepPages:  d.cfg.BackupStepPages,
		RetryDelay: d.cfg.BackupRetryDelay,
		Progress: func(copied, total int) {
			if copied > reported {
				backupPagesTotal.Add(float64(copied - reported))
				reported = copied
			}
			d.log.WithFields(log.Fields{"copied": copied, "total": total}).Debug("backup step")
			if progress != nil {
				progress(copied, total)
			}
		},
	}

	if err = d.store.CopyTo(ctx, dst, opts); err == nil {
		err = d.verify(ctx, dst)
	}
	if err != nil {
		discard(dst, dest, d.log)
		return nil, fault(d.log, op, "", err)
	}
	return dst, nil
}

func (d *Dict[V]) openDestination(op string, dest Destination) (*store.Store, error) {
	opts := store.Options{DisablePragmas: d.cfg.DisablePragmas}
	if dest.IsMemory() {
		st, err := store.OpenMemory(opts)
		if err != nil {
			return nil, fault(d.log, op, "", err)
		}
		return st, nil
	}

	path := dest.String()
	switch {
	case path == "":
		return nil, invalidArgument(op, "", "destination path is empty", nil)
	case samePath(path, d.store.Location()):
		return nil, invalidArgument(op, "", fmt.Sprintf("destination %s is the current location", path), nil)
	}
	if _, err := os.Stat(path); err == nil {
		return nil, invalidArgument(op, "", fmt.Sprintf("destination %s already exists", path), nil)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, invalidArgument(op, "", "stat destination", err)
	}

	st, err := store.Open(path, opts)
	if err != nil {
		removeDatabase(path)
		return nil, fault(d.log, op, "", err)
	}
	return st, nil
}

func (d *Dict[V]) verify(ctx context.Context, dst *store.Store) error {
	if err := dst.QuickCheck(ctx); err != nil {
		return fmt.Errorf("verify copy: %w", err)
	}
	want, err := d.store.Table().Count(ctx)
	if err != nil {
		return fmt.Errorf("verify copy: %w", err)
	}
	got, err := dst.Table().Count(ctx)
	if err != nil {
		return fmt.Errorf("verify copy: %w", err)
	}
	if got != want {
		return fmt.Errorf("verify copy: destination has %d entries, source has %d", got, want)
	}
	return nil
}

func discard(st *store.Store, dest Destination, logger *log.Entry) {
	if err := st.Close(); err != nil {
		logger.WithField("err", err).Warn("failed to close discarded destination")
	}
	if !dest.IsMemory() {
		removeDatabase(dest.String())
	}
}

// removeDatabase deletes a database file and its WAL side files.
func removeDatabase(path string) {
	for _, p := range []string{path, path + "-wal", path + "-shm", path + "-journal"} {
		_ = os.Remove(p)
	}
}

func samePath(a, b string) bool {
	if a == b {
		return true
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
