package store

import (
	"context"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// Progress observes an online backup after every step.
type Progress func(copied, total int)

// BackupOptions tune CopyTo.
type BackupOptions struct {
	// StepPages is the number of pages copied per step. <= 0 copies
	// everything in one step.
	StepPages int
	// RetryDelay is how long to wait after a step that made no progress
	// because the source was busy or locked.
	RetryDelay time.Duration
	// Progress, if set, is called after each step.
	Progress Progress
}

// CopyTo overwrites dst with a consistent page-level snapshot of s using the
// SQLite online-backup API. s remains readable throughout.
func (s *Store) CopyTo(ctx context.Context, dst *Store, opts BackupOptions) error {
	if s.closed || dst.closed {
		return ErrClosed
	}
	step := opts.StepPages
	if step <= 0 {
		step = -1
	}

	srcConn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("backup: source connection: %w", err)
	}
	defer srcConn.Close()

	dstConn, err := dst.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("backup: destination connection: %w", err)
	}
	defer dstConn.Close()

	return dstConn.Raw(func(dstDriver any) error {
		dc, ok := dstDriver.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("backup: destination driver connection is %T", dstDriver)
		}
		return srcConn.Raw(func(srcDriver any) error {
			sc, ok := srcDriver.(*sqlite3.SQLiteConn)
			if !ok {
				return fmt.Errorf("backup: source driver connection is %T", srcDriver)
			}
			return runBackup(ctx, dc, sc, step, opts)
		})
	})
}

func runBackup(ctx context.Context, dst, src *sqlite3.SQLiteConn, step int, opts BackupOptions) error {
	bk, err := dst.Backup("main", src, "main")
	if err != nil {
		return fmt.Errorf("backup: init: %w", err)
	}

	remaining := -1
	for {
		if err := ctx.Err(); err != nil {
			bk.Close()
			return fmt.Errorf("backup: %w", err)
		}

		done, err := bk.Step(step)
		if err != nil {
			bk.Close()
			return fmt.Errorf("backup: step: %w", err)
		}

		total := bk.PageCount()
		left := bk.Remaining()
		if opts.Progress != nil {
			opts.Progress(total-left, total)
		}
		if done {
			break
		}
		// Step reports BUSY and LOCKED as "not done" without an error.
		if left == remaining && opts.RetryDelay > 0 {
			time.Sleep(opts.RetryDelay)
		}
		remaining = left
	}

	if err := bk.Finish(); err != nil {
		return fmt.Errorf("backup: finish: %w", err)
	}
	return nil
}
