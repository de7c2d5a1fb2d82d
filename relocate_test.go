package sqldict

import (
	"context"
	"fmt"
	"os"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(t *testing.T, d *Dict[string], n int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, d.Transaction(ctx, Immediate, func(tx *Tx[string]) error {
		for i := range n {
			if err := tx.Set(ctx, fmt.Sprintf("key-%03d", i), fmt.Sprintf("value-%d", i)); err != nil {
				return err
			}
		}
		return nil
	}))
}

func TestRelocate_FileToMemory(t *testing.T) {
	ctx := context.Background()
	path := tempPath(t, "source.db")
	d := openTest[string](t, Config{Path: path, BackupStepPages: 1}, nil)
	fill(t, d, 100)

	var steps, lastCopied, lastTotal int
	pages := promtest.ToFloat64(backupPagesTotal)
	err := d.Relocate(ctx, Memory(), func(copied, total int) {
		steps++
		assert.GreaterOrEqual(t, copied, lastCopied, "progress never goes backwards")
		lastCopied, lastTotal = copied, total
	})
	require.NoError(t, err)

	assert.Positive(t, steps)
	assert.Equal(t, lastTotal, lastCopied)
	assert.Equal(t, pages+float64(lastTotal), promtest.ToFloat64(backupPagesTotal))
	assert.Equal(t, ":memory:", d.Location())

	n, err := d.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	for i := range 100 {
		v, err := d.Get(ctx, fmt.Sprintf("key-%03d", i))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("value-%d", i), v)
	}

	// The source file is left in place and still intact.
	src := openTest[string](t, Config{Path: path}, nil)
	n, err = src.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, n)

	// Writes now go to memory only.
	require.NoError(t, d.Set(ctx, "new", "x"))
	_, err = src.Get(ctx, "new")
	assert.True(t, IsKeyNotFound(err))
}

func TestRelocate_MemoryToFile(t *testing.T) {
	ctx := context.Background()
	d := openTest[string](t, Config{Memory: true}, nil)
	fill(t, d, 10)

	path := tempPath(t, "dest.db")
	require.NoError(t, d.Relocate(ctx, File(path), nil))
	assert.Equal(t, path, d.Location())
	require.NoError(t, d.Set(ctx, "after", "relocation"))
	require.NoError(t, d.Close())

	reopened := openTest[string](t, Config{Path: path}, nil)
	n, err := reopened.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 11, n)
}

func TestRelocate_RejectsBadDestinations(t *testing.T) {
	ctx := context.Background()
	path := tempPath(t, "current.db")
	d := openTest[string](t, Config{Path: path}, nil)
	fill(t, d, 3)

	existing := tempPath(t, "existing.db")
	require.NoError(t, os.WriteFile(existing, []byte("keep me"), 0o644))

	for name, dest := range map[string]Destination{
		"same path": File(path),
		"existing":  File(existing),
		"empty":     File(""),
	} {
		t.Run(name, func(t *testing.T) {
			err := d.Relocate(ctx, dest, nil)
			assert.ErrorIs(t, err, ErrInvalidArgument)
			assert.Equal(t, path, d.Location())
		})
	}

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
}

func TestRelocate_FailureKeepsOriginalHandle(t *testing.T) {
	path := tempPath(t, "keep.db")
	d := openTest[string](t, Config{Path: path}, nil)
	fill(t, d, 20)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dest := tempPath(t, "never.db")
	err := d.Relocate(ctx, File(dest), nil)
	require.Error(t, err)
	assert.True(t, IsStorageFault(err))

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "partial destination is removed")

	assert.Equal(t, path, d.Location())
	n, err := d.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}

func TestBackup(t *testing.T) {
	ctx := context.Background()
	d := openTest[string](t, Config{Memory: true, Writeback: true}, nil)
	fill(t, d, 5)

	path := tempPath(t, "backup.db")
	require.NoError(t, d.Backup(ctx, path, nil))
	assert.Equal(t, ":memory:", d.Location(), "backup keeps the current handle")

	copyDict := openTest[string](t, Config{Path: path}, nil)
	n, err := copyDict.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	assert.ErrorIs(t, d.Backup(ctx, path, nil), ErrInvalidArgument, "destination exists")
	assert.ErrorIs(t, d.Backup(ctx, ":memory:", nil), ErrInvalidArgument)
}

func TestVacuum(t *testing.T) {
	ctx := context.Background()
	d := openTest[string](t, Config{Path: tempPath(t, "vacuum.db")}, nil)
	fill(t, d, 50)
	for i := range 40 {
		require.NoError(t, d.Delete(ctx, fmt.Sprintf("key-%03d", i)))
	}

	before, err := d.SizeBytes(ctx)
	require.NoError(t, err)
	require.NoError(t, d.Vacuum(ctx))
	after, err := d.SizeBytes(ctx)
	require.NoError(t, err)
	assert.Positive(t, after)
	assert.LessOrEqual(t, after, before)

	n, err := d.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	require.NoError(t, d.Close())
	_, err = d.SizeBytes(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}
