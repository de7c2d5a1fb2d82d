package sqldict

import (
	"context"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteback_OverlayShadowsExternalWriter(t *testing.T) {
	ctx := context.Background()
	path := tempPath(t, "hazard.db")

	first := openTest[int](t, Config{Path: path, Writeback: true}, nil)
	second := openTest[int](t, Config{Path: path}, nil)

	require.NoError(t, first.Set(ctx, "a", 1))
	require.NoError(t, second.Set(ctx, "a", 2))

	// Cache precedence: the first instance still sees its own value.
	v, err := first.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = second.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	// The overlay wins on sync.
	require.NoError(t, first.Sync(ctx))
	v, err = second.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestWriteback_ClearCacheExposesStore(t *testing.T) {
	ctx := context.Background()
	path := tempPath(t, "clear.db")

	first := openTest[int](t, Config{Path: path, Writeback: true}, nil)
	second := openTest[int](t, Config{Path: path}, nil)

	require.NoError(t, first.Set(ctx, "a", 1))
	require.NoError(t, second.Set(ctx, "a", 2))

	first.ClearCache()
	v, err := first.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestSync_Idempotent(t *testing.T) {
	ctx := context.Background()
	d := openTest[int](t, Config{Path: tempPath(t, "sync.db"), Writeback: true}, nil)

	require.NoError(t, d.Set(ctx, "a", 1))
	require.NoError(t, d.Set(ctx, "b", 2))

	snapshot := func() map[string]int {
		out := map[string]int{}
		for e, err := range d.Items(ctx) {
			require.NoError(t, err)
			out[e.Key] = e.Value
		}
		return out
	}

	require.NoError(t, d.Sync(ctx))
	once := snapshot()
	require.NoError(t, d.Sync(ctx))
	assert.Equal(t, once, snapshot())
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, once)
}

func TestSync_NoopWithoutWriteback(t *testing.T) {
	d := openTest[int](t, Config{Memory: true}, nil)
	before := promtest.ToFloat64(syncEntriesTotal)

	require.NoError(t, d.Set(context.Background(), "a", 1))
	require.NoError(t, d.Sync(context.Background()))
	assert.Equal(t, before, promtest.ToFloat64(syncEntriesTotal))
}

func TestSync_PersistsInPlaceMutation(t *testing.T) {
	ctx := context.Background()
	path := tempPath(t, "mutate.db")

	d, err := Open[map[string]any](Config{Path: path, Writeback: true}, nil)
	require.NoError(t, err)
	require.NoError(t, d.Set(ctx, "doc", map[string]any{"n": 1.0}))

	doc, err := d.Get(ctx, "doc")
	require.NoError(t, err)
	doc["n"] = 2.0

	before := promtest.ToFloat64(syncEntriesTotal)
	// Close syncs.
	require.NoError(t, d.Close())
	assert.Equal(t, before+1, promtest.ToFloat64(syncEntriesTotal))

	reopened := openTest[map[string]any](t, Config{Path: path}, nil)
	doc, err = reopened.Get(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, 2.0, doc["n"])
}

func TestWriteback_DeleteEvictsAndRequiresStoreRow(t *testing.T) {
	ctx := context.Background()
	path := tempPath(t, "delete.db")

	first := openTest[int](t, Config{Path: path, Writeback: true}, nil)
	second := openTest[int](t, Config{Path: path}, nil)

	require.NoError(t, first.Set(ctx, "a", 1))
	require.NoError(t, second.Delete(ctx, "a"))

	ok, err := first.Contains(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok, "overlay still holds a")

	// The Store decides existence, but the cached value is dropped anyway.
	assert.True(t, IsKeyNotFound(first.Delete(ctx, "a")))
	_, err = first.Get(ctx, "a")
	assert.True(t, IsKeyNotFound(err))
}

func TestWriteback_LenIsStoreAuthoritative(t *testing.T) {
	ctx := context.Background()
	path := tempPath(t, "len.db")

	first := openTest[int](t, Config{Path: path, Writeback: true}, nil)
	second := openTest[int](t, Config{Path: path}, nil)

	require.NoError(t, first.Set(ctx, "a", 1))
	require.NoError(t, first.Set(ctx, "b", 2))
	require.NoError(t, second.Delete(ctx, "b"))

	n, err := first.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWriteback_CacheHits(t *testing.T) {
	ctx := context.Background()
	d := openTest[int](t, Config{Memory: true, Writeback: true}, nil)

	hits := cacheLookupsTotal.WithLabelValues("hit")
	misses := cacheLookupsTotal.WithLabelValues("miss")
	h0, m0 := promtest.ToFloat64(hits), promtest.ToFloat64(misses)

	require.NoError(t, d.Set(ctx, "a", 1))
	_, err := d.Get(ctx, "a")
	require.NoError(t, err)
	_, err = d.Get(ctx, "missing")
	require.Error(t, err)

	assert.Equal(t, h0+1, promtest.ToFloat64(hits))
	assert.Equal(t, m0+1, promtest.ToFloat64(misses))
}

func TestWriteback_BoundedCacheFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	d := openTest[int](t, Config{Memory: true, Writeback: true, CacheSize: 2}, nil)

	require.NoError(t, d.Set(ctx, "a", 1))
	require.NoError(t, d.Set(ctx, "b", 2))
	require.NoError(t, d.Set(ctx, "c", 3))
	assert.Equal(t, 2, d.overlay.Len())

	// "a" was evicted, but Set wrote through.
	v, err := d.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}
