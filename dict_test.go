package sqldict

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqldict/codec"
)

type widget struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags"`
}

func TestOpen_InvalidConfiguration(t *testing.T) {
	db, err := sql.Open("sqlite3", tempPath(t, "borrowed.db"))
	require.NoError(t, err)
	defer db.Close()

	cases := map[string]Config{
		"no target":        {},
		"path and memory":  {Path: "x.db", Memory: true},
		"memory and db":    {Memory: true, DB: db},
		"negative cache":   {Memory: true, CacheSize: -1},
		"negative page":    {Memory: true, PageSize: -5},
		"negative backoff": {Memory: true, BackupRetryDelay: -1},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Open[int](cfg, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	targets := map[string]Config{
		"memory":         {Memory: true},
		"memory alias":   {Path: ":memory:"},
		"file":           {Path: tempPath(t, "rt.db")},
		"file writeback": {Path: tempPath(t, "rtw.db"), Writeback: true},
	}

	for name, cfg := range targets {
		t.Run(name, func(t *testing.T) {
			d := openTest[widget](t, cfg, nil)

			in := widget{Name: "gear", Count: 3, Tags: []string{"a", "b"}}
			require.NoError(t, d.Set(ctx, "w1", in))

			out, err := d.Get(ctx, "w1")
			require.NoError(t, err)
			assert.Equal(t, in, out)

			// Overwrite upserts.
			in.Count = 4
			require.NoError(t, d.Set(ctx, "w1", in))
			out, err = d.Get(ctx, "w1")
			require.NoError(t, err)
			assert.Equal(t, 4, out.Count)

			n, err := d.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestRoundTrip_ReopenFile(t *testing.T) {
	ctx := context.Background()
	path := tempPath(t, "reopen.db")

	d, err := Open[string](Config{Path: path}, codec.String())
	require.NoError(t, err)
	require.NoError(t, d.Set(ctx, "greeting", "hello"))
	require.NoError(t, d.Close())

	d = openTest(t, Config{Path: path}, codec.String())
	v, err := d.Get(ctx, "greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestMissingKey(t *testing.T) {
	ctx := context.Background()
	d := openTest[int](t, Config{Memory: true}, nil)

	_, err := d.Get(ctx, "nope")
	assert.True(t, IsKeyNotFound(err))
	assert.ErrorIs(t, err, ErrKeyNotFound)

	err = d.Delete(ctx, "nope")
	assert.True(t, IsKeyNotFound(err))

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "delete", se.Op)
	assert.Equal(t, "nope", se.Key)
}

func TestSet_RejectsEmptyKeyAndUnencodableValue(t *testing.T) {
	ctx := context.Background()
	d := openTest[any](t, Config{Memory: true}, nil)

	err := d.Set(ctx, "", 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = d.Set(ctx, "ch", make(chan int))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	n, err := d.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteAndContains(t *testing.T) {
	ctx := context.Background()
	d := openTest[int](t, Config{Memory: true}, nil)

	require.NoError(t, d.Set(ctx, "a", 1))
	require.NoError(t, d.Set(ctx, "b", 2))

	ok, err := d.Contains(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, d.Delete(ctx, "a"))
	ok, err = d.Contains(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := d.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIteration(t *testing.T) {
	ctx := context.Background()
	d := openTest[int](t, Config{Memory: true, PageSize: 3}, nil)

	for i := 9; i >= 0; i-- {
		require.NoError(t, d.Set(ctx, fmt.Sprintf("k%d", i), i*10))
	}

	var keys []string
	for k, err := range d.Keys(ctx) {
		require.NoError(t, err)
		keys = append(keys, k)
	}
	assert.Equal(t, []string{"k0", "k1", "k2", "k3", "k4", "k5", "k6", "k7", "k8", "k9"}, keys)

	var sum int
	for v, err := range d.Values(ctx) {
		require.NoError(t, err)
		sum += v
	}
	assert.Equal(t, 450, sum)

	var items []Entry[int]
	for e, err := range d.Items(ctx) {
		require.NoError(t, err)
		items = append(items, e)
		if len(items) == 4 {
			break
		}
	}
	assert.Equal(t, []Entry[int]{{"k0", 0}, {"k1", 10}, {"k2", 20}, {"k3", 30}}, items)
}

func TestIteration_MutateWhileRanging(t *testing.T) {
	ctx := context.Background()
	d := openTest[int](t, Config{Memory: true, PageSize: 2}, nil)

	for i := range 6 {
		require.NoError(t, d.Set(ctx, fmt.Sprintf("k%d", i), i))
	}

	// Deleting each key as it is visited must neither deadlock nor skip keys.
	var seen []string
	for k, err := range d.Keys(ctx) {
		require.NoError(t, err)
		seen = append(seen, k)
		require.NoError(t, d.Delete(ctx, k))
	}
	assert.Len(t, seen, 6)

	n, err := d.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestValues_DecodeFailureIsStorageFault(t *testing.T) {
	ctx := context.Background()
	path := tempPath(t, "decode.db")

	raw := openTest(t, Config{Path: path}, codec.String())
	require.NoError(t, raw.Set(ctx, "bad", "not json"))

	d := openTest[int](t, Config{Path: path}, nil)

	_, err := d.Get(ctx, "bad")
	assert.True(t, IsStorageFault(err))

	var errs []error
	for _, err := range d.Values(ctx) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.True(t, IsStorageFault(errs[0]))
}

func TestStringAndLocation(t *testing.T) {
	d := openTest[int](t, Config{Memory: true}, nil)
	assert.Equal(t, ":memory:", d.Location())
	assert.Equal(t, "Dict(target=:memory:)", d.String())

	path := tempPath(t, "loc.db")
	f := openTest[int](t, Config{Path: path}, nil)
	assert.Equal(t, path, f.Location())
	assert.Equal(t, "Dict(target="+path+")", f.String())
}

func TestMemoryDictsDoNotAlias(t *testing.T) {
	ctx := context.Background()
	a := openTest[int](t, Config{Memory: true}, nil)
	b := openTest[int](t, Config{Memory: true}, nil)

	require.NoError(t, a.Set(ctx, "x", 1))
	_, err := b.Get(ctx, "x")
	assert.True(t, IsKeyNotFound(err))
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	d, err := Open[int](Config{Memory: true}, nil)
	require.NoError(t, err)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close(), "second Close is a no-op")

	_, err = d.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, d.Set(ctx, "a", 1), ErrClosed)

	for _, err := range d.Keys(ctx) {
		assert.ErrorIs(t, err, ErrClosed)
	}
}

func TestBorrowedDBIsNotClosed(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite3", tempPath(t, "borrowed.db"))
	require.NoError(t, err)
	defer db.Close()

	d, err := Open[int](Config{DB: db}, nil)
	require.NoError(t, err)
	assert.Equal(t, "borrowed", d.Location())
	require.NoError(t, d.Set(ctx, "a", 1))
	require.NoError(t, d.Close())

	require.NoError(t, db.Ping())
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM Dict`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestError_Format(t *testing.T) {
	err := keyNotFound("get", "k")
	assert.Equal(t, `KEY_NOT_FOUND (get "k")`, err.Error())

	err = invalidArgument("transaction", "", "", fmt.Errorf("unknown transaction mode"))
	assert.Equal(t, "INVALID_ARGUMENT (transaction): unknown transaction mode", err.Error())

	assert.Equal(t, CodeKeyNotFound, CodeOf(fmt.Errorf("wrapped: %w", keyNotFound("get", "k"))))
	assert.Equal(t, ErrorCode(""), CodeOf(fmt.Errorf("plain")))
}
