package sqldict

import (
	"context"

	"github.com/roach88/sqldict/internal/store"
)

// Glob returns the values of every Store entry whose key matches the SQLite
// GLOB pattern (* ? [...], case-sensitive), in the order Keys yields them. The
// overlay is not consulted. No match yields an empty, non-nil slice.
func (d *Dict[V]) Glob(ctx context.Context, pattern string) ([]V, error) {
	if err := d.begin("glob"); err != nil {
		return nil, err
	}
	entries, err := d.glob(ctx, d.store.Table(), "glob", pattern)
	if err != nil {
		return nil, err
	}
	return values(entries), nil
}

// GlobItems is Glob returning keys alongside values.
func (d *Dict[V]) GlobItems(ctx context.Context, pattern string) ([]Entry[V], error) {
	if err := d.begin("glob"); err != nil {
		return nil, err
	}
	return d.glob(ctx, d.store.Table(), "glob", pattern)
}

func (d *Dict[V]) glob(ctx context.Context, tbl store.Table, op, pattern string) ([]Entry[V], error) {
	rows, err := tbl.Glob(ctx, pattern)
	if err != nil {
		return nil, fault(d.log, op, "", err)
	}
	out := make([]Entry[V], 0, len(rows))
	for _, r := range rows {
		v, err := d.decode(op, r)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry[V]{Key: r.Key, Value: v})
	}
	return out, nil
}

func values[V any](entries []Entry[V]) []V {
	out := make([]V, len(entries))
	for i, e := range entries {
		out[i] = e.Value
	}
	return out
}
