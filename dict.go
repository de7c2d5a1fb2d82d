package sqldict

import (
	"context"
	"errors"
	"fmt"
	"iter"

	log "github.com/sirupsen/logrus"

	"github.com/roach88/sqldict/codec"
	"github.com/roach88/sqldict/internal/overlay"
	"github.com/roach88/sqldict/internal/store"
)

// Entry is one key with its decoded value.
type Entry[V any] struct {
	Key   string `json:"key" yaml:"key"`
	Value V      `json:"value" yaml:"value"`
}

// Dict is a string-keyed map persisted in SQLite.
type Dict[V any] struct {
	store   *store.Store
	codec   codec.Codec[V]
	overlay overlay.Overlay[V] // nil unless Config.Writeback
	cfg     Config
	log     *log.Entry

	inTx   bool
	closed bool
}

// Open returns a Dict over the store described by cfg, creating the Dict
// table if needed. A nil codec stores values as JSON.
func Open[V any](cfg Config, c codec.Codec[V]) (*Dict[V], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if c == nil {
		c = codec.JSON[V]()
	}

	st, err := cfg.openStore()
	if err != nil {
		return nil, fault(cfg.Logger, "open", "", err)
	}

	d := &Dict[V]{
		store: st,
		codec: c,
		cfg:   cfg,
		log:   cfg.Logger,
	}
	if cfg.Writeback {
		d.overlay = overlay.New[V](cfg.CacheSize)
	}

	d.log.WithFields(log.Fields{
		"location":  st.Location(),
		"writeback": cfg.Writeback,
		"cacheSize": cfg.CacheSize,
	}).Debug("opened dict")
	return d, nil
}

// begin counts op and rejects calls on a closed Dict or during a transaction.
func (d *Dict[V]) begin(op string) error {
	operationsTotal.WithLabelValues(op).Inc()
	if d.closed {
		return closedErr(op, "dict is closed")
	}
	if d.inTx {
		return txActive(op)
	}
	return nil
}

// Set stores v under key. The write reaches the Store before Set returns,
// and with writeback enabled v also becomes the cached value.
func (d *Dict[V]) Set(ctx context.Context, key string, v V) error {
	if err := d.begin("set"); err != nil {
		return err
	}
	if err := d.put(ctx, d.store.Table(), "set", key, v); err != nil {
		return err
	}
	if d.overlay != nil {
		d.overlay.Put(key, v)
	}
	return nil
}

// Get returns the value under key, or an error matching ErrKeyNotFound.
func (d *Dict[V]) Get(ctx context.Context, key string) (V, error) {
	if err := d.begin("get"); err != nil {
		var zero V
		return zero, err
	}
	if v, ok := d.cached(key); ok {
		return v, nil
	}
	v, err := d.lookup(ctx, d.store.Table(), "get", key)
	if err != nil {
		return v, err
	}
	if d.overlay != nil {
		d.overlay.Put(key, v)
	}
	return v, nil
}

// Delete removes key. It fails with ErrKeyNotFound when the Store has no row
// for key, even if the overlay held a value for it.
func (d *Dict[V]) Delete(ctx context.Context, key string) error {
	if err := d.begin("delete"); err != nil {
		return err
	}
	if d.overlay != nil {
		d.overlay.Delete(key)
	}
	return d.remove(ctx, d.store.Table(), "delete", key)
}

// Len is the number of Entries in the Store. Overlay-only keys are not
// counted.
func (d *Dict[V]) Len(ctx context.Context) (int, error) {
	if err := d.begin("len"); err != nil {
		return 0, err
	}
	return d.count(ctx, d.store.Table(), "len")
}

// Contains reports whether Get would succeed for key.
func (d *Dict[V]) Contains(ctx context.Context, key string) (bool, error) {
	if err := d.begin("contains"); err != nil {
		return false, err
	}
	if _, ok := d.cached(key); ok {
		return true, nil
	}
	return d.exists(ctx, d.store.Table(), "contains", key)
}

// Keys yields every key in the Store in ascending order. Rows are read in
// pages, so the Dict may be modified while ranging. A failure is yielded
// once as the final element.
func (d *Dict[V]) Keys(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		err := d.scan(ctx, "keys", func(r store.Row) (bool, error) {
			return yield(r.Key, nil), nil
		})
		if err != nil {
			yield("", err)
		}
	}
}

// Values yields every stored value in key order, decoding each as it goes.
func (d *Dict[V]) Values(ctx context.Context) iter.Seq2[V, error] {
	return func(yield func(V, error) bool) {
		err := d.scan(ctx, "values", func(r store.Row) (bool, error) {
			v, err := d.decode("values", r)
			if err != nil {
				return false, err
			}
			return yield(v, nil), nil
		})
		if err != nil {
			var zero V
			yield(zero, err)
		}
	}
}

// Items yields every Entry in key order.
func (d *Dict[V]) Items(ctx context.Context) iter.Seq2[Entry[V], error] {
	return func(yield func(Entry[V], error) bool) {
		err := d.scan(ctx, "items", func(r store.Row) (bool, error) {
			v, err := d.decode("items", r)
			if err != nil {
				return false, err
			}
			return yield(Entry[V]{Key: r.Key, Value: v}, nil), nil
		})
		if err != nil {
			yield(Entry[V]{}, err)
		}
	}
}

// scan pages through the Store in key order until fn returns false or an
// error. Each page is a separate query, so no cursor is open while fn runs.
func (d *Dict[V]) scan(ctx context.Context, op string, fn func(store.Row) (bool, error)) error {
	if err := d.begin(op); err != nil {
		return err
	}
	after := ""
	for {
		if d.closed {
			return closedErr(op, "dict closed during iteration")
		}
		rows, err := d.store.Table().Page(ctx, after, d.cfg.PageSize)
		if err != nil {
			return fault(d.log, op, "", err)
		}
		for _, r := range rows {
			more, err := fn(r)
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
		}
		if len(rows) < d.cfg.PageSize {
			return nil
		}
		after = rows[len(rows)-1].Key
	}
}

// Location is the current backing location: a file path, ":memory:", or
// "borrowed" for a caller-supplied pool.
func (d *Dict[V]) Location() string { return d.store.Location() }

func (d *Dict[V]) String() string {
	return fmt.Sprintf("Dict(target=%s)", d.store.Location())
}

// Close flushes the overlay and releases the store. If the flush fails the
// Dict stays open and the error is returned. Closing twice is a no-op.
func (d *Dict[V]) Close() error {
	operationsTotal.WithLabelValues("close").Inc()
	if d.closed {
		return nil
	}
	if d.inTx {
		return txActive("close")
	}
	if err := d.sync(context.Background(), "close"); err != nil {
		return err
	}
	d.closed = true
	if err := d.store.Close(); err != nil {
		return fault(d.log, "close", "", err)
	}
	d.log.WithField("location", d.store.Location()).Debug("closed dict")
	return nil
}

// The helpers below hold the mapping semantics shared by Dict and Tx. tbl is
// either the pool or a pinned transaction connection.

func (d *Dict[V]) cached(key string) (V, bool) {
	if d.overlay == nil {
		var zero V
		return zero, false
	}
	v, ok := d.overlay.Get(key)
	if ok {
		cacheLookupsTotal.WithLabelValues("hit").Inc()
	} else {
		cacheLookupsTotal.WithLabelValues("miss").Inc()
	}
	return v, ok
}

func (d *Dict[V]) put(ctx context.Context, tbl store.Table, op, key string, v V) error {
	if key == "" {
		return invalidArgument(op, key, "empty key", nil)
	}
	data, err := d.codec.Encode(v)
	if err != nil {
		return invalidArgument(op, key, "encode value", err)
	}
	if err := tbl.Upsert(ctx, key, data); err != nil {
		return fault(d.log, op, key, err)
	}
	return nil
}

func (d *Dict[V]) lookup(ctx context.Context, tbl store.Table, op, key string) (V, error) {
	var zero V
	data, err := tbl.Lookup(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return zero, keyNotFound(op, key)
	} else if err != nil {
		return zero, fault(d.log, op, key, err)
	}
	return d.decode(op, store.Row{Key: key, Value: data})
}

func (d *Dict[V]) decode(op string, r store.Row) (V, error) {
	v, err := d.codec.Decode(r.Value)
	if err != nil {
		return v, fault(d.log, op, r.Key, fmt.Errorf("decode: %w", err))
	}
	return v, nil
}

func (d *Dict[V]) remove(ctx context.Context, tbl store.Table, op, key string) error {
	removed, err := tbl.Remove(ctx, key)
	if err != nil {
		return fault(d.log, op, key, err)
	}
	if !removed {
		return keyNotFound(op, key)
	}
	return nil
}

func (d *Dict[V]) count(ctx context.Context, tbl store.Table, op string) (int, error) {
	n, err := tbl.Count(ctx)
	if err != nil {
		return 0, fault(d.log, op, "", err)
	}
	return n, nil
}

func (d *Dict[V]) exists(ctx context.Context, tbl store.Table, op, key string) (bool, error) {
	ok, err := tbl.Exists(ctx, key)
	if err != nil {
		return false, fault(d.log, op, key, err)
	}
	return ok, nil
}
