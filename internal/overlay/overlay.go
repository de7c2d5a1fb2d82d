// Package overlay holds decoded values in process memory in front of a
// sqldict store. Overlay operations never fail: removing an absent key is a
// no-op, and a miss is reported, not raised.
package overlay

import (
	lru "github.com/hashicorp/golang-lru"
)

// Overlay maps keys to decoded values.
type Overlay[V any] interface {
	Get(key string) (V, bool)
	Put(key string, v V)
	Delete(key string)
	// Range calls fn for each entry until fn returns false.
	Range(fn func(key string, v V) bool)
	Len() int
	Clear()
}

// New returns an unbounded overlay when size <= 0, and an LRU bounded to
// size entries otherwise.
func New[V any](size int) Overlay[V] {
	if size <= 0 {
		return NewMap[V]()
	}
	return NewLRU[V](size)
}

// Map is an unbounded overlay. Entries stay until deleted or cleared.
type Map[V any] struct {
	entries map[string]V
}

// NewMap returns an empty unbounded overlay.
func NewMap[V any]() *Map[V] {
	return &Map[V]{entries: make(map[string]V)}
}

func (m *Map[V]) Get(key string) (V, bool) {
	v, ok := m.entries[key]
	return v, ok
}

func (m *Map[V]) Put(key string, v V) { m.entries[key] = v }

func (m *Map[V]) Delete(key string) { delete(m.entries, key) }

func (m *Map[V]) Range(fn func(key string, v V) bool) {
	for k, v := range m.entries {
		if !fn(k, v) {
			return
		}
	}
}

func (m *Map[V]) Len() int { return len(m.entries) }

func (m *Map[V]) Clear() { clear(m.entries) }

// LRU is a bounded overlay. Once full, the least recently used entry is
// evicted, and its next read falls through to the store.
type LRU[V any] struct {
	cache *lru.Cache
}

// NewLRU returns an overlay holding at most size entries. size must be > 0.
func NewLRU[V any](size int) *LRU[V] {
	cache, err := lru.New(size)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}
	return &LRU[V]{cache: cache}
}

func (l *LRU[V]) Get(key string) (V, bool) {
	if v, ok := l.cache.Get(key); ok {
		return as[V](v), true
	}
	var zero V
	return zero, false
}

func (l *LRU[V]) Put(key string, v V) { l.cache.Add(key, v) }

func (l *LRU[V]) Delete(key string) { l.cache.Remove(key) }

// Range visits entries from least to most recently used without changing
// their recency.
func (l *LRU[V]) Range(fn func(key string, v V) bool) {
	for _, k := range l.cache.Keys() {
		v, ok := l.cache.Peek(k)
		if !ok {
			continue
		}
		if !fn(k.(string), as[V](v)) {
			return
		}
	}
}

func (l *LRU[V]) Len() int { return l.cache.Len() }

// as converts a cached interface{} back to V. A nil stored for an interface
// type V comes back as V's zero value rather than panicking.
func as[V any](v any) V {
	out, _ := v.(V)
	return out
}

func (l *LRU[V]) Clear() { l.cache.Purge() }
