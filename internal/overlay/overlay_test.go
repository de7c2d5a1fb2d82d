package overlay

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlayContract(t *testing.T) {
	impls := map[string]func() Overlay[int]{
		"map": func() Overlay[int] { return New[int](0) },
		"lru": func() Overlay[int] { return New[int](16) },
	}

	for name, mk := range impls {
		t.Run(name, func(t *testing.T) {
			o := mk()

			_, ok := o.Get("a")
			assert.False(t, ok)

			o.Put("a", 1)
			o.Put("b", 2)
			o.Put("a", 3)
			v, ok := o.Get("a")
			require.True(t, ok)
			assert.Equal(t, 3, v)
			assert.Equal(t, 2, o.Len())

			// Removing an absent key is a no-op.
			o.Delete("missing")
			o.Delete("b")
			_, ok = o.Get("b")
			assert.False(t, ok)

			var keys []string
			o.Range(func(k string, _ int) bool {
				keys = append(keys, k)
				return true
			})
			assert.Equal(t, []string{"a"}, keys)

			o.Clear()
			assert.Equal(t, 0, o.Len())
		})
	}
}

func TestRangeStopsEarly(t *testing.T) {
	for _, o := range []Overlay[int]{NewMap[int](), NewLRU[int](8)} {
		o.Put("a", 1)
		o.Put("b", 2)
		o.Put("c", 3)

		visited := 0
		o.Range(func(string, int) bool {
			visited++
			return false
		})
		assert.Equal(t, 1, visited)
	}
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	o := NewLRU[string](2)
	o.Put("a", "A")
	o.Put("b", "B")

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := o.Get("a")
	require.True(t, ok)
	o.Put("c", "C")

	_, ok = o.Get("b")
	assert.False(t, ok, "b should have been evicted")

	var keys []string
	o.Range(func(k string, _ string) bool {
		keys = append(keys, k)
		return true
	})
	sort.Strings(keys)
	assert.Equal(t, []string{"a", "c"}, keys)
}

func TestNewSelectsImplementation(t *testing.T) {
	assert.IsType(t, &Map[int]{}, New[int](0))
	assert.IsType(t, &Map[int]{}, New[int](-1))
	assert.IsType(t, &LRU[int]{}, New[int](4))
}
