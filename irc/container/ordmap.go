// Package container provides the ordered map used for every server-level
// index. All lookups are O(log n) and iteration visits keys in ascending
// order, which gives the server deterministic broadcast and listing order.
package container

import (
	"cmp"

	"github.com/google/btree"
)

// btreeDegree is the branching factor for the backing B-tree. The indexes
// here hold at most a few thousand entries, so a small degree keeps nodes
// cache-friendly without deep trees.
const btreeDegree = 8

type entry[K cmp.Ordered, V any] struct {
	key   K
	value V
}

// Map is an ordered map from K to V backed by a B-tree.
// The zero value is not usable; call NewMap.
type Map[K cmp.Ordered, V any] struct {
	tree *btree.BTreeG[entry[K, V]]
}

// NewMap returns an empty ordered map.
func NewMap[K cmp.Ordered, V any]() *Map[K, V] {
	return &Map[K, V]{
		tree: btree.NewG(btreeDegree, func(a, b entry[K, V]) bool {
			return a.key < b.key
		}),
	}
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	return m.tree.Len()
}

// Get returns the value stored under key, if any.
func (m *Map[K, V]) Get(key K) (V, bool) {
	e, ok := m.tree.Get(entry[K, V]{key: key})
	return e.value, ok
}

// Has reports whether key is present.
func (m *Map[K, V]) Has(key K) bool {
	return m.tree.Has(entry[K, V]{key: key})
}

// Set stores value under key, replacing any previous entry.
func (m *Map[K, V]) Set(key K, value V) {
	m.tree.ReplaceOrInsert(entry[K, V]{key: key, value: value})
}

// Delete removes key and reports whether it was present.
func (m *Map[K, V]) Delete(key K) bool {
	_, ok := m.tree.Delete(entry[K, V]{key: key})
	return ok
}

// Ascend calls fn for each entry in ascending key order until fn returns
// false. The map must not be mutated during the walk; use Keys to iterate
// when the loop body removes entries.
func (m *Map[K, V]) Ascend(fn func(key K, value V) bool) {
	m.tree.Ascend(func(e entry[K, V]) bool {
		return fn(e.key, e.value)
	})
}

// Keys returns a snapshot of all keys in ascending order. The snapshot stays
// valid across mutation, so it is the safe way to iterate while deleting.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.tree.Len())
	m.tree.Ascend(func(e entry[K, V]) bool {
		keys = append(keys, e.key)
		return true
	})
	return keys
}

// Values returns a snapshot of all values in ascending key order.
func (m *Map[K, V]) Values() []V {
	values := make([]V, 0, m.tree.Len())
	m.tree.Ascend(func(e entry[K, V]) bool {
		values = append(values, e.value)
		return true
	})
	return values
}
