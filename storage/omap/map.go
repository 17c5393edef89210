// Package omap is a small ordered map kept sorted by an injected comparator,
// the Go stand-in for the original storage engine's BTreeMap nesting
// (storage/memory.rs: Keyspace -> Table -> BTreeMap<PartitionKeyValue,
// BTreeMap<ClusteringKeyValue, RowValues>>). Go's standard library has no
// ordered map, and nothing in the example pack supplies one either, so this
// stays on a hand-rolled sorted slice (stdlib, justified: see DESIGN.md) --
// every key type here already carries its own total-order Compare method
// (cql/value), so a slice plus binary search is simpler than bringing in a
// general-purpose tree/skiplist library for a single narrow use.
package omap

// Entry is a single key/value pair returned by Range or All.
type Entry[K any, V any] struct {
	Key K
	Val V
}

// Map is a map ordered by compare, ascending.
type Map[K any, V any] struct {
	compare func(a, b K) int
	keys    []K
	vals    []V
}

func New[K any, V any](compare func(a, b K) int) *Map[K, V] {
	return &Map[K, V]{compare: compare}
}

func (m *Map[K, V]) search(k K) (int, bool) {
	lo, hi := 0, len(m.keys)
	for lo < hi {
		mid := (lo + hi) / 2
		c := m.compare(m.keys[mid], k)
		switch {
		case c == 0:
			return mid, true
		case c < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return lo, false
}

func (m *Map[K, V]) Get(k K) (V, bool) {
	i, ok := m.search(k)
	if !ok {
		var zero V
		return zero, false
	}
	return m.vals[i], true
}

// GetOrInsert returns the existing value for k, or inserts and returns the
// result of zero() if absent.
func (m *Map[K, V]) GetOrInsert(k K, zero func() V) V {
	i, ok := m.search(k)
	if ok {
		return m.vals[i]
	}
	v := zero()
	m.insertAt(i, k, v)
	return v
}

func (m *Map[K, V]) Put(k K, v V) {
	i, ok := m.search(k)
	if ok {
		m.vals[i] = v
		return
	}
	m.insertAt(i, k, v)
}

func (m *Map[K, V]) insertAt(i int, k K, v V) {
	m.keys = append(m.keys, k)
	copy(m.keys[i+1:], m.keys[i:])
	m.keys[i] = k

	m.vals = append(m.vals, v)
	copy(m.vals[i+1:], m.vals[i:])
	m.vals[i] = v
}

func (m *Map[K, V]) Delete(k K) bool {
	i, ok := m.search(k)
	if !ok {
		return false
	}
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	m.vals = append(m.vals[:i], m.vals[i+1:]...)
	return true
}

func (m *Map[K, V]) Len() int { return len(m.keys) }

// Range returns every entry for which contains(key) holds, in ascending
// order.
func (m *Map[K, V]) Range(contains func(K) bool) []Entry[K, V] {
	out := make([]Entry[K, V], 0)
	for i, k := range m.keys {
		if contains(k) {
			out = append(out, Entry[K, V]{Key: k, Val: m.vals[i]})
		}
	}
	return out
}

// All returns every entry in ascending order.
func (m *Map[K, V]) All() []Entry[K, V] {
	return m.Range(func(K) bool { return true })
}
