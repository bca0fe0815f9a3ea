package coll

import "sort"

// VecMap is a small ordered map backed by a sorted slice of key/value
// pairs — the original's choice for maps expected to stay small (a few
// dozen entries), where a sorted-slice scan beats a tree's constant
// overhead (orig: Kernel/Core/lib/collections/vec_map.rs).
type VecMap[K Ordered, V any] struct {
	pairs []pair[K, V]
}

type pair[K Ordered, V any] struct {
	key K
	val V
}

// Ordered is satisfied by any key type VecMap/BTreeMap can binary-search.
type Ordered interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64 | ~string
}

func (m *VecMap[K, V]) search(key K) (int, bool) {
	i := sort.Search(len(m.pairs), func(i int) bool { return !(m.pairs[i].key < key) })
	if i < len(m.pairs) && m.pairs[i].key == key {
		return i, true
	}
	return i, false
}

// Insert sets key to val, returning the previous value if any.
func (m *VecMap[K, V]) Insert(key K, val V) (V, bool) {
	i, found := m.search(key)
	if found {
		old := m.pairs[i].val
		m.pairs[i].val = val
		return old, true
	}
	m.pairs = append(m.pairs, pair[K, V]{})
	copy(m.pairs[i+1:], m.pairs[i:])
	m.pairs[i] = pair[K, V]{key: key, val: val}
	var zero V
	return zero, false
}

// Get looks up key.
func (m *VecMap[K, V]) Get(key K) (V, bool) {
	if i, found := m.search(key); found {
		return m.pairs[i].val, true
	}
	var zero V
	return zero, false
}

// Remove deletes key, reporting whether it was present.
func (m *VecMap[K, V]) Remove(key K) (V, bool) {
	i, found := m.search(key)
	if !found {
		var zero V
		return zero, false
	}
	v := m.pairs[i].val
	m.pairs = append(m.pairs[:i], m.pairs[i+1:]...)
	return v, true
}

// Len reports the number of entries.
func (m *VecMap[K, V]) Len() int { return len(m.pairs) }

// Keys returns the keys in ascending order.
func (m *VecMap[K, V]) Keys() []K {
	out := make([]K, len(m.pairs))
	for i, p := range m.pairs {
		out[i] = p.key
	}
	return out
}

// Each calls fn for every entry in ascending key order.
func (m *VecMap[K, V]) Each(fn func(key K, val V)) {
	for _, p := range m.pairs {
		fn(p.key, p.val)
	}
}
