// Package omap provides an insertion-ordered map.
//
// Block ports, children and assignment pools are iterated in the order they
// were added. Wiring resolution and prefixing walk these containers, so the
// iteration order is part of the compiler's observable behaviour.
package omap

import orderedmap "github.com/wk8/go-ordered-map/v2"

// Map is a map that remembers insertion order. Re-setting an existing key
// keeps its original position. The zero value is ready to use.
type Map[K comparable, V any] struct {
	om *orderedmap.OrderedMap[K, V]
}

// New returns an empty map.
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{om: orderedmap.New[K, V]()}
}

func (m *Map[K, V]) Len() int {
	if m == nil {
		return 0
	}
	return m.om.Len()
}

func (m *Map[K, V]) Get(k K) (V, bool) {
	if m == nil || m.om == nil {
		var zero V
		return zero, false
	}
	return m.om.Get(k)
}

func (m *Map[K, V]) Has(k K) bool {
	_, ok := m.Get(k)
	return ok
}

// Set inserts or replaces the value for k.
func (m *Map[K, V]) Set(k K, v V) {
	if m.om == nil {
		m.om = orderedmap.New[K, V]()
	}
	m.om.Set(k, v)
}

// Delete removes k and reports whether it was present.
func (m *Map[K, V]) Delete(k K) bool {
	_, ok := m.Pop(k)
	return ok
}

// Pop removes k and returns its value.
func (m *Map[K, V]) Pop(k K) (V, bool) {
	if m == nil || m.om == nil {
		var zero V
		return zero, false
	}
	return m.om.Delete(k)
}

// Keys returns a copy of the keys in insertion order.
func (m *Map[K, V]) Keys() []K {
	if m == nil {
		return nil
	}
	out := make([]K, 0, m.Len())
	for p := m.om.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

// Values returns a copy of the values in insertion order.
func (m *Map[K, V]) Values() []V {
	if m == nil {
		return nil
	}
	out := make([]V, 0, m.Len())
	for p := m.om.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Value)
	}
	return out
}

// Each calls fn for every entry in insertion order until fn returns false.
// Entries removed by fn before they are reached are skipped.
func (m *Map[K, V]) Each(fn func(k K, v V) bool) {
	for _, k := range m.Keys() {
		v, ok := m.Get(k)
		if !ok {
			continue
		}
		if !fn(k, v) {
			return
		}
	}
}

// Clone returns a shallow copy.
func (m *Map[K, V]) Clone() *Map[K, V] {
	c := New[K, V]()
	m.Each(func(k K, v V) bool {
		c.Set(k, v)
		return true
	})
	return c
}
