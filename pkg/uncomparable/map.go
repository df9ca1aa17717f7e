// Package uncomparable contains a map keyed by [domain.Value], which is not
// [comparable], using the given hasher and comparer. Iteration follows the
// order in which keys were first set.
package uncomparable

import (
	"iter"
	"slices"

	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

const maxLoad = 4

// Map represents a map[domain.Value]T.
type Map[T any] struct {
	buckets  [][]*entry[T]
	entries  []*entry[T]
	hasher   domain.Hasher
	comparer domain.Comparer
	length   int
}

type entry[T any] struct {
	key   domain.Value
	value T
	live  bool
}

// New returns a new instance of [Map] with the given [domain.Hasher] and
// [domain.Comparer]. Keys equal for the comparer must have the same hash.
func New[T any](hasher domain.Hasher, comparer domain.Comparer) *Map[T] {
	return &Map[T]{
		buckets:  make([][]*entry[T], 8),
		hasher:   hasher,
		comparer: comparer,
	}
}

func (m *Map[T]) bucketIndex(key domain.Value) uint64 {
	return m.hasher.Hash(key) % uint64(len(m.buckets))
}

func (m *Map[T]) find(key domain.Value) (uint64, int) {
	b := m.bucketIndex(key)
	for n, e := range m.buckets[b] {
		if m.comparer.Compare(key, e.key) == 0 {
			return b, n
		}
	}
	return b, -1
}

// Get returns the value for the given key with a bool to indicate whether it
// exists in the map or not.
func (m *Map[T]) Get(key domain.Value) (T, bool) {
	b, n := m.find(key)
	if n < 0 {
		return *new(T), false
	}
	return m.buckets[b][n].value, true
}

// Set adds or replaces the given key in the map. Replacing keeps the key's
// position in the iteration order.
func (m *Map[T]) Set(key domain.Value, value T) {
	b, n := m.find(key)
	if n >= 0 {
		m.buckets[b][n].value = value
		return
	}
	e := &entry[T]{key: key, value: value, live: true}
	m.buckets[b] = append(m.buckets[b], e)
	m.entries = append(m.entries, e)
	m.length++
	if m.length > maxLoad*len(m.buckets) {
		m.grow()
	}
}

func (m *Map[T]) grow() {
	m.buckets = make([][]*entry[T], len(m.buckets)*2)
	for _, e := range m.entries {
		if e.live {
			b := m.bucketIndex(e.key)
			m.buckets[b] = append(m.buckets[b], e)
		}
	}
}

// Delete removes a given key from the map, if it exists.
func (m *Map[T]) Delete(key domain.Value) {
	b, n := m.find(key)
	if n < 0 {
		return
	}
	m.buckets[b][n].live = false
	m.buckets[b] = slices.Delete(m.buckets[b], n, n+1)
	m.length--
	if len(m.entries) > 2*m.length {
		m.entries = slices.DeleteFunc(m.entries, func(e *entry[T]) bool {
			return !e.live
		})
	}
}

// Len returns the amount of stored values.
func (m *Map[T]) Len() int {
	return m.length
}

// Keys returns the stored keys in insertion order.
func (m *Map[T]) Keys() iter.Seq[domain.Value] {
	return func(yield func(domain.Value) bool) {
		for k := range m.Iter() {
			if !yield(k) {
				return
			}
		}
	}
}

// Values returns the stored values in insertion order.
func (m *Map[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, v := range m.Iter() {
			if !yield(v) {
				return
			}
		}
	}
}

// Iter returns the key+value pairs in insertion order.
func (m *Map[T]) Iter() iter.Seq2[domain.Value, T] {
	return func(yield func(domain.Value, T) bool) {
		for _, e := range m.entries {
			if !e.live {
				continue
			}
			if !yield(e.key, e.value) {
				return
			}
		}
	}
}
