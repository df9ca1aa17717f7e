// Package hasher contains the default [domain.Hasher] implementation. Values
// are written in a canonical binary form (one kind byte followed by the
// payload) and hashed with FNV-64a, so equal values under the default
// comparer always share a hash.
package hasher

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
	"math"

	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

// Hasher implements [domain.Hasher].
type Hasher struct{}

// NewHasher returns a new implementation of [domain.Hasher].
func NewHasher() domain.Hasher {
	return &Hasher{}
}

// Hash implements domain.Hasher.
func (h *Hasher) Hash(value domain.Value) uint64 {
	hasher := fnv.New64a()
	h.write(hasher, value)
	return hasher.Sum64()
}

// AppendValue appends the canonical encoding of v to b.
func AppendValue(b []byte, v domain.Value) []byte {
	b = append(b, byte(v.Kind()))
	switch v.Kind() {
	case domain.KindNumber:
		f, _ := v.Num()
		if f == 0 {
			f = 0 // normalizes -0
		}
		b = binary.BigEndian.AppendUint64(b, math.Float64bits(f))
	case domain.KindString:
		s, _ := v.Str()
		b = binary.AppendUvarint(b, uint64(len(s)))
		b = append(b, s...)
	case domain.KindBool:
		if t, _ := v.Boolean(); t {
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
	case domain.KindList:
		items := v.Items()
		b = binary.AppendUvarint(b, uint64(len(items)))
		for _, item := range items {
			b = AppendValue(b, item)
		}
	case domain.KindDocument:
		d := v.Document()
		b = binary.AppendUvarint(b, uint64(d.Len()))
		for k, field := range d.Iter() {
			b = binary.AppendUvarint(b, uint64(len(k)))
			b = append(b, k...)
			b = AppendValue(b, field)
		}
	}
	return b
}

func (h *Hasher) write(w hash.Hash64, v domain.Value) {
	_, _ = w.Write(AppendValue(nil, v)) // fnv never returns error
}
