// Package comparer contains the default [domain.Comparer] implementation.
package comparer

import (
	"cmp"
	"strings"

	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

// Comparer implements [domain.Comparer]. Values of different kinds are ordered
// by kind: undefined, null, numbers, strings, booleans, lists and documents.
type Comparer struct{}

// NewComparer returns a new implementation of domain.Comparer.
func NewComparer() domain.Comparer {
	return &Comparer{}
}

// Compare implements [domain.Comparer].
func (c *Comparer) Compare(a, b domain.Value) int {
	if a.Kind() != b.Kind() {
		return cmp.Compare(a.Kind(), b.Kind())
	}

	switch a.Kind() {
	case domain.KindNumber:
		x, _ := a.Num()
		y, _ := b.Num()
		// -0 and 0 are equal here, cmp.Compare agrees
		return cmp.Compare(x, y)
	case domain.KindString:
		x, _ := a.Str()
		y, _ := b.Str()
		return strings.Compare(x, y)
	case domain.KindBool:
		x, _ := a.Boolean()
		y, _ := b.Boolean()
		return compareBools(x, y)
	case domain.KindList:
		return c.compareLists(a.Items(), b.Items())
	case domain.KindDocument:
		return c.compareDocuments(a.Document(), b.Document())
	}
	// undefined and null
	return 0
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func (c *Comparer) compareLists(a, b []domain.Value) int {
	for n := range min(len(a), len(b)) {
		if comp := c.Compare(a[n], b[n]); comp != 0 {
			return comp
		}
	}
	return cmp.Compare(len(a), len(b))
}

// documents compare field by field in stored order: first the names, then
// the values.
func (c *Comparer) compareDocuments(a, b *domain.Document) int {
	ak, bk := a.Keys(), b.Keys()
	for n := range min(len(ak), len(bk)) {
		if comp := strings.Compare(ak[n], bk[n]); comp != 0 {
			return comp
		}
		av, _ := a.Get(ak[n])
		bv, _ := b.Get(bk[n])
		if comp := c.Compare(av, bv); comp != 0 {
			return comp
		}
	}
	return cmp.Compare(len(ak), len(bk))
}
