// Package matcher contains the default [domain.Matcher] implementation.
//
// Filters are compiled once and checked for errors up front, so matching a
// document never fails. Field values are read the same way indexes read them:
// a missing field counts as null and a list matches through itself and
// through each of its elements. This keeps index lookups and full scans in
// agreement.
package matcher

import (
	"fmt"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/comparer"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/index"
	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

// Matcher implements [domain.Matcher].
type Matcher struct {
	conditions []condition
	comparer   domain.Comparer
}

type condition struct {
	field  string
	op     domain.Op
	values []domain.Value
	low    *domain.Bound
	high   *domain.Bound
	exists bool
}

// NewMatcher compiles f into a [domain.Matcher]. An empty filter matches
// every document.
func NewMatcher(f domain.Filter, opts ...Option) (domain.Matcher, error) {
	m := Matcher{
		comparer: comparer.NewComparer(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	for n, c := range f {
		compiled, err := compile(c)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", n, err)
		}
		m.conditions = append(m.conditions, compiled)
	}
	return &m, nil
}

func compile(c domain.Condition) (condition, error) {
	if err := index.CheckFieldPath(c.Field); err != nil {
		return condition{}, err
	}
	res := condition{field: c.Field, op: c.Op}
	kind := c.Value.Kind()
	if kind == domain.KindUndefined {
		return condition{}, fmt.Errorf("%w: %s on %q has no value", domain.ErrInvalidFilter, c.Op, c.Field)
	}

	var err error
	switch c.Op {
	case domain.OpEq, domain.OpNe:
		res.values = []domain.Value{c.Value}
	case domain.OpGt, domain.OpGte:
		res.low, res.high, err = index.Bracket(&domain.Bound{Value: c.Value, Inclusive: c.Op == domain.OpGte}, nil)
	case domain.OpLt, domain.OpLte:
		res.low, res.high, err = index.Bracket(nil, &domain.Bound{Value: c.Value, Inclusive: c.Op == domain.OpLte})
	case domain.OpIn, domain.OpNin:
		if kind != domain.KindList {
			return condition{}, fmt.Errorf("%w: %s on %q needs a list, got %s", domain.ErrInvalidFilter, c.Op, c.Field, kind)
		}
		res.values = c.Value.Items()
	case domain.OpExists:
		b, ok := c.Value.Boolean()
		if !ok {
			return condition{}, fmt.Errorf("%w: %s on %q needs a bool, got %s", domain.ErrInvalidFilter, c.Op, c.Field, kind)
		}
		res.exists = b
	default:
		return condition{}, fmt.Errorf("%w: unknown operator %q", domain.ErrInvalidFilter, c.Op)
	}
	if err != nil {
		return condition{}, err
	}
	return res, nil
}

// Match implements [domain.Matcher].
func (m *Matcher) Match(doc *domain.Document) bool {
	for _, c := range m.conditions {
		if !m.matchCondition(doc, c) {
			return false
		}
	}
	return true
}

func (m *Matcher) matchCondition(doc *domain.Document, c condition) bool {
	switch c.op {
	case domain.OpExists:
		return doc.Lookup(c.field).IsUndefined() != c.exists
	case domain.OpEq, domain.OpIn:
		return m.anyEqual(doc, c)
	case domain.OpNe, domain.OpNin:
		return !m.anyEqual(doc, c)
	default:
		for _, k := range index.Keys(m.comparer, doc, c.field) {
			if index.InBounds(m.comparer, k, c.low, c.high) {
				return true
			}
		}
		return false
	}
}

func (m *Matcher) anyEqual(doc *domain.Document, c condition) bool {
	for _, k := range index.Keys(m.comparer, doc, c.field) {
		for _, v := range c.values {
			if m.comparer.Compare(k, v) == 0 {
				return true
			}
		}
	}
	return false
}
