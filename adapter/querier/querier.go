// Package querier contains the default [domain.Querier] implementation.
package querier

import (
	"context"
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/comparer"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/index"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/matcher"
	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

// Querier implements [domain.Querier].
type Querier struct {
	store          domain.DocumentStore
	indexes        domain.IndexManager
	matcherFactory domain.MatcherFactory
	comparer       domain.Comparer
}

// NewQuerier returns a new implementation of [domain.Querier] reading from
// store and planning lookups with indexes.
func NewQuerier(store domain.DocumentStore, indexes domain.IndexManager, opts ...Option) domain.Querier {
	q := Querier{
		store:    store,
		indexes:  indexes,
		comparer: comparer.NewComparer(),
	}
	for _, opt := range opts {
		opt(&q)
	}
	if q.matcherFactory == nil {
		c := q.comparer
		q.matcherFactory = func(f domain.Filter) (domain.Matcher, error) {
			return matcher.NewMatcher(f, matcher.WithComparer(c))
		}
	}
	return &q
}

// Query implements [domain.Querier]. Results are copies of the stored
// documents.
func (q *Querier) Query(ctx context.Context, qry domain.Query) ([]domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if qry.Skip < 0 || qry.Limit < 0 {
		return nil, fmt.Errorf("%w: negative skip or limit", domain.ErrInvalidFilter)
	}
	cmpFn, err := SortFunc(q.comparer, qry.Sort)
	if err != nil {
		return nil, err
	}

	res, err := q.Candidates(qry.Filter)
	if err != nil {
		return nil, err
	}

	if cmpFn != nil {
		slices.SortStableFunc(res, func(a, b domain.Entry) int {
			return cmpFn(a.Doc, b.Doc)
		})
	}
	return Page(res, qry.Skip, qry.Limit), nil
}

// Candidates implements [domain.Querier]. It returns copies of every
// document matching f in ascending identifier order.
func (q *Querier) Candidates(f domain.Filter) ([]domain.Entry, error) {
	m, err := q.matcherFactory(f)
	if err != nil {
		return nil, err
	}

	ids, err := q.plan(f)
	if err != nil {
		return nil, err
	}

	var res []domain.Entry
	if ids == nil {
		for id, doc := range q.store.Scan() {
			if m.Match(doc) {
				res = append(res, domain.Entry{ID: id, Doc: doc.Clone()})
			}
		}
		return res, nil
	}

	it := ids.Iterator()
	for it.HasNext() {
		id := domain.ID(it.Next())
		doc, err := q.store.Get(id)
		if err != nil {
			return nil, err
		}
		if m.Match(doc) {
			res = append(res, domain.Entry{ID: id, Doc: doc})
		}
	}
	return res, nil
}

// plan returns the candidate identifiers given by the indexes, or nil when
// the whole store must be scanned. Equality conditions are intersected;
// without them the first indexed range condition is used.
func (q *Querier) plan(f domain.Filter) (*roaring.Bitmap, error) {
	var res *roaring.Bitmap
	for _, c := range f {
		if !q.indexes.HasIndex(c.Field) {
			continue
		}
		var values []domain.Value
		switch c.Op {
		case domain.OpEq:
			values = []domain.Value{c.Value}
		case domain.OpIn:
			values = c.Value.Items()
		default:
			continue
		}

		bm := roaring.New()
		for _, v := range values {
			found, err := q.indexes.Lookup(c.Field, v)
			if err != nil {
				return nil, fmt.Errorf("looking up %q: %w", c.Field, err)
			}
			bm.Or(found)
		}
		if res == nil {
			res = bm
		} else {
			res.And(bm)
		}
	}
	if res != nil {
		return res, nil
	}

	for _, c := range f {
		if !q.indexes.HasIndex(c.Field) {
			continue
		}
		var low, high *domain.Bound
		switch c.Op {
		case domain.OpGt, domain.OpGte:
			low = &domain.Bound{Value: c.Value, Inclusive: c.Op == domain.OpGte}
		case domain.OpLt, domain.OpLte:
			high = &domain.Bound{Value: c.Value, Inclusive: c.Op == domain.OpLte}
		default:
			continue
		}
		ids, err := q.indexes.RangeLookup(c.Field, low, high)
		if err != nil {
			return nil, fmt.Errorf("range lookup on %q: %w", c.Field, err)
		}
		res = roaring.New()
		for _, id := range ids {
			res.Add(uint32(id))
		}
		return res, nil
	}
	return nil, nil
}

// SortFunc returns a comparison of documents by s. Missing fields sort
// before present ones in ascending order. It returns nil for an empty sort.
func SortFunc(c domain.Comparer, s domain.Sort) (func(a, b *domain.Document) int, error) {
	if len(s) == 0 {
		return nil, nil
	}
	for _, crit := range s {
		if err := index.CheckFieldPath(crit.Field); err != nil {
			return nil, fmt.Errorf("sort: %w", err)
		}
	}
	return func(a, b *domain.Document) int {
		for _, crit := range s {
			comp := c.Compare(a.Lookup(crit.Field), b.Lookup(crit.Field))
			if crit.Desc {
				comp = -comp
			}
			if comp != 0 {
				return comp
			}
		}
		return 0
	}, nil
}

// Page drops the first skip items and keeps at most limit of the rest. Zero
// limit keeps everything.
func Page[T any](data []T, skip, limit int) []T {
	skip = min(max(skip, 0), len(data))
	data = data[skip:]
	if limit > 0 && limit < len(data) {
		data = data[:limit]
	}
	return data
}
