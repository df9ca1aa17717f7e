// Package aggregator contains the default [domain.Aggregator]
// implementation.
//
// A pipeline is validated as a whole before any stage runs. A leading match
// stage is handed to the querier so it can use indexes; every other stage
// works on the documents produced by the previous one.
package aggregator

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/Budskyman/BigData-Praktikum-2025/adapter/comparer"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/data"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/hasher"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/index"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/matcher"
	"github.com/Budskyman/BigData-Praktikum-2025/adapter/querier"
	"github.com/Budskyman/BigData-Praktikum-2025/domain"
	"github.com/Budskyman/BigData-Praktikum-2025/pkg/uncomparable"
)

// GroupKey is the field holding the grouping key in group results.
const GroupKey = "_id"

// Aggregator implements [domain.Aggregator].
type Aggregator struct {
	querier        domain.Querier
	comparer       domain.Comparer
	hasher         domain.Hasher
	matcherFactory domain.MatcherFactory
}

// NewAggregator returns a new implementation of [domain.Aggregator] reading
// its input through q.
func NewAggregator(q domain.Querier, opts ...Option) domain.Aggregator {
	a := Aggregator{
		querier:  q,
		comparer: comparer.NewComparer(),
		hasher:   hasher.NewHasher(),
	}
	for _, opt := range opts {
		opt(&a)
	}
	if a.matcherFactory == nil {
		c := a.comparer
		a.matcherFactory = func(f domain.Filter) (domain.Matcher, error) {
			return matcher.NewMatcher(f, matcher.WithComparer(c))
		}
	}
	return &a
}

type stageFunc func([]*domain.Document) ([]*domain.Document, error)

// Aggregate implements [domain.Aggregator].
func (a *Aggregator) Aggregate(ctx context.Context, p domain.Pipeline) ([]*domain.Document, error) {
	var filter domain.Filter
	if len(p) > 0 && p[0].Match != nil {
		filter = *p[0].Match
		p = p[1:]
	}

	stages := make([]stageFunc, len(p))
	for n, st := range p {
		f, err := a.compile(st)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", n, err)
		}
		stages[n] = f
	}

	entries, err := a.querier.Candidates(filter)
	if err != nil {
		return nil, err
	}
	docs := make([]*domain.Document, len(entries))
	for n, e := range entries {
		docs[n] = e.Doc
	}

	for _, f := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if docs, err = f(docs); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func (a *Aggregator) compile(st domain.Stage) (stageFunc, error) {
	set := 0
	for _, ok := range []bool{st.Match != nil, st.Group != nil, len(st.Sort) > 0, st.Skip != 0, st.Limit != 0} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: a stage must do exactly one thing, found %d", domain.ErrInvalidFilter, set)
	}

	switch {
	case st.Match != nil:
		m, err := a.matcherFactory(*st.Match)
		if err != nil {
			return nil, err
		}
		return func(docs []*domain.Document) ([]*domain.Document, error) {
			return slices.DeleteFunc(docs, func(d *domain.Document) bool {
				return !m.Match(d)
			}), nil
		}, nil
	case st.Group != nil:
		if err := checkGroup(st.Group); err != nil {
			return nil, err
		}
		return func(docs []*domain.Document) ([]*domain.Document, error) {
			return a.group(docs, st.Group)
		}, nil
	case len(st.Sort) > 0:
		cmpFn, err := querier.SortFunc(a.comparer, st.Sort)
		if err != nil {
			return nil, err
		}
		return func(docs []*domain.Document) ([]*domain.Document, error) {
			slices.SortStableFunc(docs, cmpFn)
			return docs, nil
		}, nil
	case st.Skip != 0:
		if st.Skip < 0 {
			return nil, fmt.Errorf("%w: negative skip", domain.ErrInvalidFilter)
		}
		return func(docs []*domain.Document) ([]*domain.Document, error) {
			return querier.Page(docs, st.Skip, 0), nil
		}, nil
	default:
		if st.Limit < 0 {
			return nil, fmt.Errorf("%w: negative limit", domain.ErrInvalidFilter)
		}
		return func(docs []*domain.Document) ([]*domain.Document, error) {
			return querier.Page(docs, 0, st.Limit), nil
		}, nil
	}
}

func checkGroup(g *domain.GroupStage) error {
	if err := index.CheckFieldPath(g.By); err != nil {
		return fmt.Errorf("group: %w", err)
	}
	seen := make(map[string]bool, len(g.Accumulators))
	for _, acc := range g.Accumulators {
		if err := data.CheckFieldName(acc.Name); err != nil || acc.Name == GroupKey {
			return fmt.Errorf("%w: invalid accumulator name %q", domain.ErrInvalidFilter, acc.Name)
		}
		if seen[acc.Name] {
			return fmt.Errorf("%w: duplicate accumulator %q", domain.ErrInvalidFilter, acc.Name)
		}
		seen[acc.Name] = true

		switch acc.Func {
		case domain.AccCount:
			continue
		case domain.AccAvg, domain.AccSum, domain.AccMin, domain.AccMax:
			if err := index.CheckFieldPath(acc.Field); err != nil {
				return fmt.Errorf("accumulator %q: %w", acc.Name, err)
			}
		default:
			return fmt.Errorf("%w: unknown accumulator function %q", domain.ErrInvalidFilter, acc.Func)
		}
	}
	return nil
}

type group struct {
	key   domain.Value
	count int
	accs  []numeric
}

// numeric accumulates the numeric values of one field. Other values are
// ignored.
type numeric struct {
	n        int
	sum      float64
	min, max float64
}

func (s *numeric) add(v domain.Value) {
	f, ok := v.Num()
	if !ok {
		return
	}
	if s.n == 0 || f < s.min {
		s.min = f
	}
	if s.n == 0 || f > s.max {
		s.max = f
	}
	s.n++
	s.sum += f
}

// result fails with [domain.ErrResourceExhausted] when the sum behind $sum or
// $avg leaves the float64 range.
func (s *numeric) result(fn domain.AccumulatorFunc, field string) (domain.Value, error) {
	if s.n == 0 {
		return domain.Null(), nil
	}
	switch fn {
	case domain.AccAvg, domain.AccSum:
		if math.IsInf(s.sum, 0) {
			return domain.Undefined(), fmt.Errorf("%w: %s of %q overflows", domain.ErrResourceExhausted, fn, field)
		}
		if fn == domain.AccAvg {
			return domain.Number(s.sum / float64(s.n)), nil
		}
		return domain.Number(s.sum), nil
	case domain.AccMin:
		return domain.Number(s.min), nil
	default:
		return domain.Number(s.max), nil
	}
}

// group partitions docs by the value of g.By. Documents missing it fall in
// the null group. Groups come out in order of first appearance.
func (a *Aggregator) group(docs []*domain.Document, g *domain.GroupStage) ([]*domain.Document, error) {
	groups := uncomparable.New[*group](a.hasher, a.comparer)
	for _, doc := range docs {
		key := doc.Lookup(g.By)
		if key.IsUndefined() {
			key = domain.Null()
		}
		grp, ok := groups.Get(key)
		if !ok {
			grp = &group{key: key, accs: make([]numeric, len(g.Accumulators))}
			groups.Set(key, grp)
		}
		grp.count++
		for n, acc := range g.Accumulators {
			if acc.Func != domain.AccCount {
				grp.accs[n].add(doc.Lookup(acc.Field))
			}
		}
	}

	res := make([]*domain.Document, 0, groups.Len())
	for grp := range groups.Values() {
		out := domain.NewDocument()
		out.Set(GroupKey, grp.key.Clone())
		for n, acc := range g.Accumulators {
			if acc.Func == domain.AccCount {
				out.Set(acc.Name, domain.Number(float64(grp.count)))
				continue
			}
			v, err := grp.accs[n].result(acc.Func, acc.Field)
			if err != nil {
				return nil, err
			}
			out.Set(acc.Name, v)
		}
		res = append(res, out)
	}
	return res, nil
}
