package querier

import "github.com/Budskyman/BigData-Praktikum-2025/domain"

// WithMatcherFactory sets the function compiling filters into matchers.
func WithMatcherFactory(f domain.MatcherFactory) Option {
	return func(q *Querier) {
		q.matcherFactory = f
	}
}

// WithComparer sets the comparer implementation for sorting operations.
func WithComparer(c domain.Comparer) Option {
	return func(q *Querier) {
		q.comparer = c
	}
}

// Option configures querier behavior through the functional options
// pattern.
type Option func(*Querier)
