package aggregator

import "github.com/Budskyman/BigData-Praktikum-2025/domain"

// WithComparer sets the comparer used for sorting and grouping.
func WithComparer(c domain.Comparer) Option {
	return func(a *Aggregator) {
		a.comparer = c
	}
}

// WithHasher sets the hasher used to partition groups. It must agree with
// the comparer.
func WithHasher(h domain.Hasher) Option {
	return func(a *Aggregator) {
		a.hasher = h
	}
}

// WithMatcherFactory sets the function compiling match stages that do not
// open the pipeline.
func WithMatcherFactory(f domain.MatcherFactory) Option {
	return func(a *Aggregator) {
		a.matcherFactory = f
	}
}

// Option configures aggregator behavior through the functional options
// pattern.
type Option func(*Aggregator)
