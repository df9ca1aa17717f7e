package index

import "github.com/Budskyman/BigData-Praktikum-2025/domain"

// WithFieldName sets the indexed field. Dotted paths are allowed.
func WithFieldName(f string) Option {
	return func(i *Index) {
		i.fieldName = f
	}
}

// WithUnique makes the index reject two documents with the same key.
func WithUnique(u bool) Option {
	return func(i *Index) {
		i.unique = u
	}
}

// WithComparer sets the comparer ordering the keys.
func WithComparer(c domain.Comparer) Option {
	return func(i *Index) {
		i.comparer = c
	}
}

// Option configures behavior through the functional options pattern.
type Option func(*Index)
