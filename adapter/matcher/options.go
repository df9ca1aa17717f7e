package matcher

import "github.com/Budskyman/BigData-Praktikum-2025/domain"

// WithComparer sets the comparer used to test values.
func WithComparer(c domain.Comparer) Option {
	return func(m *Matcher) {
		m.comparer = c
	}
}

// Option configures behavior through the functional options pattern.
type Option func(*Matcher)
