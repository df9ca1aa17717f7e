package docstore

import "github.com/Budskyman/BigData-Praktikum-2025/domain"

// WithIDGenerator sets the identifier sequence of the store.
func WithIDGenerator(g domain.IDGenerator) Option {
	return func(s *Store) {
		s.idGenerator = g
	}
}

// WithModifier sets the modifier used by updates.
func WithModifier(m domain.Modifier) Option {
	return func(s *Store) {
		s.modifier = m
	}
}

// Option configures behavior through the functional options pattern.
type Option func(*Store)
