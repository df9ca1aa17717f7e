package modifier

// WithAllowEmpty makes updates without fields a no-op instead of an error.
func WithAllowEmpty(a bool) Option {
	return func(m *Modifier) {
		m.allowEmpty = a
	}
}

// Option configures behavior through the functional options pattern.
type Option func(*Modifier)
