package idgenerator

// WithStart sets the first identifier handed out.
func WithStart(start uint32) Option {
	return func(ig *IDGenerator) {
		ig.next = uint64(start)
	}
}

// WithMax limits the identifier space. It is mostly useful in tests.
func WithMax(m uint32) Option {
	return func(ig *IDGenerator) {
		ig.max = uint64(m)
	}
}

// Option configures behavior through the functional options pattern.
type Option func(*IDGenerator)
