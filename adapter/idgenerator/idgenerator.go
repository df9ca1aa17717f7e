// Package idgenerator contains the default [domain.IDGenerator]
// implementation, a monotonic sequence over the uint32 identifier space.
package idgenerator

import (
	"fmt"
	"math"
	"sync"

	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

// IDGenerator implements [domain.IDGenerator].
type IDGenerator struct {
	mu   sync.Mutex
	next uint64
	max  uint64
}

// NewIDGenerator returns a new implementation of [domain.IDGenerator].
func NewIDGenerator(opts ...Option) domain.IDGenerator {
	i := IDGenerator{
		next: 1,
		max:  math.MaxUint32,
	}
	for _, opt := range opts {
		opt(&i)
	}
	return &i
}

// GenerateID implements [domain.IDGenerator].
func (i *IDGenerator) GenerateID() (domain.ID, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.next > i.max {
		return 0, fmt.Errorf("%w: identifier space of %d ids is used up", domain.ErrResourceExhausted, i.max)
	}
	id := domain.ID(i.next)
	i.next++
	return id, nil
}

// Observe implements [domain.IDGenerator].
func (i *IDGenerator) Observe(id domain.ID) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if uint64(id) >= i.next {
		i.next = uint64(id) + 1
	}
}
