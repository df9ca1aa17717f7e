// Package ctxsync provides locks whose acquisition can be abandoned when a
// context is done. The datastore registry, each persistence log and the
// storage providers hold a [Mutex]; collections guard their state with an
// [RWMutex].
package ctxsync

import (
	"context"
)

// NewMutex returns an unlocked Mutex.
func NewMutex() *Mutex {
	return &Mutex{held: make(chan struct{}, 1)}
}

// Mutex serializes callers that may give up waiting, such as a registry
// lookup whose request was canceled. Holding it means owning the single slot
// of held. It must be created with [NewMutex] and must not be copied.
type Mutex struct {
	held chan struct{}
}

// Lock waits for m without a deadline. It is meant for shutdown paths that
// must run to completion.
func (m *Mutex) Lock() {
	_ = m.LockWithContext(context.Background())
}

// LockWithContext takes m, or returns ctx.Err() once ctx is done while it
// waits. When ctx is already done it fails even if m is free, so a canceled
// caller never mutates shared state.
func (m *Mutex) LockWithContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case m.held <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryLock takes m only if nobody holds it.
func (m *Mutex) TryLock() bool {
	select {
	case m.held <- struct{}{}:
		return true
	default:
		return false
	}
}

// Unlock releases m. Any goroutine may release it, not only the one that
// took it. Releasing a free Mutex panics.
func (m *Mutex) Unlock() {
	select {
	case <-m.held:
	default:
		panic("ctxsync: unlock of unlocked mutex")
	}
}
