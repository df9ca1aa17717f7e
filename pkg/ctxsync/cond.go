package ctxsync

import (
	"context"
	"sync"
	"sync/atomic"
	"unsafe"
)

// Cond implements a condition variable, a rendezvous point for goroutines
// waiting for or announcing the occurrence of an event.
//
// Each Cond has an associated Locker L (often a [*Mutex] or [*RWMutex]),
// which must be held when changing the condition and when calling the
// [Cond.WaitWithContext] method.
//
// Only [Cond.Broadcast] is offered: every waiter is woken and must recheck
// the condition.
//
// A Cond must not be copied after first use.
type Cond struct {
	noCopy noCopy

	// L is held while observing or changing the condition
	L sync.Locker

	mu      sync.Mutex
	notify  chan struct{}
	waiters atomic.Int64
	checker copyChecker
}

// NewCond returns a new Cond with Locker l.
func NewCond(l sync.Locker) *Cond {
	return &Cond{L: l, notify: make(chan struct{})}
}

// Wait releases c.L and blocks until awoken by Broadcast.
// It is equivalent to WaitWithContext(context.Background()).
func (c *Cond) Wait() {
	_ = c.WaitWithContext(context.Background())
}

// WaitWithContext releases c.L and blocks until awoken by Broadcast or
// context cancellation. Reacquires c.L before returning. Should be used in a
// loop that checks the condition.
func (c *Cond) WaitWithContext(ctx context.Context) error {
	c.checker.check()
	if err := ctx.Err(); err != nil {
		return err
	}

	// The channel is taken while c.L is still held so that a Broadcast issued
	// after the condition changes is never missed.
	c.mu.Lock()
	ch := c.notify
	c.mu.Unlock()

	c.waiters.Add(1)
	c.L.Unlock()

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case <-ch:
	}
	c.waiters.Add(-1)
	c.L.Lock()
	return err
}

// Broadcast wakes all waiting goroutines, if any.
// The caller does not need to hold c.L.
func (c *Cond) Broadcast() {
	c.checker.check()
	c.mu.Lock()
	close(c.notify)
	c.notify = make(chan struct{})
	c.mu.Unlock()
}

// WaiterCount returns the number of goroutines currently waiting.
func (c *Cond) WaiterCount() int64 {
	return c.waiters.Load()
}

// copyChecker holds back pointer to itself to detect object copying.
type copyChecker uintptr

func (c *copyChecker) check() {
	// Fast path: initialized and not copied. Otherwise initialize it, and if
	// that fails check again, since a concurrent initialization may have won.
	if uintptr(*c) != uintptr(unsafe.Pointer(c)) &&
		!atomic.CompareAndSwapUintptr((*uintptr)(c), 0, uintptr(unsafe.Pointer(c))) &&
		uintptr(*c) != uintptr(unsafe.Pointer(c)) {
		panic("ctxsync.Cond is copied")
	}
}

// noCopy may be added to structs which must not be copied after the first
// use. It must not be embedded, due to the Lock and Unlock methods.
type noCopy struct{}

// Lock is a no-op used by -copylocks checker from `go vet`.
func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
