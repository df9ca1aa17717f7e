package ctxsync

import (
	"context"
	"sync"
)

// An RWMutex is a reader/writer mutual exclusion lock that prefers writers:
// once a writer is waiting, new readers wait until it has been served. As with
// [sync.RWMutex], a goroutine must not take a read lock it already holds.
//
// The zero value is an unlocked mutex.
type RWMutex struct {
	mu             sync.Mutex
	readers        int
	writer         bool
	waitingWriters int
	// changed is closed and replaced on every state change.
	changed chan struct{}
}

// NewRWMutex creates a new instance of RWMutex.
func NewRWMutex() *RWMutex {
	return &RWMutex{changed: make(chan struct{})}
}

func (m *RWMutex) wait() <-chan struct{} {
	if m.changed == nil {
		m.changed = make(chan struct{})
	}
	return m.changed
}

func (m *RWMutex) broadcast() {
	if m.changed != nil {
		close(m.changed)
		m.changed = nil
	}
}

// RLock locks m for reading with a context.Background().
func (m *RWMutex) RLock() {
	_ = m.RLockWithContext(context.Background())
}

// RLockWithContext locks m for reading, waiting while a writer holds or waits
// for the lock. It returns the context error if ctx is done first.
func (m *RWMutex) RLockWithContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	for m.writer || m.waitingWriters > 0 {
		ch := m.wait()
		m.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
		m.mu.Lock()
	}
	m.readers++
	m.mu.Unlock()
	return nil
}

// RUnlock undoes a single RLock call.
func (m *RWMutex) RUnlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readers == 0 {
		panic("ctxsync: RUnlock of unlocked RWMutex")
	}
	m.readers--
	if m.readers == 0 {
		m.broadcast()
	}
}

// Lock locks m for writing with a context.Background().
func (m *RWMutex) Lock() {
	_ = m.LockWithContext(context.Background())
}

// LockWithContext locks m for writing. It returns the context error if ctx is
// done before the lock is acquired.
func (m *RWMutex) LockWithContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.waitingWriters++
	for m.writer || m.readers > 0 {
		ch := m.wait()
		m.mu.Unlock()
		select {
		case <-ctx.Done():
			m.mu.Lock()
			m.waitingWriters--
			m.broadcast()
			m.mu.Unlock()
			return ctx.Err()
		case <-ch:
		}
		m.mu.Lock()
	}
	m.waitingWriters--
	m.writer = true
	m.mu.Unlock()
	return nil
}

// Unlock unlocks m for writing.
func (m *RWMutex) Unlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.writer {
		panic("ctxsync: Unlock of unlocked RWMutex")
	}
	m.writer = false
	m.broadcast()
}
