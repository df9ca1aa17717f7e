package ctxsync_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/Budskyman/BigData-Praktikum-2025/pkg/ctxsync"
)

type RWMutexTestSuite struct {
	suite.Suite
	mu *ctxsync.RWMutex
}

func (s *RWMutexTestSuite) SetupTest() {
	s.mu = ctxsync.NewRWMutex()
}

func (s *RWMutexTestSuite) TestReadersShare() {
	s.mu.RLock()
	s.mu.RLock()

	done := make(chan struct{})
	go func() {
		s.mu.RLock()
		s.mu.RUnlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.Fail("reader blocked by readers")
	}
	s.mu.RUnlock()
	s.mu.RUnlock()
}

func (s *RWMutexTestSuite) TestWriterExcludes() {
	const workers = 200
	var active, maxActive atomic.Int64
	var n int

	wg := sync.WaitGroup{}
	wg.Add(workers * 2)
	for range workers {
		go func() {
			defer wg.Done()
			s.mu.Lock()
			defer s.mu.Unlock()
			if active.Add(1) != 1 {
				maxActive.Store(2)
			}
			n++
			active.Add(-1)
		}()
		go func() {
			defer wg.Done()
			s.mu.RLock()
			defer s.mu.RUnlock()
			_ = n
		}()
	}
	wg.Wait()

	s.Equal(workers, n)
	s.Zero(maxActive.Load())
}

// A waiting writer blocks new readers.
func (s *RWMutexTestSuite) TestWriterPreferred() {
	s.mu.RLock()

	writerDone := make(chan struct{})
	go func() {
		s.mu.Lock()
		close(writerDone)
		s.mu.Unlock()
	}()
	time.Sleep(5 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	s.ErrorIs(s.mu.RLockWithContext(ctx), context.DeadlineExceeded)

	s.mu.RUnlock()
	select {
	case <-writerDone:
	case <-time.After(time.Second):
		s.Fail("writer never acquired the lock")
	}

	s.NoError(s.mu.RLockWithContext(context.Background()))
	s.mu.RUnlock()
}

// A writer giving up lets readers in again.
func (s *RWMutexTestSuite) TestCanceledWriter() {
	s.mu.RLock()

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		errs <- s.mu.LockWithContext(ctx)
	}()
	time.Sleep(5 * time.Millisecond)

	readerDone := make(chan struct{})
	go func() {
		s.mu.RLock()
		s.mu.RUnlock()
		close(readerDone)
	}()
	time.Sleep(5 * time.Millisecond)

	cancel()
	s.ErrorIs(<-errs, context.Canceled)

	select {
	case <-readerDone:
	case <-time.After(time.Second):
		s.Fail("reader still blocked after writer gave up")
	}
	s.mu.RUnlock()

	s.NoError(s.mu.LockWithContext(context.Background()))
	s.mu.Unlock()
}

func (s *RWMutexTestSuite) TestZeroValue() {
	var mu ctxsync.RWMutex
	mu.Lock()
	mu.Unlock()
	mu.RLock()
	mu.RUnlock()
}

func (s *RWMutexTestSuite) TestMisuse() {
	s.Panics(s.mu.Unlock)
	s.Panics(s.mu.RUnlock)
}

func (s *RWMutexTestSuite) TestCanceledBeforeLock() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.ErrorIs(s.mu.LockWithContext(ctx), context.Canceled)
	s.ErrorIs(s.mu.RLockWithContext(ctx), context.Canceled)
}

func TestRWMutexTestSuite(t *testing.T) {
	suite.Run(t, new(RWMutexTestSuite))
}
