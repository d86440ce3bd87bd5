// Package taskpool provides a bounded fire-and-forget task pool for
// background IO.
package taskpool

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Pool runs submitted tasks with bounded concurrency. Submit never blocks
// the caller; only task execution is gated by the worker budget. Join waits
// for everything submitted so far to finish.
type Pool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// New creates a pool that runs at most workers tasks concurrently.
// workers < 1 is treated as 1.
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(workers))}
}

// Submit queues a task for asynchronous execution. Tasks for different keys
// may run in any order; callers must not rely on submission order.
func (p *Pool) Submit(task func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		// Background context: the acquire cannot fail, it only waits for
		// a worker slot.
		_ = p.sem.Acquire(context.Background(), 1)
		defer p.sem.Release(1)
		task()
	}()
}

// Join blocks until all tasks submitted before the call have completed.
// The pool remains usable after Join.
func (p *Pool) Join() {
	p.wg.Wait()
}
