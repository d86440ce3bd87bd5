package taskpool

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitAndJoin(t *testing.T) {
	p := New(4)

	var ran atomic.Int64
	for i := 0; i < 100; i++ {
		p.Submit(func() { ran.Add(1) })
	}
	p.Join()

	assert.Equal(t, int64(100), ran.Load())
}

func TestBoundedConcurrency(t *testing.T) {
	const workers = 3
	p := New(workers)

	var active, peak atomic.Int64
	for i := 0; i < 50; i++ {
		p.Submit(func() {
			n := active.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
		})
	}
	p.Join()

	require.LessOrEqual(t, peak.Load(), int64(workers))
	assert.Positive(t, peak.Load())
}

func TestSubmitDoesNotBlock(t *testing.T) {
	p := New(1)

	release := make(chan struct{})
	p.Submit(func() { <-release })

	// The worker is busy; further submissions must still return promptly.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			p.Submit(func() {})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on a busy pool")
	}

	close(release)
	p.Join()
}

func TestUsableAfterJoin(t *testing.T) {
	p := New(2)

	var ran atomic.Int64
	p.Submit(func() { ran.Add(1) })
	p.Join()

	p.Submit(func() { ran.Add(1) })
	p.Join()

	assert.Equal(t, int64(2), ran.Load())
}
