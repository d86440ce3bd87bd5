package octgo

import (
	"sync"

	"github.com/hupe1980/octgo/chunk"
)

// refSlot is the bookkeeping entry for one chunk address. It outlives the
// chunk itself: after serialization the chunk pointer is nil while the slot
// waits to be erased from its slice.
//
// All fields are guarded by mu. The reference count is the number of owners
// keeping the chunk resident: insertion workers that have not yet pruned it,
// or the eviction pool (which owns exactly one reference while the chunk
// sits there).
type refSlot struct {
	mu    sync.Mutex
	refs  uint64
	chunk *chunk.Chunk
}

// inc adds a reference. Caller holds mu.
func (s *refSlot) inc() {
	s.refs++
}

// dec drops a reference and returns the new count. Caller holds mu.
func (s *refSlot) dec() uint64 {
	if s.refs == 0 {
		panic("octgo: chunk reference count underflow")
	}
	s.refs--
	return s.refs
}
