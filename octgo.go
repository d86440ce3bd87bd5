package octgo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/octgo/chunk"
	"github.com/hupe1980/octgo/codec"
	"github.com/hupe1980/octgo/endpoint"
	"github.com/hupe1980/octgo/hierarchy"
	"github.com/hupe1980/octgo/octree"
	"github.com/hupe1980/octgo/resource"
	"github.com/hupe1980/octgo/taskpool"
)

// voxelFootprint is the rough resident size of one voxel (point, payload
// header and slack), used to size per-chunk memory reservations.
const voxelFootprint = 64

// Info is a latched statistics snapshot. Alive counts the slots currently
// tracked across all depths; Written and Read count chunks serialized and
// loaded since the previous Snapshot call.
type Info struct {
	Alive   uint64
	Written uint64
	Read    uint64
}

// ChunkCache coordinates the in-memory working set of an octree build.
//
// It is organized as one slice per depth, each an independently locked map
// from position to a reference-counted slot. Unrelated depths never contend.
// Chunks whose reference count drops to zero move into an ordered eviction
// pool; once the pool exceeds the configured budget, the greatest addresses
// are serialized to the endpoint on the task pool and their slots erased.
//
// Lock order when combined: pool lock, then slice lock, then slot lock.
// No lock is ever held across endpoint IO except the single slot lock
// protecting the chunk being written or loaded.
type ChunkCache struct {
	hierarchy *hierarchy.Hierarchy
	pool      *taskpool.Pool
	out       endpoint.Endpoint

	cacheSize uint64
	chunkCap  int
	comp      codec.Compressor
	logger    *Logger
	metrics   MetricsCollector

	rc          *resource.Controller
	memEstimate int64

	sliceMu [octree.MaxDepth]sync.Mutex
	slices  [octree.MaxDepth]map[octree.Xyz]*refSlot

	ownedMu sync.Mutex
	owned   ownedSet

	infoMu sync.Mutex
	info   Info

	errMu    sync.Mutex
	firstErr error

	closed atomic.Bool
}

// New creates a ChunkCache writing to out. The hierarchy decides whether a
// chunk seen for the first time in this process has persisted state from an
// earlier run; pool runs the asynchronous serialization tasks.
func New(h *hierarchy.Hierarchy, pool *taskpool.Pool, out endpoint.Endpoint, opts ...Option) *ChunkCache {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	cc := &ChunkCache{
		hierarchy: h,
		pool:      pool,
		out:       endpoint.Throttle(out, o.controller),
		cacheSize: o.cacheSize,
		chunkCap:  o.chunkCapacity,
		comp:      o.compressor,
		logger:    o.logger,
		metrics:   o.metrics,

		rc:          o.controller,
		memEstimate: int64(o.chunkCapacity) * voxelFootprint,
	}
	for d := range cc.slices {
		cc.slices[d] = make(map[octree.Xyz]*refSlot)
	}
	return cc
}

// CacheSize returns the configured eviction pool budget.
func (cc *ChunkCache) CacheSize() uint64 { return cc.cacheSize }

// Snapshot returns the current statistics and resets the Written and Read
// counters. Alive is cumulative.
func (cc *ChunkCache) Snapshot() Info {
	cc.infoMu.Lock()
	defer cc.infoMu.Unlock()
	latched := cc.info
	cc.info.Written = 0
	cc.info.Read = 0
	return latched
}

func (cc *ChunkCache) noteAlive(delta int64) {
	cc.infoMu.Lock()
	if delta < 0 {
		cc.info.Alive -= uint64(-delta)
	} else {
		cc.info.Alive += uint64(delta)
	}
	cc.infoMu.Unlock()
}

func (cc *ChunkCache) noteRead() {
	cc.infoMu.Lock()
	cc.info.Read++
	cc.infoMu.Unlock()
}

func (cc *ChunkCache) noteWritten() {
	cc.infoMu.Lock()
	cc.info.Written++
	cc.infoMu.Unlock()
}

func (cc *ChunkCache) recordErr(err error) {
	cc.errMu.Lock()
	if cc.firstErr == nil {
		cc.firstErr = err
	}
	cc.errMu.Unlock()
}

func (cc *ChunkCache) firstError() error {
	cc.errMu.Lock()
	defer cc.errMu.Unlock()
	return cc.firstErr
}

// Insert places a voxel into the chunk at ck, descending to child chunks as
// capacity is reached. key must mirror ck's position in the tree; both
// advance together. The pruner provides the per-goroutine fast path and
// must not be shared across goroutines.
//
// The returned error is always an endpoint IO failure; capacity exhaustion
// is handled by descent, never reported.
func (cc *ChunkCache) Insert(ctx context.Context, voxel octree.Voxel, key *octree.Key, ck octree.ChunkKey, pruner *Pruner) error {
	for {
		// Fast path: this goroutine touched the chunk recently.
		ch := pruner.get(ck)
		if ch == nil {
			var err error
			ch, err = cc.addRef(ctx, ck, pruner)
			if err != nil {
				return err
			}
		}

		if ch.Insert(voxel) {
			return nil
		}

		// Full chunk: push the point one level deeper.
		key.Step(voxel.Point)
		dir := octree.Direction(ck.Bounds.Mid(), voxel.Point)
		ck = ch.Child(dir)
	}
}

// addRef returns a live chunk for ck, incrementing its reference count by
// exactly one and registering it in the pruner's fast path.
func (cc *ChunkCache) addRef(ctx context.Context, ck octree.ChunkKey, pruner *Pruner) (*chunk.Chunk, error) {
	depth := ck.Depth()
	if depth >= octree.MaxDepth {
		panic(fmt.Sprintf("octgo: depth %d exceeds the %d-level limit", depth, octree.MaxDepth))
	}
	pos := ck.Position()

	// Reserve the chunk's estimated footprint before taking any lock; the
	// reservation is returned below if the access lands on an already
	// resident chunk. Blocking on the budget under a slice lock could
	// deadlock against the serialize pass that frees it.
	if err := cc.rc.AcquireMemory(ctx, cc.memEstimate); err != nil {
		return nil, err
	}

	cc.sliceMu[depth].Lock()

	if ref, ok := cc.slices[depth][pos]; ok {
		// The slot exists, but the chunk itself may not: serialization and
		// erasure run asynchronously.
		ref.mu.Lock()
		ref.inc()

		// Our reference keeps the slot alive; the slice lock is no longer
		// needed.
		cc.sliceMu[depth].Unlock()

		if ref.chunk == nil {
			if ref.refs != 1 {
				panic("octgo: awakening a chunk that already has references")
			}

			// The chunk was serialized and we caught the slot before the
			// erase pass reached it. Rematerialize from the endpoint.
			np := cc.hierarchy.Get(ck.Dxyz)
			if np == 0 {
				if err := cc.firstError(); err != nil {
					// A failed save drops the chunk content without a
					// hierarchy entry. Hand the recorded error to the
					// caller and release the orphaned slot ourselves,
					// since the erase pass skipped it while we held the
					// reference.
					ref.dec()
					ref.mu.Unlock()
					cc.rc.ReleaseMemory(cc.memEstimate)
					cc.maybeErase(ck.Dxyz)
					return nil, fmt.Errorf("octgo: chunk %s unavailable after failed save: %w", ck.Dxyz, err)
				}
				panic(fmt.Sprintf("octgo: chunk %s evicted without a hierarchy entry", ck.Dxyz))
			}

			ref.chunk = chunk.New(ck, cc.chunkCap)
			cc.noteRead()
			pruner.set(ck, ref.chunk)

			start := time.Now()
			err := ref.chunk.Load(ctx, cc.out, np)
			cc.metrics.RecordLoad(time.Since(start), err)
			cc.logger.LogLoad(ck.Dxyz, np, err)
			if err != nil {
				cc.recordErr(err)
				ref.mu.Unlock()
				return nil, err
			}
		} else {
			cc.rc.ReleaseMemory(cc.memEstimate)
			pruner.set(ck, ref.chunk)
		}

		ch := ref.chunk
		ref.mu.Unlock()

		// If the chunk was sitting in the eviction pool, this access
		// reclaims it: drop the pool's reference and remove the entry.
		cc.ownedMu.Lock()
		if cc.owned.remove(ck.Dxyz) {
			ref.mu.Lock()
			if ref.refs < 2 {
				panic(fmt.Sprintf("octgo: reclaimed chunk %s without the pool's reference", ck.Dxyz))
			}
			ref.dec()
			ref.mu.Unlock()
		}
		cc.ownedMu.Unlock()

		return ch, nil
	}

	// First access at this address: create the slot.
	ref := &refSlot{chunk: chunk.New(ck, cc.chunkCap)}
	cc.slices[depth][pos] = ref
	cc.noteAlive(1)

	// Still holding the slice lock, so no one else can reach the slot yet.
	ref.mu.Lock()
	ref.inc()
	ch := ref.chunk
	pruner.set(ck, ch)

	cc.sliceMu[depth].Unlock()

	// A continued build may have serialized this chunk in a previous run.
	// Our reference keeps it alive while the content streams in; concurrent
	// inserts through other slots are unaffected.
	if np := cc.hierarchy.Get(ck.Dxyz); np > 0 {
		cc.noteRead()

		start := time.Now()
		err := ch.Load(ctx, cc.out, np)
		cc.metrics.RecordLoad(time.Since(start), err)
		cc.logger.LogLoad(ck.Dxyz, np, err)
		if err != nil {
			cc.recordErr(err)
			ref.mu.Unlock()
			return nil, err
		}
	}

	ref.mu.Unlock()
	return ch, nil
}

// Prune releases one reference for every stale chunk a pruner reports at
// the given depth. Chunks dropping to zero references are not erased:
// ownership transfers to the eviction pool, which holds their count at 1
// until a purge or a reclaiming access decides their fate.
func (cc *ChunkCache) Prune(depth uint64, stale map[octree.Xyz]*chunk.Chunk) {
	if len(stale) == 0 {
		return
	}

	cc.sliceMu[depth].Lock()
	for pos := range stale {
		ref, ok := cc.slices[depth][pos]
		if !ok {
			panic(fmt.Sprintf("octgo: pruning unknown chunk %v at depth %d", pos, depth))
		}

		ref.mu.Lock()
		if ref.dec() == 0 {
			// Take pool ownership instead of erasing, so the slot is never
			// observable at zero references without an owner.
			ref.inc()

			ref.mu.Unlock()
			cc.sliceMu[depth].Unlock()

			cc.ownedMu.Lock()
			cc.owned.insert(octree.Dxyz{Depth: depth, Xyz: pos})
			cc.ownedMu.Unlock()

			cc.sliceMu[depth].Lock()
		} else {
			ref.mu.Unlock()
		}
	}
	cc.sliceMu[depth].Unlock()
}

// MaybePurge shrinks the eviction pool to at most maxSize entries,
// submitting a serialization task for each evicted chunk. A maxSize of 0
// drains the pool completely (the shutdown path). The caller may block on
// lock contention but never on IO.
func (cc *ChunkCache) MaybePurge(ctx context.Context, maxSize uint64) {
	// Serialization outlives the caller; only its values travel along.
	ctx = context.WithoutCancel(ctx)

	submitted := 0
	cc.ownedMu.Lock()
	for uint64(cc.owned.len()) > maxSize {
		dxyz := cc.owned.popMax()
		depth := dxyz.Depth

		cc.sliceMu[depth].Lock()
		ref, ok := cc.slices[depth][dxyz.Xyz]
		if !ok {
			panic(fmt.Sprintf("octgo: pooled chunk %s has no slot", dxyz))
		}

		ref.mu.Lock()
		if maxSize == 0 && ref.refs != 1 {
			// Draining for shutdown: the pool must be the only owner left.
			panic(fmt.Sprintf("octgo: chunk %s still referenced during drain", dxyz))
		}

		if ref.dec() == 0 {
			// Off the pool with no other owners. From here the chunk may be
			// recaptured by an insertion thread or serialized at any time;
			// release every lock before touching the task pool so only this
			// call, not the whole cache, pays for the submission.
			ref.mu.Unlock()
			cc.sliceMu[depth].Unlock()
			cc.ownedMu.Unlock()

			cc.pool.Submit(func() { cc.maybeSerialize(ctx, dxyz) })
			submitted++

			cc.ownedMu.Lock()
		} else {
			// A concurrent access reclaimed the chunk between our pop and
			// the slot lock; it is communally owned again.
			ref.mu.Unlock()
			cc.sliceMu[depth].Unlock()
		}
	}
	cc.ownedMu.Unlock()

	if submitted > 0 {
		cc.metrics.RecordPurge(submitted)
		cc.logger.LogPurge(submitted)
	}
}

// maybeSerialize writes one chunk's content to the endpoint, unless a race
// already made the work moot. Runs on the task pool.
func (cc *ChunkCache) maybeSerialize(ctx context.Context, dxyz octree.Dxyz) {
	depth := dxyz.Depth

	cc.sliceMu[depth].Lock()
	ref, ok := cc.slices[depth][dxyz.Xyz]
	if !ok {
		// Queued, reclaimed, re-queued, and fully erased before this task
		// ran: the collapsed double-queue case. Nothing to do.
		cc.sliceMu[depth].Unlock()
		return
	}

	ref.mu.Lock()
	if ref.refs != 0 {
		// An insertion thread reclaimed the chunk after it was queued.
		ref.mu.Unlock()
		cc.sliceMu[depth].Unlock()
		return
	}
	if ref.chunk == nil {
		// The twin task of a double-queue serialized it first; the erase
		// pass will follow once we let go of the slot lock.
		ref.mu.Unlock()
		cc.sliceMu[depth].Unlock()
		return
	}

	// Zero references and resident content: serialize. The IO is slow, so
	// retain only the slot lock. Once the slice lock is released the slot
	// cannot be erased out from under us without it being retaken.
	cc.sliceMu[depth].Unlock()

	start := time.Now()
	np, err := ref.chunk.Save(ctx, cc.out, cc.comp)
	cc.metrics.RecordSerialize(time.Since(start), err)
	cc.logger.LogSerialize(dxyz, np, err)

	if err != nil {
		// A failed chunk write corrupts the build; there is no retry at
		// this layer. Record it for Close and still clear the slot so the
		// drain terminates.
		cc.recordErr(err)
	} else {
		cc.hierarchy.Set(dxyz, np)
		cc.noteWritten()
	}

	ref.chunk = nil
	ref.mu.Unlock()

	cc.rc.ReleaseMemory(cc.memEstimate)

	cc.maybeErase(dxyz)
}

// maybeErase removes a slot whose chunk is gone and unreferenced. A second
// pass separate from maybeSerialize because erasing needs the slice lock,
// which was deliberately dropped before the IO.
func (cc *ChunkCache) maybeErase(dxyz octree.Dxyz) {
	depth := dxyz.Depth

	cc.sliceMu[depth].Lock()
	ref, ok := cc.slices[depth][dxyz.Xyz]
	if !ok {
		cc.sliceMu[depth].Unlock()
		return
	}

	ref.mu.Lock()
	if ref.refs != 0 || ref.chunk != nil {
		// Reawakened or re-populated since serialization; benign.
		ref.mu.Unlock()
		cc.sliceMu[depth].Unlock()
		return
	}

	// Holding both locks, nothing can be waiting on this slot.
	delete(cc.slices[depth], dxyz.Xyz)
	ref.mu.Unlock()
	cc.sliceMu[depth].Unlock()

	cc.noteAlive(-1)
}

// Close drains the cache: every pooled chunk is serialized, the task pool
// is joined, and all slices are verified empty. A non-empty slice means a
// reference was leaked and is a defect, not a recoverable condition.
// The first serialization error encountered during the build is returned.
func (cc *ChunkCache) Close(ctx context.Context) error {
	if cc.closed.Swap(true) {
		return ErrClosed
	}

	cc.MaybePurge(ctx, 0)
	cc.pool.Join()

	for d := range cc.slices {
		cc.sliceMu[d].Lock()
		n := len(cc.slices[d])
		cc.sliceMu[d].Unlock()
		if n != 0 {
			panic(fmt.Sprintf("octgo: %d chunks leaked at depth %d on close", n, d))
		}
	}

	cc.infoMu.Lock()
	final := cc.info
	cc.infoMu.Unlock()
	cc.logger.LogClose(final)

	return cc.firstError()
}
