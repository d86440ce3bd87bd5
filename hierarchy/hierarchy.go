// Package hierarchy tracks the durable per-chunk point counts of a build.
//
// A nonzero count for an address means that chunk has been serialized at
// some time, possibly by a previous run. The cache consults it on every
// chunk materialization, so lookups are cheap: a read-locked map plus a
// roaring bitmap membership index.
package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/octgo/codec"
	"github.com/hupe1980/octgo/endpoint"
	"github.com/hupe1980/octgo/octree"
)

// BlobName is the endpoint blob the hierarchy persists to.
const BlobName = "hierarchy.json"

// Addresses pack as depth | x | y | z with 19 bits per axis; the depth
// value occupies the high bits above bit 57. Positions at depth d are
// bounded by 2^d, so packing is exact up to depth 19; deeper addresses
// skip the bitmap and fall back to the map.
const packedAxisBits = 19

// Hierarchy is a concurrent map from chunk address to serialized point
// count, with a bitmap index over addresses that have ever been written.
type Hierarchy struct {
	mu     sync.RWMutex
	counts map[octree.Dxyz]uint64
	seen   *roaring64.Bitmap
}

// New creates an empty hierarchy.
func New() *Hierarchy {
	return &Hierarchy{
		counts: make(map[octree.Dxyz]uint64),
		seen:   roaring64.New(),
	}
}

func pack(a octree.Dxyz) (uint64, bool) {
	if a.Depth > packedAxisBits {
		return 0, false
	}
	return a.Depth<<(3*packedAxisBits) |
		a.X<<(2*packedAxisBits) |
		a.Y<<packedAxisBits |
		a.Z, true
}

// Get returns the serialized point count for an address, 0 if it has never
// been serialized.
func (h *Hierarchy) Get(a octree.Dxyz) uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.counts[a]
}

// Set records the serialized point count for an address.
func (h *Hierarchy) Set(a octree.Dxyz, count uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts[a] = count
	if packed, ok := pack(a); ok {
		h.seen.Add(packed)
	}
}

// Seen reports whether an address has ever been serialized.
func (h *Hierarchy) Seen(a octree.Dxyz) bool {
	if packed, ok := pack(a); ok {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return h.seen.Contains(packed)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.counts[a]
	return ok
}

// Len returns the number of recorded addresses.
func (h *Hierarchy) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.counts)
}

// Depths returns the set of depths holding at least one serialized chunk.
func (h *Hierarchy) Depths() []uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	present := make(map[uint64]struct{})
	for a := range h.counts {
		present[a.Depth] = struct{}{}
	}
	out := make([]uint64, 0, len(present))
	for d := range present {
		out = append(out, d)
	}
	return out
}

// Walk calls fn for every recorded address. The callback must not call back
// into the hierarchy.
func (h *Hierarchy) Walk(fn func(a octree.Dxyz, count uint64)) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for a, c := range h.counts {
		fn(a, c)
	}
}

// Save persists the hierarchy to ep under BlobName.
func (h *Hierarchy) Save(ctx context.Context, ep endpoint.Endpoint) error {
	h.mu.RLock()
	doc := make(map[string]uint64, len(h.counts))
	for a, c := range h.counts {
		doc[a.String()] = c
	}
	h.mu.RUnlock()

	data, err := codec.Default.Marshal(doc)
	if err != nil {
		return fmt.Errorf("hierarchy: marshal: %w", err)
	}
	if err := ep.Put(ctx, BlobName, data); err != nil {
		return fmt.Errorf("hierarchy: save: %w", err)
	}
	return nil
}

// Load reads a previously saved hierarchy from ep, replacing the current
// contents. A missing blob leaves the hierarchy empty, so a fresh build and
// a continued build share one code path.
func (h *Hierarchy) Load(ctx context.Context, ep endpoint.Endpoint) error {
	data, err := ep.Get(ctx, BlobName)
	if errors.Is(err, endpoint.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("hierarchy: load: %w", err)
	}

	var doc map[string]uint64
	if err := codec.Default.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("hierarchy: unmarshal: %w", err)
	}

	counts := make(map[octree.Dxyz]uint64, len(doc))
	seen := roaring64.New()
	for s, c := range doc {
		a, err := octree.ParseDxyz(s)
		if err != nil {
			return fmt.Errorf("hierarchy: %w", err)
		}
		counts[a] = c
		if packed, ok := pack(a); ok {
			seen.Add(packed)
		}
	}

	h.mu.Lock()
	h.counts = counts
	h.seen = seen
	h.mu.Unlock()
	return nil
}
