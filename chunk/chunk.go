// Package chunk implements the resident in-memory node of the octree: a
// bounded batch of voxels plus the keys of its 8 children.
package chunk

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/octgo/codec"
	"github.com/hupe1980/octgo/endpoint"
	"github.com/hupe1980/octgo/octree"
)

// DefaultCapacity is the per-chunk voxel capacity used when none is
// configured.
const DefaultCapacity = 1 << 16

// Chunk holds up to capacity voxels. A full chunk rejects inserts, pushing
// the point one level deeper; this is the capacity policy that bounds the
// depth of the tree by the data distribution.
//
// Multiple insertion goroutines may hold a reference to the same chunk
// concurrently, so mutation is guarded internally.
type Chunk struct {
	mu       sync.Mutex
	key      octree.ChunkKey
	capacity int
	voxels   []octree.Voxel
	children [8]octree.ChunkKey
}

// New creates an empty chunk for the given key.
func New(key octree.ChunkKey, capacity int) *Chunk {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	c := &Chunk{key: key, capacity: capacity}
	for dir := octree.Dir(0); dir < 8; dir++ {
		c.children[dir] = key.Child(dir)
	}
	return c
}

// Key returns the chunk's key.
func (c *Chunk) Key() octree.ChunkKey { return c.key }

// Child returns the key of the child chunk in octant dir.
func (c *Chunk) Child(dir octree.Dir) octree.ChunkKey {
	return c.children[dir]
}

// Insert adds a voxel. It returns false when the chunk is at capacity, in
// which case the caller descends to a child.
func (c *Chunk) Insert(v octree.Voxel) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.voxels) >= c.capacity {
		return false
	}
	c.voxels = append(c.voxels, v)
	return true
}

// Len returns the number of resident voxels.
func (c *Chunk) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.voxels)
}

// Voxels returns a copy of the resident voxels.
func (c *Chunk) Voxels() []octree.Voxel {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]octree.Voxel, len(c.voxels))
	copy(out, c.voxels)
	return out
}

// BlobName returns the endpoint blob name for an address.
func BlobName(a octree.Dxyz) string {
	return "chunks/" + a.String() + ".bin"
}

// Save serializes the chunk's voxels to ep and returns the point count.
func (c *Chunk) Save(ctx context.Context, ep endpoint.Endpoint, comp codec.Compressor) (uint64, error) {
	c.mu.Lock()
	data, err := codec.EncodePoints(c.voxels, comp)
	count := uint64(len(c.voxels))
	c.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("chunk %s: encode: %w", c.key.Dxyz, err)
	}

	if err := ep.Put(ctx, BlobName(c.key.Dxyz), data); err != nil {
		return 0, fmt.Errorf("chunk %s: save: %w", c.key.Dxyz, err)
	}
	return count, nil
}

// Load reads previously serialized voxels from ep and appends them to the
// chunk. Concurrent Insert calls are allowed during the load; the persisted
// points and the new ones interleave safely.
func (c *Chunk) Load(ctx context.Context, ep endpoint.Endpoint, count uint64) error {
	data, err := ep.Get(ctx, BlobName(c.key.Dxyz))
	if err != nil {
		return fmt.Errorf("chunk %s: load: %w", c.key.Dxyz, err)
	}

	voxels, err := codec.DecodePoints(data)
	if err != nil {
		return fmt.Errorf("chunk %s: decode: %w", c.key.Dxyz, err)
	}
	if uint64(len(voxels)) != count {
		return fmt.Errorf("chunk %s: expected %d points, decoded %d",
			c.key.Dxyz, count, len(voxels))
	}

	c.mu.Lock()
	c.voxels = append(c.voxels, voxels...)
	c.mu.Unlock()
	return nil
}
