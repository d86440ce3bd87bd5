package octgo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/octgo/endpoint"
	"github.com/hupe1980/octgo/hierarchy"
	"github.com/hupe1980/octgo/octree"
	"github.com/hupe1980/octgo/taskpool"
)

func newPrunerCache() *ChunkCache {
	return New(hierarchy.New(), taskpool.New(2), endpoint.NewMemory())
}

func TestPrunerFastPath(t *testing.T) {
	ctx := context.Background()
	cc := newPrunerCache()
	root := octree.RootKey(testBounds())

	pr := cc.NewPruner()
	assert.Nil(t, pr.get(root), "cold fast path misses")

	ch, err := cc.addRef(ctx, root, pr)
	require.NoError(t, err)
	assert.Same(t, ch, pr.get(root), "addRef populates the fast path")

	pr.Close(ctx)
	require.NoError(t, cc.Close(ctx))
}

func TestClipReleasesUntouchedEntries(t *testing.T) {
	ctx := context.Background()
	cc := newPrunerCache()
	root := octree.RootKey(testBounds())

	pr := cc.NewPruner()
	ch, err := cc.addRef(ctx, root, pr)
	require.NoError(t, err)
	require.True(t, ch.Insert(testVoxel(0.5, 0.5, 0.5)))

	// Fresh entries survive the first clip.
	pr.Clip(ctx)
	assert.Same(t, ch, pr.get(root))

	addr := root.Dxyz
	cc.sliceMu[0].Lock()
	ref := cc.slices[0][addr.Xyz]
	cc.sliceMu[0].Unlock()
	ref.mu.Lock()
	refs := ref.refs
	ref.mu.Unlock()
	require.Equal(t, uint64(1), refs, "reference retained across first clip")

	// The get above touched the entry, so it survives one more clip...
	pr.Clip(ctx)
	// ...and goes stale on the next.
	pr.Clip(ctx)
	assert.Nil(t, pr.get(root))

	cc.ownedMu.Lock()
	pooled := cc.owned.len()
	cc.ownedMu.Unlock()
	assert.Equal(t, 1, pooled, "stale entry released to the pool")

	require.NoError(t, cc.Close(ctx))
}

func TestPrunerCloseReleasesEverything(t *testing.T) {
	ctx := context.Background()
	cc := newPrunerCache()
	b := testBounds()
	root := octree.RootKey(b)

	pr := cc.NewPruner()
	ch, err := cc.addRef(ctx, root, pr)
	require.NoError(t, err)
	require.True(t, ch.Insert(testVoxel(0.1, 0.1, 0.1)))

	child := root.Child(3)
	chc, err := cc.addRef(ctx, child, pr)
	require.NoError(t, err)
	require.True(t, chc.Insert(testVoxel(0.6, 0.6, 0.1)))

	// Both entries are fresh, but Close releases regardless of staleness.
	pr.Close(ctx)

	cc.ownedMu.Lock()
	pooled := cc.owned.len()
	cc.ownedMu.Unlock()
	assert.Equal(t, 2, pooled)

	require.NoError(t, cc.Close(ctx))
	assert.Equal(t, uint64(0), cc.Snapshot().Alive)
}
