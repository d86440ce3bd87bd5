// Package octgo provides a concurrent, depth-sliced, reference-counted
// chunk cache for building out-of-core octrees over point clouds.
//
// The cache holds the in-memory working set of a bulk build: octree nodes
// ("chunks") that insertion workers are actively filling. Chunks that no
// worker is touching spill to an endpoint (local disk or object storage)
// and are reloaded transparently when insertion returns to them, bounded
// by an approximate cache budget.
//
// # Quick Start
//
//	ctx := context.Background()
//
//	ep, _ := endpoint.NewLocal("./data", "")
//	h := hierarchy.New()
//	_ = h.Load(ctx, ep) // continue a previous build if present
//
//	pool := taskpool.New(4)
//	cache := octgo.New(h, pool, ep, octgo.WithCacheSize(64))
//
//	bounds := octree.Bounds{Min: octree.Point{0, 0, 0}, Max: octree.Point{1, 1, 1}}
//	root := octree.RootKey(bounds)
//
//	// One pruner per insertion goroutine.
//	pruner := cache.NewPruner()
//	for _, v := range voxels {
//	    key := octree.NewKey(bounds)
//	    _ = cache.Insert(ctx, v, &key, root, pruner)
//	}
//	pruner.Clip(ctx) // periodically: release stale refs, evict over budget
//
//	_ = cache.Close(ctx) // drain everything to the endpoint
//	_ = h.Save(ctx, ep)
//
// # Concurrency Model
//
// Any number of goroutines insert concurrently, each with its own Pruner
// fast path. Serialization runs on a bounded task pool so insertion threads
// never block on IO. Three lock domains order all state transitions:
// per-depth slice locks, per-chunk slot locks, and the eviction pool lock.
//
// # Durability Model
//
// Each chunk persists as one self-describing compressed blob; the hierarchy
// records per-chunk point counts and is the authority on what has been
// serialized. After Close plus hierarchy.Save, a later process can continue
// the build or read the tree.
package octgo
