package octgo

import (
	"context"

	"github.com/hupe1980/octgo/chunk"
	"github.com/hupe1980/octgo/octree"
)

// Pruner is a per-goroutine fast path over the cache. Chunk references
// resolved through addRef are remembered here so repeated insertions into
// the same chunk skip the locked slice lookup entirely.
//
// Each resolved reference counts against the chunk until this pruner
// reports it stale, so insertion workers must call Clip periodically and
// Close when done, or drained chunks never reach the eviction pool.
//
// A Pruner must not be shared across goroutines.
type Pruner struct {
	cc  *ChunkCache
	gen uint64

	slices [octree.MaxDepth]map[octree.Xyz]*prunerEntry
}

type prunerEntry struct {
	ch  *chunk.Chunk
	gen uint64
}

// NewPruner creates a pruner bound to this cache for one insertion
// goroutine.
func (cc *ChunkCache) NewPruner() *Pruner {
	return &Pruner{cc: cc}
}

// get returns the locally cached chunk for ck, marking it touched.
func (p *Pruner) get(ck octree.ChunkKey) *chunk.Chunk {
	m := p.slices[ck.Depth()]
	if m == nil {
		return nil
	}
	e, ok := m[ck.Position()]
	if !ok {
		return nil
	}
	e.gen = p.gen
	return e.ch
}

// set records a freshly referenced chunk in the fast path.
func (p *Pruner) set(ck octree.ChunkKey, ch *chunk.Chunk) {
	d := ck.Depth()
	if p.slices[d] == nil {
		p.slices[d] = make(map[octree.Xyz]*prunerEntry)
	}
	p.slices[d][ck.Position()] = &prunerEntry{ch: ch, gen: p.gen}
}

// Clip releases the references this goroutine is no longer using: every
// chunk not touched since the previous Clip is reported stale to the cache,
// then the eviction pool is purged down to the cache budget.
//
// Deeper depths are reported first, releasing children before parents.
func (p *Pruner) Clip(ctx context.Context) {
	p.clip(ctx, false)
}

// Close releases every reference this pruner holds, touched or not, and
// purges. Must be called when the insertion goroutine finishes.
func (p *Pruner) Close(ctx context.Context) {
	p.clip(ctx, true)
}

func (p *Pruner) clip(ctx context.Context, all bool) {
	for d := len(p.slices) - 1; d >= 0; d-- {
		m := p.slices[d]
		if len(m) == 0 {
			continue
		}

		var stale map[octree.Xyz]*chunk.Chunk
		for pos, e := range m {
			if all || e.gen != p.gen {
				if stale == nil {
					stale = make(map[octree.Xyz]*chunk.Chunk)
				}
				stale[pos] = e.ch
				delete(m, pos)
			}
		}
		p.cc.Prune(uint64(d), stale)
	}

	p.gen++
	p.cc.MaybePurge(ctx, p.cc.cacheSize)
}
