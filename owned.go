package octgo

import (
	"fmt"
	"sort"

	"github.com/hupe1980/octgo/octree"
)

// ownedSet is the eviction candidate pool: the addresses of chunks the
// cache owns sole custody of (reference count held at 1 by the pool).
// It is kept sorted by the (depth, x, y, z) address order; eviction always
// takes the greatest address, so the deepest chunks - the ones least likely
// to be revisited by a descending build - spill first. The order is
// deterministic and independent of insertion order.
//
// Not safe for concurrent use; the cache guards it with the pool lock.
type ownedSet struct {
	addrs []octree.Dxyz
}

func (o *ownedSet) len() int { return len(o.addrs) }

// search returns the insertion index for a.
func (o *ownedSet) search(a octree.Dxyz) int {
	return sort.Search(len(o.addrs), func(i int) bool {
		return !o.addrs[i].Less(a)
	})
}

// insert adds an address. An address may be pooled at most once; a
// duplicate means a reference-counting defect.
func (o *ownedSet) insert(a octree.Dxyz) {
	i := o.search(a)
	if i < len(o.addrs) && o.addrs[i] == a {
		panic(fmt.Sprintf("octgo: chunk %s pooled twice", a))
	}
	o.addrs = append(o.addrs, octree.Dxyz{})
	copy(o.addrs[i+1:], o.addrs[i:])
	o.addrs[i] = a
}

// remove deletes an address if present and reports whether it was.
func (o *ownedSet) remove(a octree.Dxyz) bool {
	i := o.search(a)
	if i >= len(o.addrs) || o.addrs[i] != a {
		return false
	}
	o.addrs = append(o.addrs[:i], o.addrs[i+1:]...)
	return true
}

// popMax removes and returns the greatest address. The set must not be
// empty.
func (o *ownedSet) popMax() octree.Dxyz {
	a := o.addrs[len(o.addrs)-1]
	o.addrs = o.addrs[:len(o.addrs)-1]
	return a
}
