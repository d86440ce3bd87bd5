// Package octree provides the addressing model for a depth-sliced octree:
// chunk coordinates, spatial bounds, and the traversal keys used to descend
// toward a point.
package octree

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxDepth is the deepest level a build may reach. Depths are data-dependent
// but bounded: each level halves the node extent, so 64 levels exhaust the
// precision of float64 coordinates long before this limit.
const MaxDepth = 64

// Point is a position in 3D space.
type Point [3]float64

// Dir identifies one of the 8 octants of a node, one bit per axis.
// Bit 0 is set for the upper X half, bit 1 for Y, bit 2 for Z.
type Dir uint8

// Direction returns the octant of point relative to mid.
func Direction(mid, point Point) Dir {
	var d Dir
	if point[0] >= mid[0] {
		d |= 1
	}
	if point[1] >= mid[1] {
		d |= 2
	}
	if point[2] >= mid[2] {
		d |= 4
	}
	return d
}

// Xyz is an integral chunk position within one depth level.
type Xyz struct {
	X, Y, Z uint64
}

// Child returns the position one level deeper in octant dir.
func (p Xyz) Child(dir Dir) Xyz {
	return Xyz{
		X: p.X<<1 | uint64(dir&1),
		Y: p.Y<<1 | uint64(dir>>1&1),
		Z: p.Z<<1 | uint64(dir>>2&1),
	}
}

// Dxyz addresses a chunk globally: depth plus position within that depth.
type Dxyz struct {
	Depth uint64
	Xyz
}

// Less orders addresses lexicographically by (depth, x, y, z). The eviction
// pool relies on this total order.
func (a Dxyz) Less(b Dxyz) bool {
	if a.Depth != b.Depth {
		return a.Depth < b.Depth
	}
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}

// String renders the address as "depth-x-y-z", the form used to name
// persisted chunk blobs.
func (a Dxyz) String() string {
	return fmt.Sprintf("%d-%d-%d-%d", a.Depth, a.X, a.Y, a.Z)
}

// ParseDxyz parses the "depth-x-y-z" form produced by String.
func ParseDxyz(s string) (Dxyz, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 4 {
		return Dxyz{}, fmt.Errorf("octree: malformed address %q", s)
	}
	var v [4]uint64
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return Dxyz{}, fmt.Errorf("octree: malformed address %q: %w", s, err)
		}
		v[i] = n
	}
	return Dxyz{Depth: v[0], Xyz: Xyz{X: v[1], Y: v[2], Z: v[3]}}, nil
}

// Bounds is an axis-aligned box.
type Bounds struct {
	Min, Max Point
}

// Mid returns the center of the box.
func (b Bounds) Mid() Point {
	return Point{
		(b.Min[0] + b.Max[0]) / 2,
		(b.Min[1] + b.Max[1]) / 2,
		(b.Min[2] + b.Max[2]) / 2,
	}
}

// Contains reports whether p lies within the box. The minimum edge is
// inclusive and the maximum exclusive, so adjacent nodes never both claim
// a point on their shared face.
func (b Bounds) Contains(p Point) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] >= b.Max[i] {
			return false
		}
	}
	return true
}

// Go returns the octant of the box selected by dir.
func (b Bounds) Go(dir Dir) Bounds {
	mid := b.Mid()
	out := b
	for axis := 0; axis < 3; axis++ {
		if dir>>axis&1 == 1 {
			out.Min[axis] = mid[axis]
		} else {
			out.Max[axis] = mid[axis]
		}
	}
	return out
}

// ChunkKey identifies a chunk and carries its bounds, so descending to a
// child needs no global lookups.
type ChunkKey struct {
	Bounds Bounds
	Dxyz   Dxyz
}

// RootKey returns the key of the root chunk covering bounds.
func RootKey(bounds Bounds) ChunkKey {
	return ChunkKey{Bounds: bounds}
}

// Child returns the key of the child chunk in octant dir.
func (ck ChunkKey) Child(dir Dir) ChunkKey {
	return ChunkKey{
		Bounds: ck.Bounds.Go(dir),
		Dxyz: Dxyz{
			Depth: ck.Dxyz.Depth + 1,
			Xyz:   ck.Dxyz.Xyz.Child(dir),
		},
	}
}

// Depth returns the chunk's depth level.
func (ck ChunkKey) Depth() uint64 { return ck.Dxyz.Depth }

// Position returns the chunk's position within its depth level.
func (ck ChunkKey) Position() Xyz { return ck.Dxyz.Xyz }

// Key is the traversal key for a single point descending the tree. It
// mirrors the chunk being targeted and is stepped one level at a time as
// full chunks push the point deeper.
type Key struct {
	Bounds Bounds
	Dxyz   Dxyz
}

// NewKey returns a traversal key at the root of bounds.
func NewKey(bounds Bounds) Key {
	return Key{Bounds: bounds}
}

// Step descends one level toward p and returns the direction taken.
func (k *Key) Step(p Point) Dir {
	dir := Direction(k.Bounds.Mid(), p)
	k.Bounds = k.Bounds.Go(dir)
	k.Dxyz = Dxyz{Depth: k.Dxyz.Depth + 1, Xyz: k.Dxyz.Xyz.Child(dir)}
	return dir
}
