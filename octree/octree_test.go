package octree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitBounds() Bounds {
	return Bounds{Min: Point{0, 0, 0}, Max: Point{1, 1, 1}}
}

func TestDirection(t *testing.T) {
	mid := Point{0.5, 0.5, 0.5}

	tests := []struct {
		name  string
		point Point
		want  Dir
	}{
		{"all low", Point{0.1, 0.1, 0.1}, 0},
		{"x high", Point{0.9, 0.1, 0.1}, 1},
		{"y high", Point{0.1, 0.9, 0.1}, 2},
		{"z high", Point{0.1, 0.1, 0.9}, 4},
		{"all high", Point{0.9, 0.9, 0.9}, 7},
		{"on mid counts as high", Point{0.5, 0.5, 0.5}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Direction(mid, tt.point))
		})
	}
}

func TestBoundsGo(t *testing.T) {
	b := unitBounds()

	low := b.Go(0)
	assert.Equal(t, Point{0, 0, 0}, low.Min)
	assert.Equal(t, Point{0.5, 0.5, 0.5}, low.Max)

	high := b.Go(7)
	assert.Equal(t, Point{0.5, 0.5, 0.5}, high.Min)
	assert.Equal(t, Point{1, 1, 1}, high.Max)

	// Every point lands in exactly the octant Direction selects.
	p := Point{0.6, 0.2, 0.8}
	dir := Direction(b.Mid(), p)
	assert.True(t, b.Go(dir).Contains(p))
}

func TestBoundsContainsHalfOpen(t *testing.T) {
	b := unitBounds()

	assert.True(t, b.Contains(Point{0, 0, 0}))
	assert.False(t, b.Contains(Point{1, 0, 0}))
	assert.False(t, b.Contains(Point{0, -0.001, 0}))
}

func TestDxyzOrder(t *testing.T) {
	a := Dxyz{Depth: 2, Xyz: Xyz{X: 3, Y: 3, Z: 3}}
	b := Dxyz{Depth: 3, Xyz: Xyz{X: 0, Y: 0, Z: 0}}
	c := Dxyz{Depth: 3, Xyz: Xyz{X: 0, Y: 0, Z: 1}}

	assert.True(t, a.Less(b), "depth dominates position")
	assert.True(t, b.Less(c))
	assert.False(t, c.Less(b))
	assert.False(t, a.Less(a))
}

func TestDxyzStringRoundTrip(t *testing.T) {
	a := Dxyz{Depth: 5, Xyz: Xyz{X: 12, Y: 0, Z: 31}}
	require.Equal(t, "5-12-0-31", a.String())

	parsed, err := ParseDxyz(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, parsed)

	_, err = ParseDxyz("5-12-0")
	assert.Error(t, err)

	_, err = ParseDxyz("5-12-0-x")
	assert.Error(t, err)
}

func TestChunkKeyChild(t *testing.T) {
	root := RootKey(unitBounds())
	require.Equal(t, uint64(0), root.Depth())

	child := root.Child(5) // x high, z high
	assert.Equal(t, uint64(1), child.Depth())
	assert.Equal(t, Xyz{X: 1, Y: 0, Z: 1}, child.Position())
	assert.Equal(t, unitBounds().Go(5), child.Bounds)

	grandchild := child.Child(0)
	assert.Equal(t, uint64(2), grandchild.Depth())
	assert.Equal(t, Xyz{X: 2, Y: 0, Z: 2}, grandchild.Position())
}

func TestKeyStepMirrorsChunkDescent(t *testing.T) {
	bounds := unitBounds()
	p := Point{0.8, 0.1, 0.6}

	key := NewKey(bounds)
	ck := RootKey(bounds)

	for i := 0; i < 5; i++ {
		dir := Direction(ck.Bounds.Mid(), p)
		key.Step(p)
		ck = ck.Child(dir)

		require.Equal(t, ck.Dxyz, key.Dxyz, "step %d", i)
		require.Equal(t, ck.Bounds, key.Bounds, "step %d", i)
		require.True(t, ck.Bounds.Contains(p), "step %d", i)
	}
}
