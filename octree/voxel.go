package octree

// Voxel is a single point together with its packed attribute payload
// (intensity, color, classification and so on), kept opaque to the tree.
type Voxel struct {
	Point Point
	Data  []byte
}
