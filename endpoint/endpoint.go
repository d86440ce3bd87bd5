// Package endpoint abstracts the storage location that chunk blobs and the
// hierarchy are written to: a local directory, an in-memory map for tests,
// or an S3-compatible object store (see the minio subpackage).
package endpoint

import (
	"context"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Endpoint reads and writes named blobs.
// Implementations must be safe for concurrent use. Put must be atomic:
// a concurrent Get observes either the previous blob or the new one,
// never a partial write.
type Endpoint interface {
	// Get returns the full contents of a blob.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put writes a blob atomically, replacing any existing blob.
	Put(ctx context.Context, name string, data []byte) error

	// Del removes a blob. Deleting a missing blob is not an error.
	Del(ctx context.Context, name string) error

	// List returns the names of all blobs with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
