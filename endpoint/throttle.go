package endpoint

import (
	"context"

	"github.com/hupe1980/octgo/resource"
)

// Throttled wraps an Endpoint with a resource.Controller's IO budget, so
// background serialization cannot starve foreground reads of bandwidth.
type Throttled struct {
	ep Endpoint
	rc *resource.Controller
}

// Throttle wraps ep with the given controller. A nil controller returns ep
// unchanged.
func Throttle(ep Endpoint, rc *resource.Controller) Endpoint {
	if rc == nil {
		return ep
	}
	return &Throttled{ep: ep, rc: rc}
}

// Get returns the full contents of a blob, charging its size to the IO budget.
func (t *Throttled) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := t.ep.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := t.rc.AcquireIO(ctx, len(data)); err != nil {
		return nil, err
	}
	return data, nil
}

// Put writes a blob, charging its size to the IO budget first.
func (t *Throttled) Put(ctx context.Context, name string, data []byte) error {
	if err := t.rc.AcquireIO(ctx, len(data)); err != nil {
		return err
	}
	return t.ep.Put(ctx, name, data)
}

// Del removes a blob.
func (t *Throttled) Del(ctx context.Context, name string) error {
	return t.ep.Del(ctx, name)
}

// List returns the names of all blobs with the given prefix.
func (t *Throttled) List(ctx context.Context, prefix string) ([]string, error) {
	return t.ep.List(ctx, prefix)
}
