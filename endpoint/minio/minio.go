// Package minio implements endpoint.Endpoint for MinIO and S3-compatible
// object storage.
package minio

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/octgo/endpoint"
)

// Endpoint stores blobs as objects under a bucket/prefix.
type Endpoint struct {
	client *minio.Client
	bucket string
	prefix string
}

// New creates a MinIO-backed endpoint.
// rootPrefix is prepended to all blob names (e.g. "builds/tokyo/").
func New(client *minio.Client, bucket, rootPrefix string) *Endpoint {
	return &Endpoint{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
	}
}

func (e *Endpoint) key(name string) string {
	return path.Join(e.prefix, name)
}

// Get returns the full contents of a blob.
func (e *Endpoint) Get(ctx context.Context, name string) ([]byte, error) {
	obj, err := e.client.GetObject(ctx, e.bucket, e.key(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil, endpoint.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Put writes a blob. Object storage PUTs are atomic by nature.
func (e *Endpoint) Put(ctx context.Context, name string, data []byte) error {
	_, err := e.client.PutObject(
		ctx, e.bucket, e.key(name),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{},
	)
	return err
}

// Del removes a blob.
func (e *Endpoint) Del(ctx context.Context, name string) error {
	return e.client.RemoveObject(ctx, e.bucket, e.key(name), minio.RemoveObjectOptions{})
}

// List returns the names of all blobs with the given prefix.
func (e *Endpoint) List(ctx context.Context, prefix string) ([]string, error) {
	full := e.key(prefix)
	var names []string
	for obj := range e.client.ListObjects(ctx, e.bucket, minio.ListObjectsOptions{
		Prefix:    full,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name := obj.Key
		if e.prefix != "" {
			name = strings.TrimPrefix(strings.TrimPrefix(name, e.prefix), "/")
		}
		names = append(names, name)
	}
	return names, nil
}
