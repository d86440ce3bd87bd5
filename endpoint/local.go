package endpoint

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/octgo/internal/mmap"
)

// Local implements Endpoint on a local directory.
//
// Writes are staged in a scratch directory and renamed into place, so a
// crash mid-write never leaves a partial blob visible. Reads go through a
// read-only memory mapping.
type Local struct {
	root string
	tmp  string
}

// NewLocal creates a Local endpoint rooted at dir. Staged writes go to
// tmpDir; if tmpDir is empty a ".tmp" directory under the root is used.
// tmpDir must be on the same filesystem as dir for rename to be atomic.
func NewLocal(dir, tmpDir string) (*Local, error) {
	if tmpDir == "" {
		tmpDir = filepath.Join(dir, ".tmp")
	}
	for _, d := range []string{dir, tmpDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("endpoint: create %s: %w", d, err)
		}
	}
	return &Local{root: dir, tmp: tmpDir}, nil
}

// Get returns the full contents of a blob.
func (l *Local) Get(_ context.Context, name string) ([]byte, error) {
	m, err := mmap.Open(filepath.Join(l.root, filepath.FromSlash(name)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer m.Close()

	data, err := m.Bytes()
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Put writes a blob atomically via a staged temp file.
func (l *Local) Put(_ context.Context, name string, data []byte) error {
	dst := filepath.Join(l.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	var suffix [8]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		return err
	}
	staged := filepath.Join(l.tmp, filepath.Base(name)+"."+hex.EncodeToString(suffix[:]))

	if err := os.WriteFile(staged, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(staged, dst); err != nil {
		os.Remove(staged)
		return err
	}
	return nil
}

// Del removes a blob.
func (l *Local) Del(_ context.Context, name string) error {
	err := os.Remove(filepath.Join(l.root, filepath.FromSlash(name)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// List returns the names of all blobs with the given prefix.
func (l *Local) List(_ context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == l.tmp {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}
