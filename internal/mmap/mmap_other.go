//go:build !unix

package mmap

import "os"

// Fallback for platforms without mmap support: read the whole file.

func osMap(f *os.File, size int) ([]byte, error) {
	data := make([]byte, size)
	if _, err := f.ReadAt(data, 0); err != nil {
		return nil, err
	}
	return data, nil
}

func osUnmap([]byte) error { return nil }
