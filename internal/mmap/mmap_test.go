package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenReadClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob")
	require.NoError(t, os.WriteFile(path, []byte("hello mmap"), 0o644))

	m, err := Open(path)
	require.NoError(t, err)

	data, err := m.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello mmap"), data)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close(), "close is idempotent")

	_, err = m.Bytes()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	m, err := Open(path)
	require.NoError(t, err)

	data, err := m.Bytes()
	require.NoError(t, err)
	assert.Empty(t, data)

	require.NoError(t, m.Close())
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
