package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	hash, err := HashFile(path)
	require.NoError(t, err)
	// sha256("hello world")
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", hash)

	same, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, hash, same)

	_, err = HashFile(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}

func TestArchiveFile(t *testing.T) {
	base := t.TempDir()
	s, err := NewLocalStorage(base, nil)
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "normalized.csv")
	require.NoError(t, os.WriteFile(src, []byte("row data"), 0o644))

	stored, err := s.ArchiveFile(context.Background(), "batch-1", "output", src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "runs", "batch-1", "output-normalized.csv"), stored)

	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, "row data", string(data))

	assert.Equal(t, filepath.Join(base, "runs", "batch-1"), s.RunPath("batch-1"))
}

func TestCleanupOldRuns(t *testing.T) {
	base := t.TempDir()
	s, err := NewLocalStorage(base, nil)
	require.NoError(t, err)

	oldRun := filepath.Join(base, "runs", "old-batch")
	require.NoError(t, os.MkdirAll(oldRun, 0o755))
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldRun, past, past))

	freshRun := filepath.Join(base, "runs", "fresh-batch")
	require.NoError(t, os.MkdirAll(freshRun, 0o755))

	require.NoError(t, s.CleanupOldRuns(context.Background(), 24*time.Hour))

	_, err = os.Stat(oldRun)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(freshRun)
	assert.NoError(t, err)

	// Missing runs directory is not an error
	empty, err := NewLocalStorage(t.TempDir(), nil)
	require.NoError(t, err)
	assert.NoError(t, empty.CleanupOldRuns(context.Background(), time.Hour))
}
