package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save("tenant-1/rep-1.csv", []byte("Invoice,Amount\n"))
	require.NoError(t, err)
	require.Equal(t, "tenant-1/rep-1.csv", rel)

	file, err := store.Open(rel)
	require.NoError(t, err)
	content, err := io.ReadAll(file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	require.Equal(t, "Invoice,Amount\n", string(content))

	require.NoError(t, store.Delete(rel))
	_, err = store.Open(rel)
	require.Error(t, err)

	// Deleting an already-gone file is a no-op.
	require.NoError(t, store.Delete(rel))
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("old.csv", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save("fresh.csv", []byte("fresh"))
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.csv"), past, past))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{"old.csv"}, deleted)

	_, err = store.Open("fresh.csv")
	require.NoError(t, err)
}
