package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestFileStoreGet(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "boot.cfg"), []byte("contents"), 0o644))
	store := NewFileStore(root)

	src, err := store.Get("boot.cfg")
	require.NoError(t, err)
	defer src.Close()
	got, err := io.ReadAll(src)
	require.NoError(t, err)
	require.Equal(t, []byte("contents"), got)

	_, err = store.Get("missing.cfg")
	require.True(t, errors.Is(err, ErrNotFound))

	_, err = store.Get("")
	require.True(t, errors.Is(err, ErrEmptyPath))
}

func TestFileStorePut(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(root)

	sink, err := store.Put("upload.bin")
	require.NoError(t, err)
	_, err = sink.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	got, err := os.ReadFile(filepath.Join(root, "upload.bin"))
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), got)

	_, err = store.Put("upload.bin")
	require.True(t, errors.Is(err, ErrAlreadyExists))

	_, err = store.Put("")
	require.True(t, errors.Is(err, ErrEmptyPath))
}

func TestFileStoreCleansEscapingNames(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(root)

	sink, err := store.Put("../../escape.txt")
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	// The cleaned name must land inside the root.
	_, err = os.Stat(filepath.Join(root, "escape.txt"))
	require.NoError(t, err)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	store.Add("seeded", []byte("abc"))

	src, err := store.Get("seeded")
	require.NoError(t, err)
	got, err := io.ReadAll(src)
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), got)

	_, err = store.Get("missing")
	require.True(t, errors.Is(err, ErrNotFound))

	sink, err := store.Put("written")
	require.NoError(t, err)
	_, err = sink.Write([]byte("xyz"))
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	src, err = store.Get("written")
	require.NoError(t, err)
	got, err = io.ReadAll(src)
	require.NoError(t, err)
	require.Equal(t, []byte("xyz"), got)

	_, err = store.Put("written")
	require.True(t, errors.Is(err, ErrAlreadyExists))

	_, err = store.Put("")
	require.True(t, errors.Is(err, ErrEmptyPath))
}
