package storage

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveStreamAndDelete(t *testing.T) {
	spool, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	path, err := spool.SaveStream("avatar.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, spool.Delete(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Deleting an already deleted file is a no-op.
	assert.NoError(t, spool.Delete(path))
}

func TestDeleteSavedPathWithRelativeBaseDir(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer func() {
		require.NoError(t, os.Chdir(wd))
	}()

	spool, err := NewLocalStorage("./uploads")
	require.NoError(t, err)

	// SaveStream returns a path already rooted under the base dir; Delete
	// must not join it against the base dir a second time.
	path, err := spool.SaveStream("avatar.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	require.NoError(t, spool.Delete(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "spool file still exists at %s", path)
}

func TestDeleteBareNameWithRelativeBaseDir(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer func() {
		require.NoError(t, os.Chdir(wd))
	}()

	spool, err := NewLocalStorage("./uploads")
	require.NoError(t, err)

	path, err := spool.SaveStream("cover.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	require.NoError(t, spool.Delete("cover.png"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	spool, err := NewLocalStorage(dir)
	require.NoError(t, err)

	stale, err := spool.SaveStream("stale.png", strings.NewReader("old"))
	require.NoError(t, err)
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	fresh, err := spool.SaveStream("fresh.png", strings.NewReader("new"))
	require.NoError(t, err)

	deleted, err := spool.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"stale.png"}, deleted)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}
