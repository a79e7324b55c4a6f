package atomicfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert"
)

func assertNotExists(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist), "expected '%s' to not exist", path)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Occupancy.txt")
	assert.NoError(t, WriteFile(path, []byte("1"), 0644))
	assert.NoError(t, WriteFile(path, []byte("12"), 0644))
	d, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "12", string(d))

	st, err := os.Stat(path)
	assert.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), st.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(entries))
}

func TestFailedWriteKeepsDestination(t *testing.T) {
	path := filepath.Join(t.TempDir(), "DataFile.txt")
	assert.NoError(t, WriteFile(path, []byte("old"), 0644))

	f, err := New(path, 0644)
	assert.NoError(t, err)
	_, err = f.Write([]byte("new"))
	assert.NoError(t, err)
	errWrite := errors.New("write failed")
	f.err = errWrite
	assert.Equal(t, errWrite, f.Close())
	// second Close returns the same error
	assert.Equal(t, errWrite, f.Close())
	assertNotExists(t, f.tmpPath)

	d, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "old", string(d))
}

func TestRemoveIfNotClosed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clients.gz")
	f, err := New(path, 0644)
	assert.NoError(t, err)
	_, err = f.Write([]byte("x"))
	assert.NoError(t, err)
	f.RemoveIfNotClosed()
	assertNotExists(t, f.tmpPath)
	assertNotExists(t, path)
	assert.Equal(t, ErrCancelled, f.Close())

	f, err = New(path, 0644)
	assert.NoError(t, err)
	assert.NoError(t, f.Close())
	// no-op after Close
	f.RemoveIfNotClosed()
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestNewInvalidPath(t *testing.T) {
	_, err := New(t.TempDir()+string(filepath.Separator), 0644)
	assert.Error(t, err)
	_, err = New(filepath.Join(t.TempDir(), "missing", "x.txt"), 0644)
	assert.Error(t, err)
}
