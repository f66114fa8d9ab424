package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalRejectsEmptyDir(t *testing.T) {
	_, err := NewLocal("")
	assert.Error(t, err)
}

func TestNewLocalCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snaps")
	_, err := NewLocal(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewLocalRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	_, err := NewLocal(path)
	assert.Error(t, err)
}

func TestPutWritesSnapshot(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(dir)
	require.NoError(t, err)

	uri, err := l.Put(context.Background(), "94044975-0220-1", []byte("<html>page</html>"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "file://"))

	data, err := os.ReadFile(strings.TrimPrefix(uri, "file://"))
	require.NoError(t, err)
	assert.Equal(t, "<html>page</html>", string(data))

	// snapshots are grouped per tracking number
	assert.Contains(t, uri, filepath.Join(dir, "94044975-0220-1"))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "94044975-0220-1", sanitize("94044975-0220-1"))
	assert.Equal(t, "___123456__", sanitize("../123456/x"))
}
