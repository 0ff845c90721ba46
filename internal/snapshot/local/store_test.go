package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveWritesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := New(dir, "pages")
	require.NoError(t, err)

	uri, err := store.Save(context.Background(), "https://acme.test/", []byte("<html>hi</html>"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "file://"))

	data, err := os.ReadFile(strings.TrimPrefix(uri, "file://"))
	require.NoError(t, err)
	require.Equal(t, "<html>hi</html>", string(data))
}

func TestNewCreatesMissingDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "snapshots")
	_, err := New(dir, "pages")
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestNewRejectsEmptyDir(t *testing.T) {
	t.Parallel()

	_, err := New("  ", "pages")
	require.Error(t, err)
}

func TestSaveIsIdempotentForSameContent(t *testing.T) {
	t.Parallel()

	store, err := New(t.TempDir(), "pages")
	require.NoError(t, err)

	ctx := context.Background()
	first, err := store.Save(ctx, "https://acme.test/", []byte("<html></html>"))
	require.NoError(t, err)
	second, err := store.Save(ctx, "https://acme.test/", []byte("<html></html>"))
	require.NoError(t, err)
	require.Equal(t, first, second)
}
