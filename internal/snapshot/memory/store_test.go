package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveAndGet(t *testing.T) {
	t.Parallel()

	s := New("pages")
	uri, err := s.Save(context.Background(), "https://acme.test/", []byte("<html></html>"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "mem://pages/acme.test/"))

	data, ok := s.Get(strings.TrimPrefix(uri, "mem://"))
	require.True(t, ok)
	require.Equal(t, "<html></html>", string(data))
	require.Equal(t, 1, s.Len())
}
