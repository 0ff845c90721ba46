package sha256

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHash_KnownDigest(t *testing.T) {
	t.Parallel()

	h := New()
	// sha256("") is a well-known constant.
	require.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		h.Hash(nil),
	)
}

func TestHash_DiffersPerInput(t *testing.T) {
	t.Parallel()

	h := New()
	require.NotEqual(t, h.Hash([]byte("a")), h.Hash([]byte("b")))
	require.Equal(t, h.Hash([]byte("same")), h.Hash([]byte("same")))
}
