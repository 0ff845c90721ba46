package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/insightforge/webintel/internal/fetch"
)

func TestFetchMarkup_ReturnsBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second})
	markup, err := f.FetchMarkup(context.Background(), srv.URL, 0)
	require.NoError(t, err)
	require.Contains(t, markup, "hello")
}

func TestFetchMarkup_NonSuccessStatusIsNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := New(Config{})
	_, err := f.FetchMarkup(context.Background(), srv.URL, time.Second)
	require.Error(t, err)
	require.Equal(t, "network", fetch.Classify(err))
}

func TestFetchMarkup_ConnectionRefused(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	_, err := f.FetchMarkup(context.Background(), "http://127.0.0.1:1", time.Second)
	require.Error(t, err)
	require.Equal(t, "network", fetch.Classify(err))
}

func TestFetchMarkup_RotatesUserAgents(t *testing.T) {
	t.Parallel()

	seen := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(Config{UserAgents: []string{"agent-a", "agent-b"}})
	for i := 0; i < 4; i++ {
		_, err := f.FetchMarkup(context.Background(), srv.URL, time.Second)
		require.NoError(t, err)
	}
	close(seen)

	var agents []string
	for ua := range seen {
		agents = append(agents, ua)
	}
	require.Equal(t, []string{"agent-a", "agent-b", "agent-a", "agent-b"}, agents)
}

func TestAgentPool_DefaultsWhenEmpty(t *testing.T) {
	t.Parallel()

	pool := NewAgentPool(nil)
	require.NotEmpty(t, pool.Next())
}

func TestFetchMarkup_SameURLCanBeFetchedAgain(t *testing.T) {
	t.Parallel()

	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = w.Write([]byte("<html><body>take</body></html>"))
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second})
	for i := 0; i < 2; i++ {
		markup, err := f.FetchMarkup(context.Background(), srv.URL, 0)
		require.NoError(t, err)
		require.Contains(t, markup, "take")
	}
	require.Equal(t, 2, hits)
}
