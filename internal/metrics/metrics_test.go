package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareRecordsRequests(t *testing.T) {
	Init()
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Post("/v1/pages", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/v1/search", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	ts := httptest.NewServer(r)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/pages", "application/json", nil)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	resp, err = http.Post(ts.URL+"/v1/search", "application/json", nil)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	require.GreaterOrEqual(t, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "200")), 1.0)
	require.GreaterOrEqual(t, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "400")), 1.0)
	require.Positive(t, testutil.CollectAndCount(httpRequestDurationSeconds))
}

func TestFetchAndCacheCounters(t *testing.T) {
	Init()

	ObserveFetchAttempt("page", "http", "network")
	ObserveFetchAttempt("page", "browser", "accepted")
	ObserveFetchResult("page", "browser", SanitizeSite("https://Acme.test/path"))
	ObserveCacheMiss("page")
	ObserveCacheHit("page")
	ObserveBatchSize(5)
	ObserveHTTPRequest("GET", "/healthz", 200, 5*time.Millisecond)

	require.Equal(t, 1.0, testutil.ToFloat64(fetchAttemptsTotal.WithLabelValues("page", "http", "network")))
	require.Equal(t, 1.0, testutil.ToFloat64(fetchResultsTotal.WithLabelValues("page", "browser", "acme.test")))
	require.Equal(t, 1.0, testutil.ToFloat64(cacheEventsTotal.WithLabelValues("page", "hit")))
	require.Equal(t, 1.0, testutil.ToFloat64(cacheEventsTotal.WithLabelValues("page", "miss")))
}

func TestBreakerGauge(t *testing.T) {
	Init()

	SetBreakerOpen(true)
	require.Equal(t, 1.0, testutil.ToFloat64(browserBreakerOpen))
	SetBreakerOpen(false)
	require.Equal(t, 0.0, testutil.ToFloat64(browserBreakerOpen))
}

func TestSanitizeSite(t *testing.T) {
	require.Equal(t, "acme.test", SanitizeSite("https://acme.test/path"))
	require.Equal(t, "acme.test", SanitizeSite("acme.test"))
	require.Equal(t, "unknown", SanitizeSite("://bad"))
}
