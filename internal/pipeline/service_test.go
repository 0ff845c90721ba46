package pipeline

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/insightforge/webintel/internal/extract"
	"github.com/insightforge/webintel/internal/fetch"
	"github.com/insightforge/webintel/internal/metrics"
	"github.com/insightforge/webintel/internal/synth"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]any
	ttls    map[string]time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]any{}, ttls: map[string]time.Duration{}}
}

func (c *fakeCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *fakeCache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	c.ttls[key] = ttl
}

func (c *fakeCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]any{}
	c.ttls = map[string]time.Duration{}
}

func (c *fakeCache) soleTTL(t *testing.T) time.Duration {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.Len(t, c.ttls, 1)
	for _, ttl := range c.ttls {
		return ttl
	}
	return 0
}

type fakeStrategy struct {
	method fetch.Method
	markup string
	err    error
	calls  atomic.Int32
}

func (f *fakeStrategy) Method() fetch.Method { return f.method }

func (f *fakeStrategy) FetchMarkup(_ context.Context, _ string, _ time.Duration) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.markup, nil
}

type fakeProvider struct {
	name  string
	hits  []fetch.Hit
	err   error
	calls atomic.Int32
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(_ context.Context, _ string, _ int) ([]fetch.Hit, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type recordingArchive struct {
	mu       sync.Mutex
	pages    []*fetch.PageResult
	searches []*fetch.SearchResult
}

func (a *recordingArchive) SavePage(_ context.Context, p *fetch.PageResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pages = append(a.pages, p)
	return nil
}

func (a *recordingArchive) SaveSearch(_ context.Context, r *fetch.SearchResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.searches = append(a.searches, r)
	return nil
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, any) (string, error) {
	return "", errors.New("bus unavailable")
}

const richMarkup = `<html><head><title>Acme Widgets</title></head><body><main>` +
	`<h1>Acme Widgets</h1><p>Acme builds quality widgets for industrial customers. ` +
	`Our product line covers fasteners, brackets and custom tooling, shipped worldwide ` +
	`from three regional warehouses with excellent support.</p></main></body></html>`

const thinMarkup = `<html><body><p>Loading...</p></body></html>`

// Long enough to be accepted but free of opinion wording, so review
// mining finds nothing in it.
const neutralMarkup = `<html><head><title>Acme Logistics</title></head><body>` +
	`<p>Acme ships fasteners, brackets and tooling from three regional warehouses. ` +
	`Orders placed before noon leave the same day. Weekend dispatch runs from the ` +
	`central depot only.</p></body></html>`

func newService(t *testing.T, cfg Config, deps Deps) *Service {
	t.Helper()
	if deps.Cache == nil {
		deps.Cache = newFakeCache()
	}
	if deps.Clock == nil {
		deps.Clock = fixedClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	}
	ex := extract.New()
	if deps.Extractor == nil {
		deps.Extractor = ex
	}
	if deps.Reviews == nil {
		deps.Reviews = ex
	}
	if deps.Synth == nil {
		deps.Synth = synth.New()
	}
	if cfg.BatchPause == 0 {
		cfg.BatchPause = -1
	}
	svc, err := New(zap.NewNop(), cfg, deps)
	require.NoError(t, err)
	return svc
}

func TestFetchPage_FirstStrategyWins(t *testing.T) {
	t.Parallel()

	httpStrat := &fakeStrategy{method: fetch.MethodHTTP, markup: richMarkup}
	browserStrat := &fakeStrategy{method: fetch.MethodBrowser, markup: richMarkup}
	svc := newService(t, Config{}, Deps{Pages: []fetch.PageStrategy{httpStrat, browserStrat}})

	page := svc.FetchPage(context.Background(), "https://acme.test/", fetch.Options{})
	require.Equal(t, fetch.MethodHTTP, page.Method)
	require.Equal(t, "Acme Widgets", page.Title)
	require.EqualValues(t, 1, httpStrat.calls.Load())
	require.EqualValues(t, 0, browserStrat.calls.Load())
}

func TestFetchPage_FallsThroughOnThinContent(t *testing.T) {
	t.Parallel()

	httpStrat := &fakeStrategy{method: fetch.MethodHTTP, markup: thinMarkup}
	browserStrat := &fakeStrategy{method: fetch.MethodBrowser, markup: richMarkup}
	svc := newService(t, Config{}, Deps{Pages: []fetch.PageStrategy{httpStrat, browserStrat}})

	page := svc.FetchPage(context.Background(), "https://acme.test/", fetch.Options{})
	require.Equal(t, fetch.MethodBrowser, page.Method)
	require.EqualValues(t, 1, httpStrat.calls.Load())
	require.EqualValues(t, 1, browserStrat.calls.Load())
}

func TestFetchPage_TotalFailureYieldsSynthetic(t *testing.T) {
	t.Parallel()

	httpStrat := &fakeStrategy{method: fetch.MethodHTTP, err: &fetch.NetworkError{URL: "https://example.invalid/", Err: errors.New("connection refused")}}
	browserStrat := &fakeStrategy{method: fetch.MethodBrowser, err: &fetch.ResourceUnavailableError{Resource: "browser"}}
	cache := newFakeCache()
	svc := newService(t, Config{}, Deps{Pages: []fetch.PageStrategy{httpStrat, browserStrat}, Cache: cache})

	page := svc.FetchPage(context.Background(), "https://example.invalid/nonexistent", fetch.Options{})
	require.Equal(t, fetch.MethodSynthetic, page.Method)
	require.NotEmpty(t, page.Title)
	require.Contains(t, page.Text, "example")
	require.NotNil(t, page.Reviews)
	require.False(t, page.FetchedAt.IsZero())

	// Synthetic results are cached for the shorter TTL.
	require.Equal(t, DefaultSyntheticTTL, cache.soleTTL(t))
}

func TestFetchPage_CacheHitSkipsStrategies(t *testing.T) {
	t.Parallel()

	httpStrat := &fakeStrategy{method: fetch.MethodHTTP, markup: richMarkup}
	cache := newFakeCache()
	svc := newService(t, Config{}, Deps{Pages: []fetch.PageStrategy{httpStrat}, Cache: cache})

	ctx := context.Background()
	first := svc.FetchPage(ctx, "https://acme.test/page#section", fetch.Options{})
	// Differs only in fragment and host case, same cache entry.
	second := svc.FetchPage(ctx, "https://ACME.test/page", fetch.Options{})
	require.Same(t, first, second)
	require.EqualValues(t, 1, httpStrat.calls.Load())
	require.Equal(t, DefaultPageTTL, cache.soleTTL(t))

	svc.FetchPage(ctx, "https://acme.test/page", fetch.Options{SkipCache: true})
	require.EqualValues(t, 2, httpStrat.calls.Load())
}

func TestSearch_ProviderOrderAndSyntheticFallback(t *testing.T) {
	t.Parallel()

	broken := &fakeProvider{name: "duckduckgo", err: &fetch.NetworkError{URL: "https://duckduckgo.test", Err: errors.New("request blocked")}}
	empty := &fakeProvider{name: "bing"}
	svc := newService(t, Config{}, Deps{Providers: []fetch.SearchProvider{broken, empty}})

	res := svc.Search(context.Background(), "best coffee subscription", 4, fetch.Options{})
	require.Equal(t, fetch.MethodSynthetic, res.Method)
	require.Len(t, res.Hits, 4)
	for _, h := range res.Hits {
		require.True(t, h.Synthetic)
	}
	require.EqualValues(t, 1, broken.calls.Load())
	require.EqualValues(t, 1, empty.calls.Load())
}

func TestSearch_FirstNonEmptyProviderWins(t *testing.T) {
	t.Parallel()

	hits := []fetch.Hit{{Title: "Acme", URL: "https://acme.test", Source: "duckduckgo"}}
	first := &fakeProvider{name: "duckduckgo", hits: hits}
	second := &fakeProvider{name: "bing", hits: []fetch.Hit{{Title: "Other"}}}
	svc := newService(t, Config{}, Deps{Providers: []fetch.SearchProvider{first, second}})

	res := svc.Search(context.Background(), "acme", 5, fetch.Options{})
	require.Equal(t, fetch.MethodHTTP, res.Method)
	require.Equal(t, hits, res.Hits)
	require.EqualValues(t, 0, second.calls.Load())
}

func TestSearch_QueryNormalizationSharesCache(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{name: "duckduckgo", hits: []fetch.Hit{{Title: "Acme"}}}
	svc := newService(t, Config{}, Deps{Providers: []fetch.SearchProvider{provider}})

	ctx := context.Background()
	svc.Search(ctx, "  Coffee   Beans ", 5, fetch.Options{})
	svc.Search(ctx, "coffee beans", 5, fetch.Options{})
	require.EqualValues(t, 1, provider.calls.Load())

	// A different result count is a different cache entry.
	svc.Search(ctx, "coffee beans", 6, fetch.Options{})
	require.EqualValues(t, 2, provider.calls.Load())
}

func TestFetchMultiple_PreservesOrder(t *testing.T) {
	t.Parallel()

	httpStrat := &fakeStrategy{method: fetch.MethodHTTP, markup: richMarkup}
	svc := newService(t, Config{BatchSize: 2, MaxConcurrency: 2, BatchPause: -1},
		Deps{Pages: []fetch.PageStrategy{httpStrat}})

	urls := []string{
		"https://a.test/", "https://b.test/", "https://c.test/",
		"https://d.test/", "https://e.test/",
	}
	results := svc.FetchMultiple(context.Background(), urls, fetch.BatchOptions{})
	require.Len(t, results, len(urls))
	for i, page := range results {
		require.NotNil(t, page, urls[i])
		require.Equal(t, urls[i], page.URL)
	}
}

func TestFetchMultiple_EmptyInput(t *testing.T) {
	t.Parallel()

	svc := newService(t, Config{}, Deps{})
	require.Empty(t, svc.FetchMultiple(context.Background(), nil, fetch.BatchOptions{}))
}

func TestExtractReviews_SyntheticWhenPageHasNone(t *testing.T) {
	t.Parallel()

	httpStrat := &fakeStrategy{method: fetch.MethodHTTP, markup: neutralMarkup}
	svc := newService(t, Config{SyntheticReviewCount: 2}, Deps{Pages: []fetch.PageStrategy{httpStrat}})

	reviews := svc.ExtractReviews(context.Background(), "https://nothing.test/", fetch.Options{})
	require.NotEmpty(t, reviews)
	for _, r := range reviews {
		require.True(t, r.Synthetic)
	}
}

func TestHooks_ArchiveRecordedAndPublisherFailureSwallowed(t *testing.T) {
	t.Parallel()

	httpStrat := &fakeStrategy{method: fetch.MethodHTTP, markup: richMarkup}
	archive := &recordingArchive{}
	svc := newService(t, Config{}, Deps{
		Pages:     []fetch.PageStrategy{httpStrat},
		Providers: []fetch.SearchProvider{&fakeProvider{name: "duckduckgo", hits: []fetch.Hit{{Title: "Acme"}}}},
		Archive:   archive,
		Publisher: failingPublisher{},
	})

	ctx := context.Background()
	svc.FetchPage(ctx, "https://acme.test/", fetch.Options{})
	svc.Search(ctx, "acme", 3, fetch.Options{})

	require.Len(t, archive.pages, 1)
	require.Len(t, archive.searches, 1)
}

func TestClearCache(t *testing.T) {
	t.Parallel()

	httpStrat := &fakeStrategy{method: fetch.MethodHTTP, markup: richMarkup}
	svc := newService(t, Config{}, Deps{Pages: []fetch.PageStrategy{httpStrat}})

	ctx := context.Background()
	svc.FetchPage(ctx, "https://acme.test/", fetch.Options{})
	svc.ClearCache()
	svc.FetchPage(ctx, "https://acme.test/", fetch.Options{})
	require.EqualValues(t, 2, httpStrat.calls.Load())
}
