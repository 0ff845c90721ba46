// Package pipeline orchestrates the acquisition strategies behind the
// public operations. It owns the ordering (cheap HTTP, then browser,
// then synthetic), the cache, pacing and the contract that a caller
// always receives a usable result and never an error.
package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/insightforge/webintel/internal/fetch"
	"github.com/insightforge/webintel/internal/metrics"
	"github.com/insightforge/webintel/internal/pacing"
	"github.com/insightforge/webintel/internal/synth"
)

// Archiver persists produced results for later analysis.
type Archiver interface {
	SavePage(ctx context.Context, page *fetch.PageResult) error
	SaveSearch(ctx context.Context, res *fetch.SearchResult) error
}

// SnapshotStore persists raw fetched markup.
type SnapshotStore interface {
	Save(ctx context.Context, pageURL string, markup []byte) (string, error)
}

// Config tunes the pipeline. Zero values fall back to the defaults below.
type Config struct {
	DefaultTimeout       time.Duration
	MinTextLen           int
	DefaultMaxResults    int
	PageTTL              time.Duration
	SearchTTL            time.Duration
	SyntheticTTL         time.Duration
	BatchSize            int
	BatchPause           time.Duration
	MaxConcurrency       int
	SyntheticReviewCount int
}

// Pipeline defaults.
const (
	DefaultTimeout      = 20 * time.Second
	DefaultMinTextLen   = 50
	DefaultMaxResults   = 10
	DefaultPageTTL      = 15 * time.Minute
	DefaultSearchTTL    = 10 * time.Minute
	DefaultSyntheticTTL = 2 * time.Minute
	DefaultBatchSize    = 5
	DefaultBatchPause   = 500 * time.Millisecond
	DefaultConcurrency  = 3
	DefaultReviewCount  = 3
)

func (c *Config) applyDefaults() {
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = DefaultTimeout
	}
	if c.MinTextLen <= 0 {
		c.MinTextLen = DefaultMinTextLen
	}
	if c.DefaultMaxResults <= 0 {
		c.DefaultMaxResults = DefaultMaxResults
	}
	if c.PageTTL <= 0 {
		c.PageTTL = DefaultPageTTL
	}
	if c.SearchTTL <= 0 {
		c.SearchTTL = DefaultSearchTTL
	}
	if c.SyntheticTTL <= 0 {
		c.SyntheticTTL = DefaultSyntheticTTL
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	// Negative BatchPause disables the inter-batch pause.
	if c.BatchPause == 0 {
		c.BatchPause = DefaultBatchPause
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultConcurrency
	}
	if c.SyntheticReviewCount <= 0 {
		c.SyntheticReviewCount = DefaultReviewCount
	}
}

// Deps are the pipeline's collaborators. Cache, Clock, Extractor,
// Reviews and Synth are required; Pacer, Archive, Snapshots and
// Publisher are optional.
type Deps struct {
	Cache     fetch.Cache
	Clock     fetch.Clock
	Pages     []fetch.PageStrategy
	Providers []fetch.SearchProvider
	Extractor fetch.Extractor
	Reviews   fetch.ReviewExtractor
	Synth     *synth.Generator
	Pacer     *pacing.Limiter
	Archive   Archiver
	Snapshots SnapshotStore
	Publisher fetch.Publisher
}

// Service implements the public acquisition operations.
type Service struct {
	log  *zap.Logger
	cfg  Config
	deps Deps
}

// New validates deps and builds a Service.
func New(log *zap.Logger, cfg Config, deps Deps) (*Service, error) {
	if log == nil {
		return nil, fmt.Errorf("pipeline: logger is required")
	}
	if deps.Cache == nil {
		return nil, fmt.Errorf("pipeline: cache is required")
	}
	if deps.Clock == nil {
		return nil, fmt.Errorf("pipeline: clock is required")
	}
	if deps.Extractor == nil || deps.Reviews == nil {
		return nil, fmt.Errorf("pipeline: extractor is required")
	}
	if deps.Synth == nil {
		return nil, fmt.Errorf("pipeline: synthetic generator is required")
	}
	cfg.applyDefaults()
	return &Service{log: log, cfg: cfg, deps: deps}, nil
}

// FetchPage resolves one URL into a structured PageResult. It never
// returns an error: on total strategy failure the result is synthetic
// and flagged as such through its Method field.
func (s *Service) FetchPage(ctx context.Context, pageURL string, opts fetch.Options) *fetch.PageResult {
	key := cacheKey("page", normalizeURL(pageURL))
	if !opts.SkipCache {
		if page, ok := cachedAs[*fetch.PageResult](s.deps.Cache, key); ok {
			metrics.ObserveCacheHit("page")
			return page
		}
		metrics.ObserveCacheMiss("page")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.cfg.DefaultTimeout
	}

	attempts := make([]attempt[*fetch.PageResult], 0, len(s.deps.Pages))
	for _, strat := range s.deps.Pages {
		strat := strat
		attempts = append(attempts, attempt[*fetch.PageResult]{
			name: string(strat.Method()),
			run: func(ctx context.Context) (*fetch.PageResult, error) {
				if err := s.pace(ctx, pageURL); err != nil {
					return nil, err
				}
				markup, err := strat.FetchMarkup(ctx, pageURL, timeout)
				if err != nil {
					return nil, err
				}
				s.snapshot(ctx, pageURL, markup)
				page := s.deps.Extractor.Extract(pageURL, markup)
				page.Reviews = s.deps.Reviews.Reviews(pageURL, markup)
				page.Method = strat.Method()
				page.FetchedAt = s.deps.Clock.Now()
				return page, nil
			},
		})
	}

	accept := func(p *fetch.PageResult) error {
		if len(p.Text) < s.cfg.MinTextLen {
			return &fetch.QualityTooLowError{
				Reason: fmt.Sprintf("extracted text under %d bytes", s.cfg.MinTextLen),
			}
		}
		return nil
	}
	page, _, ok := runChain(ctx, s.log, "page", pageURL, attempts, accept)
	ttl := s.cfg.PageTTL
	if !ok {
		page = s.deps.Synth.Page(pageURL)
		page.FetchedAt = s.deps.Clock.Now()
		ttl = s.cfg.SyntheticTTL
		s.log.Info("serving synthetic page", zap.String("url", pageURL))
	}

	metrics.ObserveFetchResult("page", string(page.Method), metrics.SanitizeSite(pageURL))
	s.deps.Cache.Set(key, page, ttl)
	s.recordPage(ctx, page)
	return page
}

// Search runs the query against the configured providers in order and
// returns the first non-empty hit list, falling back to maxResults
// synthetic hits. It never returns an error.
func (s *Service) Search(ctx context.Context, query string, maxResults int, opts fetch.Options) *fetch.SearchResult {
	if maxResults <= 0 {
		maxResults = s.cfg.DefaultMaxResults
	}
	key := cacheKey("search", normalizeQuery(query), strconv.Itoa(maxResults))
	if !opts.SkipCache {
		if res, ok := cachedAs[*fetch.SearchResult](s.deps.Cache, key); ok {
			metrics.ObserveCacheHit("search")
			return res
		}
		metrics.ObserveCacheMiss("search")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.cfg.DefaultTimeout
	}

	attempts := make([]attempt[[]fetch.Hit], 0, len(s.deps.Providers))
	for _, provider := range s.deps.Providers {
		provider := provider
		attempts = append(attempts, attempt[[]fetch.Hit]{
			name: provider.Name(),
			run: func(ctx context.Context) ([]fetch.Hit, error) {
				ctx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()
				return provider.Search(ctx, query, maxResults)
			},
		})
	}

	hits, _, ok := runChain(ctx, s.log, "search", query, attempts, func(hs []fetch.Hit) error {
		if len(hs) == 0 {
			return &fetch.QualityTooLowError{Reason: "provider returned no hits"}
		}
		return nil
	})

	method := fetch.MethodHTTP
	ttl := s.cfg.SearchTTL
	if !ok {
		hits = s.deps.Synth.Hits(query, maxResults)
		method = fetch.MethodSynthetic
		ttl = s.cfg.SyntheticTTL
		s.log.Info("serving synthetic search hits", zap.String("query", query))
	}

	res := &fetch.SearchResult{
		Query:     query,
		Hits:      hits,
		Method:    method,
		FetchedAt: s.deps.Clock.Now(),
	}
	metrics.ObserveFetchResult("search", string(method), "none")
	s.deps.Cache.Set(key, res, ttl)
	s.recordSearch(ctx, res)
	return res
}

// FetchMultiple resolves urls in input order, processing them in
// bounded batches with a pause between batches. Every position in the
// returned slice is filled; failed targets become synthetic results.
func (s *Service) FetchMultiple(ctx context.Context, urls []string, opts fetch.BatchOptions) []*fetch.PageResult {
	metrics.ObserveBatchSize(len(urls))
	results := make([]*fetch.PageResult, len(urls))
	if len(urls) == 0 {
		return results
	}

	conc := opts.MaxConcurrency
	if conc <= 0 {
		conc = s.cfg.MaxConcurrency
	}

	for start := 0; start < len(urls); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(urls) {
			end = len(urls)
		}

		sem := make(chan struct{}, conc)
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				results[i] = s.FetchPage(ctx, urls[i], opts.Options)
			}(i)
		}
		wg.Wait()

		if end < len(urls) && s.cfg.BatchPause > 0 {
			select {
			case <-time.After(s.cfg.BatchPause):
			case <-ctx.Done():
			}
		}
	}
	return results
}

// ExtractReviews fetches the page and returns its mined review
// fragments, falling back to synthetic reviews when extraction yields
// none.
func (s *Service) ExtractReviews(ctx context.Context, pageURL string, opts fetch.Options) []fetch.ReviewFragment {
	page := s.FetchPage(ctx, pageURL, opts)
	if len(page.Reviews) > 0 {
		return page.Reviews
	}
	return s.deps.Synth.Reviews(synth.SubjectFromURL(pageURL), s.cfg.SyntheticReviewCount)
}

// ClearCache drops all cached results.
func (s *Service) ClearCache() {
	s.deps.Cache.Clear()
}

func (s *Service) pace(ctx context.Context, target string) error {
	if s.deps.Pacer == nil {
		return nil
	}
	return s.deps.Pacer.Wait(ctx, target)
}

func (s *Service) snapshot(ctx context.Context, pageURL, markup string) {
	if s.deps.Snapshots == nil {
		return
	}
	if _, err := s.deps.Snapshots.Save(ctx, pageURL, []byte(markup)); err != nil {
		s.log.Warn("snapshot save failed", zap.String("url", pageURL), zap.Error(err))
	}
}

func (s *Service) recordPage(ctx context.Context, page *fetch.PageResult) {
	if s.deps.Archive != nil {
		if err := s.deps.Archive.SavePage(ctx, page); err != nil {
			s.log.Warn("archive page failed", zap.String("url", page.URL), zap.Error(err))
		}
	}
	if s.deps.Publisher != nil {
		if _, err := s.deps.Publisher.Publish(ctx, "page.fetched", page); err != nil {
			s.log.Warn("publish page event failed", zap.String("url", page.URL), zap.Error(err))
		}
	}
}

func (s *Service) recordSearch(ctx context.Context, res *fetch.SearchResult) {
	if s.deps.Archive != nil {
		if err := s.deps.Archive.SaveSearch(ctx, res); err != nil {
			s.log.Warn("archive search failed", zap.String("query", res.Query), zap.Error(err))
		}
	}
	if s.deps.Publisher != nil {
		if _, err := s.deps.Publisher.Publish(ctx, "search.completed", res); err != nil {
			s.log.Warn("publish search event failed", zap.String("query", res.Query), zap.Error(err))
		}
	}
}

func cachedAs[T any](c fetch.Cache, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

func cacheKey(parts ...string) string {
	return strings.Join(parts, "|")
}

// normalizeURL canonicalizes a target so trivially different spellings
// share a cache entry: lowercase scheme and host, fragment dropped,
// empty path written as "/".
func normalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimSpace(raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
