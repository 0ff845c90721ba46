// Package httpclient implements the cheap HTTP(S) page strategy using gocolly.
package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/insightforge/webintel/internal/fetch"
)

// Config controls collector behavior.
type Config struct {
	Timeout    time.Duration
	UserAgents []string
}

// Fetcher is the plain-HTTP page strategy. It performs a single GET with a
// rotated user-agent, treats any non-2xx/3xx status or timeout as failure
// and never retries; retries belong to the strategy chain.
type Fetcher struct {
	cfg           Config
	agents        *AgentPool
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	// Clones share the visited-URL storage, so revisits must stay legal
	// or a URL could only ever be fetched once per process.
	c.AllowURLRevisit = true
	c.WithTransport(newHTTPTransport())

	return &Fetcher{
		cfg:           cfg,
		agents:        NewAgentPool(cfg.UserAgents),
		baseCollector: c,
	}
}

// Method identifies this strategy on produced results.
func (f *Fetcher) Method() fetch.Method {
	return fetch.MethodHTTP
}

// FetchMarkup executes a single HTTP GET and returns the response body.
func (f *Fetcher) FetchMarkup(ctx context.Context, url string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = f.cfg.Timeout
	}

	collector := f.baseCollector.Clone()
	collector.IgnoreRobotsTxt = true
	collector.UserAgent = f.agents.Next()
	collector.SetRequestTimeout(timeout)

	var (
		body     []byte
		status   int
		fetchErr error
	)
	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	if err := f.runCollector(ctx, collector, url); err != nil {
		return "", err
	}
	if fetchErr != nil {
		return "", &fetch.NetworkError{URL: url, Status: status, Err: fetchErr}
	}
	if status >= http.StatusBadRequest {
		return "", &fetch.NetworkError{URL: url, Status: status}
	}
	return string(body), nil
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return &fetch.NetworkError{URL: url, Err: fmt.Errorf("fetch canceled: %w", ctx.Err())}
	case err := <-done:
		if err != nil {
			return &fetch.NetworkError{URL: url, Err: fmt.Errorf("visit: %w", err)}
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
