package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/insightforge/webintel/internal/fetch"
	"github.com/insightforge/webintel/internal/fetcher/httpclient"
)

const startpageEndpoint = "https://www.startpage.com/sp/search"

// Startpage ships at least three result layouts across cohorts.
var startpageSelectors = []selectorSet{
	{container: "div.w-gl__result", title: "a.w-gl__result-title h3", link: "a.w-gl__result-url", snippet: "p.w-gl__description"},
	{container: "div.result", title: "a.result-link h3", link: "a.result-link", snippet: "p.description"},
	{container: "section#main div[class*=result]", title: "h3", link: "a[href^=http]", snippet: "p"},
}

// Startpage queries startpage.com over a plain GET. Results are direct
// destination links, no redirect unwrapping needed.
type Startpage struct {
	endpoint string
	client   *http.Client
	agents   *httpclient.AgentPool
}

// NewStartpage builds the adapter.
func NewStartpage(timeout time.Duration) *Startpage {
	return &Startpage{
		endpoint: startpageEndpoint,
		client:   newClient(timeout),
		agents:   httpclient.NewAgentPool(nil),
	}
}

// Name identifies the backend on returned hits.
func (s *Startpage) Name() string { return "startpage" }

// Search issues the query and parses the result page.
func (s *Startpage) Search(ctx context.Context, query string, maxResults int) ([]fetch.Hit, error) {
	target := fmt.Sprintf("%s?query=%s", s.endpoint, url.QueryEscape(query))
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return nil, &fetch.NetworkError{URL: target, Err: err}
	}
	browserHeaders(req, s.agents)

	doc, err := fetchDocument(ctx, s.client, req)
	if err != nil {
		return nil, err
	}
	hits := parseWithFallbacks(doc, startpageSelectors, s.Name(), maxResults, nil)
	if len(hits) == 0 {
		return nil, &fetch.ParseError{URL: target, Reason: "no results matched any selector"}
	}
	return hits, nil
}
