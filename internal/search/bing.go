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

const bingEndpoint = "https://www.bing.com/search"

var bingSelectors = []selectorSet{
	{container: "li.b_algo", title: "h2", link: "h2 a", snippet: ".b_caption p"},
	{container: "li.b_algo", title: "h2", link: "a", snippet: "p"},
	{container: "#b_results > li", title: "h2", link: "a", snippet: "p"},
}

// Bing queries the Bing result page over a plain GET.
type Bing struct {
	endpoint string
	client   *http.Client
	agents   *httpclient.AgentPool
}

// NewBing builds the adapter.
func NewBing(timeout time.Duration) *Bing {
	return &Bing{
		endpoint: bingEndpoint,
		client:   newClient(timeout),
		agents:   httpclient.NewAgentPool(nil),
	}
}

// Name identifies the backend on returned hits.
func (b *Bing) Name() string { return "bing" }

// Search issues the query and parses the result page.
func (b *Bing) Search(ctx context.Context, query string, maxResults int) ([]fetch.Hit, error) {
	target := fmt.Sprintf("%s?q=%s&count=%d", b.endpoint, url.QueryEscape(query), maxResults+5)
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return nil, &fetch.NetworkError{URL: target, Err: err}
	}
	browserHeaders(req, b.agents)

	doc, err := fetchDocument(ctx, b.client, req)
	if err != nil {
		return nil, err
	}
	hits := parseWithFallbacks(doc, bingSelectors, b.Name(), maxResults, unwrapBing)
	if len(hits) == 0 {
		return nil, &fetch.ParseError{URL: target, Reason: "no results matched any selector"}
	}
	return hits, nil
}
