package search

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/insightforge/webintel/internal/fetch"
	"github.com/insightforge/webintel/internal/fetcher/httpclient"
)

const duckDuckGoEndpoint = "https://html.duckduckgo.com/html/"

// duckDuckGoSelectors: the html.duckduckgo.com markup is stable, but the
// zci (instant answer) layout appears for some queries.
var duckDuckGoSelectors = []selectorSet{
	{container: "div.result", title: "a.result__a", link: "a.result__a", snippet: "a.result__snippet"},
	{container: "div.web-result", title: "h2 a", link: "h2 a", snippet: ".result__snippet"},
	{container: "div.links_main", title: "a.large", link: "a.large", snippet: ".snippet"},
}

// DuckDuckGo queries the HTML (non-JS) DuckDuckGo endpoint via form POST.
type DuckDuckGo struct {
	endpoint string
	client   *http.Client
	agents   *httpclient.AgentPool
}

// NewDuckDuckGo builds the adapter.
func NewDuckDuckGo(timeout time.Duration) *DuckDuckGo {
	return &DuckDuckGo{
		endpoint: duckDuckGoEndpoint,
		client:   newClient(timeout),
		agents:   httpclient.NewAgentPool(nil),
	}
}

// Name identifies the backend on returned hits.
func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Search posts the query form and parses the result page.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]fetch.Hit, error) {
	form := url.Values{}
	form.Set("q", query)
	form.Set("kl", "us-en")

	req, err := http.NewRequest(http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &fetch.NetworkError{URL: d.endpoint, Err: err}
	}
	browserHeaders(req, d.agents)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	doc, err := fetchDocument(ctx, d.client, req)
	if err != nil {
		return nil, err
	}
	hits := parseWithFallbacks(doc, duckDuckGoSelectors, d.Name(), maxResults, unwrapDuckDuckGo)
	if len(hits) == 0 {
		return nil, &fetch.ParseError{URL: d.endpoint, Reason: "no results matched any selector"}
	}
	return hits, nil
}
