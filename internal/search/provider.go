// Package search implements adapters for external search backends. Each
// adapter parses backend-specific markup with several selector fallbacks
// because result markup varies across rollout cohorts.
package search

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/insightforge/webintel/internal/fetch"
	"github.com/insightforge/webintel/internal/fetcher/httpclient"
)

// selectorSet is one structural hypothesis about a backend's result markup.
type selectorSet struct {
	container string
	title     string
	link      string
	snippet   string
}

func newClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

func browserHeaders(req *http.Request, agents *httpclient.AgentPool) {
	req.Header.Set("User-Agent", agents.Next())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}

// fetchDocument executes the request and parses the response as HTML.
func fetchDocument(ctx context.Context, client *http.Client, req *http.Request) (*goquery.Document, error) {
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, &fetch.NetworkError{URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &fetch.NetworkError{URL: req.URL.String(), Status: resp.StatusCode}
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &fetch.ParseError{URL: req.URL.String(), Reason: fmt.Sprintf("parse html: %v", err)}
	}
	return doc, nil
}

// parseWithFallbacks tries each selector set in order, returning the hits
// from the first set that matches at least one result.
func parseWithFallbacks(doc *goquery.Document, sets []selectorSet, source string, maxResults int, unwrap func(string) string) []fetch.Hit {
	for _, set := range sets {
		hits := parseSet(doc, set, source, maxResults, unwrap)
		if len(hits) > 0 {
			return hits
		}
	}
	return nil
}

func parseSet(doc *goquery.Document, set selectorSet, source string, maxResults int, unwrap func(string) string) []fetch.Hit {
	var hits []fetch.Hit
	doc.Find(set.container).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(hits) >= maxResults {
			return false
		}
		title := strings.TrimSpace(s.Find(set.title).First().Text())
		if title == "" {
			return true
		}
		href, ok := s.Find(set.link).First().Attr("href")
		if !ok || href == "" {
			return true
		}
		if unwrap != nil {
			href = unwrap(href)
		}
		if !strings.HasPrefix(href, "http") {
			return true
		}
		hits = append(hits, fetch.Hit{
			Title:   title,
			URL:     href,
			Snippet: strings.TrimSpace(s.Find(set.snippet).First().Text()),
			Source:  source,
		})
		return true
	})
	return dedupeByTitle(hits)
}

// dedupeByTitle removes hits whose normalized title was already seen,
// preserving order.
func dedupeByTitle(hits []fetch.Hit) []fetch.Hit {
	seen := make(map[string]struct{}, len(hits))
	out := hits[:0]
	for _, h := range hits {
		key := normalizeTitle(h.Title)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, h)
	}
	return out
}

func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// unwrapDuckDuckGo resolves DuckDuckGo's /l/?uddg= redirect wrapper.
func unwrapDuckDuckGo(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if !strings.Contains(u.Host, "duckduckgo.com") || u.Path != "/l/" {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

// unwrapBing resolves Bing's /ck/a click-tracking wrapper, whose u
// parameter carries the destination base64-encoded behind an "a1" prefix.
func unwrapBing(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if !strings.Contains(u.Host, "bing.com") || !strings.HasPrefix(u.Path, "/ck/") {
		return href
	}
	encoded := strings.TrimPrefix(u.Query().Get("u"), "a1")
	if encoded == "" {
		return href
	}
	decoded, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return href
	}
	if target := string(decoded); strings.HasPrefix(target, "http") {
		return target
	}
	return href
}
