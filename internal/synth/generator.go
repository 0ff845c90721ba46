// Package synth generates deterministic placeholder results for requests
// that every real acquisition strategy failed to serve. Output is pure
// string templating over the request's own parameters; generation cannot
// fail, which is what lets the strategy chain promise a result to every
// caller. Everything produced here is tagged synthetic so consumers can
// discount it.
package synth

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/insightforge/webintel/internal/fetch"
)

const sourceName = "synthetic"

// Stopwords excluded when deriving a subject token from a search query.
var queryStopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {},
	"for": {}, "in": {}, "on": {}, "to": {}, "with": {}, "best": {},
	"top": {}, "how": {}, "what": {}, "is": {}, "are": {},
}

// Generator fills fixed page, search and review templates around a
// subject token derived from the request target. It holds no state.
type Generator struct{}

// New returns a Generator.
func New() *Generator {
	return &Generator{}
}

// Page builds a placeholder PageResult for the given URL. The subject
// token comes from the URL's registrable domain label, so the same URL
// always yields the same content.
func (g *Generator) Page(pageURL string) *fetch.PageResult {
	subject := SubjectFromURL(pageURL)
	display := titleCase(subject)

	text := fmt.Sprintf(
		"%s provides products and services in its market segment. "+
			"Detailed information about %s was not reachable at collection time; "+
			"this placeholder summarizes the request so downstream processing can continue. "+
			"Refer to %s directly for current offerings, pricing and contact details.",
		display, subject, pageURL)

	return &fetch.PageResult{
		URL:             pageURL,
		Title:           fmt.Sprintf("%s - Overview", display),
		MetaDescription: fmt.Sprintf("Placeholder summary for %s.", subject),
		Headings:        []string{fmt.Sprintf("About %s", display)},
		Links:           []string{},
		Images:          []string{},
		Text:            text,
		Social:          map[string]string{},
		Prices:          []string{},
		Features: []string{
			fmt.Sprintf("%s product information", display),
			fmt.Sprintf("%s customer service", display),
		},
		Reviews: g.Reviews(subject, 2),
		Method:  fetch.MethodSynthetic,
	}
}

// Hits builds count placeholder search hits for the query. Titles and
// URLs are derived from the query's keyword set and an index, so equal
// inputs produce equal output.
func (g *Generator) Hits(query string, count int) []fetch.Hit {
	if count <= 0 {
		count = 1
	}
	subject := SubjectFromQuery(query)
	display := titleCase(subject)
	slug := slugify(subject)

	hits := make([]fetch.Hit, 0, count)
	for i := 0; i < count; i++ {
		hits = append(hits, fetch.Hit{
			Title:     fmt.Sprintf("%s - Result %d", display, i+1),
			URL:       fmt.Sprintf("https://%s.example/result-%d", slug, i+1),
			Snippet:   fmt.Sprintf("Placeholder result %d for %q. No live backend was reachable.", i+1, query),
			Source:    sourceName,
			Synthetic: true,
		})
	}
	return hits
}

// Reviews builds count placeholder review fragments around the subject.
// Ratings cycle through a fixed neutral-leaning sequence.
func (g *Generator) Reviews(subject string, count int) []fetch.ReviewFragment {
	if count <= 0 {
		count = 1
	}
	display := titleCase(subject)

	templates := []struct {
		text      string
		rating    float64
		sentiment fetch.Sentiment
	}{
		{"%s offers a solid experience overall, though some details were hard to verify.", 3.5, fetch.SentimentMixed},
		{"Customers report that %s support is responsive and generally helpful.", 4.0, fetch.SentimentPositive},
		{"Opinions on %s pricing are split; some find it fair, others too high.", 3.0, fetch.SentimentMixed},
	}

	reviews := make([]fetch.ReviewFragment, 0, count)
	for i := 0; i < count; i++ {
		tpl := templates[i%len(templates)]
		reviews = append(reviews, fetch.ReviewFragment{
			Text:      fmt.Sprintf(tpl.text, display),
			Rating:    tpl.rating,
			Sentiment: tpl.sentiment,
			Source:    sourceName,
			Synthetic: true,
		})
	}
	return reviews
}

// SubjectFromURL derives the subject token from a URL: the leftmost
// registrable label of the hostname, with common prefixes stripped.
// "https://www.example.invalid/x" and "http://example.invalid" both
// yield "example".
func SubjectFromURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	host := ""
	if err == nil {
		host = u.Hostname()
	}
	if host == "" {
		host = strings.TrimSpace(pageURL)
	}
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	if i := strings.IndexByte(host, '.'); i > 0 {
		host = host[:i]
	}
	// Keep only the leading label run so junk input still yields a token.
	for i := 0; i < len(host); i++ {
		c := host[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			host = host[:i]
			break
		}
	}
	host = strings.Trim(host, "-")
	if host == "" {
		return "unknown"
	}
	return host
}

// SubjectFromQuery derives the subject token from a search query: the
// longest non-stopword keyword, lowercased.
func SubjectFromQuery(query string) string {
	best := ""
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, `"'.,!?()`)
		if word == "" {
			continue
		}
		if _, stop := queryStopwords[word]; stop {
			continue
		}
		if len(word) > len(best) {
			best = word
		}
	}
	if best == "" {
		return "unknown"
	}
	return best
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "unknown"
	}
	return out
}
