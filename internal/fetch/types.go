// Package fetch defines core types shared across the acquisition subsystems.
package fetch

import "time"

// Method identifies the strategy that produced a result.
type Method string

// Strategy names recorded on every result.
const (
	MethodHTTP      Method = "http"
	MethodBrowser   Method = "browser"
	MethodSynthetic Method = "synthetic"
)

// Sentiment classifies the overall tone of a review fragment.
type Sentiment string

// Sentiment labels derived from the estimated rating.
const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentMixed    Sentiment = "mixed"
)

// ContactInfo holds contact details mined from page text.
type ContactInfo struct {
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// ReviewFragment is a single opinion-bearing text fragment with an
// estimated rating on a 1-5 half-point scale.
type ReviewFragment struct {
	Text      string    `json:"text"`
	Rating    float64   `json:"rating"`
	Sentiment Sentiment `json:"sentiment"`
	Source    string    `json:"source"`
	Synthetic bool      `json:"synthetic"`
}

// PageResult is the structured document produced for a single URL.
// Reviews is always non-nil, Text is capped, and Method records which
// strategy produced the content.
type PageResult struct {
	URL             string            `json:"url"`
	Title           string            `json:"title"`
	MetaDescription string            `json:"meta_description"`
	Headings        []string          `json:"headings"`
	Links           []string          `json:"links"`
	Images          []string          `json:"images"`
	Text            string            `json:"text"`
	Social          map[string]string `json:"social"`
	Contact         ContactInfo       `json:"contact"`
	Prices          []string          `json:"prices"`
	Features        []string          `json:"features"`
	Reviews         []ReviewFragment  `json:"reviews"`
	Method          Method            `json:"method"`
	FetchedAt       time.Time         `json:"fetched_at"`
}

// Hit is a single search result entry.
type Hit struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Snippet   string `json:"snippet"`
	Source    string `json:"source"`
	Synthetic bool   `json:"synthetic"`
}

// SearchResult is an ordered, title-deduplicated list of hits for one query.
type SearchResult struct {
	Query     string    `json:"query"`
	Hits      []Hit     `json:"hits"`
	Method    Method    `json:"method"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Options control a single fetch or search call.
type Options struct {
	Timeout   time.Duration `json:"timeout"`
	SkipCache bool          `json:"skip_cache"`
}

// BatchOptions extend Options for multi-URL calls.
type BatchOptions struct {
	Options
	// MaxConcurrency bounds how many URLs are in flight at once.
	// Zero means the service default.
	MaxConcurrency int `json:"max_concurrency"`
}
