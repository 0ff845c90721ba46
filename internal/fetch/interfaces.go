package fetch

import (
	"context"
	"time"
)

// PageStrategy retrieves raw markup for a URL. Implementations report
// failures through the error taxonomy in this package and never retry
// internally; ordering and retries belong to the pipeline.
type PageStrategy interface {
	Method() Method
	FetchMarkup(ctx context.Context, url string, timeout time.Duration) (string, error)
}

// SearchProvider queries one external search backend.
type SearchProvider interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]Hit, error)
}

// Cache is a TTL key/value store. Keys are opaque strings built by the
// caller; the cache knows nothing about result semantics.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Clear()
}

// Extractor turns raw markup into a structured PageResult.
type Extractor interface {
	Extract(pageURL, markup string) *PageResult
}

// ReviewExtractor mines review fragments out of raw markup.
type ReviewExtractor interface {
	Reviews(pageURL, markup string) []ReviewFragment
}

// Publisher pushes acquisition events to a message bus (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (swappable in tests).
type Clock interface {
	Now() time.Time
}
