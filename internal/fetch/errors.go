package fetch

import (
	"context"
	"errors"
	"fmt"
)

// NetworkError covers timeouts, refused connections and non-2xx/3xx statuses.
type NetworkError struct {
	URL    string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("network error fetching %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError means markup was retrieved but nothing structured could be
// extracted from it.
type ParseError struct {
	URL    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s: %s", e.URL, e.Reason)
}

// ResourceUnavailableError means a strategy's backing resource cannot be
// used at all, e.g. the browser breaker is open or launch failed.
type ResourceUnavailableError struct {
	Resource string
	Reason   string
}

func (e *ResourceUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %s", e.Resource, e.Reason)
}

// QualityTooLowError is a soft failure: content was produced but fell below
// the acceptance threshold, so the next strategy should be tried.
type QualityTooLowError struct {
	Reason string
}

func (e *QualityTooLowError) Error() string {
	return fmt.Sprintf("quality too low: %s", e.Reason)
}

// Classify maps an error onto a short label used for logs and metrics.
func Classify(err error) string {
	if err == nil {
		return "none"
	}
	var (
		netErr     *NetworkError
		parseErr   *ParseError
		resErr     *ResourceUnavailableError
		qualityErr *QualityTooLowError
	)
	switch {
	case errors.As(err, &netErr):
		return "network"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &resErr):
		return "resource_unavailable"
	case errors.As(err, &qualityErr):
		return "quality_too_low"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "other"
	}
}
