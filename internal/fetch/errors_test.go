package fetch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "none"},
		{"network", &NetworkError{URL: "https://a.test", Status: 503}, "network"},
		{"wrapped network", fmt.Errorf("visit: %w", &NetworkError{URL: "https://a.test", Err: errors.New("refused")}), "network"},
		{"parse", &ParseError{URL: "https://a.test", Reason: "empty body"}, "parse"},
		{"resource", &ResourceUnavailableError{Resource: "browser", Reason: "breaker open"}, "resource_unavailable"},
		{"quality", &QualityTooLowError{Reason: "extracted text under 50 bytes"}, "quality_too_low"},
		{"deadline", context.DeadlineExceeded, "canceled"},
		{"canceled", context.Canceled, "canceled"},
		{"other", errors.New("boom"), "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestQualityTooLowError_Message(t *testing.T) {
	t.Parallel()

	err := &QualityTooLowError{Reason: "provider returned no hits"}
	require.Equal(t, "quality too low: provider returned no hits", err.Error())
}
