package synth

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/insightforge/webintel/internal/fetch"
)

func TestPage_SubjectFromDomain(t *testing.T) {
	t.Parallel()

	g := New()
	page := g.Page("https://example.invalid/nonexistent")

	require.Equal(t, fetch.MethodSynthetic, page.Method)
	require.NotEmpty(t, page.Title)
	require.Contains(t, page.Text, "example")
	require.Equal(t, "https://example.invalid/nonexistent", page.URL)
	require.NotNil(t, page.Reviews)
	require.NotNil(t, page.Links)
	require.NotNil(t, page.Social)
	for _, r := range page.Reviews {
		require.True(t, r.Synthetic)
	}
}

func TestPage_Deterministic(t *testing.T) {
	t.Parallel()

	g := New()
	a := g.Page("https://www.acme.test/pricing")
	b := g.Page("https://www.acme.test/pricing")
	require.Equal(t, a, b)
	require.Contains(t, a.Title, "Acme")
}

func TestHits_CountAndDeterminism(t *testing.T) {
	t.Parallel()

	g := New()
	hits := g.Hits("best coffee subscription service", 5)
	require.Len(t, hits, 5)
	for i, h := range hits {
		require.True(t, h.Synthetic)
		require.Equal(t, "synthetic", h.Source)
		require.Contains(t, h.Title, "Subscription")
		require.Contains(t, h.Snippet, "best coffee subscription service")
		require.Equal(t, hits[i], g.Hits("best coffee subscription service", 5)[i])
	}

	require.Len(t, g.Hits("anything", 0), 1)
}

func TestReviews_RatingsWithinScale(t *testing.T) {
	t.Parallel()

	g := New()
	reviews := g.Reviews("acme", 7)
	require.Len(t, reviews, 7)
	for _, r := range reviews {
		require.True(t, r.Synthetic)
		require.GreaterOrEqual(t, r.Rating, 1.0)
		require.LessOrEqual(t, r.Rating, 5.0)
		require.Contains(t, r.Text, "Acme")
	}
}

func TestSubjectFromURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"https://example.invalid/nonexistent", "example"},
		{"https://www.acme.test/x", "acme"},
		{"http://shop.example", "shop"},
		{"not a url at all", "not"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, SubjectFromURL(tt.in), tt.in)
	}
}

func TestSubjectFromQuery(t *testing.T) {
	t.Parallel()

	require.Equal(t, "subscription", SubjectFromQuery("best coffee subscription service"))
	require.Equal(t, "coffee", SubjectFromQuery(`the "coffee" of 2024`))
	require.Equal(t, "unknown", SubjectFromQuery("the of and"))
}
