package extract

import (
	"math"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/insightforge/webintel/internal/fetch"
)

// Reviews mines opinion-bearing fragments from markup using three
// independent passes: structural review/testimonial elements, quoted
// text, and an opinion-keyword scan over sentence-split visible text.
// Candidates are deduplicated by normalized prefix and filtered through
// the review-likeness gate before scoring.
func (e *Extractor) Reviews(pageURL, markup string) []fetch.ReviewFragment {
	source := sourceHost(pageURL)

	var candidates []string
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err == nil {
		candidates = append(candidates, structuralPass(doc)...)
		doc.Find("script, style, noscript").Remove()
		text := collapseSpace(doc.Find("body").Text())
		candidates = append(candidates, quotedPass(text)...)
		candidates = append(candidates, sentencePass(text)...)
	}

	fragments := []fetch.ReviewFragment{}
	seen := map[string]struct{}{}
	for _, c := range candidates {
		c = collapseSpace(c)
		if !isReviewLike(c) {
			continue
		}
		key := dedupeKey(c)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		rating := estimateRating(c)
		fragments = append(fragments, fetch.ReviewFragment{
			Text:      c,
			Rating:    rating,
			Sentiment: sentimentFor(rating),
			Source:    source,
		})
		if len(fragments) >= maxReviews {
			break
		}
	}
	return fragments
}

func structuralPass(doc *goquery.Document) []string {
	var out []string
	for _, sel := range reviewBlockSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			text := collapseSpace(s.Text())
			if len(text) >= 20 && len(text) <= 500 {
				out = append(out, text)
			}
		})
	}
	return out
}

func quotedPass(text string) []string {
	var out []string
	for _, re := range quotedTextRes {
		for _, m := range re.FindAllStringSubmatch(text, 20) {
			out = append(out, m[1])
		}
	}
	return out
}

func sentencePass(text string) []string {
	var out []string
	for _, sentence := range splitSentences(text) {
		if len(sentence) < 25 || len(sentence) > 400 {
			continue
		}
		if containsAny(sentence, veryPositiveWords) || containsAny(sentence, positiveWords) ||
			containsAny(sentence, negativeWords) || containsAny(sentence, veryNegativeWords) {
			out = append(out, sentence)
		}
	}
	return out
}

func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(text[start:i]); s != "" {
				sentences = append(sentences, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// isReviewLike is the precision gate: an opinion word AND (a domain word
// OR length over 50), and no promotional/navigational boilerplate.
func isReviewLike(text string) bool {
	hasOpinion := containsAny(text, veryPositiveWords) || containsAny(text, positiveWords) ||
		containsAny(text, negativeWords) || containsAny(text, veryNegativeWords)
	if !hasOpinion {
		return false
	}
	if !containsAny(text, domainWords) && len(text) <= 50 {
		return false
	}
	for _, re := range boilerplateRes {
		if re.MatchString(text) {
			return false
		}
	}
	return true
}

// estimateRating shifts a neutral 3.0 baseline by weighted keyword
// occurrences, clamps to [1,5] and rounds to the nearest half point.
func estimateRating(text string) float64 {
	lower := strings.ToLower(text)
	score := 3.0
	score += 1.0 * float64(countOccurrences(lower, veryPositiveWords))
	score += 0.5 * float64(countOccurrences(lower, positiveWords))
	score -= 0.5 * float64(countOccurrences(lower, negativeWords))
	score -= 1.0 * float64(countOccurrences(lower, veryNegativeWords))
	score = math.Max(1, math.Min(5, score))
	return math.Round(score*2) / 2
}

func sentimentFor(rating float64) fetch.Sentiment {
	switch {
	case rating >= 4:
		return fetch.SentimentPositive
	case rating <= 2:
		return fetch.SentimentNegative
	default:
		return fetch.SentimentMixed
	}
}

func containsAny(text string, words []string) bool {
	lower := strings.ToLower(text)
	for _, w := range words {
		if containsWord(lower, w) {
			return true
		}
	}
	return false
}

func countOccurrences(lower string, words []string) int {
	n := 0
	for _, w := range words {
		if containsWord(lower, w) {
			n++
		}
	}
	return n
}

// containsWord matches on word boundaries so "class" never counts as "ass"
// style false positives.
func containsWord(lower, word string) bool {
	idx := 0
	for {
		i := strings.Index(lower[idx:], word)
		if i < 0 {
			return false
		}
		i += idx
		beforeOK := i == 0 || !isLetter(lower[i-1])
		end := i + len(word)
		afterOK := end >= len(lower) || !isLetter(lower[end])
		if beforeOK && afterOK {
			return true
		}
		idx = i + 1
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func dedupeKey(text string) string {
	key := strings.ToLower(collapseSpace(text))
	if len(key) > 60 {
		key = key[:60]
	}
	return key
}

func sourceHost(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Hostname() == "" {
		return pageURL
	}
	return u.Hostname()
}
