// Package extract turns raw markup into structured page data using DOM
// traversal plus heuristic pattern matching. The pattern tables live in
// patterns.go so they can be tested and tuned as data.
package extract

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/insightforge/webintel/internal/fetch"
)

// Extractor is a pure function of its input markup: identical markup
// yields identical results.
type Extractor struct{}

// New builds an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract parses markup and fills every PageResult field except Method,
// FetchedAt and Reviews, which belong to the pipeline. Reviews is set to
// an empty, non-nil slice.
func (e *Extractor) Extract(pageURL, markup string) *fetch.PageResult {
	result := &fetch.PageResult{
		URL:      pageURL,
		Headings: []string{},
		Links:    []string{},
		Images:   []string{},
		Social:   map[string]string{},
		Prices:   []string{},
		Features: []string{},
		Reviews:  []fetch.ReviewFragment{},
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return result
	}
	base, _ := url.Parse(pageURL)

	result.Title = extractTitle(doc)
	result.MetaDescription = extractMetaDescription(doc)
	result.Headings = extractHeadings(doc)
	result.Links = extractRefs(doc, base, "a[href]", "href", maxLinks)
	result.Images = extractRefs(doc, base, "img[src]", "src", maxImages)
	result.Social = extractSocial(result.Links, doc, base)
	result.Text = extractVisibleText(doc)
	result.Contact = extractContact(result.Text, markup)
	result.Prices = extractPrices(doc, result.Text)
	result.Features = extractFeatures(doc, result.Text)
	return result
}

func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func extractMetaDescription(doc *goquery.Document) string {
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		return strings.TrimSpace(desc)
	}
	if desc, ok := doc.Find(`meta[property="og:description"]`).First().Attr("content"); ok {
		return strings.TrimSpace(desc)
	}
	return ""
}

func extractHeadings(doc *goquery.Document) []string {
	headings := []string{}
	seen := map[string]struct{}{}
	doc.Find("h1, h2, h3").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(headings) >= maxHeadings {
			return false
		}
		text := collapseSpace(s.Text())
		if text == "" {
			return true
		}
		key := strings.ToLower(text)
		if _, dup := seen[key]; dup {
			return true
		}
		seen[key] = struct{}{}
		headings = append(headings, text)
		return true
	})
	return headings
}

// extractRefs resolves, scheme-filters, dedupes and caps URL attributes.
func extractRefs(doc *goquery.Document, base *url.URL, selector, attr string, limit int) []string {
	refs := []string{}
	seen := map[string]struct{}{}
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(refs) >= limit {
			return false
		}
		raw, ok := s.Attr(attr)
		if !ok {
			return true
		}
		resolved := resolveRef(base, raw)
		if resolved == "" {
			return true
		}
		key := strings.ToLower(resolved)
		if _, dup := seen[key]; dup {
			return true
		}
		seen[key] = struct{}{}
		refs = append(refs, resolved)
		return true
	})
	return refs
}

func resolveRef(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, "javascript:") ||
		strings.HasPrefix(raw, "mailto:") || strings.HasPrefix(raw, "data:") {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return ref.String()
}

func extractSocial(links []string, doc *goquery.Document, base *url.URL) map[string]string {
	social := map[string]string{}
	candidates := links
	// Footer icon links are often below the link cap; scan anchors too.
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if raw, ok := s.Attr("href"); ok {
			if resolved := resolveRef(base, raw); resolved != "" {
				candidates = append(candidates, resolved)
			}
		}
	})
	for _, link := range candidates {
		u, err := url.Parse(link)
		if err != nil {
			continue
		}
		host := strings.ToLower(u.Hostname())
		for platform, hosts := range socialPlatforms {
			if _, have := social[platform]; have {
				continue
			}
			for _, h := range hosts {
				if host == h || strings.HasSuffix(host, "."+h) {
					social[platform] = link
					break
				}
			}
		}
	}
	return social
}

// extractVisibleText strips non-content elements and prefers a detected
// main-content region when it carries enough text to dominate the noise.
func extractVisibleText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, iframe, svg").Remove()

	body := doc.Find("body")
	whole := collapseSpace(body.Text())

	var best string
	for _, sel := range []string{"main", "article", "[role=main]", "#content", ".content"} {
		region := collapseSpace(doc.Find(sel).First().Text())
		if len(region) > len(best) {
			best = region
		}
	}
	text := whole
	if len(best) >= 200 {
		text = best
	}
	if len(text) > maxTextLen {
		cut := maxTextLen
		// Back up to a rune boundary so the cap never splits a rune.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text
}

func extractContact(text, markup string) fetch.ContactInfo {
	info := fetch.ContactInfo{}
	// mailto: targets are not part of visible text; scan the markup too.
	for _, candidate := range append(emailRe.FindAllString(text, 5), emailRe.FindAllString(markup, 5)...) {
		if !isDenylisted(candidate) {
			info.Email = candidate
			break
		}
	}
	for _, candidate := range phoneRe.FindAllString(text, 5) {
		if !isDenylisted(candidate) && digitCount(candidate) >= 10 {
			info.Phone = strings.TrimSpace(candidate)
			break
		}
	}
	info.Address = addressRe.FindString(text)
	return info
}

func isDenylisted(value string) bool {
	lower := strings.ToLower(value)
	for _, deny := range contactDenylist {
		if strings.Contains(lower, deny) {
			return true
		}
	}
	return false
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func extractPrices(doc *goquery.Document, text string) []string {
	prices := []string{}
	seen := map[string]struct{}{}
	add := func(p string) {
		p = collapseSpace(p)
		key := strings.ToLower(p)
		if p == "" || len(prices) >= maxPrices {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		prices = append(prices, p)
	}
	doc.Find("[class*=price], [id*=price]").Each(func(_ int, s *goquery.Selection) {
		for _, re := range priceRes {
			for _, m := range re.FindAllString(s.Text(), 3) {
				add(m)
			}
		}
	})
	for _, re := range priceRes {
		for _, m := range re.FindAllString(text, maxPrices) {
			add(m)
		}
	}
	return prices
}

func extractFeatures(doc *goquery.Document, text string) []string {
	features := []string{}
	seen := map[string]struct{}{}
	add := func(f string) {
		f = collapseSpace(f)
		if len(f) < 3 || len(f) > 120 || len(features) >= maxFeatures {
			return
		}
		key := strings.ToLower(f)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		features = append(features, f)
	}
	doc.Find("ul li, ol li").Each(func(_ int, s *goquery.Selection) {
		add(s.Text())
	})
	for _, m := range bulletRe.FindAllStringSubmatch(text, maxFeatures) {
		add(strings.TrimSpace(m[1]))
	}
	return features
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
