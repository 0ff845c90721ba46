package extract

import "regexp"

// Output caps. All list outputs are bounded to keep result objects small.
const (
	maxHeadings = 15
	maxLinks    = 50
	maxImages   = 20
	maxPrices   = 10
	maxFeatures = 20
	maxReviews  = 10
	maxTextLen  = 5000
)

// socialPlatforms maps a platform name to the host substrings that
// identify its profile links.
var socialPlatforms = map[string][]string{
	"facebook":  {"facebook.com", "fb.com"},
	"twitter":   {"twitter.com", "x.com"},
	"instagram": {"instagram.com"},
	"linkedin":  {"linkedin.com"},
	"youtube":   {"youtube.com", "youtu.be"},
	"tiktok":    {"tiktok.com"},
	"pinterest": {"pinterest.com"},
}

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`(\+?\d{1,3}[\s.-]?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`)
	// Loose street-address shape; heuristic by design.
	addressRe = regexp.MustCompile(`\d{1,5}\s+[A-Z][a-zA-Z]+(?:\s[A-Z][a-zA-Z]+){0,3}\s+(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Way|Place|Pl|Suite|Ste)\.?\b`)
)

// contactDenylist filters obvious placeholder values out of contact info.
var contactDenylist = []string{
	"example.com",
	"example.org",
	"yourdomain",
	"yourcompany",
	"email@",
	"user@",
	"name@",
	"lorem",
	"sentry",
	"wixpress",
	"555-555",
	"123-456-7890",
	"000-000",
}

var priceRes = []*regexp.Regexp{
	regexp.MustCompile(`[$€£¥]\s?\d[\d,]*(?:\.\d{1,2})?(?:\s?/\s?(?:mo|month|yr|year|user|seat))?`),
	regexp.MustCompile(`\d[\d,]*(?:\.\d{1,2})?\s?(?:USD|EUR|GBP|dollars)\b`),
	regexp.MustCompile(`(?i)\bfree\s+(?:trial|plan|tier|forever|version|shipping)\b`),
}

// bulletRe matches feature bullets embedded in free text. Visible text is
// whitespace-collapsed before matching, so only explicit bullet characters
// are trusted; dashes and asterisks are far too common inline.
var bulletRe = regexp.MustCompile(`[•✓✔▸►]\s*([^•✓✔▸►]{3,120})`)

// Review heuristics: opinion word lists shift a neutral 3.0 baseline.
var (
	veryPositiveWords = []string{
		"excellent", "amazing", "outstanding", "fantastic", "perfect",
		"incredible", "love", "best", "awesome", "exceptional",
	}
	positiveWords = []string{
		"good", "great", "helpful", "reliable", "recommend", "satisfied",
		"happy", "easy", "friendly", "fast", "quality", "impressed", "pleased",
	}
	negativeWords = []string{
		"bad", "poor", "slow", "disappointing", "disappointed", "issue",
		"problem", "difficult", "frustrating", "unhappy", "overpriced",
	}
	veryNegativeWords = []string{
		"terrible", "horrible", "awful", "worst", "scam", "useless",
		"broken", "unusable", "avoid", "hate",
	}
)

// domainWords mark a fragment as being about a product or service. A
// fragment is review-like only with an opinion word AND (a domain word OR
// length over 50); this conjunction is the precision control.
var domainWords = []string{
	"product", "service", "quality", "price", "support", "shipping",
	"delivery", "experience", "team", "company", "staff", "app",
	"website", "order", "customer", "purchase", "subscription",
}

// boilerplateRes reject promotional and navigational phrasing.
var boilerplateRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bclick here\b`),
	regexp.MustCompile(`(?i)\bbuy now\b`),
	regexp.MustCompile(`(?i)\bsign up\b`),
	regexp.MustCompile(`(?i)\bsubscribe\b`),
	regexp.MustCompile(`(?i)\blearn more\b`),
	regexp.MustCompile(`(?i)\badd to cart\b`),
	regexp.MustCompile(`(?i)\bcookie(s)? policy\b`),
	regexp.MustCompile(`(?i)\bprivacy policy\b`),
	regexp.MustCompile(`(?i)\bterms of (service|use)\b`),
	regexp.MustCompile(`(?i)\ball rights reserved\b`),
}

var reviewBlockSelectors = []string{
	".review",
	".testimonial",
	"[class*=review]",
	"[class*=testimonial]",
	"[itemprop=review]",
	"blockquote",
}

var quotedTextRes = []*regexp.Regexp{
	regexp.MustCompile(`"([^"]{30,300})"`),
	regexp.MustCompile(`“([^”]{30,300})”`),
}
