package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var descriptionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"marketplace_listing_description":"([^"]+)"`),
	regexp.MustCompile(`"body":\{"text":"([^"]+)"\}`),
	regexp.MustCompile(`"redacted_description":\{"text":"([^"]+)"\}`),
}

// ExtractDescription pulls the long-form description from an item page.
// The serialized payload is tried first; the og:description meta tag is the
// fallback for pages rendered without it.
func ExtractDescription(html string) (string, bool) {
	for _, re := range descriptionPatterns {
		if m := re.FindStringSubmatch(html); m != nil && strings.TrimSpace(m[1]) != "" {
			return Normalize(m[1]), true
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}
	content := strings.TrimSpace(doc.Find(`meta[property="og:description"]`).First().AttrOr("content", ""))
	if content == "" {
		return "", false
	}
	return content, true
}
