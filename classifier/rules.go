package classifier

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"boat_radar/models"
	"boat_radar/pricing"
)

const idealPrice = 60000

var (
	berthKeywords = []string{
		"מקום עגינה", "מקום במרינה", "מרינה משולם", "עגינה", "במרינה",
		"marina", "berth", "mooring",
	}
	powerKeywords = []string{"עוצמה א", "עוצמה א'", "power a", "otzma alef"}

	lengthRegex = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:מטר|מ'|m\b|meters?\b)`)
	hpRegex     = regexp.MustCompile(`(\d+)\s*(?:hp\b|כ"ס|כס|כוח סוס)`)
)

// RuleClassifier scores listings from keyword hits and a few extracted specs.
// It needs no network and backs the pipeline when no API key is configured.
type RuleClassifier struct {
	matcher  *ahocorasick.Matcher
	keywords []string
	berth    map[int]bool
	power    map[int]bool
}

func NewRuleClassifier() *RuleClassifier {
	c := &RuleClassifier{
		berth: make(map[int]bool),
		power: make(map[int]bool),
	}
	for _, kw := range berthKeywords {
		c.berth[len(c.keywords)] = true
		c.keywords = append(c.keywords, fold(kw))
	}
	for _, kw := range powerKeywords {
		c.power[len(c.keywords)] = true
		c.keywords = append(c.keywords, fold(kw))
	}
	c.matcher = ahocorasick.NewStringMatcher(c.keywords)
	return c
}

// Casers are stateful, so one is built per call.
func fold(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}

func (c *RuleClassifier) Classify(ctx context.Context, l models.Listing) (models.Classification, error) {
	if err := ctx.Err(); err != nil {
		return models.Classification{}, err
	}

	parts := []string{l.Title}
	if l.Subtitle != nil {
		parts = append(parts, *l.Subtitle)
	}
	if l.Description != nil {
		parts = append(parts, *l.Description)
	}
	text := fold(strings.Join(parts, " "))

	var hasBerth, hasPower bool
	for _, idx := range c.matcher.MatchThreadSafe([]byte(text)) {
		hasBerth = hasBerth || c.berth[idx]
		hasPower = hasPower || c.power[idx]
	}

	rating := 1
	var found []string
	if hasBerth {
		rating += 4
		found = append(found, "marina berth mentioned")
	}
	if hasPower {
		rating += 2
		found = append(found, "power category A")
	}
	if m := lengthRegex.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v <= 7 {
			rating++
			found = append(found, fmt.Sprintf("length %sm", m[1]))
		}
	}
	if m := hpRegex.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil && v <= 150 {
			rating++
			found = append(found, fmt.Sprintf("%d HP", v))
		}
	}
	if price, ok := pricing.Parse(l.Price); ok && abs(price-idealPrice) <= 20000 {
		rating++
		found = append(found, "price near "+pricing.Format(idealPrice))
	}

	reason := "No matching criteria found"
	if len(found) > 0 {
		reason = "Matched: " + strings.Join(found, ", ")
	}
	return models.Classification{
		HasParking: hasBerth,
		Rating:     clampRating(rating),
		Reason:     reason,
	}, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
