package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"boat_radar/models"
	"boat_radar/pricing"
)

var (
	multiSpaceRegex = regexp.MustCompile(`\s+`)
	punctRegex      = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
)

// Fingerprint hashes the user-visible content of a listing. Two listings with
// the same ID but different fingerprints were surfaced with conflicting data.
func Fingerprint(listing models.Listing) string {
	price := NormalizeText(listing.Price)
	if n, ok := pricing.Parse(listing.Price); ok {
		price = fmt.Sprintf("%d", n)
	}
	input := fmt.Sprintf("%s|%s|%s|%s|%s|%s",
		NormalizeText(listing.Title),
		price,
		NormalizeText(listing.Location.City),
		NormalizeText(listing.Location.Region),
		flag(listing.IsSold),
		flag(listing.IsPending),
	)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:16])
}

func NormalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = punctRegex.ReplaceAllString(s, " ")
	s = multiSpaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func flag(b *bool) string {
	switch {
	case b == nil:
		return "-"
	case *b:
		return "1"
	default:
		return "0"
	}
}
