// Package parser recovers listing records from the serialized search-results
// payload embedded in marketplace HTML. It never builds a DOM for search pages:
// every field is matched independently in the raw text and the streams are
// zipped back together by position (see Assemble).
package parser

import (
	"regexp"
	"strings"
)

type Field string

const (
	FieldID            Field = "id"
	FieldTitle         Field = "title"
	FieldPrice         Field = "price"
	FieldStrikethrough Field = "strikethrough_price"
	FieldLocation      Field = "location"
	FieldDelivery      Field = "delivery_types"
	FieldSold          Field = "is_sold"
	FieldPending       Field = "is_pending"
	FieldCategory      Field = "category_id"
	FieldSubtitle      Field = "subtitle"
)

// DefaultPatterns matches the marketplace's GraphQL payload as serialized into
// the search page. Each pattern is applied independently of the others.
var DefaultPatterns = map[Field]*regexp.Regexp{
	FieldID:            regexp.MustCompile(`"GroupCommerceProductItem","id":"(\d+)"`),
	FieldTitle:         regexp.MustCompile(`"marketplace_listing_title":"([^"]*)"`),
	FieldPrice:         regexp.MustCompile(`"listing_price":\{"formatted_amount":"([^"]*)"`),
	FieldStrikethrough: regexp.MustCompile(`"strikethrough_price":\{"formatted_amount":"([^"]*)"`),
	FieldLocation:      regexp.MustCompile(`"reverse_geocode":\{"city":"([^"]*)","state":"([^"]*)"`),
	FieldDelivery:      regexp.MustCompile(`"delivery_types":\[([^\]]*)\]`),
	FieldSold:          regexp.MustCompile(`"is_sold":(true|false)`),
	FieldPending:       regexp.MustCompile(`"is_pending":(true|false)`),
	FieldCategory:      regexp.MustCompile(`"marketplace_listing_category_id":"([^"]*)"`),
	FieldSubtitle:      regexp.MustCompile(`"subtitle":"([^"]*)"`),
}

var quotedRegex = regexp.MustCompile(`"([^"]+)"`)

// Occurrence is a single match of a field pattern. Groups holds the capture
// groups in order; a blank capture is stored as "" and reads as no value.
type Occurrence struct {
	Groups []string
}

// Value returns the first capture group, or false when it carried no value.
func (o Occurrence) Value() (string, bool) {
	if len(o.Groups) == 0 || o.Groups[0] == "" {
		return "", false
	}
	return o.Groups[0], true
}

// Streams holds one ordered occurrence list per field, in document order.
type Streams map[Field][]Occurrence

func (s Streams) Count(f Field) int {
	return len(s[f])
}

// At returns the i-th occurrence of a field, if the stream is that long.
func (s Streams) At(f Field, i int) (Occurrence, bool) {
	occ := s[f]
	if i < 0 || i >= len(occ) {
		return Occurrence{}, false
	}
	return occ[i], true
}

// Extract runs every pattern over html and returns the per-field streams.
// Fields with no matches map to an empty stream.
func Extract(html string, patterns map[Field]*regexp.Regexp) Streams {
	streams := make(Streams, len(patterns))
	for field, re := range patterns {
		matches := re.FindAllStringSubmatch(html, -1)
		occurrences := make([]Occurrence, 0, len(matches))
		for _, m := range matches {
			groups := make([]string, len(m)-1)
			for i, g := range m[1:] {
				if strings.TrimSpace(g) == "" {
					continue
				}
				groups[i] = g
			}
			occurrences = append(occurrences, Occurrence{Groups: groups})
		}
		streams[field] = occurrences
	}
	return streams
}

// splitDelivery turns the inside of a delivery_types array into its quoted members.
func splitDelivery(raw string) []string {
	var types []string
	for _, m := range quotedRegex.FindAllStringSubmatch(raw, -1) {
		types = append(types, m[1])
	}
	return types
}
