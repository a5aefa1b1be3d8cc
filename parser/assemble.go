package parser

import (
	"fmt"
	"strings"

	"boat_radar/models"
)

// mandatoryFields must all be present for a record to be built. Their
// occurrence counts bound the number of records on a page.
var mandatoryFields = []Field{FieldID, FieldTitle, FieldPrice, FieldLocation}

var allFields = []Field{
	FieldID, FieldTitle, FieldPrice, FieldStrikethrough, FieldLocation,
	FieldDelivery, FieldSold, FieldPending, FieldCategory, FieldSubtitle,
}

// Alignment describes how well the independent field streams lined up.
type Alignment struct {
	Counts  map[Field]int
	Records int
	Skewed  bool
}

func (a Alignment) String() string {
	parts := make([]string, 0, len(allFields))
	for _, f := range allFields {
		parts = append(parts, fmt.Sprintf("%s=%d", f, a.Counts[f]))
	}
	return fmt.Sprintf("records=%d skewed=%t [%s]", a.Records, a.Skewed, strings.Join(parts, " "))
}

// Assemble zips the field streams into listings by position.
//
// The i-th identifier, title, price and location are taken to belong to the
// same listing; the record count is the shortest of those four streams.
// Optional fields attach to record i only if their stream has an i-th entry.
// This relies on the page serializing every listing's fields in the same
// relative order. Nothing in the payload verifies it, so when one listing is
// missing a field that later listings carry, every record after it is
// misattributed. Alignment.Skewed flags pages where the mandatory counts
// disagree so callers can log or drop them.
//
// Records sharing an identifier collapse to the last one built, keeping the
// position of the first.
func Assemble(s Streams) ([]models.Listing, Alignment) {
	align := Alignment{Counts: make(map[Field]int, len(allFields))}
	for _, f := range allFields {
		align.Counts[f] = s.Count(f)
	}

	n := -1
	for _, f := range mandatoryFields {
		c := s.Count(f)
		if n == -1 || c < n {
			n = c
		}
		if c != align.Counts[FieldID] {
			align.Skewed = true
		}
	}
	if n <= 0 {
		return nil, align
	}

	listings := make([]models.Listing, 0, n)
	index := make(map[string]int, n)

	for i := 0; i < n; i++ {
		listing, ok := buildListing(s, i)
		if !ok {
			continue
		}
		if pos, seen := index[listing.ID]; seen {
			listings[pos] = listing
			continue
		}
		index[listing.ID] = len(listings)
		listings = append(listings, listing)
	}

	align.Records = len(listings)
	return listings, align
}

func buildListing(s Streams, i int) (models.Listing, bool) {
	idOcc, _ := s.At(FieldID, i)
	id, ok := idOcc.Value()
	if !ok {
		return models.Listing{}, false
	}

	titleOcc, _ := s.At(FieldTitle, i)
	priceOcc, _ := s.At(FieldPrice, i)
	locOcc, _ := s.At(FieldLocation, i)

	title, _ := titleOcc.Value()
	price, _ := priceOcc.Value()

	listing := models.Listing{
		ID:       id,
		Title:    Normalize(title),
		Price:    Normalize(price),
		Location: buildLocation(locOcc),
		URL:      models.ItemURL(id),
	}

	if v, ok := optionalString(s, FieldStrikethrough, i); ok {
		listing.StrikethroughPrice = &v
	}
	if occ, ok := s.At(FieldDelivery, i); ok {
		if raw, ok := occ.Value(); ok {
			listing.DeliveryTypes = splitDelivery(raw)
		}
	}
	if v, ok := optionalBool(s, FieldSold, i); ok {
		listing.IsSold = &v
	}
	if v, ok := optionalBool(s, FieldPending, i); ok {
		listing.IsPending = &v
	}
	if occ, ok := s.At(FieldCategory, i); ok {
		if v, ok := occ.Value(); ok {
			listing.CategoryID = &v
		}
	}
	if v, ok := optionalString(s, FieldSubtitle, i); ok {
		listing.Subtitle = &v
	}

	return listing, true
}

// buildLocation keeps city and region only when both were recovered.
func buildLocation(occ Occurrence) models.Location {
	if len(occ.Groups) < 2 || occ.Groups[0] == "" || occ.Groups[1] == "" {
		return models.Location{}
	}
	return models.Location{
		City:   Normalize(occ.Groups[0]),
		Region: Normalize(occ.Groups[1]),
	}
}

func optionalString(s Streams, f Field, i int) (string, bool) {
	occ, ok := s.At(f, i)
	if !ok {
		return "", false
	}
	v, ok := occ.Value()
	if !ok {
		return "", false
	}
	return Normalize(v), true
}

func optionalBool(s Streams, f Field, i int) (bool, bool) {
	v, ok := optionalString(s, f, i)
	if !ok {
		return false, false
	}
	return v == "true", true
}

// ParseListings extracts and assembles the listings on a search results page.
func ParseListings(html string) ([]models.Listing, Alignment) {
	return Assemble(Extract(html, DefaultPatterns))
}
