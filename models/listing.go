package models

import "time"

const itemURLPrefix = "https://www.facebook.com/marketplace/item/"

// ItemURL returns the canonical marketplace URL for a listing identifier.
func ItemURL(id string) string {
	return itemURLPrefix + id
}

type Location struct {
	City   string `json:"city"`
	Region string `json:"region"`
}

// Classification is the buyer-criteria verdict attached during enrichment.
type Classification struct {
	HasParking bool   `json:"has_parking"`
	Rating     int    `json:"rating"`
	Reason     string `json:"reason"`
}

// Listing is one marketplace item recovered from a search results page.
// Values are treated as immutable once assembled; later pipeline stages
// derive copies through the With* helpers.
type Listing struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	Price              string          `json:"price"`
	StrikethroughPrice *string         `json:"strikethrough_price,omitempty"`
	Location           Location        `json:"location"`
	URL                string          `json:"url"`
	DeliveryTypes      []string        `json:"delivery_types,omitempty"`
	IsSold             *bool           `json:"is_sold,omitempty"`
	IsPending          *bool           `json:"is_pending,omitempty"`
	CategoryID         *string         `json:"category_id,omitempty"`
	Subtitle           *string         `json:"subtitle,omitempty"`
	Description        *string         `json:"description,omitempty"`
	Classification     *Classification `json:"classification,omitempty"`
}

// WithDescription returns a copy of l carrying the given description.
func (l Listing) WithDescription(desc string) Listing {
	l.Description = &desc
	return l
}

// WithClassification returns a copy of l carrying the given classification.
func (l Listing) WithClassification(c Classification) Listing {
	l.Classification = &c
	return l
}

// StoredListing is the persisted shape of a listing.
type StoredListing struct {
	Listing
	PriceNumeric *int      `json:"price_numeric" db:"price_numeric"`
	SearchQuery  string    `json:"search_query" db:"search_query"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
