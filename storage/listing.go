package storage

import (
	"context"
	"encoding/json"
	"time"

	"boat_radar/models"
	"boat_radar/pricing"
)

// ListingStore is implemented by every backend that holds listings.
type ListingStore interface {
	ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error)
	UpsertListing(ctx context.Context, l models.Listing, searchQuery string) error
	GetListing(ctx context.Context, id string) (*models.StoredListing, error)
	ListListings(ctx context.Context) ([]models.StoredListing, error)
	ListingsByPriceRange(ctx context.Context, min, max int) ([]models.StoredListing, error)
}

const listingColumns = `id, title, price, price_numeric, strikethrough_price, city, state, url,
	delivery_types, is_sold, is_pending, category_id, subtitle, description,
	has_parking, llm_rating, llm_reason, search_query, created_at, updated_at`

// listingArgs flattens a listing into column order, minus the timestamps.
func listingArgs(l models.Listing, searchQuery string) []any {
	var priceNumeric *int
	if n, ok := pricing.Parse(l.Price); ok {
		priceNumeric = &n
	}

	var (
		hasParking *bool
		rating     *int
		reason     *string
	)
	if c := l.Classification; c != nil {
		hasParking, rating, reason = &c.HasParking, &c.Rating, &c.Reason
	}

	url := l.URL
	if url == "" {
		url = models.ItemURL(l.ID)
	}

	return []any{
		l.ID, l.Title, l.Price, priceNumeric, l.StrikethroughPrice,
		l.Location.City, l.Location.Region, url,
		encodeDelivery(l.DeliveryTypes), l.IsSold, l.IsPending, l.CategoryID,
		l.Subtitle, l.Description, hasParking, rating, reason, searchQuery,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*models.StoredListing, error) {
	var (
		sl          models.StoredListing
		delivery    *string
		hasParking  *bool
		rating      *int
		reason      *string
		searchQuery *string
	)
	err := row.Scan(
		&sl.ID, &sl.Title, &sl.Price, &sl.PriceNumeric, &sl.StrikethroughPrice,
		&sl.Location.City, &sl.Location.Region, &sl.URL,
		&delivery, &sl.IsSold, &sl.IsPending, &sl.CategoryID,
		&sl.Subtitle, &sl.Description, &hasParking, &rating, &reason, &searchQuery,
		&sl.CreatedAt, &sl.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sl.DeliveryTypes = decodeDelivery(delivery)
	if searchQuery != nil {
		sl.SearchQuery = *searchQuery
	}
	if hasParking != nil || rating != nil || reason != nil {
		c := models.Classification{}
		if hasParking != nil {
			c.HasParking = *hasParking
		}
		if rating != nil {
			c.Rating = *rating
		}
		if reason != nil {
			c.Reason = *reason
		}
		sl.Classification = &c
	}
	return &sl, nil
}

func encodeDelivery(types []string) *string {
	if types == nil {
		return nil
	}
	data, err := json.Marshal(types)
	if err != nil {
		return nil
	}
	s := string(data)
	return &s
}

func decodeDelivery(raw *string) []string {
	if raw == nil {
		return nil
	}
	var types []string
	if err := json.Unmarshal([]byte(*raw), &types); err != nil {
		return nil
	}
	if types == nil {
		types = []string{}
	}
	return types
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
