// Package notify delivers alerts for new in-range listings.
package notify

import (
	"context"
	"log"

	"boat_radar/models"
)

type Notifier interface {
	Notify(ctx context.Context, listing models.Listing) error
}

// LogNotifier writes alerts to the standard logger. Used when no webhook is set.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, l models.Listing) error {
	rating := "-"
	if l.Classification != nil {
		rating = ratingText(l.Classification.Rating)
	}
	log.Printf("[notify] %s | %s | %s | rating %s | %s", l.Title, l.Price, locationText(l.Location), rating, l.URL)
	return nil
}
