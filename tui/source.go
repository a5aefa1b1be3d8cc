package tui

import (
	"context"

	"boat_radar/models"
)

// Operations is the SQLite side the daemon shares: run history, logs and the
// command queue.
type Operations interface {
	RecentRuns(limit int) ([]models.ScrapeRun, error)
	RecentLogs(limit int, level models.LogLevel) ([]models.ScrapeLog, error)
	EnqueueCommand(cmd models.CommandType, params any) error
}

type Listings interface {
	ListListings(ctx context.Context) ([]models.StoredListing, error)
}
