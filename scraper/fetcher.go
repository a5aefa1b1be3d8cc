package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"boat_radar/config"
	"boat_radar/httputil"
)

var ErrStatus = errors.New("unexpected status")

// StatusError is returned when a page fetch completes with a non-200 status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.Code)
}

func (e *StatusError) Unwrap() error { return ErrStatus }

type Response struct {
	StatusCode int
	Body       string
}

// FetchOptions controls how long the renderer lets the page settle.
type FetchOptions struct {
	PageWait time.Duration
	Timeout  time.Duration
}

var (
	SearchOptions = FetchOptions{PageWait: 5 * time.Second, Timeout: 90 * time.Second}
	ItemOptions   = FetchOptions{PageWait: 15 * time.Second, Timeout: 2 * time.Minute}
)

type Fetcher interface {
	Fetch(ctx context.Context, url string, opts FetchOptions) (*Response, error)
}

func NewFetcher(cfg *config.ScraperConfig, clients *httputil.Clients) (Fetcher, error) {
	switch cfg.Fetcher {
	case "browser":
		return NewBrowserFetcher(), nil
	case "crawlbase", "":
		if cfg.CrawlbaseToken == "" {
			return nil, errors.New("CRAWLBASE_TOKEN is required for the crawlbase fetcher")
		}
		return NewCrawlbaseFetcher(cfg.CrawlbaseToken, clients.Scraping), nil
	default:
		return nil, fmt.Errorf("unknown fetcher: %s", cfg.Fetcher)
	}
}
