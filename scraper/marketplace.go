package scraper

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"boat_radar/logging"
	"boat_radar/models"
	"boat_radar/parser"
)

const marketplaceBase = "https://www.facebook.com/marketplace/"

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Archiver keeps a copy of raw search pages for later inspection.
type Archiver interface {
	Archive(ctx context.Context, key string, body []byte) error
}

// SearchURL builds the marketplace search URL for a run. Without a location
// the category search across all regions is used.
func SearchURL(run models.SearchRun) string {
	query := strings.ReplaceAll(url.QueryEscape(run.Query), "+", "%20")
	if run.Location == "" {
		return marketplaceBase + "category/search/?query=" + query
	}

	slug := whitespaceRegex.ReplaceAllString(strings.ToLower(run.Location), "-")
	u := marketplaceBase + slug + "/search/?query=" + query
	if run.Radius > 0 {
		u += fmt.Sprintf("&radius_in_km=%d", run.Radius)
	}
	return u
}

// Marketplace searches listings and fetches item descriptions.
type Marketplace struct {
	fetcher         Fetcher
	archiver        Archiver
	strictAlignment bool
	now             func() time.Time
}

type Option func(*Marketplace)

func WithArchiver(a Archiver) Option {
	return func(m *Marketplace) { m.archiver = a }
}

// WithStrictAlignment drops pages whose mandatory field streams disagree.
func WithStrictAlignment(strict bool) Option {
	return func(m *Marketplace) { m.strictAlignment = strict }
}

func NewMarketplace(f Fetcher, opts ...Option) *Marketplace {
	m := &Marketplace{fetcher: f, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Marketplace) Search(ctx context.Context, run models.SearchRun) ([]models.Listing, error) {
	target := SearchURL(run)
	log.Printf("[info] query %q: fetching %s", run.Query, target)

	resp, err := m.fetcher.Fetch(ctx, target, SearchOptions)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", run.Query, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: target, Code: resp.StatusCode}
	}

	m.archive(ctx, run, resp.Body)

	listings, align := parser.ParseListings(resp.Body)
	if align.Skewed {
		if m.strictAlignment {
			log.Printf("[warn] query %q: dropping skewed page %s", run.Query, align)
			return []models.Listing{}, nil
		}
		log.Printf("[warn] query %q: skewed page %s", run.Query, align)
	} else {
		logging.Debugf("query %q: %s", run.Query, align)
	}

	log.Printf("[info] query %q: %d listings", run.Query, len(listings))
	return listings, nil
}

// Describe fetches an item page and returns its description, if any.
func (m *Marketplace) Describe(ctx context.Context, id string) (string, bool, error) {
	target := models.ItemURL(id)

	resp, err := m.fetcher.Fetch(ctx, target, ItemOptions)
	if err != nil {
		return "", false, fmt.Errorf("describe %s: %w", id, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, &StatusError{URL: target, Code: resp.StatusCode}
	}

	desc, ok := parser.ExtractDescription(resp.Body)
	return desc, ok, nil
}

func (m *Marketplace) archive(ctx context.Context, run models.SearchRun, body string) {
	if m.archiver == nil {
		return
	}
	key := fmt.Sprintf("search/%s/%s.html",
		m.now().UTC().Format("2006-01-02/150405"),
		url.PathEscape(whitespaceRegex.ReplaceAllString(strings.TrimSpace(run.Query), "_")),
	)
	if err := m.archiver.Archive(ctx, key, []byte(body)); err != nil {
		log.Printf("[warn] query %q: archive %s: %v", run.Query, key, err)
	}
}
