package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"boat_radar/models"
	"boat_radar/pricing"
)

func writeSearches(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "searches.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadSearches_AppliesFileDefaults(t *testing.T) {
	path := writeSearches(t, `
location: haifa
radius: 100
price:
  min: 5000
  max: 50000
searches:
  - query: kayak
  - query: "סירה"
    description: Boats
    location: eilat
    radius: 40
`)
	cfg := &Config{Searches: DefaultSearches(), PriceRange: pricing.DefaultRange}
	require.NoError(t, cfg.loadSearches(path))

	require.Equal(t, []models.SearchRun{
		{Query: "kayak", Description: "kayak", Location: "haifa", Radius: 100},
		{Query: "סירה", Description: "Boats", Location: "eilat", Radius: 40},
	}, cfg.Searches)
	require.Equal(t, pricing.Range{Min: 5000, Max: 50000}, cfg.PriceRange)
}

func TestLoadSearches_MissingFileKeepsDefaults(t *testing.T) {
	cfg := &Config{Searches: DefaultSearches(), PriceRange: pricing.DefaultRange}
	require.NoError(t, cfg.loadSearches(filepath.Join(t.TempDir(), "nope.yaml")))
	require.Len(t, cfg.Searches, 3)
	require.Equal(t, "telaviv", cfg.Searches[0].Location)
	require.Equal(t, 250, cfg.Searches[0].Radius)
}

func TestLoadSearches_InvalidYAML(t *testing.T) {
	path := writeSearches(t, "searches: [unterminated")
	cfg := &Config{}
	require.Error(t, cfg.loadSearches(path))
}

func TestValidate(t *testing.T) {
	valid := Config{
		Searches:   DefaultSearches(),
		PriceRange: pricing.DefaultRange,
		Scraper:    ScraperConfig{Fetcher: "crawlbase"},
	}
	require.NoError(t, valid.Validate())

	empty := valid
	empty.Searches = nil
	require.True(t, errors.Is(empty.Validate(), ErrNoSearches))

	inverted := valid
	inverted.PriceRange = pricing.Range{Min: 10, Max: 1}
	require.Error(t, inverted.Validate())

	blank := valid
	blank.Searches = []models.SearchRun{{Query: "  "}}
	require.Error(t, blank.Validate())

	badFetcher := valid
	badFetcher.Scraper.Fetcher = "curl"
	require.Error(t, badFetcher.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SEARCHES_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("MIN_PRICE", "20000")
	t.Setenv("MAX_PRICE", "80000")
	t.Setenv("ENRICH_ALL", "true")
	t.Setenv("SCRAPE_INTERVAL", "15m")
	t.Setenv("FETCHER", "browser")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, pricing.Range{Min: 20000, Max: 80000}, cfg.PriceRange)
	require.True(t, cfg.Pipeline.EnrichAll)
	require.Equal(t, "15m0s", cfg.Scheduler.Interval.String())
	require.Equal(t, "browser", cfg.Scraper.Fetcher)
	require.Len(t, cfg.Searches, 3)
}
