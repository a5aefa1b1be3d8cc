package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"boat_radar/models"
	"boat_radar/pricing"
)

var ErrNoSearches = errors.New("no search queries configured")

const defaultSearchesPath = "config/searches.yaml"

type Config struct {
	Scheduler  SchedulerConfig
	Scraper    ScraperConfig
	Pipeline   PipelineConfig
	Classifier ClassifierConfig
	Notify     NotifyConfig
	Server     ServerConfig
	S3         S3Config
	Proxy      ProxyConfig
	DBPath     string
	DBURL      string
	LogLevel   string
	Searches   []models.SearchRun
	PriceRange pricing.Range
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

type ScraperConfig struct {
	Fetcher         string // crawlbase | browser
	CrawlbaseToken  string
	StrictAlignment bool
}

type PipelineConfig struct {
	SearchConcurrency int
	EnrichConcurrency int
	EnrichRPS         float64
	EnrichAll         bool
}

type ClassifierConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

type NotifyConfig struct {
	DiscordWebhookURL string
}

type ServerConfig struct {
	Addr       string
	CronSecret string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type ProxyConfig struct {
	URL string
}

// searchFile is the layout of config/searches.yaml.
type searchFile struct {
	Location string `yaml:"location"`
	Radius   int    `yaml:"radius"`
	Price    *struct {
		Min int `yaml:"min"`
		Max int `yaml:"max"`
	} `yaml:"price"`
	Searches []models.SearchRun `yaml:"searches"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("SCRAPE_CRON"),
		},
		Scraper: ScraperConfig{
			Fetcher:         getEnv("FETCHER", "crawlbase"),
			CrawlbaseToken:  os.Getenv("CRAWLBASE_TOKEN"),
			StrictAlignment: getEnvBool("STRICT_ALIGNMENT", false),
		},
		Pipeline: PipelineConfig{
			SearchConcurrency: getEnvInt("SEARCH_CONCURRENCY", 3),
			EnrichConcurrency: getEnvInt("ENRICH_CONCURRENCY", 4),
			EnrichRPS:         getEnvFloat("ENRICH_RPS", 1),
			EnrichAll:         getEnvBool("ENRICH_ALL", false),
		},
		Classifier: ClassifierConfig{
			APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
			Model:   getEnv("ANTHROPIC_MODEL", "claude-haiku-4-5"),
			Timeout: getEnvDuration("CLASSIFY_TIMEOUT", 30*time.Second),
		},
		Notify: NotifyConfig{
			DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),
		},
		Server: ServerConfig{
			Addr:       os.Getenv("SERVER_ADDR"),
			CronSecret: os.Getenv("CRON_SECRET"),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		Proxy: ProxyConfig{
			URL: os.Getenv("PROXY_URL"),
		},
		DBPath:     getEnv("DB_PATH", "radar.db"),
		DBURL:      os.Getenv("DATABASE_URL"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		Searches:   DefaultSearches(),
		PriceRange: pricing.DefaultRange,
	}

	cfg.Scheduler.Interval = getEnvDuration("SCRAPE_INTERVAL", 0)

	if err := cfg.loadSearches(getEnv("SEARCHES_FILE", defaultSearchesPath)); err != nil {
		return nil, err
	}

	cfg.PriceRange.Min = getEnvInt("MIN_PRICE", cfg.PriceRange.Min)
	cfg.PriceRange.Max = getEnvInt("MAX_PRICE", cfg.PriceRange.Max)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultSearches is used when no searches file exists.
func DefaultSearches() []models.SearchRun {
	return []models.SearchRun{
		{Query: "סירה", Description: "Boats", Location: "telaviv", Radius: 250},
		{Query: "סירת דייג", Description: "Fishing boats", Location: "telaviv", Radius: 250},
		{Query: "עוצמה א", Description: "Power category A", Location: "telaviv", Radius: 250},
	}
}

func (c *Config) loadSearches(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read searches: %w", err)
	}

	var file searchFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if file.Price != nil {
		c.PriceRange = pricing.Range{Min: file.Price.Min, Max: file.Price.Max}
	}

	if len(file.Searches) == 0 {
		return nil
	}
	c.Searches = make([]models.SearchRun, 0, len(file.Searches))
	for _, s := range file.Searches {
		if s.Location == "" {
			s.Location = file.Location
		}
		if s.Radius == 0 {
			s.Radius = file.Radius
		}
		if s.Description == "" {
			s.Description = s.Query
		}
		c.Searches = append(c.Searches, s)
	}
	return nil
}

func (c *Config) Validate() error {
	if len(c.Searches) == 0 {
		return ErrNoSearches
	}
	for i, s := range c.Searches {
		if strings.TrimSpace(s.Query) == "" {
			return fmt.Errorf("search %d: empty query", i)
		}
	}
	if c.PriceRange.Min > c.PriceRange.Max {
		return fmt.Errorf("price range inverted: min %d > max %d", c.PriceRange.Min, c.PriceRange.Max)
	}
	if c.Scraper.Fetcher != "crawlbase" && c.Scraper.Fetcher != "browser" {
		return fmt.Errorf("unknown fetcher %q", c.Scraper.Fetcher)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
