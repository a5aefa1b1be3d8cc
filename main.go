package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"boat_radar/classifier"
	"boat_radar/config"
	"boat_radar/httputil"
	"boat_radar/logging"
	"boat_radar/metrics"
	"boat_radar/models"
	"boat_radar/notify"
	"boat_radar/pipeline"
	"boat_radar/scheduler"
	"boat_radar/scraper"
	"boat_radar/server"
	"boat_radar/storage"
	"boat_radar/tui"
)

var (
	scrapeNow = flag.Bool("scrape", false, "Run the pipeline once, print the summary and exit")
	command   = flag.String("command", "", "Queue a command for a running daemon: run_now, pause or resume")
	console   = flag.Bool("tui", false, "Open the operator console")
)

const logPath = "radar.log"

type listingBackend interface {
	storage.ListingStore
	Ping(ctx context.Context) error
}

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if !*console {
		logFile, err := logging.Setup(logPath)
		if err != nil {
			log.Printf("Warning: could not set up file logging: %v", err)
		} else {
			defer logFile.Close()
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logging.SetLevel(cfg.LogLevel)

	// SQLite always holds run history and the command queue.
	sqliteStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer sqliteStore.Close()
	log.Printf("SQLite database: %s", cfg.DBPath)

	if *command != "" {
		if err := enqueue(sqliteStore, *command); err != nil {
			log.Fatalf("Failed to queue command: %v", err)
		}
		log.Printf("Queued command: %s", *command)
		return
	}

	log.Println("Starting boat_radar...")
	log.Printf("Loaded %d searches, price range %d-%d", len(cfg.Searches), cfg.PriceRange.Min, cfg.PriceRange.Max)
	for _, s := range cfg.Searches {
		log.Printf("  - %q in %s (%d km)", s.Query, s.Location, s.Radius)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var listings listingBackend = sqliteStore
	if cfg.DBURL != "" {
		pgStore, err := storage.NewPostgresStore(ctx, cfg.DBURL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer pgStore.Close()
		listings = pgStore
		log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.DBURL))
	}

	if *console {
		// The console owns the terminal.
		log.SetOutput(io.Discard)
		if err := tui.Run(sqliteStore, listings, cfg.PriceRange, logPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	clients := httputil.NewClients(&cfg.Proxy)
	if cfg.Proxy.URL != "" {
		log.Printf("Proxy: %s", cfg.Proxy.URL)
	}

	fetcher, err := scraper.NewFetcher(&cfg.Scraper, clients)
	if err != nil {
		log.Fatalf("Failed to create fetcher: %v", err)
	}
	if bf, ok := fetcher.(*scraper.BrowserFetcher); ok {
		defer bf.Close()
	}
	log.Printf("Fetcher: %s", cfg.Scraper.Fetcher)

	opts := []scraper.Option{scraper.WithStrictAlignment(cfg.Scraper.StrictAlignment)}
	if cfg.S3.Bucket != "" {
		archiver, err := storage.NewS3Archiver(ctx, cfg.S3)
		if err != nil {
			log.Fatalf("Failed to create S3 archiver: %v", err)
		}
		opts = append(opts, scraper.WithArchiver(archiver))
		log.Printf("Archiving raw pages to s3://%s", cfg.S3.Bucket)
	}
	market := scraper.NewMarketplace(fetcher, opts...)

	var clf classifier.Classifier
	if cfg.Classifier.APIKey != "" {
		clf = classifier.NewAnthropicClassifier(cfg.Classifier.APIKey, cfg.Classifier.Model, cfg.Classifier.Timeout)
		log.Printf("Classifier: anthropic (%s)", cfg.Classifier.Model)
	} else {
		clf = classifier.NewRuleClassifier()
		log.Println("Classifier: keyword rules (ANTHROPIC_API_KEY not set)")
	}

	var notifier notify.Notifier
	if cfg.Notify.DiscordWebhookURL != "" {
		notifier = notify.NewDiscordNotifier(cfg.Notify.DiscordWebhookURL, clients.API)
		log.Println("Notifier: discord")
	} else {
		notifier = notify.LogNotifier{}
		log.Println("Notifier: log (DISCORD_WEBHOOK_URL not set)")
	}

	m := metrics.New()
	pipe := pipeline.New(pipeline.Deps{
		Searcher:   market,
		Describer:  market,
		Store:      listings,
		Classifier: clf,
		Notifier:   notifier,
		Recorder:   sqliteStore,
		Metrics:    m,
	}, pipeline.Config{
		Searches:          cfg.Searches,
		PriceRange:        cfg.PriceRange,
		SearchConcurrency: cfg.Pipeline.SearchConcurrency,
		EnrichConcurrency: cfg.Pipeline.EnrichConcurrency,
		EnrichRPS:         cfg.Pipeline.EnrichRPS,
		EnrichAll:         cfg.Pipeline.EnrichAll,
	})

	if *scrapeNow {
		log.Println("Running pipeline...")
		summary, runErr := pipe.Run(ctx)
		if summary != nil {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(summary); err != nil {
				log.Printf("Failed to print summary: %v", err)
			}
		}
		if runErr != nil {
			log.Fatalf("Run failed: %v", runErr)
		}
		log.Println("Run complete!")
		return
	}

	// Daemon mode
	sched := scheduler.New(cfg.Scheduler, pipe, sqliteStore)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	var srv *server.Server
	if cfg.Server.Addr != "" {
		srv = server.New(cfg.Server, sched, listings, sqliteStore, m)
		go func() {
			if err := srv.Start(); err != nil {
				log.Fatalf("HTTP server failed: %v", err)
			}
		}()
	}

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	if srv != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown: %v", err)
		}
		stop()
	}
	cancel()
	sched.Stop()
	log.Println("Goodbye!")
}

func enqueue(store *storage.SQLiteStore, name string) error {
	cmd := models.CommandType(name)
	switch cmd {
	case models.CmdRunNow, models.CmdPause, models.CmdResume:
		return store.EnqueueCommand(cmd, nil)
	default:
		return fmt.Errorf("unknown command %q (want run_now, pause or resume)", name)
	}
}

// maskConnectionString masks password in connection string for logging
func maskConnectionString(connStr string) string {
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
