// Package pipeline runs one ingestion pass: search every query, drop listings
// already stored, enrich and classify the rest, persist them and notify on
// in-range matches.
//
// Each stage fans out over its items with a bounded errgroup and waits for all
// of them before the next stage starts. Per-item failures are logged, counted
// and folded into the summary. Only a failed known-state lookup aborts a run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"boat_radar/classifier"
	"boat_radar/identity"
	"boat_radar/metrics"
	"boat_radar/models"
	"boat_radar/notify"
	"boat_radar/pricing"
)

type Searcher interface {
	Search(ctx context.Context, run models.SearchRun) ([]models.Listing, error)
}

type Describer interface {
	Describe(ctx context.Context, id string) (string, bool, error)
}

type Store interface {
	ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error)
	UpsertListing(ctx context.Context, l models.Listing, searchQuery string) error
}

// RunRecorder keeps operational run history. Optional.
type RunRecorder interface {
	CreateRun(run *models.ScrapeRun) (int64, error)
	UpdateRun(run *models.ScrapeRun) error
	Log(runID *int64, level models.LogLevel, message, query string) error
}

type Deps struct {
	Searcher   Searcher
	Describer  Describer
	Store      Store
	Classifier classifier.Classifier
	Notifier   notify.Notifier
	Recorder   RunRecorder
	Metrics    *metrics.Metrics
}

type Config struct {
	Searches          []models.SearchRun
	PriceRange        pricing.Range
	SearchConcurrency int
	EnrichConcurrency int
	EnrichRPS         float64
	// EnrichAll fetches descriptions and classifies every new listing instead
	// of only those inside PriceRange.
	EnrichAll bool
}

var ErrKnownState = errors.New("known-state lookup failed")

type Pipeline struct {
	deps    Deps
	cfg     Config
	limiter *rate.Limiter
	now     func() time.Time
}

func New(deps Deps, cfg Config) *Pipeline {
	if cfg.SearchConcurrency <= 0 {
		cfg.SearchConcurrency = len(cfg.Searches)
	}
	if cfg.EnrichConcurrency <= 0 {
		cfg.EnrichConcurrency = 4
	}
	p := &Pipeline{deps: deps, cfg: cfg, now: time.Now}
	if cfg.EnrichRPS > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.EnrichRPS), 1)
	}
	return p
}

// batch is what one query returned.
type batch struct {
	run      models.SearchRun
	listings []models.Listing
	err      error
}

// candidate is a unique listing with the query that first surfaced it.
type candidate struct {
	listing     models.Listing
	queryIdx    int
	fingerprint string
	inRange     bool
	known       bool
	enrich      bool
	persisted   bool
	notified    bool
}

type runState struct {
	id       *int64
	failures atomic.Int64
}

// Run executes one pass. It always returns a summary; the error is non-nil
// only when the run had to stop early.
func (p *Pipeline) Run(ctx context.Context) (*models.RunSummary, error) {
	started := p.now()
	summary := &models.RunSummary{RunID: uuid.New(), Results: []models.QueryResult{}}
	state := &runState{}

	run := &models.ScrapeRun{RunUUID: summary.RunID.String(), StartedAt: started, Status: models.RunStatusRunning}
	if p.deps.Recorder != nil {
		if id, err := p.deps.Recorder.CreateRun(run); err != nil {
			log.Printf("[warn] run %s: record start: %v", summary.RunID, err)
		} else {
			run.ID = id
			state.id = &id
		}
	}
	p.logf(state, models.LogLevelInfo, "", "run %s: %d queries", summary.RunID, len(p.cfg.Searches))

	batches := p.search(ctx, state)
	candidates := p.dedup(state, batches)

	err := p.filterKnown(ctx, candidates)
	var fresh []*candidate
	if err == nil {
		fresh = newOnly(candidates)
		p.deps.Metrics.NewListings(len(fresh))
		p.logf(state, models.LogLevelInfo, "", "%d unique listings, %d new", len(candidates), len(fresh))

		p.enrich(ctx, state, fresh)
		p.classify(ctx, state, fresh)
		p.persist(ctx, state, fresh)
		p.notify(ctx, state, fresh)
	}

	summary.Results = buildResults(batches, fresh)
	summary.Failures = int(state.failures.Load())
	summary.Timestamp = p.now().UTC()
	summary.Success = err == nil
	if err != nil {
		summary.Error = err.Error()
		p.logf(state, models.LogLevelError, "", "run aborted: %v", err)
	}

	p.finish(run, summary, batches)
	p.deps.Metrics.ObserveRun(summary.Success, p.now().Sub(started))
	return summary, err
}

func (p *Pipeline) search(ctx context.Context, state *runState) []batch {
	batches := make([]batch, len(p.cfg.Searches))
	fanOut(p.cfg.SearchConcurrency, len(batches), func(i int) {
		sr := p.cfg.Searches[i]
		listings, err := p.deps.Searcher.Search(ctx, sr)
		batches[i] = batch{run: sr, listings: listings, err: err}
		if err != nil {
			batches[i].listings = nil
			state.failures.Add(1)
			p.deps.Metrics.Failure(metrics.StageSearch)
			p.logf(state, models.LogLevelError, sr.Query, "search failed: %v", err)
			return
		}
		p.deps.Metrics.Found(sr.Query, len(listings))
		p.logf(state, models.LogLevelInfo, sr.Query, "%d listings", len(listings))
	})
	return batches
}

// dedup unions the batches in query order. The first query to surface an
// identifier owns it; later copies are dropped, with a warning when their
// content differs.
func (p *Pipeline) dedup(state *runState, batches []batch) []*candidate {
	var ordered []*candidate
	seen := make(map[string]*candidate)

	for qi, b := range batches {
		for _, l := range b.listings {
			fp := identity.Fingerprint(l)
			if prev, ok := seen[l.ID]; ok {
				if prev.fingerprint != fp {
					p.deps.Metrics.Conflict()
					p.logf(state, models.LogLevelWarn, b.run.Query,
						"listing %s differs from copy seen by %q; keeping first", l.ID, batches[prev.queryIdx].run.Query)
				}
				continue
			}
			c := &candidate{
				listing:     l,
				queryIdx:    qi,
				fingerprint: fp,
				inRange:     p.cfg.PriceRange.Contains(l.Price),
			}
			seen[l.ID] = c
			ordered = append(ordered, c)
		}
	}
	return ordered
}

// filterKnown marks candidates already in the store with a single lookup.
func (p *Pipeline) filterKnown(ctx context.Context, candidates []*candidate) error {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.listing.ID
	}

	existing, err := p.deps.Store.ExistingIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrKnownState, err)
	}
	for _, c := range candidates {
		_, c.known = existing[c.listing.ID]
	}
	return nil
}

func newOnly(candidates []*candidate) []*candidate {
	var fresh []*candidate
	for _, c := range candidates {
		if !c.known {
			fresh = append(fresh, c)
		}
	}
	return fresh
}

func (p *Pipeline) enrich(ctx context.Context, state *runState, fresh []*candidate) {
	for _, c := range fresh {
		c.enrich = c.inRange || p.cfg.EnrichAll
	}
	if p.deps.Describer == nil {
		return
	}

	fanOut(p.cfg.EnrichConcurrency, len(fresh), func(i int) {
		c := fresh[i]
		if !c.enrich {
			return
		}
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				p.itemFailed(state, metrics.StageEnrich, c, err)
				return
			}
		}
		desc, ok, err := p.deps.Describer.Describe(ctx, c.listing.ID)
		if err != nil {
			p.itemFailed(state, metrics.StageEnrich, c, err)
			return
		}
		if ok {
			c.listing = c.listing.WithDescription(desc)
		}
	})
}

func (p *Pipeline) classify(ctx context.Context, state *runState, fresh []*candidate) {
	if p.deps.Classifier == nil {
		return
	}
	fanOut(p.cfg.EnrichConcurrency, len(fresh), func(i int) {
		c := fresh[i]
		if !c.enrich {
			return
		}
		result, err := p.deps.Classifier.Classify(ctx, c.listing)
		if err != nil {
			p.itemFailed(state, metrics.StageClassify, c, err)
			result = classifier.Fallback(err)
		}
		c.listing = c.listing.WithClassification(result)
	})
}

func (p *Pipeline) persist(ctx context.Context, state *runState, fresh []*candidate) {
	fanOut(p.cfg.EnrichConcurrency, len(fresh), func(i int) {
		c := fresh[i]
		query := p.cfg.Searches[c.queryIdx].Query
		if err := p.deps.Store.UpsertListing(ctx, c.listing, query); err != nil {
			p.itemFailed(state, metrics.StagePersist, c, err)
			return
		}
		c.persisted = true
	})
}

func (p *Pipeline) notify(ctx context.Context, state *runState, fresh []*candidate) {
	if p.deps.Notifier == nil {
		return
	}
	fanOut(p.cfg.EnrichConcurrency, len(fresh), func(i int) {
		c := fresh[i]
		if !c.persisted || !c.inRange {
			return
		}
		if err := p.deps.Notifier.Notify(ctx, c.listing); err != nil {
			p.deps.Metrics.Notified(false)
			p.itemFailed(state, metrics.StageNotify, c, err)
			return
		}
		p.deps.Metrics.Notified(true)
		c.notified = true
	})
}

func (p *Pipeline) itemFailed(state *runState, stage string, c *candidate, err error) {
	state.failures.Add(1)
	p.deps.Metrics.Failure(stage)
	p.logf(state, models.LogLevelError, p.cfg.Searches[c.queryIdx].Query, "%s %s: %v", stage, c.listing.ID, err)
}

// buildResults reports per query. New, InPriceRange and Notified count only
// listings whose provenance is that query, so they sum to the run totals.
func buildResults(batches []batch, fresh []*candidate) []models.QueryResult {
	results := make([]models.QueryResult, len(batches))
	for i, b := range batches {
		results[i] = models.QueryResult{
			Query:       b.run.Query,
			Description: b.run.Description,
			Total:       len(b.listings),
			Notified:    []string{},
		}
		if b.err != nil {
			results[i].Error = b.err.Error()
		}
	}

	for _, c := range fresh {
		r := &results[c.queryIdx]
		r.New++
		if c.inRange {
			r.InPriceRange++
		}
		if c.notified {
			r.Notified = append(r.Notified, c.listing.Title)
		}
	}
	return results
}

func (p *Pipeline) finish(run *models.ScrapeRun, summary *models.RunSummary, batches []batch) {
	for _, r := range summary.Results {
		p.logf(nil, models.LogLevelInfo, r.Query, "total %d, new %d, in range %d, notified %d",
			r.Total, r.New, r.InPriceRange, len(r.Notified))
	}

	if p.deps.Recorder == nil || run.ID == 0 {
		return
	}
	finished := p.now()
	run.FinishedAt = &finished
	run.Status = models.RunStatusCompleted
	if !summary.Success {
		run.Status = models.RunStatusFailed
	}
	for _, b := range batches {
		run.ListingsFound += len(b.listings)
	}
	run.ListingsNew = summary.TotalNew()
	run.Notified = len(summary.NotifiedTitles())
	run.ErrorsCount = summary.Failures
	if err := p.deps.Recorder.UpdateRun(run); err != nil {
		log.Printf("[warn] run %s: record finish: %v", summary.RunID, err)
	}
}

// logf writes to the process log and, when a run is being recorded, to the
// run's log table.
func (p *Pipeline) logf(state *runState, level models.LogLevel, query, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if query != "" {
		log.Printf("[%s] query %q: %s", level, query, msg)
	} else {
		log.Printf("[%s] %s", level, msg)
	}

	if p.deps.Recorder == nil || state == nil || state.id == nil {
		return
	}
	if err := p.deps.Recorder.Log(state.id, level, msg, query); err != nil {
		log.Printf("[warn] record log: %v", err)
	}
}

// fanOut runs fn for every index with at most limit in flight and returns once
// all have finished.
func fanOut(limit, n int, fn func(i int)) {
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	g.Wait()
}
