package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync"

	"boat_radar/models"
)

type fakeSearcher struct {
	results map[string][]models.Listing
	errs    map[string]error
}

func (f *fakeSearcher) Search(ctx context.Context, run models.SearchRun) ([]models.Listing, error) {
	if err := f.errs[run.Query]; err != nil {
		return nil, err
	}
	return f.results[run.Query], nil
}

type fakeDescriber struct {
	mu    sync.Mutex
	descs map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeDescriber) Describe(ctx context.Context, id string) (string, bool, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()
	if err := f.errs[id]; err != nil {
		return "", false, err
	}
	d, ok := f.descs[id]
	return d, ok, nil
}

func (f *fakeDescriber) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.calls...)
	sort.Strings(out)
	return out
}

type storedRow struct {
	listing models.Listing
	query   string
}

type memStore struct {
	mu            sync.Mutex
	rows          map[string]storedRow
	existingCalls [][]string
	existingErr   error
	upsertErrs    map[string]error
	upserts       int
}

func newMemStore(known ...string) *memStore {
	s := &memStore{rows: make(map[string]storedRow)}
	for _, id := range known {
		s.rows[id] = storedRow{listing: models.Listing{ID: id}, query: "seed"}
	}
	return s
}

func (s *memStore) ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.existingCalls = append(s.existingCalls, append([]string(nil), ids...))
	if s.existingErr != nil {
		return nil, s.existingErr
	}
	out := make(map[string]struct{})
	for _, id := range ids {
		if _, ok := s.rows[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (s *memStore) UpsertListing(ctx context.Context, l models.Listing, searchQuery string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if err := s.upsertErrs[l.ID]; err != nil {
		return err
	}
	if _, ok := s.rows[l.ID]; ok {
		return errors.New("duplicate upsert for " + l.ID)
	}
	s.rows[l.ID] = storedRow{listing: l, query: searchQuery}
	return nil
}

type fakeClassifier struct {
	mu    sync.Mutex
	errs  map[string]error
	calls []string
}

func (f *fakeClassifier) Classify(ctx context.Context, l models.Listing) (models.Classification, error) {
	f.mu.Lock()
	f.calls = append(f.calls, l.ID)
	f.mu.Unlock()
	if err := f.errs[l.ID]; err != nil {
		return models.Classification{}, err
	}
	hasDesc := l.Description != nil
	return models.Classification{HasParking: hasDesc, Rating: 8, Reason: "stub for " + l.ID}, nil
}

func (f *fakeClassifier) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.calls...)
	sort.Strings(out)
	return out
}

type fakeNotifier struct {
	mu   sync.Mutex
	errs map[string]error
	sent []string
}

func (f *fakeNotifier) Notify(ctx context.Context, l models.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[l.ID]; err != nil {
		return err
	}
	f.sent = append(f.sent, l.Title)
	return nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	created []*models.ScrapeRun
	updated []models.ScrapeRun
	logs    []string
}

func (f *fakeRecorder) CreateRun(run *models.ScrapeRun) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, run)
	return int64(len(f.created)), nil
}

func (f *fakeRecorder) UpdateRun(run *models.ScrapeRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, *run)
	return nil
}

func (f *fakeRecorder) Log(runID *int64, level models.LogLevel, message, query string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, string(level)+": "+message)
	return nil
}

func listing(id, title, price string) models.Listing {
	return models.Listing{
		ID:       id,
		Title:    title,
		Price:    price,
		Location: models.Location{City: "Tel Aviv", Region: "TA"},
		URL:      models.ItemURL(id),
	}
}
