package models

import (
	"time"

	"github.com/google/uuid"
)

// SearchRun is one configured free-text query executed independently per run.
type SearchRun struct {
	Query       string `json:"query" yaml:"query"`
	Description string `json:"description" yaml:"description"`
	Location    string `json:"location" yaml:"location"`
	Radius      int    `json:"radius" yaml:"radius"`
}

// QueryResult is the per-query slice of a run summary.
type QueryResult struct {
	Query        string   `json:"query"`
	Description  string   `json:"description,omitempty"`
	Total        int      `json:"total"`
	New          int      `json:"new"`
	InPriceRange int      `json:"inPriceRange"`
	Notified     []string `json:"notified"`
	Error        string   `json:"error,omitempty"`
}

// RunSummary is returned by every pipeline invocation, including failed ones.
type RunSummary struct {
	RunID     uuid.UUID     `json:"run_id"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Results   []QueryResult `json:"results"`
	Failures  int           `json:"failures"`
}

// TotalNew sums new listings across queries.
func (s *RunSummary) TotalNew() int {
	n := 0
	for _, r := range s.Results {
		n += r.New
	}
	return n
}

// NotifiedTitles flattens notified titles across queries in query order.
func (s *RunSummary) NotifiedTitles() []string {
	var titles []string
	for _, r := range s.Results {
		titles = append(titles, r.Notified...)
	}
	return titles
}
