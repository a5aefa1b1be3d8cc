// Package metrics exposes Prometheus counters for radar runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "boat_radar"

// Stage labels for StageFailures.
const (
	StageSearch   = "search"
	StageEnrich   = "enrich"
	StageClassify = "classify"
	StagePersist  = "persist"
	StageNotify   = "notify"
)

// Metrics holds the radar's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	ListingsFound    *prometheus.CounterVec
	ListingsNew      prometheus.Counter
	Notifications    *prometheus.CounterVec
	StageFailures    *prometheus.CounterVec
	ConflictingDupes prometheus.Counter
}

// New registers every collector on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome",
		}, []string{"status"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~34min
		}),
		ListingsFound: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_found_total",
			Help:      "Listings returned by search, per query",
		}, []string{"query"}),
		ListingsNew: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_new_total",
			Help:      "Listings not previously stored",
		}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification attempts by result",
		}, []string{"result"}),
		StageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Captured per-item failures by pipeline stage",
		}, []string{"stage"}),
		ConflictingDupes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicting_duplicates_total",
			Help:      "Listings surfaced by several queries with differing content",
		}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRun(success bool, d time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failed"
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(d.Seconds())
}

func (m *Metrics) Found(query string, n int) {
	if m == nil {
		return
	}
	m.ListingsFound.WithLabelValues(query).Add(float64(n))
}

func (m *Metrics) NewListings(n int) {
	if m == nil {
		return
	}
	m.ListingsNew.Add(float64(n))
}

func (m *Metrics) Notified(ok bool) {
	if m == nil {
		return
	}
	result := "sent"
	if !ok {
		result = "failed"
	}
	m.Notifications.WithLabelValues(result).Inc()
}

func (m *Metrics) Failure(stage string) {
	if m == nil {
		return
	}
	m.StageFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) Conflict() {
	if m == nil {
		return
	}
	m.ConflictingDupes.Inc()
}
