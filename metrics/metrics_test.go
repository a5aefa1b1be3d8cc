package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New()
	m.ObserveRun(true, 2*time.Second)
	m.ObserveRun(false, time.Second)
	m.Found("סירה", 3)
	m.NewListings(2)
	m.Notified(true)
	m.Notified(false)
	m.Failure(StageEnrich)
	m.Conflict()

	require.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("failed")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.ListingsFound.WithLabelValues("סירה")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.ListingsNew))
	require.Equal(t, 1.0, testutil.ToFloat64(m.StageFailures.WithLabelValues(StageEnrich)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ConflictingDupes))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRun(true, time.Second)
	m.Found("q", 1)
	m.NewListings(1)
	m.Notified(true)
	m.Failure(StageNotify)
	m.Conflict()
	require.NotNil(t, m.Handler())
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.NewListings(4)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	require.Contains(t, string(body), "boat_radar_listings_new_total 4")
}
