package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"boat_radar/models"
)

func sampleListing() models.Listing {
	l := models.Listing{
		ID:       "1001",
		Title:    "סירת דייג 6.5 מטר",
		Price:    "₪60,000",
		Location: models.Location{City: "תל אביב", Region: "TA"},
		URL:      models.ItemURL("1001"),
	}
	return l.WithClassification(models.Classification{HasParking: true, Rating: 8, Reason: "berth in Herzliya"})
}

func TestBuildEmbed(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	e := buildEmbed(sampleListing(), now)

	require.Equal(t, "סירת דייג 6.5 מטר", e.Title)
	require.Equal(t, "https://www.facebook.com/marketplace/item/1001", e.URL)
	require.Equal(t, colorStrong, e.Color)
	require.Equal(t, "2026-03-01T08:00:00Z", e.Timestamp)
	require.Len(t, e.Fields, 5)
	require.Equal(t, "תל אביב, TA", e.Fields[1].Value)
	require.Equal(t, "8/10", e.Fields[2].Value)
	require.Equal(t, "✅ Yes", e.Fields[3].Value)
}

func TestBuildEmbed_LowRatingAndLongDescription(t *testing.T) {
	l := sampleListing().WithClassification(models.Classification{Rating: 6, Reason: "no berth"})
	l = l.WithDescription(strings.Repeat("ס", 1500))

	e := buildEmbed(l, time.Now())
	require.Equal(t, colorDefault, e.Color)
	require.Equal(t, "❌ No", e.Fields[3].Value)
	require.Len(t, e.Fields, 6)
	require.Equal(t, 1000, len([]rune(e.Fields[5].Value)))
}

func TestBuildEmbed_LongTitleAndReason(t *testing.T) {
	l := sampleListing().WithClassification(models.Classification{Rating: 9, Reason: strings.Repeat("ע", 3000)})
	l.Title = strings.Repeat("ס", 400)

	e := buildEmbed(l, time.Now())
	require.Equal(t, 256, len([]rune(e.Title)))
	require.Equal(t, 1024, len([]rune(e.Fields[4].Value)))
	for _, f := range e.Fields {
		require.LessOrEqual(t, len([]rune(f.Value)), 1024, f.Name)
	}
}

func TestDiscordNotifier_Notify(t *testing.T) {
	var payload webhookPayload
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewDiscordNotifier(srv.URL, srv.Client())
	require.NoError(t, n.Notify(context.Background(), sampleListing()))
	require.Equal(t, "application/json", contentType)
	require.Len(t, payload.Embeds, 1)
	require.Equal(t, "סירת דייג 6.5 מטר", payload.Embeds[0].Title)
}

func TestDiscordNotifier_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewDiscordNotifier(srv.URL, nil).Notify(context.Background(), sampleListing())
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestLogNotifier(t *testing.T) {
	require.NoError(t, LogNotifier{}.Notify(context.Background(), sampleListing()))
}
