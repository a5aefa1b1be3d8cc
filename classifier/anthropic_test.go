package classifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/require"

	"boat_radar/models"
)

func strPtr(s string) *string { return &s }

func TestBuildPrompt(t *testing.T) {
	l := models.Listing{
		ID:                 "1001",
		Title:              "סירת דייג 6.5 מטר",
		Price:              "₪60,000",
		StrikethroughPrice: strPtr("₪65,000"),
		Location:           models.Location{City: "תל אביב", Region: "TA"},
	}

	prompt := BuildPrompt(l)
	require.Contains(t, prompt, "- Title: סירת דייג 6.5 מטר")
	require.Contains(t, prompt, "- Original Price: ₪65,000")
	require.Contains(t, prompt, "- Location: תל אביב, TA")
	require.Contains(t, prompt, "- Description: Not available")

	l.Description = strPtr("מקום עגינה במרינה")
	require.Contains(t, BuildPrompt(l), "- Description: מקום עגינה במרינה")
}

func TestAnthropicClassifier_Classify(t *testing.T) {
	var (
		gotPath string
		gotBody map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-haiku-4-5",
			"content": [{"type": "text", "text": "{\"hasParking\": true, \"rating\": 9, \"reason\": \"6.5m, 115HP, berth\"}"}],
			"stop_reason": "end_turn",
			"stop_sequence": null,
			"usage": {"input_tokens": 10, "output_tokens": 20}
		}`)
	}))
	defer srv.Close()

	c := NewAnthropicClassifier("test-key", "", 5*time.Second,
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)

	got, err := c.Classify(context.Background(), models.Listing{ID: "1", Title: "Boat", Price: "₪60,000"})
	require.NoError(t, err)
	require.Equal(t, models.Classification{HasParking: true, Rating: 9, Reason: "6.5m, 115HP, berth"}, got)
	require.True(t, strings.HasSuffix(gotPath, "/v1/messages"), gotPath)
	require.Equal(t, DefaultModel, gotBody["model"])
	require.EqualValues(t, 300, gotBody["max_tokens"])
}

func TestAnthropicClassifier_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"type":"error","error":{"type":"api_error","message":"boom"}}`)
	}))
	defer srv.Close()

	c := NewAnthropicClassifier("test-key", DefaultModel, time.Second,
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)
	_, err := c.Classify(context.Background(), models.Listing{ID: "1"})
	require.Error(t, err)
}
