package classifier

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"boat_radar/models"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name string
		text string
		want models.Classification
	}{
		{
			name: "plain json",
			text: `{"hasParking": true, "rating": 8, "reason": "berth in Herzliya"}`,
			want: models.Classification{HasParking: true, Rating: 8, Reason: "berth in Herzliya"},
		},
		{
			name: "wrapped in prose",
			text: "Here is my verdict:\n{\n  \"hasParking\": false,\n  \"rating\": 3,\n  \"reason\": \"too long\"\n}\nThanks",
			want: models.Classification{HasParking: false, Rating: 3, Reason: "too long"},
		},
		{
			name: "rating clamped high",
			text: `{"hasParking": true, "rating": 14, "reason": "x"}`,
			want: models.Classification{HasParking: true, Rating: 10, Reason: "x"},
		},
		{
			name: "rating clamped low",
			text: `{"hasParking": false, "rating": -2, "reason": "x"}`,
			want: models.Classification{Rating: 0, Reason: "x"},
		},
		{
			name: "string rating truncated",
			text: `{"hasParking": false, "rating": "7.5", "reason": "x"}`,
			want: models.Classification{Rating: 7, Reason: "x"},
		},
		{
			name: "fractional rating truncated",
			text: `{"hasParking": false, "rating": 6.9, "reason": "x"}`,
			want: models.Classification{Rating: 6, Reason: "x"},
		},
		{
			name: "truthy parking string is not true",
			text: `{"hasParking": "yes", "rating": 5, "reason": "x"}`,
			want: models.Classification{HasParking: false, Rating: 5, Reason: "x"},
		},
		{
			name: "missing reason",
			text: `{"hasParking": true, "rating": 9}`,
			want: models.Classification{HasParking: true, Rating: 9, Reason: "No reason provided"},
		},
		{
			name: "non numeric rating",
			text: `{"hasParking": true, "rating": "great", "reason": "x"}`,
			want: models.Classification{HasParking: true, Rating: 0, Reason: "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReply(tt.text)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseReply_Errors(t *testing.T) {
	_, err := ParseReply("I cannot help with that")
	require.ErrorIs(t, err, ErrNoJSON)

	_, err = ParseReply("{not json}")
	require.Error(t, err)
}

func TestFallback(t *testing.T) {
	got := Fallback(errors.New("timeout"))
	require.Equal(t, models.Classification{HasParking: false, Rating: 5, Reason: "Analysis failed: timeout"}, got)
	require.Equal(t, "Analysis failed: Unknown error", Fallback(nil).Reason)
}
