package classifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"boat_radar/models"
)

func TestRuleClassifier_PerfectMatch(t *testing.T) {
	c := NewRuleClassifier()
	desc := "עוצמה א, מנוע 115 HP, מקום עגינה במרינה הרצליה"
	sub := "6.5 מטר"

	got, err := c.Classify(context.Background(), models.Listing{
		Title:       "סירת דייג",
		Price:       "₪60,000",
		Subtitle:    &sub,
		Description: &desc,
	})
	require.NoError(t, err)
	require.True(t, got.HasParking)
	require.Equal(t, 10, got.Rating)
	require.Contains(t, got.Reason, "marina berth mentioned")
}

func TestRuleClassifier_CaseFoldedEnglish(t *testing.T) {
	c := NewRuleClassifier()
	desc := "Includes MARINA Berth until 2027"

	got, err := c.Classify(context.Background(), models.Listing{
		Title:       "Bayliner 742",
		Price:       "₪150,000",
		Description: &desc,
	})
	require.NoError(t, err)
	require.True(t, got.HasParking)
	require.Equal(t, 5, got.Rating)
}

func TestRuleClassifier_NoCriteria(t *testing.T) {
	c := NewRuleClassifier()
	got, err := c.Classify(context.Background(), models.Listing{Title: "Kayak", Price: "Free"})
	require.NoError(t, err)
	require.False(t, got.HasParking)
	require.Equal(t, 1, got.Rating)
	require.Equal(t, "No matching criteria found", got.Reason)
}

func TestRuleClassifier_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRuleClassifier().Classify(ctx, models.Listing{})
	require.Error(t, err)
}

func TestRuleClassifier_HebrewHorsepowerAtEnd(t *testing.T) {
	for _, desc := range []string{"מנוע 150 כס", "מנוע 150 כס במצב מעולה"} {
		got, err := NewRuleClassifier().Classify(context.Background(), models.Listing{
			Title:       "סירה",
			Price:       "Free",
			Description: &desc,
		})
		require.NoError(t, err)
		require.Equal(t, 2, got.Rating, desc)
		require.Contains(t, got.Reason, "150 HP", desc)
	}
}
