// Package classifier rates boat listings against the buyer's criteria.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"boat_radar/models"
)

type Classifier interface {
	Classify(ctx context.Context, listing models.Listing) (models.Classification, error)
}

const (
	MinRating      = 0
	MaxRating      = 10
	fallbackRating = 5
	noReason       = "No reason provided"
)

var ErrNoJSON = errors.New("no JSON found in response")

// Fallback is the record stored when classification fails.
func Fallback(err error) models.Classification {
	msg := "Unknown error"
	if err != nil {
		msg = err.Error()
	}
	return models.Classification{
		HasParking: false,
		Rating:     fallbackRating,
		Reason:     "Analysis failed: " + msg,
	}
}

var jsonBlock = regexp.MustCompile(`(?s)\{.*\}`)

type reply struct {
	HasParking any    `json:"hasParking"`
	Rating     any    `json:"rating"`
	Reason     string `json:"reason"`
}

// ParseReply pulls the outermost JSON object out of a model reply. Only a
// literal true counts as parking and the rating is clamped to 0..10.
func ParseReply(text string) (models.Classification, error) {
	block := jsonBlock.FindString(text)
	if block == "" {
		return models.Classification{}, ErrNoJSON
	}

	var r reply
	if err := json.Unmarshal([]byte(block), &r); err != nil {
		return models.Classification{}, fmt.Errorf("decode reply: %w", err)
	}

	parking, _ := r.HasParking.(bool)
	reason := strings.TrimSpace(r.Reason)
	if reason == "" {
		reason = noReason
	}
	return models.Classification{
		HasParking: parking,
		Rating:     clampRating(ratingValue(r.Rating)),
		Reason:     reason,
	}, nil
}

var leadingInt = regexp.MustCompile(`^\s*[+-]?\d+`)

func ratingValue(v any) int {
	switch r := v.(type) {
	case float64:
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return 0
		}
		return int(r)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(leadingInt.FindString(r)))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func clampRating(n int) int {
	return max(MinRating, min(MaxRating, n))
}
