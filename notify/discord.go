package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"boat_radar/models"
)

const (
	colorStrong         = 0x00ff00
	colorDefault        = 0x0099ff
	strongRating        = 7
	maxDescriptionRunes = 1000

	// Discord rejects embeds whose title or field values exceed these.
	maxTitleRunes = 256
	maxFieldRunes = 1024
)

type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
	now        func() time.Time
}

func NewDiscordNotifier(webhookURL string, client *http.Client) *DiscordNotifier {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &DiscordNotifier{webhookURL: webhookURL, client: client, now: time.Now}
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embed struct {
	Title     string       `json:"title"`
	URL       string       `json:"url"`
	Color     int          `json:"color"`
	Fields    []embedField `json:"fields"`
	Timestamp string       `json:"timestamp"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

func (d *DiscordNotifier) Notify(ctx context.Context, l models.Listing) error {
	body, err := json.Marshal(webhookPayload{Embeds: []embed{buildEmbed(l, d.now())}})
	if err != nil {
		return fmt.Errorf("marshal embed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, snippet)
	}
	return nil
}

func buildEmbed(l models.Listing, now time.Time) embed {
	c := models.Classification{}
	if l.Classification != nil {
		c = *l.Classification
	}

	color := colorDefault
	if c.Rating >= strongRating {
		color = colorStrong
	}

	parking := "❌ No"
	if c.HasParking {
		parking = "✅ Yes"
	}

	e := embed{
		Title: truncateRunes(l.Title, maxTitleRunes),
		URL:   l.URL,
		Color: color,
		Fields: []embedField{
			{Name: "💰 Price", Value: l.Price, Inline: true},
			{Name: "📍 Location", Value: locationText(l.Location), Inline: true},
			{Name: "⭐ LLM Rating", Value: ratingText(c.Rating), Inline: true},
			{Name: "🅿️ Parking", Value: parking, Inline: true},
			{Name: "📝 LLM Analysis", Value: truncateRunes(c.Reason, maxFieldRunes), Inline: false},
		},
		Timestamp: now.UTC().Format(time.RFC3339),
	}

	if l.Description != nil && *l.Description != "" {
		e.Fields = append(e.Fields, embedField{
			Name:  "📄 Description",
			Value: truncateRunes(*l.Description, maxDescriptionRunes),
		})
	}
	return e
}

func locationText(loc models.Location) string {
	return loc.City + ", " + loc.Region
}

func ratingText(r int) string {
	return strconv.Itoa(r) + "/10"
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
