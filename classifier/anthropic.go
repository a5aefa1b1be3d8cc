package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"boat_radar/models"
)

const (
	DefaultModel     = "claude-haiku-4-5"
	defaultMaxTokens = 300
)

type AnthropicClassifier struct {
	client anthropic.Client
	model  string
}

func NewAnthropicClassifier(apiKey, model string, timeout time.Duration, opts ...option.RequestOption) *AnthropicClassifier {
	if model == "" {
		model = DefaultModel
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(2),
	}
	if timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(timeout))
	}
	reqOpts = append(reqOpts, opts...)

	return &AnthropicClassifier{
		client: anthropic.NewClient(reqOpts...),
		model:  model,
	}
}

func (c *AnthropicClassifier) Classify(ctx context.Context, listing models.Listing) (models.Classification, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: defaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(BuildPrompt(listing))),
		},
	})
	if err != nil {
		return models.Classification{}, fmt.Errorf("classify %s: %w", listing.ID, err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	result, err := ParseReply(text.String())
	if err != nil {
		return models.Classification{}, fmt.Errorf("classify %s: %w", listing.ID, err)
	}
	return result, nil
}

// BuildPrompt renders the buyer criteria and the listing into a single
// user message asking for a JSON verdict.
func BuildPrompt(l models.Listing) string {
	var b strings.Builder
	b.WriteString(`You are analyzing a boat listing to determine if it matches specific criteria.

TARGET CRITERIA:
- Power Category: עוצמה א (otzma alef / power A) - Israeli boat licensing category
- Length: Up to 7 meters (the closer to 7 the better)
- Engine Power: Up to 150 HP (the closer to 150 the better)
- Marina Parking: Must mention marina parking/berth/mooring space (מקום עגינה במרינה) CRITICAL!
- Ideal Price: Around ₪60,000 (flexible, but the closer to ₪60,000 the better)

LISTING TO ANALYZE:
`)
	fmt.Fprintf(&b, "- Title: %s\n", l.Title)
	fmt.Fprintf(&b, "- Price: %s\n", l.Price)
	if l.StrikethroughPrice != nil && *l.StrikethroughPrice != "" {
		fmt.Fprintf(&b, "- Original Price: %s\n", *l.StrikethroughPrice)
	}
	fmt.Fprintf(&b, "- Location: %s, %s\n", l.Location.City, l.Location.Region)
	if l.Subtitle != nil && strings.TrimSpace(*l.Subtitle) != "" {
		fmt.Fprintf(&b, "- Details: %s\n", *l.Subtitle)
	}
	if l.Description != nil && *l.Description != "" {
		fmt.Fprintf(&b, "- Description: %s\n", *l.Description)
	} else {
		b.WriteString("- Description: Not available\n")
	}
	b.WriteString(`
TASK:
1. Extract boat specifications from the Hebrew text (length in meters, HP, power category)
2. Check if MARINA PARKING is mentioned - a berth/mooring spot in a marina (מקום עגינה, מקום במרינה, מרינה משולם, עגינה).
   Car parking (חניה לרכב) does NOT count.
3. Rate from 0-10 how well this boat matches the criteria:
   - 10 = Perfect match (עוצמה א, ≤7m, ≤150HP, has marina parking, ~₪60k)
   - 7-9 = Good match (meets most criteria)
   - 4-6 = Partial match (meets some criteria)
   - 0-3 = Poor match (doesn't meet key criteria)
4. Provide clear reasoning explaining what specs you found and how it matches

Respond in JSON format only:
{
  "hasParking": boolean,
  "rating": number (0-10),
  "reason": "Found specs: [length/HP/power category], marina parking: [yes/no/what was found], price: [assessment]. Rating because..."
}`)
	return b.String()
}
