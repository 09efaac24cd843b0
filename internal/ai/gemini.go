package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider turns free-text charter requests into structured itinerary
// drafts using Google's Gemini models.
type GeminiProvider struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiProvider initializes a new Gemini client.
// apiKey should be provided from environment variables.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	// Flash keeps latency and cost down; drafts are low stakes.
	model := client.GenerativeModel("gemini-2.0-flash")

	// Force JSON response for structured parsing.
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.4)

	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

// Close cleans up the Gemini client resources.
func (p *GeminiProvider) Close() {
	p.client.Close()
}

// DraftItinerary extracts a structured charter draft from a customer message.
// The draft is advisory only; every field is re-validated before pricing.
func (p *GeminiProvider) DraftItinerary(ctx context.Context, userMessage string, now time.Time) (*DraftResult, error) {
	fullPrompt := fmt.Sprintf("%s\n\nCustomer Message: %s", buildSystemPrompt(now), userMessage)

	resp, err := p.model.GenerateContent(ctx, genai.Text(fullPrompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no response candidates from Gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		}
	}

	// JSON mode should already return bare JSON; strip fences just in case.
	cleanJSON := cleanJSONString(responseText.String())

	var result DraftResult
	if err := json.Unmarshal([]byte(cleanJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w. Raw: %s", err, cleanJSON)
	}
	if result.PassengerCount < 1 {
		result.PassengerCount = 1
	}
	return &result, nil
}

func buildSystemPrompt(now time.Time) string {
	return fmt.Sprintf(`Role: You are the booking assistant for a vehicle charter service. Customers describe multi-day group trips in free text; you extract a structured itinerary draft.

Context:
- Current System Time: %s

RULES:

1. LEGS AND STOPS:
   - The trip has an "outbound" leg and optionally a "return" leg.
   - Every leg needs at least a pickup (first stop) and a dropoff (last stop); anything between is a "waypoint".
   - Number stops with "order" starting at 1 within each leg.

2. TIMES:
   - Resolve relative times ("next Friday morning") against Current System Time into RFC3339 with offset.
   - If a stop has no stated time, set "arrival_time" to null. Do NOT invent times.
   - If a requested time is in the past, treat it as missing and ask.

3. OVERNIGHT HALTS:
   - If the group stays somewhere and keeps the vehicle and driver ("stay two nights in Manali"), set "is_driver_staying": true on that stop and estimate "staying_duration_hours" (nights * 24).

4. PASSENGERS AND EXTRAS:
   - "passenger_count": extract from phrases like "we are 12", "15 people". Default 1.
   - "amenity_wishes": free-text extras the customer asks for (wifi, child seat, luggage trailer). Empty list when none.

5. CLARIFICATION GATE:
   - Set "intent": "charter" ONLY when pickup location, final destination, and a departure day are all known.
   - Otherwise set "intent": "clarification" and use "reply" to ask for what is missing, in one short friendly sentence.
   - "reply" is plain conversational text. No markdown, no system tokens.

6. Output JSON Schema:
{
  "intent": "charter" | "clarification",
  "passenger_count": integer (default 1),
  "round_trip": boolean,
  "stops": [
    {
      "leg": "outbound" | "return",
      "order": integer,
      "location_name": "string",
      "arrival_time": "RFC3339 with offset" | null,
      "stop_type": "pickup" | "dropoff" | "waypoint",
      "is_driver_staying": boolean,
      "staying_duration_hours": number
    }
  ],
  "amenity_wishes": ["string"],
  "reply": "string (user facing response)"
}
`, now.Format(time.RFC3339))
}

// cleanJSONString removes markdown code blocks if present (e.g. ```json ... ```)
func cleanJSONString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}
