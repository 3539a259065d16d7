// Package extract turns free-text trip descriptions into TripRequest drafts.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"google.golang.org/genai"

	"github.com/odyssey-erp/odyssey-quote/internal/pricing"
)

// ErrEmptyText is returned when there is nothing to extract from.
var ErrEmptyText = errors.New("extract: text is empty")

// MaxTextLength bounds the free text sent upstream.
const MaxTextLength = 4000

// Extractor produces a best-effort TripRequest from free text. The result is
// a draft and must be validated before pricing.
type Extractor interface {
	Extract(ctx context.Context, text string) (pricing.TripRequest, error)
}

const instructions = `Extract a travel package request from the text below and answer with JSON only, using exactly these keys:
{"agencyName": string, "paxCount": integer, "travelDays": integer, "needsBus": boolean,
 "busType": "small"|"medium"|"coach", "guideLanguage": string,
 "hotelRequirement": {"stars": 3|4|5, "rooms": integer, "nights": integer,
 "location": "tokyo"|"osaka"|"kyoto"|"hokkaido"|"okinawa"|"fukuoka"|"hiroshima"|"nagoya"}}
Omit keys you cannot determine.

Text:
`

// GeminiExtractor delegates extraction to a Gemini model.
type GeminiExtractor struct {
	client *genai.Client
	model  string
}

// NewGeminiExtractor creates a GenAI-backed extractor.
func NewGeminiExtractor(ctx context.Context, apiKey, model string) (*GeminiExtractor, error) {
	if apiKey == "" {
		return nil, errors.New("extract: genai api key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("extract: create genai client: %w", err)
	}
	return &GeminiExtractor{client: client, model: model}, nil
}

// Extract asks the model for JSON and decodes it.
func (e *GeminiExtractor) Extract(ctx context.Context, text string) (pricing.TripRequest, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return pricing.TripRequest{}, ErrEmptyText
	}
	text = truncate(text, MaxTextLength)
	resp, err := e.client.Models.GenerateContent(ctx, e.model, genai.Text(instructions+text), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	})
	if err != nil {
		return pricing.TripRequest{}, fmt.Errorf("extract: generate: %w", err)
	}
	return DecodeDraft(resp.Text())
}

// truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// DecodeDraft parses model output into a TripRequest, tolerating markdown
// code fences around the JSON object.
func DecodeDraft(raw string) (pricing.TripRequest, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return pricing.TripRequest{}, errors.New("extract: no JSON object in model output")
	}
	var req pricing.TripRequest
	if err := json.Unmarshal([]byte(raw[start:end+1]), &req); err != nil {
		return pricing.TripRequest{}, fmt.Errorf("extract: decode draft: %w", err)
	}
	return req.Normalize(), nil
}
