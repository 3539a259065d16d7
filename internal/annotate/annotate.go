// Package annotate writes the human-readable system note attached to a quote
// after it has been priced.
package annotate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/odyssey-erp/odyssey-quote/internal/pricing"
)

// Annotator produces a short advisory note for a priced quote.
type Annotator interface {
	Note(ctx context.Context, req pricing.TripRequest, quote pricing.QuoteResult) (string, error)
}

// TemplateAnnotator builds the note from the cost breakdown alone.
type TemplateAnnotator struct{}

// Note summarises where the money goes and which hotel channel was used.
func (TemplateAnnotator) Note(_ context.Context, req pricing.TripRequest, quote pricing.QuoteResult) (string, error) {
	b := quote.Breakdown
	var sb strings.Builder
	switch b.HotelSource {
	case pricing.HotelSourceExternal:
		saving := (b.InternalUnitRate - b.ExternalUnitRate) * int64(req.HotelRequirement.Rooms) * int64(req.HotelRequirement.Nights)
		fmt.Fprintf(&sb, "Market rates in %s are below contract; sourcing externally saves %s on accommodation.",
			displayLocation(req.HotelRequirement.Location), pricing.FormatJPY(saving))
	case pricing.HotelSourceFallback:
		fmt.Fprintf(&sb, "Market feed was unavailable; accommodation is priced at the %d-star contract rate.",
			req.HotelRequirement.Stars)
	default:
		fmt.Fprintf(&sb, "Contract rates for %d-star hotels in %s remain the best available.",
			req.HotelRequirement.Stars, displayLocation(req.HotelRequirement.Location))
	}
	if total := quote.EstimatedTotalJPY; total > 0 {
		share := b.HotelCostBasis * 100 / b.PreMarginTotal()
		fmt.Fprintf(&sb, " Accommodation is %d%% of cost; %s per traveller.", share, pricing.FormatJPY(quote.PerPersonJPY))
	}
	return sb.String(), nil
}

func displayLocation(l pricing.Location) string {
	s := string(l)
	if s == "" {
		return "the destination"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// GeminiAnnotator asks a Gemini model for the note.
type GeminiAnnotator struct {
	client *genai.Client
	model  string
}

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// NewGeminiAnnotator creates a GenAI-backed annotator.
func NewGeminiAnnotator(ctx context.Context, apiKey, model string) (*GeminiAnnotator, error) {
	if apiKey == "" {
		return nil, errors.New("annotate: genai api key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("annotate: create genai client: %w", err)
	}
	return &GeminiAnnotator{client: client, model: model}, nil
}

// Note requests a two-sentence note for the quote.
func (a *GeminiAnnotator) Note(ctx context.Context, req pricing.TripRequest, quote pricing.QuoteResult) (string, error) {
	prompt := fmt.Sprintf(
		"You advise a Japanese inbound travel agency. In at most two sentences, comment on this group quote "+
			"for %d travellers, %d days in %s, %d-star hotel. Total %s, %s per person. Hotel sourcing: %s.",
		req.PaxCount, req.TravelDays, displayLocation(req.HotelRequirement.Location), req.HotelRequirement.Stars,
		pricing.FormatJPY(quote.EstimatedTotalJPY), pricing.FormatJPY(quote.PerPersonJPY),
		quote.Breakdown.SourcingStrategy,
	)
	resp, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("annotate: generate: %w", err)
	}
	note := strings.TrimSpace(resp.Text())
	if note == "" {
		return "", errors.New("annotate: empty response")
	}
	return note, nil
}

// Fallback tries primary first and uses secondary when it fails.
type Fallback struct {
	Primary   Annotator
	Secondary Annotator
}

// Note implements Annotator.
func (f Fallback) Note(ctx context.Context, req pricing.TripRequest, quote pricing.QuoteResult) (string, error) {
	if f.Primary != nil {
		if note, err := f.Primary.Note(ctx, req, quote); err == nil {
			return note, nil
		}
	}
	if f.Secondary == nil {
		return "", errors.New("annotate: no annotator available")
	}
	return f.Secondary.Note(ctx, req, quote)
}
