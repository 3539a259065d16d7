package report

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/odyssey-erp/odyssey-quote/internal/pricing"
)

//go:embed templates/quote.html
var templateFS embed.FS

var quoteTemplate = template.Must(template.ParseFS(templateFS, "templates/quote.html"))

// HTMLRenderer converts HTML into PDF bytes.
type HTMLRenderer interface {
	RenderHTML(ctx context.Context, html []byte) ([]byte, error)
}

// QuoteRenderer produces printable quote documents.
type QuoteRenderer struct {
	pdf HTMLRenderer
}

// NewQuoteRenderer constructs a QuoteRenderer on top of a PDF backend.
func NewQuoteRenderer(pdf HTMLRenderer) *QuoteRenderer {
	return &QuoteRenderer{pdf: pdf}
}

type quoteLine struct {
	Label  string
	Amount string
}

type quoteView struct {
	Request   pricing.TripRequest
	Quote     pricing.QuoteResult
	City      string
	Issued    string
	Lines     []quoteLine
	Total     string
	PerPerson string
	Note      string
}

// QuoteHTML renders the quote document as HTML.
func QuoteHTML(req pricing.TripRequest, quote pricing.QuoteResult) ([]byte, error) {
	b := quote.Breakdown
	lines := make([]quoteLine, 0, 4)
	if b.TransportCost > 0 {
		lines = append(lines, quoteLine{"Transport", pricing.FormatJPY(b.TransportCost)})
	}
	lines = append(lines,
		quoteLine{"Guide", pricing.FormatJPY(b.GuideCost)},
		quoteLine{"Accommodation", pricing.FormatJPY(b.HotelCostBasis)},
		quoteLine{"Service margin", pricing.FormatJPY(int64(b.MarginAmount))},
	)
	note := quote.SystemNote
	if note == pricing.PendingNote {
		note = ""
	}
	view := quoteView{
		Request:   req,
		Quote:     quote,
		City:      cityName(req.HotelRequirement.Location),
		Issued:    quote.Timestamp.UTC().Format("2006-01-02 15:04 MST"),
		Lines:     lines,
		Total:     pricing.FormatJPY(quote.EstimatedTotalJPY),
		PerPerson: pricing.FormatJPY(quote.PerPersonJPY),
		Note:      note,
	}
	var buf bytes.Buffer
	if err := quoteTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("report: render quote html: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderQuote renders the quote document as PDF.
func (r *QuoteRenderer) RenderQuote(ctx context.Context, req pricing.TripRequest, quote pricing.QuoteResult) ([]byte, error) {
	html, err := QuoteHTML(req, quote)
	if err != nil {
		return nil, err
	}
	pdf, err := r.pdf.RenderHTML(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("report: render quote %s: %w", quote.ID, err)
	}
	return pdf, nil
}

func cityName(l pricing.Location) string {
	if l == "" {
		return ""
	}
	s := string(l)
	return strings.ToUpper(s[:1]) + s[1:]
}
