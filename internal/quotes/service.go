// Package quotes issues, stores and serves travel-package quotes.
package quotes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/odyssey-quote/internal/annotate"
	"github.com/odyssey-erp/odyssey-quote/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-quote/internal/pricing"
)

// AnnotationQueue schedules the asynchronous system note for a quote.
type AnnotationQueue interface {
	EnqueueAnnotation(ctx context.Context, quoteID string) error
}

// ServiceConfig carries the optional collaborators of a Service.
type ServiceConfig struct {
	Store       Store
	Annotations AnnotationQueue
	Metrics     *Metrics
	Logger      *slog.Logger
}

// Service validates, prices and records quotes.
type Service struct {
	calc        *pricing.Calculator
	store       Store
	annotations AnnotationQueue
	metrics     *Metrics
	logger      *slog.Logger
}

// NewService wires a Service around a calculator.
func NewService(calc *pricing.Calculator, cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		calc:        calc,
		store:       cfg.Store,
		annotations: cfg.Annotations,
		metrics:     cfg.Metrics,
		logger:      logger,
	}
}

// Calculate validates req, prices it, records the result and schedules its
// annotation. Storage and scheduling failures are logged, not returned.
func (s *Service) Calculate(ctx context.Context, req pricing.TripRequest) (*pricing.QuoteResult, error) {
	req = req.Normalize()
	if err := pricing.Validate(req); err != nil {
		s.metrics.observeRejection()
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	quote, err := s.calc.Calculate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("calculate quote: %w", err)
	}
	s.metrics.observeQuote(quote)

	logger := s.logger.With(slog.String("quote_id", quote.ID), slog.String("agency", req.AgencyName))
	logger.Info("quote issued",
		slog.Int64("total_jpy", quote.EstimatedTotalJPY),
		slog.String("hotel_source", string(quote.Breakdown.HotelSource)))

	if s.store != nil {
		if err := s.store.Save(ctx, Record{Request: req, Quote: quote}); err != nil {
			logger.Warn("store quote", slog.Any("error", err))
			return &quote, nil
		}
		if s.annotations != nil {
			if err := s.annotations.EnqueueAnnotation(ctx, quote.ID); err != nil {
				logger.Warn("enqueue annotation", slog.Any("error", err))
			}
		}
	}
	return &quote, nil
}

// Get returns a stored quote.
func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	if s.store == nil {
		return nil, ErrNotFound
	}
	return s.store.Get(ctx, strings.TrimSpace(id))
}

// History lists the most recent quotes of an agency, newest first.
func (s *Service) History(ctx context.Context, agency string, limit int) ([]Record, error) {
	agency = strings.TrimSpace(agency)
	if agency == "" {
		return nil, fmt.Errorf("%w: agency is required", httpx.ErrValidation)
	}
	if s.store == nil {
		return nil, fmt.Errorf("quote history: %w", httpx.ErrUnavailable)
	}
	return s.store.ListByAgency(ctx, agency, limit)
}

// Annotate computes the system note for a stored quote and saves it.
func (s *Service) Annotate(ctx context.Context, id string, annotator annotate.Annotator) (string, error) {
	if annotator == nil {
		return "", errors.New("quotes: annotator not configured")
	}
	rec, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	note, err := annotator.Note(ctx, rec.Request, rec.Quote)
	if err != nil {
		return "", fmt.Errorf("annotate quote %s: %w", id, err)
	}
	if err := s.store.SetNote(ctx, id, note); err != nil {
		return "", err
	}
	return note, nil
}
