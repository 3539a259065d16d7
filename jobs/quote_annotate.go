package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-quote/internal/annotate"
	jobmetrics "github.com/odyssey-erp/odyssey-quote/internal/jobs"
	"github.com/odyssey-erp/odyssey-quote/internal/quotes"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// QuoteAnnotator stores a computed note against a quote.
type QuoteAnnotator interface {
	Annotate(ctx context.Context, id string, annotator annotate.Annotator) (string, error)
}

// QuoteAnnotateJob replaces the placeholder note of a quote with a real one.
type QuoteAnnotateJob struct {
	Quotes    QuoteAnnotator
	Annotator annotate.Annotator
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewQuoteAnnotateJob wires dependencies for the annotation handler.
func NewQuoteAnnotateJob(svc QuoteAnnotator, annotator annotate.Annotator, logger *slog.Logger, metrics *jobmetrics.Metrics) *QuoteAnnotateJob {
	return &QuoteAnnotateJob{Quotes: svc, Annotator: annotator, Logger: logger, Metrics: metrics}
}

// Handle processes quote annotation tasks.
func (j *QuoteAnnotateJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Quotes == nil {
		return errors.New("quote annotate: handler not configured")
	}
	var payload QuoteAnnotatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.QuoteID == "" {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskQuoteAnnotate)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("quote_id", payload.QuoteID))
	note, err := j.Quotes.Annotate(ctx, payload.QuoteID, j.annotator())
	if errors.Is(err, quotes.ErrNotFound) {
		logger.Warn("quote expired before annotation")
		return fmt.Errorf("quote annotate %s: %w", payload.QuoteID, asynq.SkipRetry)
	}
	if err != nil {
		logger.Error("annotate quote", slog.Any("error", err))
		return err
	}
	logger.Info("quote annotated", slog.Int("note_length", len(note)))
	return nil
}

func (j *QuoteAnnotateJob) annotator() annotate.Annotator {
	if j.Annotator != nil {
		return j.Annotator
	}
	return annotate.TemplateAnnotator{}
}

func (j *QuoteAnnotateJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskQuoteAnnotate))
	}
	return slog.Default().With(slog.String("job", TaskQuoteAnnotate))
}

func (j *QuoteAnnotateJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
