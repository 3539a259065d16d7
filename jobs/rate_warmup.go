package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/odyssey-erp/odyssey-quote/internal/jobs"
	"github.com/odyssey-erp/odyssey-quote/internal/pricing"
)

// WarmupStars lists the star ratings refreshed by default.
var WarmupStars = []int{3, 4, 5}

const (
	warmupParallelism   = 4
	warmupLookupTimeout = 10 * time.Second
)

// RateRefresher fetches a market rate and stores it in the cache.
type RateRefresher interface {
	Refresh(ctx context.Context, location pricing.Location, stars int) (int64, error)
}

// RatesWarmupJob pre-populates the market rate cache so quote requests rarely
// wait on the rate feed.
type RatesWarmupJob struct {
	Rates   RateRefresher
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewRatesWarmupJob wires dependencies for the warmup handler.
func NewRatesWarmupJob(rates RateRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *RatesWarmupJob {
	return &RatesWarmupJob{Rates: rates, Logger: logger, Metrics: metrics}
}

// Handle processes rate warmup tasks. The run fails only when no rate could
// be refreshed.
func (j *RatesWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Rates == nil {
		return errors.New("rates warmup: handler not configured")
	}
	var payload RatesWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	locations, stars, err := warmupScope(payload)
	if err != nil {
		j.logger().Warn("invalid warmup payload", slog.Any("error", err))
		return fmt.Errorf("rates warmup: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskRatesWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := time.Now()
	var warmed, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmupParallelism)
	for _, loc := range locations {
		for _, s := range stars {
			g.Go(func() error {
				lookupCtx, cancel := context.WithTimeout(gctx, warmupLookupTimeout)
				defer cancel()
				if _, err := j.Rates.Refresh(lookupCtx, loc, s); err != nil {
					failed.Add(1)
					logger.Warn("refresh rate", slog.String("location", string(loc)), slog.Int("stars", s), slog.Any("error", err))
					return nil
				}
				warmed.Add(1)
				return nil
			})
		}
	}
	_ = g.Wait()

	j.metrics().AddWarmedRates(int(warmed.Load()))
	logger.Info("completed rates warmup",
		slog.Int64("warmed", warmed.Load()),
		slog.Int64("failed", failed.Load()),
		slog.Duration("duration", time.Since(start)))
	if warmed.Load() == 0 && failed.Load() > 0 {
		return fmt.Errorf("rates warmup: all %d lookups failed", failed.Load())
	}
	return ctx.Err()
}

func warmupScope(p RatesWarmupPayload) ([]pricing.Location, []int, error) {
	locations := pricing.Locations()
	if len(p.Locations) > 0 {
		locations = make([]pricing.Location, 0, len(p.Locations))
		for _, raw := range p.Locations {
			loc := pricing.Location(strings.ToLower(strings.TrimSpace(raw)))
			if !loc.Supported() {
				return nil, nil, fmt.Errorf("unsupported location %q", raw)
			}
			locations = append(locations, loc)
		}
	}
	stars := WarmupStars
	if len(p.Stars) > 0 {
		for _, s := range p.Stars {
			if s < 3 || s > 5 {
				return nil, nil, fmt.Errorf("unsupported star rating %d", s)
			}
		}
		stars = p.Stars
	}
	return locations, stars, nil
}

func (j *RatesWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskRatesWarmup))
	}
	return slog.Default().With(slog.String("job", TaskRatesWarmup))
}

func (j *RatesWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
