package app

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-quote/internal/annotate"
	"github.com/odyssey-erp/odyssey-quote/internal/extract"
	"github.com/odyssey-erp/odyssey-quote/internal/pricing"
	"github.com/odyssey-erp/odyssey-quote/internal/ratefeed"
)

// RateSources holds the market rate source used by the calculator and, when a
// feed is configured, the cache the warmup job refreshes.
type RateSources struct {
	Source pricing.RateSource
	Cache  *ratefeed.CachedSource
}

// NewRateSources picks the market rate source from configuration. Without a
// feed URL the market simulator is used and nothing is cached.
func NewRateSources(cfg *Config, table pricing.CostTable, redisClient *redis.Client, logger *slog.Logger) RateSources {
	if cfg == nil || cfg.RateFeedURL == "" {
		logger.Info("rate feed not configured, using market simulator")
		return RateSources{Source: pricing.NewMarketSimulator(table)}
	}
	client := ratefeed.NewClient(cfg.RateFeedURL, ratefeed.ClientConfig{
		Timeout: cfg.RateFeedTimeout,
		Retries: 1,
	})
	if redisClient == nil {
		return RateSources{Source: client}
	}
	cached := ratefeed.NewCachedSource(client, redisClient, cfg.RateCacheTTL, logger)
	return RateSources{Source: cached, Cache: cached}
}

// NewAnnotator returns the Gemini annotator backed by the template one when
// an API key is configured, and the template annotator otherwise.
func NewAnnotator(ctx context.Context, cfg *Config, logger *slog.Logger) annotate.Annotator {
	if cfg == nil || cfg.GenAIAPIKey == "" {
		return annotate.TemplateAnnotator{}
	}
	gemini, err := annotate.NewGeminiAnnotator(ctx, cfg.GenAIAPIKey, cfg.GenAIModel)
	if err != nil {
		logger.Warn("init gemini annotator", slog.Any("error", err))
		return annotate.TemplateAnnotator{}
	}
	return annotate.Fallback{Primary: gemini, Secondary: annotate.TemplateAnnotator{}}
}

// NewExtractor returns the free-text extractor, or nil when no API key is
// configured.
func NewExtractor(ctx context.Context, cfg *Config, logger *slog.Logger) extract.Extractor {
	if cfg == nil || cfg.GenAIAPIKey == "" {
		return nil
	}
	extractor, err := extract.NewGeminiExtractor(ctx, cfg.GenAIAPIKey, cfg.GenAIModel)
	if err != nil {
		logger.Warn("init gemini extractor", slog.Any("error", err))
		return nil
	}
	return extractor
}
