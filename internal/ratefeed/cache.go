package ratefeed

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-quote/internal/pricing"
)

const keyPrefix = "ratefeed:rate"

// DefaultLoadTimeout bounds a merged upstream lookup.
const DefaultLoadTimeout = 10 * time.Second

// CachedSource wraps a RateSource with a Redis cache-aside layer and merges
// concurrent lookups of the same key into one upstream call.
type CachedSource struct {
	next   pricing.RateSource
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group

	// LoadTimeout bounds the shared upstream call, which outlives any single caller.
	LoadTimeout time.Duration
}

// NewCachedSource instantiates the cache helper. A nil client disables caching
// but keeps lookup de-duplication.
func NewCachedSource(next pricing.RateSource, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedSource{next: next, client: client, ttl: ttl, logger: logger, LoadTimeout: DefaultLoadTimeout}
}

// QuoteExternalRate serves from cache or loads from the wrapped source.
func (s *CachedSource) QuoteExternalRate(ctx context.Context, location pricing.Location, stars int) (int64, error) {
	key := cacheKey(location, stars)
	if s.client != nil {
		rate, err := s.client.Get(ctx, key).Int64()
		if err == nil {
			return rate, nil
		}
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("rate cache read", slog.String("key", key), slog.Any("error", err))
		}
	}

	resultChan := s.group.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout())
		defer cancel()
		rate, err := s.next.QuoteExternalRate(loadCtx, location, stars)
		if err != nil {
			return int64(0), err
		}
		s.store(loadCtx, key, rate)
		return rate, nil
	})
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(int64), nil
	}
}

func (s *CachedSource) loadTimeout() time.Duration {
	if s.LoadTimeout <= 0 {
		return DefaultLoadTimeout
	}
	return s.LoadTimeout
}

// Refresh reloads one rate from the wrapped source and overwrites the cache.
func (s *CachedSource) Refresh(ctx context.Context, location pricing.Location, stars int) (int64, error) {
	rate, err := s.next.QuoteExternalRate(ctx, location, stars)
	if err != nil {
		return 0, err
	}
	s.store(ctx, cacheKey(location, stars), rate)
	return rate, nil
}

func (s *CachedSource) store(ctx context.Context, key string, rate int64) {
	if s.client == nil {
		return
	}
	if err := s.client.Set(ctx, key, rate, s.ttl).Err(); err != nil {
		s.logger.Warn("rate cache write", slog.String("key", key), slog.Any("error", err))
	}
}

func cacheKey(location pricing.Location, stars int) string {
	return strings.Join([]string{keyPrefix, string(location), strconv.Itoa(stars)}, ":")
}
