package pricing

import (
	"context"
	"math"
	"math/rand/v2"
)

// RateSource quotes a per-room-night hotel rate from a channel other than the
// internal contract.
type RateSource interface {
	QuoteExternalRate(ctx context.Context, location Location, stars int) (int64, error)
}

// RateSourceFunc adapts a function to RateSource.
type RateSourceFunc func(ctx context.Context, location Location, stars int) (int64, error)

// QuoteExternalRate calls f.
func (f RateSourceFunc) QuoteExternalRate(ctx context.Context, location Location, stars int) (int64, error) {
	return f(ctx, location, stars)
}

// FixedRate always quotes the same rate.
type FixedRate int64

// QuoteExternalRate returns the fixed rate.
func (r FixedRate) QuoteExternalRate(context.Context, Location, int) (int64, error) {
	return int64(r), nil
}

const (
	marketFactorMin = 0.70
	marketFactorMax = 1.10
)

// MarketSimulator stands in for a market price feed by perturbing the
// internal contract rate with a uniform factor in [0.70, 1.10].
type MarketSimulator struct {
	table CostTable
	float func() float64
}

// NewMarketSimulator builds a simulator backed by the global random source.
func NewMarketSimulator(table CostTable) *MarketSimulator {
	return &MarketSimulator{table: table, float: rand.Float64}
}

// NewMarketSimulatorWithSource builds a simulator drawing from float, which
// must return values in [0, 1).
func NewMarketSimulatorWithSource(table CostTable, float func() float64) *MarketSimulator {
	if float == nil {
		float = rand.Float64
	}
	return &MarketSimulator{table: table, float: float}
}

// QuoteExternalRate ignores location; per-city feeds plug in behind RateSource.
func (s *MarketSimulator) QuoteExternalRate(ctx context.Context, _ Location, stars int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	base := s.table.HotelNightlyRate(stars)
	factor := marketFactorMin + s.float()*(marketFactorMax-marketFactorMin)
	return int64(math.Floor(float64(base) * factor)), nil
}
