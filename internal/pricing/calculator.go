package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PendingNote is stored in SystemNote until the annotation step fills it in.
const PendingNote = "Analyzing market conditions..."

// DefaultExternalTimeout bounds a single external rate lookup.
const DefaultExternalTimeout = 2 * time.Second

// ErrInvalidInput reports input that should have been rejected by Validate.
var ErrInvalidInput = errors.New("pricing: input violates calculator preconditions")

// Upper bounds matching the validator tags; every cost product stays inside int64.
const (
	MaxTravelDays = 365
	MaxRooms      = 500
	MaxNights     = 365

	// MaxExternalUnitRate rejects feed answers no hotel night can cost.
	MaxExternalUnitRate int64 = 10_000_000
)

// CalculatorConfig carries the optional collaborators of a Calculator.
type CalculatorConfig struct {
	ExternalTimeout time.Duration
	Logger          *slog.Logger
	Clock           func() time.Time
	NewID           func() string
}

// Calculator prices trip requests against a cost table and an external rate source.
type Calculator struct {
	table   CostTable
	rates   RateSource
	timeout time.Duration
	logger  *slog.Logger
	clock   func() time.Time
	newID   func() string
}

// NewCalculator wires a Calculator. A nil rate source always prices hotels
// at the internal contract rate.
func NewCalculator(table CostTable, rates RateSource, cfg CalculatorConfig) *Calculator {
	c := &Calculator{
		table:   table,
		rates:   rates,
		timeout: cfg.ExternalTimeout,
		logger:  cfg.Logger,
		clock:   cfg.Clock,
		newID:   cfg.NewID,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultExternalTimeout
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.clock == nil {
		c.clock = func() time.Time { return time.Now().UTC() }
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	return c
}

// Table exposes the cost table the calculator prices against.
func (c *Calculator) Table() CostTable {
	return c.table
}

type hotelChoice struct {
	total    int64
	internal int64
	external int64
	source   HotelSource
	strategy string
}

// Calculate prices an already validated request.
func (c *Calculator) Calculate(ctx context.Context, req TripRequest) (QuoteResult, error) {
	if err := checkPreconditions(req); err != nil {
		return QuoteResult{}, err
	}

	transport := c.transportCost(req)
	guide := c.table.GuideDaily * int64(req.TravelDays)
	hotel := c.arbitrateHotel(ctx, req.HotelRequirement)

	preMargin := decimal.NewFromInt(transport + guide + hotel.total)
	margin := preMargin.Mul(c.table.MarginRate)
	total := preMargin.Add(margin).Floor().IntPart()
	marginAmount, _ := margin.Float64()

	return QuoteResult{
		ID:                c.newID(),
		EstimatedTotalJPY: total,
		PerPersonJPY:      total / int64(req.PaxCount),
		Breakdown: CostBreakdown{
			TransportCost:    transport,
			GuideCost:        guide,
			HotelCostBasis:   hotel.total,
			SourcingStrategy: hotel.strategy,
			MarginAmount:     marginAmount,
			HotelSource:      hotel.source,
			InternalUnitRate: hotel.internal,
			ExternalUnitRate: hotel.external,
		},
		SystemNote: PendingNote,
		Timestamp:  c.clock(),
	}, nil
}

func checkPreconditions(req TripRequest) error {
	h := req.HotelRequirement
	switch {
	case req.PaxCount < 1:
		return fmt.Errorf("%w: paxCount %d", ErrInvalidInput, req.PaxCount)
	case req.TravelDays < 0 || req.TravelDays > MaxTravelDays:
		return fmt.Errorf("%w: travelDays %d", ErrInvalidInput, req.TravelDays)
	case h.Rooms < 0 || h.Rooms > MaxRooms || h.Nights < 0 || h.Nights > MaxNights:
		return fmt.Errorf("%w: rooms %d nights %d", ErrInvalidInput, h.Rooms, h.Nights)
	}
	return nil
}

func (c *Calculator) transportCost(req TripRequest) int64 {
	if !req.NeedsBus {
		return 0
	}
	return c.table.BusDailyRate(req.BusType) * int64(req.TravelDays)
}

// arbitrateHotel picks the cheaper of the internal contract and the external
// quote. Ties stay internal; a failed lookup falls back to internal.
func (c *Calculator) arbitrateHotel(ctx context.Context, h HotelRequirement) hotelChoice {
	internalUnit := c.table.HotelNightlyRate(h.Stars)
	roomNights := int64(h.Rooms) * int64(h.Nights)
	internalTotal := internalUnit * roomNights

	externalUnit, err := c.lookupExternal(ctx, h.Location, h.Stars)
	if err != nil {
		c.logger.Warn("external rate unavailable, using internal contract",
			slog.String("location", string(h.Location)),
			slog.Int("stars", h.Stars),
			slog.Any("error", err))
		return hotelChoice{
			total:    internalTotal,
			internal: internalUnit,
			source:   HotelSourceFallback,
			strategy: strategyFallback(internalUnit),
		}
	}

	if externalUnit < internalUnit {
		return hotelChoice{
			total:    externalUnit * roomNights,
			internal: internalUnit,
			external: externalUnit,
			source:   HotelSourceExternal,
			strategy: strategyExternal(externalUnit, internalUnit),
		}
	}
	return hotelChoice{
		total:    internalTotal,
		internal: internalUnit,
		external: externalUnit,
		source:   HotelSourceInternal,
		strategy: strategyInternal(internalUnit, externalUnit),
	}
}

func (c *Calculator) lookupExternal(ctx context.Context, location Location, stars int) (int64, error) {
	if c.rates == nil {
		return 0, errors.New("no external rate source configured")
	}
	lookupCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		rate int64
		err  error
	}
	done := make(chan result, 1)
	go func() {
		rate, err := c.rates.QuoteExternalRate(lookupCtx, location, stars)
		done <- result{rate: rate, err: err}
	}()

	select {
	case <-lookupCtx.Done():
		return 0, lookupCtx.Err()
	case res := <-done:
		if res.err != nil {
			return 0, res.err
		}
		if res.rate < 0 || res.rate > MaxExternalUnitRate {
			return 0, fmt.Errorf("external rate %d out of range", res.rate)
		}
		return res.rate, nil
	}
}
