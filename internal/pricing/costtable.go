package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// BusType distinguishes vehicle capacity classes.
type BusType string

const (
	BusSmall  BusType = "small"
	BusMedium BusType = "medium"
	BusCoach  BusType = "coach"
	BusLarge  BusType = "large"
)

var busAliases = map[string]BusType{
	"small":     BusSmall,
	"micro":     BusSmall,
	"minibus":   BusSmall,
	"medium":    BusMedium,
	"midsize":   BusMedium,
	"coach":     BusCoach,
	"large":     BusLarge,
	"big":       BusLarge,
	"fullsize":  BusLarge,
	"full-size": BusLarge,
}

// Normalize maps known spellings onto canonical bus types. Unknown values are
// lower-cased and kept so the cost table can apply its default.
func (b BusType) Normalize() BusType {
	key := strings.ToLower(strings.TrimSpace(string(b)))
	if canonical, ok := busAliases[key]; ok {
		return canonical
	}
	return BusType(key)
}

// Fallback hotel rate used when a star rating is not in the table.
const midTierStars = 4

// CostTable holds the fixed JPY rates and the margin applied to every quote.
// It is read-only once built.
type CostTable struct {
	BusDaily     map[BusType]int64
	GuideDaily   int64
	HotelNightly map[int]int64
	MarginRate   decimal.Decimal
}

// DefaultCostTable returns the contracted rates.
func DefaultCostTable() CostTable {
	return CostTable{
		BusDaily: map[BusType]int64{
			BusSmall:  50000,
			BusMedium: 70000,
			BusCoach:  90000,
			BusLarge:  90000,
		},
		GuideDaily: 30000,
		HotelNightly: map[int]int64{
			3: 8000,
			4: 12000,
			5: 25000,
		},
		MarginRate: decimal.RequireFromString("0.15"),
	}
}

// BusDailyRate returns the daily rate for the bus type, charging unmapped
// types as a large vehicle.
func (t CostTable) BusDailyRate(bus BusType) int64 {
	if rate, ok := t.BusDaily[bus.Normalize()]; ok {
		return rate
	}
	return t.BusDaily[BusLarge]
}

// HotelNightlyRate returns the internal contract rate per room-night.
func (t CostTable) HotelNightlyRate(stars int) int64 {
	if rate, ok := t.HotelNightly[stars]; ok {
		return rate
	}
	return t.HotelNightly[midTierStars]
}
