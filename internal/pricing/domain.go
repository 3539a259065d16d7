package pricing

import (
	"encoding/json"
	"strings"
	"time"
)

// Location identifies a supported destination city.
type Location string

const (
	LocationTokyo     Location = "tokyo"
	LocationOsaka     Location = "osaka"
	LocationKyoto     Location = "kyoto"
	LocationHokkaido  Location = "hokkaido"
	LocationOkinawa   Location = "okinawa"
	LocationFukuoka   Location = "fukuoka"
	LocationHiroshima Location = "hiroshima"
	LocationNagoya    Location = "nagoya"
)

// DefaultLocation is assumed when a request omits the destination.
const DefaultLocation = LocationTokyo

var supportedLocations = map[Location]struct{}{
	LocationTokyo:     {},
	LocationOsaka:     {},
	LocationKyoto:     {},
	LocationHokkaido:  {},
	LocationOkinawa:   {},
	LocationFukuoka:   {},
	LocationHiroshima: {},
	LocationNagoya:    {},
}

// Supported reports whether the location is one of the serviced cities.
func (l Location) Supported() bool {
	_, ok := supportedLocations[l]
	return ok
}

// Locations returns every serviced city in a stable order.
func Locations() []Location {
	return []Location{
		LocationTokyo, LocationOsaka, LocationKyoto, LocationHokkaido,
		LocationOkinawa, LocationFukuoka, LocationHiroshima, LocationNagoya,
	}
}

// HotelRequirement describes the accommodation block of a trip.
type HotelRequirement struct {
	Stars    int      `json:"stars" validate:"oneof=3 4 5"`
	Rooms    int      `json:"rooms" validate:"min=1,max=500"`
	Nights   int      `json:"nights" validate:"min=0,max=365"`
	Location Location `json:"location" validate:"location"`
}

// TripRequest is the input of one quote calculation.
type TripRequest struct {
	AgencyName       string           `json:"agencyName" validate:"required,nomarkup"`
	PaxCount         int              `json:"paxCount" validate:"min=1,max=1000"`
	TravelDays       int              `json:"travelDays" validate:"min=1,max=365"`
	HotelRequirement HotelRequirement `json:"hotelRequirement"`
	NeedsBus         bool             `json:"needsBus"`
	BusType          BusType          `json:"busType,omitempty"`
	GuideLanguage    string           `json:"guideLanguage,omitempty"`
}

// tripRequestWire accepts both the nested payload and the flat legacy one.
type tripRequestWire struct {
	AgencyName       string     `json:"agencyName"`
	PaxCount         int        `json:"paxCount"`
	TravelDays       int        `json:"travelDays"`
	HotelRequirement *hotelWire `json:"hotelRequirement"`
	NeedsBus         bool       `json:"needsBus"`
	BusType          BusType    `json:"busType"`
	GuideLanguage    string     `json:"guideLanguage"`
	HotelStars       *int       `json:"hotelStars"`
	HotelRooms       *int       `json:"hotelRooms"`
	HotelNights      *int       `json:"hotelNights"`
	Location         *Location  `json:"location"`
}

type hotelWire struct {
	Stars    *int      `json:"stars"`
	Rooms    *int      `json:"rooms"`
	Nights   *int      `json:"nights"`
	Location *Location `json:"location"`
}

// UnmarshalJSON decodes nested and flat request shapes. Nested fields win when
// both are present; a missing nights value becomes travelDays-1.
func (r *TripRequest) UnmarshalJSON(data []byte) error {
	var wire tripRequestWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	out := TripRequest{
		AgencyName:    wire.AgencyName,
		PaxCount:      wire.PaxCount,
		TravelDays:    wire.TravelDays,
		NeedsBus:      wire.NeedsBus,
		BusType:       wire.BusType,
		GuideLanguage: wire.GuideLanguage,
	}

	stars, rooms, nights, location := wire.HotelStars, wire.HotelRooms, wire.HotelNights, wire.Location
	if h := wire.HotelRequirement; h != nil {
		if h.Stars != nil {
			stars = h.Stars
		}
		if h.Rooms != nil {
			rooms = h.Rooms
		}
		if h.Nights != nil {
			nights = h.Nights
		}
		if h.Location != nil {
			location = h.Location
		}
	}
	if stars != nil {
		out.HotelRequirement.Stars = *stars
	}
	if rooms != nil {
		out.HotelRequirement.Rooms = *rooms
	}
	if nights != nil {
		out.HotelRequirement.Nights = *nights
	} else if out.TravelDays > 0 {
		out.HotelRequirement.Nights = out.TravelDays - 1
	}
	if location != nil {
		out.HotelRequirement.Location = *location
	}

	*r = out
	return nil
}

// Normalize trims free text and canonicalises enum spellings. It never
// changes numeric fields so validation still sees what the caller sent.
func (r TripRequest) Normalize() TripRequest {
	r.AgencyName = strings.TrimSpace(r.AgencyName)
	r.GuideLanguage = strings.TrimSpace(r.GuideLanguage)
	r.BusType = r.BusType.Normalize()
	loc := Location(strings.ToLower(strings.TrimSpace(string(r.HotelRequirement.Location))))
	if loc == "" {
		loc = DefaultLocation
	}
	r.HotelRequirement.Location = loc
	return r
}

// HotelSource names the channel the hotel cost basis was taken from.
type HotelSource string

const (
	HotelSourceInternal HotelSource = "internal"
	HotelSourceExternal HotelSource = "external"
	HotelSourceFallback HotelSource = "internal_fallback"
)

// CostBreakdown itemises the cost lines behind a quote.
type CostBreakdown struct {
	TransportCost    int64       `json:"transportCost"`
	GuideCost        int64       `json:"guideCost"`
	HotelCostBasis   int64       `json:"hotelCostBasis"`
	SourcingStrategy string      `json:"sourcingStrategy"`
	MarginAmount     float64     `json:"marginAmount"`
	HotelSource      HotelSource `json:"hotelSource"`
	InternalUnitRate int64       `json:"internalUnitRate"`
	ExternalUnitRate int64       `json:"externalUnitRate,omitempty"`
}

// PreMarginTotal is the cost before the margin is applied.
func (b CostBreakdown) PreMarginTotal() int64 {
	return b.TransportCost + b.GuideCost + b.HotelCostBasis
}

// QuoteResult is the priced answer to a TripRequest.
type QuoteResult struct {
	ID                string        `json:"id"`
	EstimatedTotalJPY int64         `json:"estimatedTotalJpy"`
	PerPersonJPY      int64         `json:"perPersonJpy"`
	Breakdown         CostBreakdown `json:"breakdown"`
	SystemNote        string        `json:"systemNote,omitempty"`
	Timestamp         time.Time     `json:"timestamp"`
}
