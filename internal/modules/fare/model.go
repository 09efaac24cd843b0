// README: Itinerary, pricing snapshot, and fare breakdown definitions.
package fare

import (
	"time"

	"charter/internal/types"
)

type TripLeg string

const (
	LegOutbound TripLeg = "outbound"
	LegReturn   TripLeg = "return"
)

type StopType string

const (
	StopPickup   StopType = "pickup"
	StopDropoff  StopType = "dropoff"
	StopWaypoint StopType = "waypoint"
)

// Stop is one itinerary point, ordered by Order within its leg. Arrival times
// are wall-clock local times; the engine never converts timezones.
type Stop struct {
	Leg                  TripLeg     `json:"trip_leg"`
	Order                int         `json:"order"`
	LocationName         string      `json:"location_name"`
	Position             types.Point `json:"position"`
	ArrivalTime          time.Time   `json:"arrival_time"`
	DepartureTime        *time.Time  `json:"departure_time,omitempty"`
	StopType             StopType    `json:"stop_type"`
	IsDriverStaying      bool        `json:"is_driver_staying"`
	StayingDurationHours float64     `json:"staying_duration_hours,omitempty"`
}

// Itinerary holds both legs; Return may be empty for one-way charters.
type Itinerary struct {
	Outbound []Stop `json:"outbound"`
	Return   []Stop `json:"return,omitempty"`
}

// Stops returns every stop of both legs in leg order.
func (it Itinerary) Stops() []Stop {
	out := make([]Stop, 0, len(it.Outbound)+len(it.Return))
	out = append(out, it.Outbound...)
	out = append(out, it.Return...)
	return out
}

type Amenity struct {
	ID    types.ID
	Name  string
	Price float64
}

// ConfigSnapshot is the rate table captured at calculation time and embedded
// verbatim into the breakdown, so later config changes never retroactively
// alter an already-quoted price.
type ConfigSnapshot struct {
	FuelPrice               float64 `json:"fuel_price"`
	AverageDriverPerHourRate float64 `json:"average_driver_per_hour_rate"`
	NightChargePerNight     float64 `json:"night_charge_per_night"`
	StayingChargePerDay     float64 `json:"staying_charge_per_day"`
	TaxPercentage           float64 `json:"tax_percentage"`
}

// LegTotals carries the routed distance and duration for one leg.
type LegTotals struct {
	Leg           TripLeg `json:"leg"`
	DistanceKm    float64 `json:"distance_km"`
	DurationHours float64 `json:"duration_hours"`
}

// Breakdown is the itemized, additive decomposition of a trip's total price.
// Created once per pricing event and never mutated; a new breakdown
// supersedes the old one.
type Breakdown struct {
	BaseFare       float64        `json:"base_fare"`
	DistanceFare   float64        `json:"distance_fare"`
	DriverCharge   float64        `json:"driver_charge"`
	NightCharge    float64        `json:"night_charge"`
	StayingCharge  float64        `json:"staying_charge"`
	AmenitiesTotal float64        `json:"amenities_total"`
	Subtotal       float64        `json:"subtotal"`
	Tax            float64        `json:"tax"`
	Total          float64        `json:"total"`
	ConfigSnapshot ConfigSnapshot `json:"config_snapshot"`
}
