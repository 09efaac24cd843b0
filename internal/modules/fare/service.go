// README: Fare calculation engine (pure, deterministic, no I/O).
package fare

import (
	"errors"
	"math"

	"charter/internal/modules/allocation"
)

var ErrInvalidInput = errors.New("itinerary must have an outbound leg with at least 2 stops")

// nightHourStart/nightHourEnd bound the arrival hours that count as a night
// stop: 22:00 through 05:59.
const (
	nightHourStart = 22
	nightHourEnd   = 5
)

// minStayingHours is the threshold below which a driver stay incurs no
// staying charge.
const minStayingHours = 24

// CalcInput gathers everything one pricing event needs. ActualDriverRate is
// used once a specific driver is bound; before that the snapshot's fleet
// average applies.
type CalcInput struct {
	Itinerary       Itinerary
	Allocation      []allocation.Line
	Amenities       []Amenity
	RouteTotals     []LegTotals
	Config          ConfigSnapshot
	ActualDriverRate *float64
}

type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Calculate produces a fare breakdown from the input. Identical inputs always
// produce an identical breakdown; the function performs no I/O and is safe
// for concurrent use. Input slices are caller-owned and never mutated or
// retained.
func (s *Service) Calculate(in CalcInput) (Breakdown, error) {
	if len(in.Itinerary.Outbound) < 2 {
		return Breakdown{}, ErrInvalidInput
	}
	if len(in.Itinerary.Return) == 1 {
		return Breakdown{}, ErrInvalidInput
	}

	var totalKm, totalHours float64
	for _, lt := range in.RouteTotals {
		totalKm += lt.DistanceKm
		totalHours += lt.DurationHours
	}

	var baseFare, fuelPerKm float64
	for _, line := range in.Allocation {
		qty := float64(line.Quantity)
		baseFare += line.Vehicle.BaseFare * qty
		fuelPerKm += line.Vehicle.FuelConsumption * qty
	}

	// The fuel-adjusted distance cost doubles as the fuel & maintenance
	// figure; it must never appear again as a separate line item.
	distanceFare := totalKm * fuelPerKm * in.Config.FuelPrice

	driverRate := in.Config.AverageDriverPerHourRate
	if in.ActualDriverRate != nil {
		driverRate = *in.ActualDriverRate
	}
	driverCharge := totalHours * driverRate

	nightCharge := float64(nightStopCount(in.Itinerary)) * in.Config.NightChargePerNight

	var stayingCharge float64
	for _, stop := range in.Itinerary.Stops() {
		if stop.IsDriverStaying && stop.StayingDurationHours >= minStayingHours {
			days := math.Ceil(stop.StayingDurationHours / 24)
			stayingCharge += days * in.Config.StayingChargePerDay
		}
	}

	var amenitiesTotal float64
	for _, a := range in.Amenities {
		amenitiesTotal += a.Price
	}

	b := Breakdown{
		BaseFare:       round2(baseFare),
		DistanceFare:   round2(distanceFare),
		DriverCharge:   round2(driverCharge),
		NightCharge:    round2(nightCharge),
		StayingCharge:  round2(stayingCharge),
		AmenitiesTotal: round2(amenitiesTotal),
		ConfigSnapshot: in.Config,
	}
	b.Subtotal = round2(b.BaseFare + b.DistanceFare + b.DriverCharge + b.NightCharge + b.StayingCharge + b.AmenitiesTotal)
	b.Tax = round2(b.Subtotal * in.Config.TaxPercentage / 100)
	b.Total = round2(b.Subtotal + b.Tax)
	return b, nil
}

// nightStopCount counts stops arriving between 22:00 and 05:59 local time.
func nightStopCount(it Itinerary) int {
	n := 0
	for _, stop := range it.Stops() {
		h := stop.ArrivalTime.Hour()
		if h >= nightHourStart || h <= nightHourEnd {
			n++
		}
	}
	return n
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
