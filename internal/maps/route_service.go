package maps

import (
	"context"
	"fmt"
	"math"

	"googlemaps.github.io/maps"

	"charter/internal/modules/fare"
	"charter/internal/types"
)

const (
	earthRadiusKm = 6371.0

	// roadCircuityFactor inflates great-circle distance toward a plausible
	// road distance when no routing backend is configured.
	roadCircuityFactor = 1.3
	// fallbackAvgSpeedKmh converts fallback distance into duration.
	fallbackAvgSpeedKmh = 45.0
)

// RouteService resolves itinerary legs into routed distance and duration via
// the Google Directions API. Without an API key it degrades to a haversine
// estimate so quoting keeps working in development.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a RouteService. An empty apiKey yields an
// estimator-only service rather than an error.
func NewRouteService(apiKey string) (*RouteService, error) {
	if apiKey == "" {
		return &RouteService{}, nil
	}
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

// LegTotals returns one totals entry per non-empty leg, in outbound, return
// order.
func (s *RouteService) LegTotals(ctx context.Context, it fare.Itinerary) ([]fare.LegTotals, error) {
	var out []fare.LegTotals
	for _, leg := range []struct {
		name  fare.TripLeg
		stops []fare.Stop
	}{
		{fare.LegOutbound, it.Outbound},
		{fare.LegReturn, it.Return},
	} {
		if len(leg.stops) < 2 {
			continue
		}
		totals, err := s.legTotals(ctx, leg.name, leg.stops)
		if err != nil {
			return nil, err
		}
		out = append(out, totals)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("itinerary has no routable leg")
	}
	return out, nil
}

func (s *RouteService) legTotals(ctx context.Context, leg fare.TripLeg, stops []fare.Stop) (fare.LegTotals, error) {
	if s.client == nil {
		return estimateLeg(leg, stops), nil
	}

	r := &maps.DirectionsRequest{
		Origin:      latLng(stops[0].Position),
		Destination: latLng(stops[len(stops)-1].Position),
		Mode:        maps.TravelModeDriving,
	}
	for _, stop := range stops[1 : len(stops)-1] {
		r.Waypoints = append(r.Waypoints, latLng(stop.Position))
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return fare.LegTotals{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return fare.LegTotals{}, fmt.Errorf("no route found for %s leg", leg)
	}

	totals := fare.LegTotals{Leg: leg}
	for _, l := range routes[0].Legs {
		totals.DistanceKm += float64(l.Distance.Meters) / 1000
		totals.DurationHours += l.Duration.Hours()
	}
	return totals, nil
}

// estimateLeg sums great-circle hops between consecutive stops, scaled by a
// road circuity factor, and derives duration from an average driving speed.
func estimateLeg(leg fare.TripLeg, stops []fare.Stop) fare.LegTotals {
	var km float64
	for i := 1; i < len(stops); i++ {
		km += haversineKm(stops[i-1].Position, stops[i].Position)
	}
	km *= roadCircuityFactor
	return fare.LegTotals{
		Leg:           leg,
		DistanceKm:    km,
		DurationHours: km / fallbackAvgSpeedKmh,
	}
}

// haversineKm returns the great-circle distance in kilometres between two
// points specified in decimal degrees.
func haversineKm(a, b types.Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func latLng(p types.Point) string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lng)
}
