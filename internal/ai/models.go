package ai

// DraftStop is one itinerary point proposed by the model. Times are RFC3339
// strings; the handler validates and parses them before anything is priced.
type DraftStop struct {
	// Leg is "outbound" or "return".
	Leg string `json:"leg"`

	// Order is the 1-based position within the leg.
	Order int `json:"order"`

	// LocationName is the place as the customer described it.
	LocationName string `json:"location_name"`

	// ArrivalTime is the RFC3339 arrival timestamp, null when the customer
	// gave no time for this stop.
	ArrivalTime *string `json:"arrival_time,omitempty"`

	// StopType is "pickup", "dropoff", or "waypoint".
	StopType string `json:"stop_type"`

	// IsDriverStaying marks an overnight halt where the driver stays with
	// the group.
	IsDriverStaying bool `json:"is_driver_staying"`

	// StayingDurationHours is the halt length when IsDriverStaying is set.
	StayingDurationHours float64 `json:"staying_duration_hours,omitempty"`
}

// DraftResult captures the structured charter request extracted from a
// free-text customer message. It is a draft for the booking form, never a
// priced quote.
type DraftResult struct {
	// Intent is "charter" when a trip could be extracted, "clarification"
	// when required details are missing.
	Intent string `json:"intent"`

	// PassengerCount defaults to 1 when never mentioned.
	PassengerCount int `json:"passenger_count"`

	// RoundTrip is true when the customer wants a return leg.
	RoundTrip bool `json:"round_trip"`

	Stops []DraftStop `json:"stops"`

	// AmenityWishes are free-text extras the customer asked for
	// (e.g. "wifi", "child seat").
	AmenityWishes []string `json:"amenity_wishes,omitempty"`

	// Reply is a short user-facing response, asking for whatever is missing.
	Reply string `json:"reply"`
}
