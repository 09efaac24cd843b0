// README: Driver, booking window, and assignment decision definitions.
package dispatch

import (
	"time"

	"charter/internal/modules/allocation"
	"charter/internal/modules/fare"
	"charter/internal/types"
)

type Driver struct {
	ID         types.ID
	Name       string
	HourlyRate float64
	Available  bool
}

// Window is the inclusive time span a driver is occupied by a reservation,
// derived from itinerary arrival times.
type Window struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two windows conflict. Boundaries are inclusive:
// back-to-back trips touching at the same instant count as conflicting.
func (w Window) Overlaps(other Window) bool {
	return !w.Start.After(other.End) && !other.Start.After(w.End)
}

// Decision is the outcome of a conflict check. A false CanAssign is a normal
// decision, not an error; callers branch on the boolean.
type Decision struct {
	CanAssign bool
	Reason    string
}

const (
	ReasonUnavailable = "unavailable"
	ReasonBooked      = "booked"
)

// PendingQuote is the slice of quote state the auto-assignment sweep needs:
// enough to derive the window and reprice with the chosen driver's rate. The
// embedded snapshot is the one captured at quoting time, so assignment never
// picks up rate changes made since.
type PendingQuote struct {
	ID          types.ID
	Itinerary   fare.Itinerary
	Lines       []allocation.Line
	Amenities   []fare.Amenity
	RouteTotals []fare.LegTotals
	Snapshot    fare.ConfigSnapshot
}
