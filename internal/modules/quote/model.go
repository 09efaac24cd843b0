// README: Quote aggregate, status flow, and charge ledger definitions.
package quote

import (
	"time"

	"charter/internal/modules/allocation"
	"charter/internal/modules/fare"
	"charter/internal/types"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusAssigned  Status = "assigned"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// AllowedTransitions represents the quote state flow as code. Assigned can
// fall back to confirmed when a driver is unbound for adjustment.
var AllowedTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusAssigned, StatusCancelled},
	StatusAssigned:  {StatusConfirmed, StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// Quote is the priced reservation aggregate. Breakdown is replaced wholesale
// on every pricing event; the previous total survives only through the charge
// ledger.
type Quote struct {
	ID             types.ID
	CustomerID     types.ID
	Status         Status
	StatusVersion  int
	PassengerCount int
	Itinerary      fare.Itinerary
	Lines          []allocation.Line
	Amenities      []fare.Amenity
	RouteTotals    []fare.LegTotals
	Breakdown      fare.Breakdown
	Total          types.Money
	WindowStart    time.Time
	WindowEnd      time.Time
	DriverID       *types.ID
	DriverRate     *float64
	CreatedAt      time.Time
	ConfirmedAt    *time.Time
	AssignedAt     *time.Time
	CompletedAt    *time.Time
	CancelledAt    *time.Time
	CancelReason   *string
}

type Event struct {
	ID         int64
	QuoteID    types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

type ChargeKind string

const (
	// ChargeAdditional is owed by the customer after a repricing raised the total.
	ChargeAdditional ChargeKind = "charge"
	// ChargeRefundDue is logged for manual refund processing; no refund is issued here.
	ChargeRefundDue ChargeKind = "refund_due"
)

// Charge records the delta between two breakdown totals, already rounded to
// the currency's minor unit.
type Charge struct {
	ID        int64
	QuoteID   types.ID
	Kind      ChargeKind
	Amount    types.Money
	Reason    string
	CreatedAt time.Time
}
