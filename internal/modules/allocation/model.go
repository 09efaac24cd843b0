// README: Fleet reference data and recommendation value objects.
package allocation

import "charter/internal/types"

// Vehicle is immutable reference data during a recommendation pass.
type Vehicle struct {
	ID              types.ID
	Name            string
	Capacity        int
	BaseFare        float64
	FuelConsumption float64
}

// Line pairs a vehicle with how many of it an option uses.
type Line struct {
	Vehicle  Vehicle
	Quantity int
}

// Option is one candidate set of vehicles able to carry the passenger count.
// EstimatedPrice is a base-fare-only figure, not the final fare.
type Option struct {
	ID             string
	Lines          []Line
	TotalCapacity  int
	EstimatedPrice float64
	IsExactMatch   bool
}
