// README: Quote service implements the reservation lifecycle and repricing.
package quote

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sort"
	"time"

	"charter/internal/modules/allocation"
	"charter/internal/modules/dispatch"
	"charter/internal/modules/fare"
	"charter/internal/types"
)

var (
	ErrInvalidState     = errors.New("invalid state transition")
	ErrNotFound         = errors.New("quote not found")
	ErrConflict         = errors.New("quote state conflict")
	ErrBadRequest       = errors.New("bad request")
	ErrCapacityExceeded = errors.New("allocation capacity below passenger count")
)

// maxRemedyCandidates bounds the additional-vehicle suggestion list.
const maxRemedyCandidates = 3

type VehicleSource interface {
	FindByIDs(ctx context.Context, ids []types.ID) ([]allocation.Vehicle, error)
	ListFleet(ctx context.Context) ([]allocation.Vehicle, error)
}

type AmenitySource interface {
	FindAmenitiesByIDs(ctx context.Context, ids []types.ID) ([]fare.Amenity, error)
}

type ConfigSource interface {
	FindActiveConfig(ctx context.Context) (fare.ConfigSnapshot, error)
}

// RouteSource turns an itinerary into per-leg distance/duration totals.
type RouteSource interface {
	LegTotals(ctx context.Context, it fare.Itinerary) ([]fare.LegTotals, error)
}

// Notifier is fire-and-forget; failures never unwind a price commit.
type Notifier interface {
	PriceChanged(ctx context.Context, quoteID types.ID, delta types.Money)
}

type Service struct {
	store     Store
	vehicles  VehicleSource
	amenities AmenitySource
	configs   ConfigSource
	routes    RouteSource
	fares     *fare.Service
	notify    Notifier
	currency  string
}

func NewService(store Store, vehicles VehicleSource, amenities AmenitySource, configs ConfigSource, routes RouteSource, fares *fare.Service, notify Notifier, currency string) *Service {
	return &Service{
		store:     store,
		vehicles:  vehicles,
		amenities: amenities,
		configs:   configs,
		routes:    routes,
		fares:     fares,
		notify:    notify,
		currency:  currency,
	}
}

type LineRequest struct {
	VehicleID types.ID
	Quantity  int
}

type CreateCommand struct {
	CustomerID     types.ID
	PassengerCount int
	Itinerary      fare.Itinerary
	Lines          []LineRequest
	AmenityIDs     []types.ID
}

type CancelCommand struct {
	QuoteID   types.ID
	ActorType string
	Reason    string
}

// RepriceCommand carries the changed pieces of a quote; nil fields keep the
// stored value.
type RepriceCommand struct {
	QuoteID        types.ID
	PassengerCount *int
	Lines          []LineRequest
	AmenityIDs     *[]types.ID
	Itinerary      *fare.Itinerary
	Reason         string
}

// Create prices a new quote against the active config and persists it in
// pending state. The config values used are frozen into the breakdown so
// later config changes never alter this price.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (types.ID, error) {
	if cmd.CustomerID == "" || cmd.PassengerCount <= 0 || len(cmd.Lines) == 0 {
		return "", ErrBadRequest
	}
	for _, l := range cmd.Lines {
		if l.Quantity < 1 {
			return "", ErrBadRequest
		}
	}

	lines, err := s.resolveLines(ctx, cmd.Lines)
	if err != nil {
		return "", err
	}
	if totalCapacity(lines) < cmd.PassengerCount {
		return "", ErrCapacityExceeded
	}

	amenities, err := s.amenities.FindAmenitiesByIDs(ctx, cmd.AmenityIDs)
	if err != nil {
		return "", err
	}
	snapshot, err := s.configs.FindActiveConfig(ctx)
	if err != nil {
		return "", err
	}
	totals, err := s.routes.LegTotals(ctx, cmd.Itinerary)
	if err != nil {
		return "", err
	}

	breakdown, err := s.fares.Calculate(fare.CalcInput{
		Itinerary:   cmd.Itinerary,
		Allocation:  lines,
		Amenities:   amenities,
		RouteTotals: totals,
		Config:      snapshot,
	})
	if err != nil {
		return "", err
	}
	window, err := dispatch.WindowOf(cmd.Itinerary)
	if err != nil {
		return "", err
	}

	id := newID()
	now := time.Now()
	q := &Quote{
		ID:             id,
		CustomerID:     cmd.CustomerID,
		Status:         StatusPending,
		StatusVersion:  0,
		PassengerCount: cmd.PassengerCount,
		Itinerary:      cmd.Itinerary,
		Lines:          lines,
		Amenities:      amenities,
		RouteTotals:    totals,
		Breakdown:      breakdown,
		Total:          types.MoneyFromFloat(breakdown.Total, s.currency),
		WindowStart:    window.Start,
		WindowEnd:      window.End,
		CreatedAt:      now,
	}
	if err := s.store.Create(ctx, q); err != nil {
		return "", err
	}
	_ = s.store.AppendEvent(ctx, &Event{
		QuoteID:    id,
		FromStatus: StatusNone,
		ToStatus:   StatusPending,
		ActorType:  "customer",
		ActorID:    &cmd.CustomerID,
		CreatedAt:  now,
	})
	return id, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Quote, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Charges(ctx context.Context, id types.ID) ([]Charge, error) {
	return s.store.ListCharges(ctx, id)
}

func (s *Service) Confirm(ctx context.Context, id types.ID) error {
	return s.transition(ctx, id, StatusConfirmed, "customer", nil)
}

func (s *Service) Complete(ctx context.Context, id types.ID) error {
	return s.transition(ctx, id, StatusCompleted, "system", nil)
}

func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) error {
	return s.transition(ctx, cmd.QuoteID, StatusCancelled, cmd.ActorType, &cmd.Reason)
}

func (s *Service) transition(ctx context.Context, id types.ID, to Status, actorType string, reason *string) error {
	q, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(q.Status, to) {
		return ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, q.ID, q.Status, to, q.StatusVersion, reason)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	_ = s.store.AppendEvent(ctx, &Event{
		QuoteID:    q.ID,
		FromStatus: q.Status,
		ToStatus:   to,
		ActorType:  actorType,
		CreatedAt:  time.Now(),
	})
	return nil
}

// ListPendingAssignment feeds the dispatch sweep. Pending quotes carry their
// frozen snapshot so assignment repricing stays non-retroactive.
func (s *Service) ListPendingAssignment(ctx context.Context) ([]dispatch.PendingQuote, error) {
	quotes, err := s.store.ListByStatus(ctx, StatusConfirmed)
	if err != nil {
		return nil, err
	}
	out := make([]dispatch.PendingQuote, 0, len(quotes))
	for _, q := range quotes {
		if q.DriverID != nil {
			continue
		}
		out = append(out, dispatch.PendingQuote{
			ID:          q.ID,
			Itinerary:   q.Itinerary,
			Lines:       q.Lines,
			Amenities:   q.Amenities,
			RouteTotals: q.RouteTotals,
			Snapshot:    q.Breakdown.ConfigSnapshot,
		})
	}
	return out, nil
}

// BindAssignment commits a driver onto a confirmed quote together with the
// breakdown repriced at the driver's actual rate.
func (s *Service) BindAssignment(ctx context.Context, quoteID, driverID types.ID, driverRate float64, b fare.Breakdown) error {
	q, err := s.store.Get(ctx, quoteID)
	if err != nil {
		return err
	}
	if !CanTransition(q.Status, StatusAssigned) {
		return ErrInvalidState
	}
	total := types.MoneyFromFloat(b.Total, s.currency)
	ok, err := s.store.UpdateAssignment(ctx, q.ID, q.Status, q.StatusVersion, driverID, driverRate, b, total)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	_ = s.store.AppendEvent(ctx, &Event{
		QuoteID:    q.ID,
		FromStatus: q.Status,
		ToStatus:   StatusAssigned,
		ActorType:  "system",
		ActorID:    &driverID,
		CreatedAt:  time.Now(),
	})
	return nil
}

// Unassign releases the driver of an assigned quote back to confirmed, so an
// adjustment flow can re-run assignment.
func (s *Service) Unassign(ctx context.Context, id types.ID) error {
	q, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if q.Status != StatusAssigned {
		return ErrInvalidState
	}
	ok, err := s.store.ClearAssignment(ctx, q.ID, q.StatusVersion)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	_ = s.store.AppendEvent(ctx, &Event{
		QuoteID:    q.ID,
		FromStatus: StatusAssigned,
		ToStatus:   StatusConfirmed,
		ActorType:  "ops",
		CreatedAt:  time.Now(),
	})
	return nil
}

// Reprice recomputes the fare from scratch after vehicles, amenities,
// passenger count, or itinerary changed. The stored config snapshot is
// reused, never the currently active config. A positive delta becomes a
// charge owed by the customer; a negative delta is logged as refund-due for
// manual processing. Returns the delta in minor units.
func (s *Service) Reprice(ctx context.Context, cmd RepriceCommand) (*Quote, types.Money, error) {
	q, err := s.store.Get(ctx, cmd.QuoteID)
	if err != nil {
		return nil, types.Money{}, err
	}
	switch q.Status {
	case StatusPending, StatusConfirmed, StatusAssigned:
	default:
		return nil, types.Money{}, ErrInvalidState
	}

	passengerCount := q.PassengerCount
	if cmd.PassengerCount != nil {
		if *cmd.PassengerCount <= 0 {
			return nil, types.Money{}, ErrBadRequest
		}
		passengerCount = *cmd.PassengerCount
	}

	lines := q.Lines
	if cmd.Lines != nil {
		lines, err = s.resolveLines(ctx, cmd.Lines)
		if err != nil {
			return nil, types.Money{}, err
		}
	}
	if totalCapacity(lines) < passengerCount {
		return nil, types.Money{}, ErrCapacityExceeded
	}

	amenities := q.Amenities
	if cmd.AmenityIDs != nil {
		amenities, err = s.amenities.FindAmenitiesByIDs(ctx, *cmd.AmenityIDs)
		if err != nil {
			return nil, types.Money{}, err
		}
	}

	itinerary := q.Itinerary
	totals := q.RouteTotals
	window := dispatch.Window{Start: q.WindowStart, End: q.WindowEnd}
	if cmd.Itinerary != nil {
		itinerary = *cmd.Itinerary
		totals, err = s.routes.LegTotals(ctx, itinerary)
		if err != nil {
			return nil, types.Money{}, err
		}
		window, err = dispatch.WindowOf(itinerary)
		if err != nil {
			return nil, types.Money{}, err
		}
	}

	breakdown, err := s.fares.Calculate(fare.CalcInput{
		Itinerary:        itinerary,
		Allocation:       lines,
		Amenities:        amenities,
		RouteTotals:      totals,
		Config:           q.Breakdown.ConfigSnapshot,
		ActualDriverRate: q.DriverRate,
	})
	if err != nil {
		return nil, types.Money{}, err
	}

	newTotal := types.MoneyFromFloat(breakdown.Total, q.Total.Currency)
	delta := newTotal.Sub(q.Total)

	updated := *q
	updated.PassengerCount = passengerCount
	updated.Itinerary = itinerary
	updated.Lines = lines
	updated.Amenities = amenities
	updated.RouteTotals = totals
	updated.Breakdown = breakdown
	updated.Total = newTotal
	updated.WindowStart = window.Start
	updated.WindowEnd = window.End

	ok, err := s.store.UpdatePricing(ctx, q.StatusVersion, &updated)
	if err != nil {
		return nil, types.Money{}, err
	}
	if !ok {
		return nil, types.Money{}, ErrConflict
	}

	// Charges only exist once the customer has accepted a price.
	if q.Status != StatusPending && delta.Amount != 0 {
		kind := ChargeAdditional
		amount := delta
		if delta.Amount < 0 {
			kind = ChargeRefundDue
			amount = types.Money{Amount: -delta.Amount, Currency: delta.Currency}
		}
		_ = s.store.AddCharge(ctx, &Charge{
			QuoteID:   q.ID,
			Kind:      kind,
			Amount:    amount,
			Reason:    cmd.Reason,
			CreatedAt: time.Now(),
		})
		if s.notify != nil {
			s.notify.PriceChanged(ctx, q.ID, delta)
		}
	}
	return &updated, delta, nil
}

// AdditionalVehicleCandidates suggests up to three vehicles, ascending by
// capacity, whose combined capacity covers a passenger shortfall. An
// insufficient result means no remedy exists within the cap and the caller
// must surface that explicitly.
func (s *Service) AdditionalVehicleCandidates(ctx context.Context, shortfall int) ([]allocation.Vehicle, error) {
	if shortfall <= 0 {
		return nil, ErrBadRequest
	}
	fleet, err := s.vehicles.ListFleet(ctx)
	if err != nil {
		return nil, err
	}
	candidates := make([]allocation.Vehicle, 0, len(fleet))
	for _, v := range fleet {
		if v.Capacity > 0 {
			candidates = append(candidates, v)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Capacity != candidates[j].Capacity {
			return candidates[i].Capacity < candidates[j].Capacity
		}
		return candidates[i].ID < candidates[j].ID
	})

	var out []allocation.Vehicle
	covered := 0
	for _, v := range candidates {
		if covered >= shortfall || len(out) == maxRemedyCandidates {
			break
		}
		out = append(out, v)
		covered += v.Capacity
	}
	if covered < shortfall {
		// Retry largest-first within the cap before giving up.
		out = out[:0]
		covered = 0
		for i := len(candidates) - 1; i >= 0 && len(out) < maxRemedyCandidates; i-- {
			out = append(out, candidates[i])
			covered += candidates[i].Capacity
			if covered >= shortfall {
				break
			}
		}
		if covered < shortfall {
			return nil, nil
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Capacity < out[j].Capacity })
	}
	return out, nil
}

func (s *Service) resolveLines(ctx context.Context, reqs []LineRequest) ([]allocation.Line, error) {
	ids := make([]types.ID, len(reqs))
	for i, r := range reqs {
		if r.Quantity < 1 {
			return nil, ErrBadRequest
		}
		ids[i] = r.VehicleID
	}
	vehicles, err := s.vehicles.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	lines := make([]allocation.Line, len(reqs))
	for i, r := range reqs {
		lines[i] = allocation.Line{Vehicle: vehicles[i], Quantity: r.Quantity}
	}
	return lines, nil
}

func totalCapacity(lines []allocation.Line) int {
	total := 0
	for _, l := range lines {
		total += l.Vehicle.Capacity * l.Quantity
	}
	return total
}

func newID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
