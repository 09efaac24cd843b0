package quote

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"charter/internal/modules/allocation"
	"charter/internal/modules/fare"
	"charter/internal/types"
)

type memStore struct {
	mu      sync.Mutex
	quotes  map[types.ID]*Quote
	events  []Event
	charges []Charge
}

func newMemStore() *memStore {
	return &memStore{quotes: make(map[types.ID]*Quote)}
}

func (m *memStore) Create(ctx context.Context, q *Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *q
	m.quotes[q.ID] = &cp
	return nil
}

func (m *memStore) Get(ctx context.Context, id types.ID) (*Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (m *memStore) ListByStatus(ctx context.Context, status Status) ([]*Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Quote
	for _, q := range m.quotes {
		if q.Status == status {
			cp := *q
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, reason *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok || q.Status != from || q.StatusVersion != version {
		return false, nil
	}
	q.Status = to
	q.StatusVersion++
	q.CancelReason = reason
	now := time.Now()
	switch to {
	case StatusConfirmed:
		q.ConfirmedAt = &now
	case StatusCompleted:
		q.CompletedAt = &now
	case StatusCancelled:
		q.CancelledAt = &now
	}
	return true, nil
}

func (m *memStore) UpdateAssignment(ctx context.Context, id types.ID, from Status, version int, driverID types.ID, driverRate float64, b fare.Breakdown, total types.Money) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok || q.Status != from || q.StatusVersion != version {
		return false, nil
	}
	q.Status = StatusAssigned
	q.StatusVersion++
	q.DriverID = &driverID
	q.DriverRate = &driverRate
	q.Breakdown = b
	q.Total = total
	now := time.Now()
	q.AssignedAt = &now
	return true, nil
}

func (m *memStore) ClearAssignment(ctx context.Context, id types.ID, version int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok || q.Status != StatusAssigned || q.StatusVersion != version {
		return false, nil
	}
	q.Status = StatusConfirmed
	q.StatusVersion++
	q.DriverID = nil
	q.DriverRate = nil
	q.AssignedAt = nil
	return true, nil
}

func (m *memStore) UpdatePricing(ctx context.Context, version int, updated *Quote) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[updated.ID]
	if !ok || q.StatusVersion != version {
		return false, nil
	}
	cp := *updated
	cp.Status = q.Status
	cp.StatusVersion = q.StatusVersion + 1
	m.quotes[updated.ID] = &cp
	return true, nil
}

func (m *memStore) AppendEvent(ctx context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	return nil
}

func (m *memStore) AddCharge(ctx context.Context, c *Charge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.charges = append(m.charges, *c)
	return nil
}

func (m *memStore) ListCharges(ctx context.Context, id types.ID) ([]Charge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Charge
	for _, c := range m.charges {
		if c.QuoteID == id {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeVehicles struct {
	byID map[types.ID]allocation.Vehicle
}

func (f *fakeVehicles) FindByIDs(ctx context.Context, ids []types.ID) ([]allocation.Vehicle, error) {
	out := make([]allocation.Vehicle, len(ids))
	for i, id := range ids {
		v, ok := f.byID[id]
		if !ok {
			return nil, fmt.Errorf("vehicle %s: not found", id)
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeVehicles) ListFleet(ctx context.Context) ([]allocation.Vehicle, error) {
	var out []allocation.Vehicle
	for _, v := range f.byID {
		out = append(out, v)
	}
	return out, nil
}

type fakeAmenities struct {
	byID map[types.ID]fare.Amenity
}

func (f *fakeAmenities) FindAmenitiesByIDs(ctx context.Context, ids []types.ID) ([]fare.Amenity, error) {
	out := make([]fare.Amenity, 0, len(ids))
	for _, id := range ids {
		a, ok := f.byID[id]
		if !ok {
			return nil, fmt.Errorf("amenity %s: not found", id)
		}
		out = append(out, a)
	}
	return out, nil
}

type fakeConfigs struct {
	snapshot fare.ConfigSnapshot
}

func (f *fakeConfigs) FindActiveConfig(ctx context.Context) (fare.ConfigSnapshot, error) {
	return f.snapshot, nil
}

type fakeRoutes struct {
	totals []fare.LegTotals
}

func (f *fakeRoutes) LegTotals(ctx context.Context, it fare.Itinerary) ([]fare.LegTotals, error) {
	return f.totals, nil
}

type fakeNotify struct {
	deltas []types.Money
}

func (f *fakeNotify) PriceChanged(ctx context.Context, quoteID types.ID, delta types.Money) {
	f.deltas = append(f.deltas, delta)
}

type fixture struct {
	svc     *Service
	store   *memStore
	configs *fakeConfigs
	notify  *fakeNotify
}

func newFixture() *fixture {
	store := newMemStore()
	vehicles := &fakeVehicles{byID: map[types.ID]allocation.Vehicle{
		"v_bus":  {ID: "v_bus", Name: "Coach", Capacity: 12, BaseFare: 5000, FuelConsumption: 0.12},
		"v_van":  {ID: "v_van", Name: "Van", Capacity: 6, BaseFare: 3000, FuelConsumption: 0.08},
		"v_mini": {ID: "v_mini", Name: "Mini", Capacity: 4, BaseFare: 2000, FuelConsumption: 0.06},
	}}
	amenities := &fakeAmenities{byID: map[types.ID]fare.Amenity{
		"a_wifi": {ID: "a_wifi", Name: "WiFi", Price: 200},
	}}
	configs := &fakeConfigs{snapshot: fare.ConfigSnapshot{
		FuelPrice:                100,
		AverageDriverPerHourRate: 150,
		NightChargePerNight:      300,
		StayingChargePerDay:      500,
		TaxPercentage:            18,
	}}
	routes := &fakeRoutes{totals: []fare.LegTotals{
		{Leg: fare.LegOutbound, DistanceKm: 200, DurationHours: 5},
	}}
	notify := &fakeNotify{}
	svc := NewService(store, vehicles, amenities, configs, routes, fare.NewService(), notify, "INR")
	return &fixture{svc: svc, store: store, configs: configs, notify: notify}
}

func dayTrip() fare.Itinerary {
	return fare.Itinerary{
		Outbound: []fare.Stop{
			{Leg: fare.LegOutbound, Order: 1, StopType: fare.StopPickup, ArrivalTime: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)},
			{Leg: fare.LegOutbound, Order: 2, StopType: fare.StopDropoff, ArrivalTime: time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)},
		},
	}
}

func mustCreate(t *testing.T, f *fixture) types.ID {
	t.Helper()
	id, err := f.svc.Create(context.Background(), CreateCommand{
		CustomerID:     "c1",
		PassengerCount: 10,
		Itinerary:      dayTrip(),
		Lines:          []LineRequest{{VehicleID: "v_bus", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return id
}

func TestCreate(t *testing.T) {
	f := newFixture()
	id := mustCreate(t, f)

	q, err := f.svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if q.Status != StatusPending {
		t.Fatalf("status = %s, want pending", q.Status)
	}
	// base 5000 + distance 200*0.12*100=2400 + driver 5*150=750
	// subtotal 8150, tax 18% = 1467, total 9617.
	if q.Breakdown.Total != 9617 {
		t.Fatalf("total = %v, want 9617", q.Breakdown.Total)
	}
	if q.Total.Amount != 961700 || q.Total.Currency != "INR" {
		t.Fatalf("money total = %+v, want 961700 INR", q.Total)
	}
	if q.Breakdown.ConfigSnapshot != f.configs.snapshot {
		t.Fatalf("snapshot not frozen into breakdown: %+v", q.Breakdown.ConfigSnapshot)
	}
	if !q.WindowStart.Equal(dayTrip().Outbound[0].ArrivalTime) || !q.WindowEnd.Equal(dayTrip().Outbound[1].ArrivalTime) {
		t.Fatalf("window = [%v, %v]", q.WindowStart, q.WindowEnd)
	}
	if len(f.store.events) != 1 || f.store.events[0].ToStatus != StatusPending {
		t.Fatalf("events = %+v, want one none->pending", f.store.events)
	}
}

func TestCreate_CapacityExceeded(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), CreateCommand{
		CustomerID:     "c1",
		PassengerCount: 30,
		Itinerary:      dayTrip(),
		Lines:          []LineRequest{{VehicleID: "v_bus", Quantity: 1}},
	})
	if err != ErrCapacityExceeded {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := mustCreate(t, f)

	// Completing a pending quote skips confirmation and must fail.
	if err := f.svc.Complete(ctx, id); err != ErrInvalidState {
		t.Fatalf("Complete(pending) = %v, want ErrInvalidState", err)
	}
	if err := f.svc.Confirm(ctx, id); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	// Completed requires an assigned driver first.
	if err := f.svc.Complete(ctx, id); err != ErrInvalidState {
		t.Fatalf("Complete(confirmed) = %v, want ErrInvalidState", err)
	}

	q, _ := f.svc.Get(ctx, id)
	if err := f.svc.BindAssignment(ctx, id, "d1", 200, q.Breakdown); err != nil {
		t.Fatalf("BindAssignment: %v", err)
	}
	if err := f.svc.Complete(ctx, id); err != nil {
		t.Fatalf("Complete(assigned): %v", err)
	}
	if err := f.svc.Cancel(ctx, CancelCommand{QuoteID: id, ActorType: "customer", Reason: "late"}); err != ErrInvalidState {
		t.Fatalf("Cancel(completed) = %v, want ErrInvalidState", err)
	}

	q, _ = f.svc.Get(ctx, id)
	if q.Status != StatusCompleted {
		t.Fatalf("final status = %s, want completed", q.Status)
	}
}

func TestBindAndUnassign(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := mustCreate(t, f)
	if err := f.svc.Confirm(ctx, id); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	q, _ := f.svc.Get(ctx, id)
	repriced := q.Breakdown
	repriced.DriverCharge = 1000 // 5h * 200
	repriced.Subtotal = 8400
	repriced.Tax = 1512
	repriced.Total = 9912
	if err := f.svc.BindAssignment(ctx, id, "d1", 200, repriced); err != nil {
		t.Fatalf("BindAssignment: %v", err)
	}

	q, _ = f.svc.Get(ctx, id)
	if q.Status != StatusAssigned || q.DriverID == nil || *q.DriverID != "d1" {
		t.Fatalf("after bind: status=%s driver=%v", q.Status, q.DriverID)
	}
	if q.DriverRate == nil || *q.DriverRate != 200 {
		t.Fatalf("driver rate = %v, want 200", q.DriverRate)
	}
	if q.Total.Amount != 991200 {
		t.Fatalf("total = %d, want 991200", q.Total.Amount)
	}

	if err := f.svc.Unassign(ctx, id); err != nil {
		t.Fatalf("Unassign: %v", err)
	}
	q, _ = f.svc.Get(ctx, id)
	if q.Status != StatusConfirmed || q.DriverID != nil || q.DriverRate != nil {
		t.Fatalf("after unassign: status=%s driver=%v rate=%v", q.Status, q.DriverID, q.DriverRate)
	}
}

func TestReprice_PendingHasNoCharge(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := mustCreate(t, f)

	_, delta, err := f.svc.Reprice(ctx, RepriceCommand{
		QuoteID: id,
		Lines:   []LineRequest{{VehicleID: "v_bus", Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("Reprice: %v", err)
	}
	if delta.Amount == 0 {
		t.Fatal("expected a nonzero delta")
	}
	if len(f.store.charges) != 0 || len(f.notify.deltas) != 0 {
		t.Fatalf("pending reprice must not charge or notify: charges=%d notifies=%d",
			len(f.store.charges), len(f.notify.deltas))
	}
}

func TestReprice_ChargeAndRefund(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := mustCreate(t, f)
	if err := f.svc.Confirm(ctx, id); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	// The active config changes after confirmation; the reprice must keep
	// using the frozen snapshot, so tax stays at 18%.
	f.configs.snapshot.TaxPercentage = 50

	// Two buses: base 10000 + distance 200*0.24*100=4800 + driver 750
	// subtotal 15550, tax 2799, total 18349. Old total 9617, delta +8732.
	q, delta, err := f.svc.Reprice(ctx, RepriceCommand{
		QuoteID: id,
		Lines:   []LineRequest{{VehicleID: "v_bus", Quantity: 2}},
		Reason:  "group grew",
	})
	if err != nil {
		t.Fatalf("Reprice: %v", err)
	}
	if q.Breakdown.Total != 18349 {
		t.Fatalf("new total = %v, want 18349", q.Breakdown.Total)
	}
	if delta.Amount != 873200 {
		t.Fatalf("delta = %d, want +873200", delta.Amount)
	}

	// Back to one bus: same magnitude, refund side.
	_, delta, err = f.svc.Reprice(ctx, RepriceCommand{
		QuoteID: id,
		Lines:   []LineRequest{{VehicleID: "v_bus", Quantity: 1}},
		Reason:  "group shrank",
	})
	if err != nil {
		t.Fatalf("Reprice: %v", err)
	}
	if delta.Amount != -873200 {
		t.Fatalf("delta = %d, want -873200", delta.Amount)
	}

	charges, _ := f.svc.Charges(ctx, id)
	if len(charges) != 2 {
		t.Fatalf("charges = %d, want 2", len(charges))
	}
	if charges[0].Kind != ChargeAdditional || charges[0].Amount.Amount != 873200 {
		t.Fatalf("charge[0] = %+v, want additional 873200", charges[0])
	}
	if charges[1].Kind != ChargeRefundDue || charges[1].Amount.Amount != 873200 {
		t.Fatalf("charge[1] = %+v, want refund_due 873200", charges[1])
	}
	if len(f.notify.deltas) != 2 {
		t.Fatalf("notifies = %d, want 2", len(f.notify.deltas))
	}
}

func TestReprice_CapacityExceeded(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := mustCreate(t, f)

	bigger := 20
	_, _, err := f.svc.Reprice(ctx, RepriceCommand{
		QuoteID:        id,
		PassengerCount: &bigger,
	})
	if err != ErrCapacityExceeded {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
}

func TestReprice_UsesBoundDriverRate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := mustCreate(t, f)
	if err := f.svc.Confirm(ctx, id); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	q, _ := f.svc.Get(ctx, id)
	if err := f.svc.BindAssignment(ctx, id, "d1", 200, q.Breakdown); err != nil {
		t.Fatalf("BindAssignment: %v", err)
	}

	// Add an amenity; the driver charge must use the bound 200/h rate:
	// 5h * 200 = 1000 instead of the 750 average.
	ids := []types.ID{"a_wifi"}
	updated, _, err := f.svc.Reprice(ctx, RepriceCommand{
		QuoteID:    id,
		AmenityIDs: &ids,
	})
	if err != nil {
		t.Fatalf("Reprice: %v", err)
	}
	if updated.Breakdown.DriverCharge != 1000 {
		t.Fatalf("driver charge = %v, want 1000", updated.Breakdown.DriverCharge)
	}
	if updated.Breakdown.AmenitiesTotal != 200 {
		t.Fatalf("amenities = %v, want 200", updated.Breakdown.AmenitiesTotal)
	}
}

func TestConfirm_ConcurrentSingleWinner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := mustCreate(t, f)

	const workers = 8
	results := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- f.svc.Confirm(ctx, id)
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		switch err {
		case nil:
			wins++
		case ErrConflict, ErrInvalidState:
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("winners = %d, want exactly 1", wins)
	}

	q, _ := f.svc.Get(ctx, id)
	if q.Status != StatusConfirmed || q.StatusVersion != 1 {
		t.Fatalf("status=%s version=%d, want confirmed/1", q.Status, q.StatusVersion)
	}
}

func TestAdditionalVehicleCandidates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Shortfall 5: smallest-first accumulation stops at mini(4) + van(6).
	got, err := f.svc.AdditionalVehicleCandidates(ctx, 5)
	if err != nil {
		t.Fatalf("AdditionalVehicleCandidates: %v", err)
	}
	if len(got) != 2 || got[0].ID != "v_mini" || got[1].ID != "v_van" {
		t.Fatalf("candidates = %+v, want [v_mini v_van]", got)
	}

	// Shortfall beyond the whole fleet within the three-vehicle cap: no remedy.
	got, err = f.svc.AdditionalVehicleCandidates(ctx, 25)
	if err != nil {
		t.Fatalf("AdditionalVehicleCandidates: %v", err)
	}
	if got != nil {
		t.Fatalf("candidates = %+v, want none", got)
	}
}
