package allocation

import (
	"testing"

	"charter/internal/config"
)

func testPolicy() config.AllocationPolicy {
	return config.AllocationPolicy{
		ExactMatchCeiling: 2.5,
		ComboCeiling:      1.3,
		WastePenalty:      2.0,
		MaxCombos:         10,
		MaxOptions:        5,
	}
}

func TestGetRecommendations_ExactMatchRanksFirst(t *testing.T) {
	s := NewService(testPolicy())
	fleet := []Vehicle{
		{ID: "a", Name: "Coach A", Capacity: 12, BaseFare: 5000},
		{ID: "b", Name: "Van B", Capacity: 6, BaseFare: 2000},
	}

	got, err := s.GetRecommendations(10, fleet)
	if err != nil {
		t.Fatalf("GetRecommendations: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected at least one option")
	}

	top := got[0]
	if !top.IsExactMatch {
		t.Fatalf("expected exact match first, got %+v", top)
	}
	if top.TotalCapacity != 12 {
		t.Fatalf("expected total capacity 12, got %d", top.TotalCapacity)
	}
	if len(top.Lines) != 1 || top.Lines[0].Vehicle.ID != "a" || top.Lines[0].Quantity != 1 {
		t.Fatalf("expected single line of vehicle a qty 1, got %+v", top.Lines)
	}
	if top.EstimatedPrice != 5000 {
		t.Fatalf("expected estimated price 5000, got %v", top.EstimatedPrice)
	}

	// Every exact match must outrank every combination.
	seenCombo := false
	for _, o := range got {
		if !o.IsExactMatch {
			seenCombo = true
		} else if seenCombo {
			t.Fatalf("exact match ranked after a combination: %+v", got)
		}
	}
}

func TestGetRecommendations_Combinations(t *testing.T) {
	s := NewService(testPolicy())
	fleet := []Vehicle{
		{ID: "mb", Name: "Minibus", Capacity: 6, BaseFare: 2000},
		{ID: "van", Name: "Van", Capacity: 4, BaseFare: 1500},
	}

	got, err := s.GetRecommendations(10, fleet)
	if err != nil {
		t.Fatalf("GetRecommendations: %v", err)
	}

	// Feasible combos within capacity 10..13:
	//   mb:1+van:1 = 10 (score 0)
	//   mb:2       = 12 (score 2 + 0.2*10*2 = 6)
	//   van:3      = 12 (score 6, tie broken by id)
	wantIDs := []string{"mb:1+van:1", "mb:2", "van:3"}
	if len(got) != len(wantIDs) {
		t.Fatalf("expected %d options, got %d: %+v", len(wantIDs), len(got), got)
	}
	for i, want := range wantIDs {
		if got[i].ID != want {
			t.Errorf("option %d: expected %s, got %s", i, want, got[i].ID)
		}
		if got[i].IsExactMatch {
			t.Errorf("option %s: expected combination, got exact match", got[i].ID)
		}
	}

	if got[0].TotalCapacity != 10 {
		t.Fatalf("expected best combo capacity 10, got %d", got[0].TotalCapacity)
	}
	// 1x2000 + 1x1500
	if got[0].EstimatedPrice != 3500 {
		t.Fatalf("expected estimated price 3500, got %v", got[0].EstimatedPrice)
	}
	// Same-vehicle self-pair must merge into one line.
	if len(got[1].Lines) != 1 || got[1].Lines[0].Quantity != 2 {
		t.Fatalf("expected merged single line qty 2, got %+v", got[1].Lines)
	}
}

func TestGetRecommendations_CapsAtFiveOptions(t *testing.T) {
	s := NewService(testPolicy())
	fleet := []Vehicle{
		{ID: "v10", Name: "Ten", Capacity: 10, BaseFare: 1000},
		{ID: "v11", Name: "Eleven", Capacity: 11, BaseFare: 1000},
		{ID: "v12", Name: "Twelve", Capacity: 12, BaseFare: 1000},
		{ID: "v13", Name: "Thirteen", Capacity: 13, BaseFare: 1000},
		{ID: "v14", Name: "Fourteen", Capacity: 14, BaseFare: 1000},
		{ID: "v15", Name: "Fifteen", Capacity: 15, BaseFare: 1000},
	}

	got, err := s.GetRecommendations(10, fleet)
	if err != nil {
		t.Fatalf("GetRecommendations: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected exactly 5 options, got %d", len(got))
	}
	// Tightest fits win: the 15-seater is the one cut.
	for _, o := range got {
		if o.Lines[0].Vehicle.ID == "v15" {
			t.Fatalf("expected v15 to be dropped, got %+v", got)
		}
	}
}

func TestGetRecommendations_OversizeCeiling(t *testing.T) {
	s := NewService(testPolicy())
	// 50-seat coach for 4 passengers: 50 > 4*2.5, no combos possible either.
	fleet := []Vehicle{{ID: "coach", Name: "Big Coach", Capacity: 50, BaseFare: 9000}}

	got, err := s.GetRecommendations(4, fleet)
	if err != nil {
		t.Fatalf("GetRecommendations: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no options for oversized-only fleet, got %+v", got)
	}
}

func TestGetRecommendations_DedupesByName(t *testing.T) {
	s := NewService(testPolicy())
	fleet := []Vehicle{
		{ID: "t1", Name: "Traveller", Capacity: 12, BaseFare: 5000},
		{ID: "t2", Name: "  traveller ", Capacity: 12, BaseFare: 4800},
	}

	got, err := s.GetRecommendations(10, fleet)
	if err != nil {
		t.Fatalf("GetRecommendations: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected duplicate name collapsed to 1 option, got %d", len(got))
	}
	if got[0].Lines[0].Vehicle.ID != "t1" {
		t.Fatalf("expected first occurrence kept, got %s", got[0].Lines[0].Vehicle.ID)
	}
}

func TestGetRecommendations_InvalidAndEmptyInput(t *testing.T) {
	s := NewService(testPolicy())

	if _, err := s.GetRecommendations(0, nil); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for count 0, got %v", err)
	}
	if _, err := s.GetRecommendations(-3, nil); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for negative count, got %v", err)
	}

	got, err := s.GetRecommendations(8, nil)
	if err != nil {
		t.Fatalf("empty fleet: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result for empty fleet, got %+v", got)
	}
}

func TestGetRecommendations_DoesNotMutateFleet(t *testing.T) {
	s := NewService(testPolicy())
	fleet := []Vehicle{
		{ID: "small", Name: "Small", Capacity: 4, BaseFare: 1500},
		{ID: "big", Name: "Big", Capacity: 9, BaseFare: 3000},
	}
	orig := make([]Vehicle, len(fleet))
	copy(orig, fleet)

	if _, err := s.GetRecommendations(10, fleet); err != nil {
		t.Fatalf("GetRecommendations: %v", err)
	}
	for i := range fleet {
		if fleet[i] != orig[i] {
			t.Fatalf("fleet slice mutated at %d: %+v != %+v", i, fleet[i], orig[i])
		}
	}
}
