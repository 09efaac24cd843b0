// README: Vehicle recommendation engine (exact matches + capacity combinations).
package allocation

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"charter/internal/config"
)

var ErrInvalidInput = errors.New("passenger count must be positive")

// maxQuantityPerVehicle bounds how many of one vehicle a combination may use
// before merging. Self-pairs therefore reach quantity 6 of a single type.
const maxQuantityPerVehicle = 3

type Service struct {
	policy config.AllocationPolicy
}

func NewService(policy config.AllocationPolicy) *Service {
	return &Service{policy: policy}
}

// GetRecommendations returns at most policy.MaxOptions allocation options,
// highest-ranked first. The fleet slice is caller-owned and never mutated or
// retained. An empty fleet or an infeasible count yields an empty result, not
// an error; callers must handle "no recommendation available" explicitly.
func (s *Service) GetRecommendations(passengerCount int, fleet []Vehicle) ([]Option, error) {
	if passengerCount <= 0 {
		return nil, ErrInvalidInput
	}

	vehicles := dedupeByName(fleet)

	exact := s.exactMatches(passengerCount, vehicles)
	combos := s.combinations(passengerCount, vehicles)

	options := append(exact, combos...)
	s.rank(passengerCount, options)

	if len(options) > s.policy.MaxOptions {
		options = options[:s.policy.MaxOptions]
	}
	return options, nil
}

// exactMatches selects single vehicles that cover the count without being
// absurdly oversized (the ceiling stops a 50-seat coach being offered to 4
// passengers).
func (s *Service) exactMatches(passengerCount int, vehicles []Vehicle) []Option {
	ceiling := float64(passengerCount) * s.policy.ExactMatchCeiling
	var out []Option
	for _, v := range vehicles {
		if v.Capacity < passengerCount || float64(v.Capacity) > ceiling {
			continue
		}
		out = append(out, Option{
			ID:             signature([]Line{{Vehicle: v, Quantity: 1}}),
			Lines:          []Line{{Vehicle: v, Quantity: 1}},
			TotalCapacity:  v.Capacity,
			EstimatedPrice: v.BaseFare,
			IsExactMatch:   true,
		})
	}
	return out
}

// combinations builds multi-vehicle options from vehicles strictly smaller
// than the passenger count. Larger vehicles are exact-match territory.
func (s *Service) combinations(passengerCount int, vehicles []Vehicle) []Option {
	var blocks []Vehicle
	for _, v := range vehicles {
		if v.Capacity > 0 && v.Capacity < passengerCount {
			blocks = append(blocks, v)
		}
	}
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].Capacity > blocks[j].Capacity
	})

	ceiling := float64(passengerCount) * s.policy.ComboCeiling
	seen := make(map[string]struct{})
	var out []Option

	for i := 0; i < len(blocks); i++ {
		for j := i; j < len(blocks); j++ {
			for qi := 1; qi <= maxQuantityPerVehicle; qi++ {
				for qj := 1; qj <= maxQuantityPerVehicle; qj++ {
					lines := mergeLines([]Line{
						{Vehicle: blocks[i], Quantity: qi},
						{Vehicle: blocks[j], Quantity: qj},
					})
					total := 0
					price := 0.0
					for _, l := range lines {
						total += l.Vehicle.Capacity * l.Quantity
						price += l.Vehicle.BaseFare * float64(l.Quantity)
					}
					if total < passengerCount || float64(total) > ceiling {
						continue
					}
					sig := signature(lines)
					if _, ok := seen[sig]; ok {
						continue
					}
					seen[sig] = struct{}{}
					out = append(out, Option{
						ID:             sig,
						Lines:          lines,
						TotalCapacity:  total,
						EstimatedPrice: price,
					})
				}
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		di := abs(out[i].TotalCapacity - passengerCount)
		dj := abs(out[j].TotalCapacity - passengerCount)
		if di != dj {
			return di < dj
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > s.policy.MaxCombos {
		out = out[:s.policy.MaxCombos]
	}
	return out
}

// rank orders options in place: exact matches first, then by ascending score.
// The waste factor penalises oversized options roughly twice as heavily as a
// plain capacity mismatch.
func (s *Service) rank(passengerCount int, options []Option) {
	score := func(o Option) float64 {
		waste := math.Max(0, float64(o.TotalCapacity-passengerCount)/float64(passengerCount))
		return math.Abs(float64(o.TotalCapacity-passengerCount)) +
			waste*float64(passengerCount)*s.policy.WastePenalty
	}
	sort.SliceStable(options, func(i, j int) bool {
		if options[i].IsExactMatch != options[j].IsExactMatch {
			return options[i].IsExactMatch
		}
		si, sj := score(options[i]), score(options[j])
		if si != sj {
			return si < sj
		}
		return options[i].ID < options[j].ID
	})
}

// dedupeByName drops near-identical fleet records (same trimmed name,
// case-insensitive), keeping the first occurrence, so duplicated vehicle rows
// cannot flood the combination space.
func dedupeByName(fleet []Vehicle) []Vehicle {
	seen := make(map[string]struct{}, len(fleet))
	out := make([]Vehicle, 0, len(fleet))
	for _, v := range fleet {
		key := strings.ToLower(strings.TrimSpace(v.Name))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

// mergeLines collapses repeated vehicles into a single line per vehicle id.
func mergeLines(lines []Line) []Line {
	merged := make([]Line, 0, len(lines))
	for _, l := range lines {
		found := false
		for k := range merged {
			if merged[k].Vehicle.ID == l.Vehicle.ID {
				merged[k].Quantity += l.Quantity
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, l)
		}
	}
	return merged
}

// signature is the canonical identity of an option: sorted vehicleID:quantity
// pairs. Deterministic so identical inputs always yield identical option ids.
func signature(lines []Line) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = fmt.Sprintf("%s:%d", l.Vehicle.ID, l.Quantity)
	}
	sort.Strings(parts)
	return strings.Join(parts, "+")
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
