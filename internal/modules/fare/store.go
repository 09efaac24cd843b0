// README: Pricing config and amenity store backed by PostgreSQL.
package fare

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"charter/internal/types"
)

var (
	ErrNoActiveConfig  = errors.New("no active pricing config")
	ErrAmenityNotFound = errors.New("amenity not found")
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// FindActiveConfig returns the single active rate table. Exactly one config
// is active at a time; none is a fatal precondition for pricing.
func (s *Store) FindActiveConfig(ctx context.Context) (ConfigSnapshot, error) {
	row := s.db.QueryRow(ctx, `
		SELECT fuel_price, average_driver_per_hour_rate, night_charge_per_night,
		       staying_charge_per_day, tax_percentage
		FROM pricing_configs
		WHERE active
		ORDER BY created_at DESC
		LIMIT 1`)

	var c ConfigSnapshot
	err := row.Scan(&c.FuelPrice, &c.AverageDriverPerHourRate, &c.NightChargePerNight,
		&c.StayingChargePerDay, &c.TaxPercentage)
	if errors.Is(err, pgx.ErrNoRows) {
		return ConfigSnapshot{}, ErrNoActiveConfig
	}
	if err != nil {
		return ConfigSnapshot{}, err
	}
	return c, nil
}

// FindAmenitiesByIDs returns the requested amenities in input order; any
// missing id aborts the call.
func (s *Store) FindAmenitiesByIDs(ctx context.Context, ids []types.ID) ([]Amenity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, name, price
		FROM amenities
		WHERE id = ANY($1)`, raw)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[types.ID]Amenity, len(ids))
	for rows.Next() {
		var a Amenity
		if err := rows.Scan(&a.ID, &a.Name, &a.Price); err != nil {
			return nil, err
		}
		byID[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Amenity, 0, len(ids))
	for _, id := range ids {
		a, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("amenity %s: %w", id, ErrAmenityNotFound)
		}
		out = append(out, a)
	}
	return out, nil
}
