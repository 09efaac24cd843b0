// README: Fleet store backed by PostgreSQL.
package allocation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"charter/internal/types"
)

var ErrNotFound = errors.New("vehicle not found")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) ListFleet(ctx context.Context) ([]Vehicle, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, capacity, base_fare, fuel_consumption
		FROM vehicles
		ORDER BY capacity DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fleet []Vehicle
	for rows.Next() {
		var v Vehicle
		if err := rows.Scan(&v.ID, &v.Name, &v.Capacity, &v.BaseFare, &v.FuelConsumption); err != nil {
			return nil, err
		}
		fleet = append(fleet, v)
	}
	return fleet, rows.Err()
}

// FindByIDs returns the requested vehicles in input order. A missing id fails
// the whole call; pricing must never proceed on a partial fleet.
func (s *Store) FindByIDs(ctx context.Context, ids []types.ID) ([]Vehicle, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, name, capacity, base_fare, fuel_consumption
		FROM vehicles
		WHERE id = ANY($1)`, raw)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[types.ID]Vehicle, len(ids))
	for rows.Next() {
		var v Vehicle
		if err := rows.Scan(&v.ID, &v.Name, &v.Capacity, &v.BaseFare, &v.FuelConsumption); err != nil {
			return nil, err
		}
		byID[v.ID] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Vehicle, 0, len(ids))
	for _, id := range ids {
		v, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("vehicle %s: %w", id, ErrNotFound)
		}
		out = append(out, v)
	}
	return out, nil
}
