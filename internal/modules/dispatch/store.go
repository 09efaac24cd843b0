// README: Driver and booked-window store backed by PostgreSQL and Redis.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"charter/internal/types"
)

var ErrDriverNotFound = errors.New("driver not found")

// onDutyKey is a Redis set of driver ids currently on duty, maintained
// alongside the persistent flag for cheap membership checks from handlers.
const onDutyKey = "dispatch:on_duty"

type Store struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func NewStore(db *pgxpool.Pool, redis *redis.Client) *Store {
	return &Store{db: db, redis: redis}
}

// FindAvailable returns available drivers in repository order (id ascending).
// The sweep consumes this order first-fit.
func (s *Store) FindAvailable(ctx context.Context) ([]Driver, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, hourly_rate, status_available
		FROM drivers
		WHERE status_available
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Driver
	for rows.Next() {
		var d Driver
		if err := rows.Scan(&d.ID, &d.Name, &d.HourlyRate, &d.Available); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) GetDriver(ctx context.Context, id types.ID) (Driver, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, hourly_rate, status_available
		FROM drivers
		WHERE id = $1`, string(id))

	var d Driver
	err := row.Scan(&d.ID, &d.Name, &d.HourlyRate, &d.Available)
	if errors.Is(err, pgx.ErrNoRows) {
		return Driver{}, ErrDriverNotFound
	}
	if err != nil {
		return Driver{}, err
	}
	return d, nil
}

// SetAvailability flips the persistent flag and mirrors it into the Redis
// on-duty set. The Redis write is best-effort; the flag in Postgres is the
// source of truth for assignment.
func (s *Store) SetAvailability(ctx context.Context, id types.ID, available bool) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE drivers SET status_available = $1 WHERE id = $2`,
		available, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDriverNotFound
	}
	if available {
		_ = s.redis.SAdd(ctx, onDutyKey, string(id)).Err()
	} else {
		_ = s.redis.SRem(ctx, onDutyKey, string(id)).Err()
	}
	return nil
}

// FindBookedDriverIDs returns the drivers holding a live reservation whose
// window overlaps [start, end]. Overlap is inclusive on both boundaries:
// window_start <= $end AND window_end >= $start.
func (s *Store) FindBookedDriverIDs(ctx context.Context, start, end time.Time, excludeQuoteID types.ID) (map[types.ID]struct{}, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT driver_id
		FROM quotes
		WHERE driver_id IS NOT NULL
		  AND status IN ('confirmed', 'assigned')
		  AND window_start <= $2
		  AND window_end >= $1
		  AND ($3 = '' OR id <> $3)`,
		start, end, string(excludeQuoteID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[types.ID]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[types.ID(id)] = struct{}{}
	}
	return out, rows.Err()
}
