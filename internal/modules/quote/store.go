// README: Quote persistence: PostgreSQL store with optimistic status locking.
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"charter/internal/modules/allocation"
	"charter/internal/modules/fare"
	"charter/internal/types"
)

// Store is what the service needs from persistence. Update methods return
// false when the optimistic status_version check lost a race.
type Store interface {
	Create(ctx context.Context, q *Quote) error
	Get(ctx context.Context, id types.ID) (*Quote, error)
	ListByStatus(ctx context.Context, status Status) ([]*Quote, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, reason *string) (bool, error)
	UpdateAssignment(ctx context.Context, id types.ID, from Status, version int, driverID types.ID, driverRate float64, b fare.Breakdown, total types.Money) (bool, error)
	ClearAssignment(ctx context.Context, id types.ID, version int) (bool, error)
	UpdatePricing(ctx context.Context, version int, q *Quote) (bool, error)
	AppendEvent(ctx context.Context, e *Event) error
	AddCharge(ctx context.Context, c *Charge) error
	ListCharges(ctx context.Context, id types.ID) ([]Charge, error)
}

type SQLStore struct {
	db *pgxpool.Pool
}

func NewSQLStore(db *pgxpool.Pool) *SQLStore {
	return &SQLStore{db: db}
}

// quoteDoc is the jsonb payload for the structured parts of a quote. Scalar
// columns carry only what queries filter or join on.
type quoteDoc struct {
	Itinerary   fare.Itinerary    `json:"itinerary"`
	Lines       []allocation.Line `json:"lines"`
	Amenities   []fare.Amenity    `json:"amenities"`
	RouteTotals []fare.LegTotals  `json:"routeTotals"`
	Breakdown   fare.Breakdown    `json:"breakdown"`
}

func (s *SQLStore) Create(ctx context.Context, q *Quote) error {
	doc, err := json.Marshal(quoteDoc{
		Itinerary:   q.Itinerary,
		Lines:       q.Lines,
		Amenities:   q.Amenities,
		RouteTotals: q.RouteTotals,
		Breakdown:   q.Breakdown,
	})
	if err != nil {
		return fmt.Errorf("marshal quote %s: %w", q.ID, err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO quotes (
			id, customer_id, status, status_version, passenger_count,
			doc, total_minor, currency, window_start, window_end, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		string(q.ID), string(q.CustomerID), string(q.Status), q.StatusVersion,
		q.PassengerCount, doc, q.Total.Amount, q.Total.Currency,
		q.WindowStart, q.WindowEnd, q.CreatedAt)
	return err
}

func (s *SQLStore) Get(ctx context.Context, id types.ID) (*Quote, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, customer_id, status, status_version, passenger_count,
		       doc, total_minor, currency, window_start, window_end,
		       driver_id, driver_rate, created_at, confirmed_at, assigned_at,
		       completed_at, cancelled_at, cancel_reason
		FROM quotes
		WHERE id = $1`, string(id))

	q, err := scanQuote(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (s *SQLStore) ListByStatus(ctx context.Context, status Status) ([]*Quote, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, customer_id, status, status_version, passenger_count,
		       doc, total_minor, currency, window_start, window_end,
		       driver_id, driver_rate, created_at, confirmed_at, assigned_at,
		       completed_at, cancelled_at, cancel_reason
		FROM quotes
		WHERE status = $1
		ORDER BY created_at`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// UpdateStatus moves the quote from one status to another only if nobody
// else touched it since the caller read it. The matching timestamp column is
// stamped by the target status.
func (s *SQLStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, reason *string) (bool, error) {
	stampCol := ""
	switch to {
	case StatusConfirmed:
		stampCol = "confirmed_at"
	case StatusCompleted:
		stampCol = "completed_at"
	case StatusCancelled:
		stampCol = "cancelled_at"
	}

	query := `
		UPDATE quotes
		SET status = $1, status_version = status_version + 1, cancel_reason = $2`
	if stampCol != "" {
		query += ", " + stampCol + " = now()"
	}
	query += `
		WHERE id = $3 AND status = $4 AND status_version = $5`

	tag, err := s.db.Exec(ctx, query, string(to), reason, string(id), string(from), version)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *SQLStore) UpdateAssignment(ctx context.Context, id types.ID, from Status, version int, driverID types.ID, driverRate float64, b fare.Breakdown, total types.Money) (bool, error) {
	doc, err := json.Marshal(b)
	if err != nil {
		return false, fmt.Errorf("marshal breakdown for quote %s: %w", id, err)
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE quotes
		SET status = 'assigned', status_version = status_version + 1,
		    driver_id = $1, driver_rate = $2,
		    doc = jsonb_set(doc, '{breakdown}', $3),
		    total_minor = $4, currency = $5,
		    assigned_at = now()
		WHERE id = $6 AND status = $7 AND status_version = $8`,
		string(driverID), driverRate, doc, total.Amount, total.Currency,
		string(id), string(from), version)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *SQLStore) ClearAssignment(ctx context.Context, id types.ID, version int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE quotes
		SET status = 'confirmed', status_version = status_version + 1,
		    driver_id = NULL, driver_rate = NULL, assigned_at = NULL
		WHERE id = $1 AND status = 'assigned' AND status_version = $2`,
		string(id), version)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// UpdatePricing replaces the structured payload and total after a reprice.
// Status does not change but the version still bumps so concurrent
// transitions lose their race.
func (s *SQLStore) UpdatePricing(ctx context.Context, version int, q *Quote) (bool, error) {
	doc, err := json.Marshal(quoteDoc{
		Itinerary:   q.Itinerary,
		Lines:       q.Lines,
		Amenities:   q.Amenities,
		RouteTotals: q.RouteTotals,
		Breakdown:   q.Breakdown,
	})
	if err != nil {
		return false, fmt.Errorf("marshal quote %s: %w", q.ID, err)
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE quotes
		SET status_version = status_version + 1, passenger_count = $1,
		    doc = $2, total_minor = $3, currency = $4,
		    window_start = $5, window_end = $6
		WHERE id = $7 AND status_version = $8`,
		q.PassengerCount, doc, q.Total.Amount, q.Total.Currency,
		q.WindowStart, q.WindowEnd, string(q.ID), version)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *SQLStore) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO quote_state_events (quote_id, from_status, to_status, actor_type, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.QuoteID), string(e.FromStatus), string(e.ToStatus),
		e.ActorType, idPtr(e.ActorID), e.CreatedAt)
	return err
}

func (s *SQLStore) AddCharge(ctx context.Context, c *Charge) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO quote_charges (quote_id, kind, amount_minor, currency, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(c.QuoteID), string(c.Kind), c.Amount.Amount, c.Amount.Currency,
		c.Reason, c.CreatedAt)
	return err
}

func (s *SQLStore) ListCharges(ctx context.Context, id types.ID) ([]Charge, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, quote_id, kind, amount_minor, currency, reason, created_at
		FROM quote_charges
		WHERE quote_id = $1
		ORDER BY id`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Charge
	for rows.Next() {
		var c Charge
		var quoteID, kind string
		if err := rows.Scan(&c.ID, &quoteID, &kind, &c.Amount.Amount, &c.Amount.Currency, &c.Reason, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.QuoteID = types.ID(quoteID)
		c.Kind = ChargeKind(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanQuote(row pgx.Row) (*Quote, error) {
	var (
		q          Quote
		id, cust   string
		status     string
		doc        []byte
		driverID   *string
		cancelWhy  *string
		windowFrom time.Time
		windowTo   time.Time
	)
	err := row.Scan(&id, &cust, &status, &q.StatusVersion, &q.PassengerCount,
		&doc, &q.Total.Amount, &q.Total.Currency, &windowFrom, &windowTo,
		&driverID, &q.DriverRate, &q.CreatedAt, &q.ConfirmedAt, &q.AssignedAt,
		&q.CompletedAt, &q.CancelledAt, &cancelWhy)
	if err != nil {
		return nil, err
	}

	var d quoteDoc
	if err := json.Unmarshal(doc, &d); err != nil {
		return nil, fmt.Errorf("unmarshal quote %s: %w", id, err)
	}
	q.ID = types.ID(id)
	q.CustomerID = types.ID(cust)
	q.Status = Status(status)
	q.Itinerary = d.Itinerary
	q.Lines = d.Lines
	q.Amenities = d.Amenities
	q.RouteTotals = d.RouteTotals
	q.Breakdown = d.Breakdown
	q.WindowStart = windowFrom
	q.WindowEnd = windowTo
	q.CancelReason = cancelWhy
	if driverID != nil {
		did := types.ID(*driverID)
		q.DriverID = &did
	}
	return &q, nil
}

func idPtr(id *types.ID) *string {
	if id == nil {
		return nil
	}
	s := string(*id)
	return &s
}
