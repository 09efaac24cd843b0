// README: Driver conflict decisions and first-fit auto-assignment.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"charter/internal/modules/fare"
	"charter/internal/types"
)

var (
	ErrInvalidInput = errors.New("itinerary has no stops")
	ErrNoDriver     = errors.New("no assignable driver for window")
)

// DriverSource lists drivers in repository order; assignment is first-fit
// over that order by design, with no cost or proximity ranking.
type DriverSource interface {
	FindAvailable(ctx context.Context) ([]Driver, error)
}

// BookingSource answers which drivers already hold a reservation overlapping
// [start, end], both boundaries inclusive. excludeQuoteID lets adjustment
// flows ignore the reservation being adjusted.
type BookingSource interface {
	FindBookedDriverIDs(ctx context.Context, start, end time.Time, excludeQuoteID types.ID) (map[types.ID]struct{}, error)
}

// QuoteBinder is the quote-side collaborator: pending quotes in, committed
// assignments out.
type QuoteBinder interface {
	ListPendingAssignment(ctx context.Context) ([]PendingQuote, error)
	BindAssignment(ctx context.Context, quoteID, driverID types.ID, driverRate float64, b fare.Breakdown) error
}

// Notifier is fire-and-forget; a notification failure never unwinds a
// committed assignment.
type Notifier interface {
	DriverAssigned(ctx context.Context, quoteID, driverID types.ID, total float64)
}

type Service struct {
	drivers  DriverSource
	bookings BookingSource
	quotes   QuoteBinder
	fares    *fare.Service
	notify   Notifier
}

func NewService(drivers DriverSource, bookings BookingSource, quotes QuoteBinder, fares *fare.Service, notify Notifier) *Service {
	return &Service{drivers: drivers, bookings: bookings, quotes: quotes, fares: fares, notify: notify}
}

// WindowOf derives the booking window from an itinerary: min and max arrival
// time over every stop in both legs.
func WindowOf(it fare.Itinerary) (Window, error) {
	stops := it.Stops()
	if len(stops) == 0 {
		return Window{}, ErrInvalidInput
	}
	w := Window{Start: stops[0].ArrivalTime, End: stops[0].ArrivalTime}
	for _, s := range stops[1:] {
		if s.ArrivalTime.Before(w.Start) {
			w.Start = s.ArrivalTime
		}
		if s.ArrivalTime.After(w.End) {
			w.End = s.ArrivalTime
		}
	}
	return w, nil
}

// CanAssign decides whether a driver can be bound to the itinerary's window
// without double-booking. The check reflects the data it was shown: there is
// no lock between this decision and a subsequent commit, an accepted race.
func (s *Service) CanAssign(ctx context.Context, d Driver, it fare.Itinerary, excludeQuoteID types.ID) (Decision, error) {
	if !d.Available {
		return Decision{CanAssign: false, Reason: ReasonUnavailable}, nil
	}
	w, err := WindowOf(it)
	if err != nil {
		return Decision{}, err
	}
	booked, err := s.bookings.FindBookedDriverIDs(ctx, w.Start, w.End, excludeQuoteID)
	if err != nil {
		return Decision{}, err
	}
	if _, ok := booked[d.ID]; ok {
		return Decision{CanAssign: false, Reason: ReasonBooked}, nil
	}
	return Decision{CanAssign: true}, nil
}

// AutoAssign picks the first available driver whose window is free, reprices
// the quote with that driver's actual hourly rate against the quote's frozen
// snapshot, and commits the assignment through the quote collaborator.
func (s *Service) AutoAssign(ctx context.Context, q PendingQuote) (types.ID, error) {
	w, err := WindowOf(q.Itinerary)
	if err != nil {
		return "", err
	}
	drivers, err := s.drivers.FindAvailable(ctx)
	if err != nil {
		return "", err
	}
	booked, err := s.bookings.FindBookedDriverIDs(ctx, w.Start, w.End, q.ID)
	if err != nil {
		return "", err
	}

	var chosen *Driver
	for i := range drivers {
		if _, taken := booked[drivers[i].ID]; taken {
			continue
		}
		chosen = &drivers[i]
		break
	}
	if chosen == nil {
		return "", ErrNoDriver
	}

	if err := s.assign(ctx, q, *chosen); err != nil {
		return "", err
	}
	return chosen.ID, nil
}

// AssignDriver binds one specific driver after an explicit conflict check,
// for manual dispatch. ErrNoDriver signals the driver failed the check.
func (s *Service) AssignDriver(ctx context.Context, q PendingQuote, d Driver) error {
	decision, err := s.CanAssign(ctx, d, q.Itinerary, q.ID)
	if err != nil {
		return err
	}
	if !decision.CanAssign {
		return fmt.Errorf("driver %s %s: %w", d.ID, decision.Reason, ErrNoDriver)
	}
	return s.assign(ctx, q, d)
}

func (s *Service) assign(ctx context.Context, q PendingQuote, d Driver) error {
	rate := d.HourlyRate
	b, err := s.fares.Calculate(fare.CalcInput{
		Itinerary:        q.Itinerary,
		Allocation:       q.Lines,
		Amenities:        q.Amenities,
		RouteTotals:      q.RouteTotals,
		Config:           q.Snapshot,
		ActualDriverRate: &rate,
	})
	if err != nil {
		return fmt.Errorf("reprice quote %s: %w", q.ID, err)
	}

	if err := s.quotes.BindAssignment(ctx, q.ID, d.ID, rate, b); err != nil {
		return err
	}
	if s.notify != nil {
		s.notify.DriverAssigned(ctx, q.ID, d.ID, b.Total)
	}
	return nil
}
