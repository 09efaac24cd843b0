// README: Outbound customer notifications; log-backed until a real channel exists.
package notify

import (
	"context"
	"log"

	"charter/internal/types"
)

// Service implements the notifier collaborators of the quote and dispatch
// modules. Delivery is fire-and-forget; callers never block or fail on it.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

func (s *Service) DriverAssigned(ctx context.Context, quoteID, driverID types.ID, total float64) {
	log.Printf("notify: quote %s assigned driver %s, total %.2f", quoteID, driverID, total)
}

func (s *Service) PriceChanged(ctx context.Context, quoteID types.ID, delta types.Money) {
	kind := "additional charge"
	amount := delta.Float()
	if delta.Amount < 0 {
		kind = "refund due"
		amount = -amount
	}
	log.Printf("notify: quote %s repriced, %s %.2f %s", quoteID, kind, amount, delta.Currency)
}
