package booking

import (
	"context"
	"sort"

	"github.com/Domenick1991/airport/internal/domain"
	"github.com/Domenick1991/airport/internal/repository"
	"github.com/Domenick1991/airport/internal/service"
)

// OccupiedSeats lists the zero-based seats held on a flight by live bookings,
// leaving out excludeBookingID when it is positive.
func (s *BookingService) OccupiedSeats(ctx context.Context, flightID string, excludeBookingID int64) ([]int, error) {
	const op = "occupied seats"
	if flightID == "" {
		return nil, service.Fail(s.logger, op, domain.Validationf("flight id is required"))
	}
	var seats []int
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.LockFlight(ctx, flightID); err != nil {
			return err
		}
		occupied, err := tx.OccupiedSeats(ctx, flightID, excludeBookingID)
		if err != nil {
			return err
		}
		seats = occupied
		return nil
	})
	if err != nil {
		return nil, service.Fail(s.logger, op, err)
	}
	if seats == nil {
		seats = []int{}
	}
	sort.Ints(seats)
	return seats, nil
}

// NextTicketNumber reserves a ticket number offset places past the highest
// one issued so far. Every call returns a number greater than all earlier ones.
func (s *BookingService) NextTicketNumber(ctx context.Context, offset int) (string, error) {
	const op = "next ticket number"
	if offset < 0 {
		return "", service.Fail(s.logger, op, domain.Validationf("offset must not be negative"))
	}
	var number string
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		n, err := tx.NextTicketNumber(ctx, offset)
		if err != nil {
			return err
		}
		number = n
		return nil
	})
	if err != nil {
		return "", service.Fail(s.logger, op, err)
	}
	return number, nil
}
