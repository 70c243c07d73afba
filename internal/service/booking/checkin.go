package booking

import (
	"context"

	"github.com/Domenick1991/airport/internal/domain"
	"github.com/Domenick1991/airport/internal/kafka"
	"github.com/Domenick1991/airport/internal/repository"
	"github.com/Domenick1991/airport/internal/service"
	"github.com/sirupsen/logrus"
)

// CheckInTicket marks a ticket checked in and tags its luggage with tracking
// ids. Check-in must be open on the flight and the booking must be live.
// Checking in twice returns the ticket unchanged.
func (s *BookingService) CheckInTicket(ctx context.Context, ticketID string) (*CheckIn, error) {
	const op = "check in ticket"
	if !domain.IsTicketNumber(ticketID) {
		return nil, service.Fail(s.logger, op, domain.Validationf("ticket id %q is not a ticket number", ticketID))
	}

	var (
		result  CheckIn
		changed bool
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		ticket, err := tx.GetTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		booking, err := tx.LockBooking(ctx, ticket.BookingID)
		if err != nil {
			return err
		}
		if booking.Status == domain.BookingStatusCancelled {
			return domain.Conflictf("booking %d is cancelled", booking.ID)
		}
		// the booking may have been rewritten before the lock was granted
		ticket, err = tx.GetTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		flight, err := tx.LockFlight(ctx, ticket.FlightID)
		if err != nil {
			return err
		}
		luggage, err := tx.LuggageByTicket(ctx, ticket.ID)
		if err != nil {
			return err
		}
		if ticket.CheckedIn {
			result = CheckIn{Ticket: *ticket, Luggage: luggage}
			return nil
		}
		if !flight.Status.CheckInOpen() {
			return domain.Conflictf("check-in for flight %s is not open (%s)", flight.ID, flight.Status)
		}

		if err := tx.SetCheckedIn(ctx, ticket.ID); err != nil {
			return err
		}
		ticket.CheckedIn = true
		for i := range luggage {
			if luggage[i].TrackingID != nil {
				continue
			}
			id := s.trackingID()
			luggage[i].TrackingID = &id
			if err := tx.UpdateLuggage(ctx, &luggage[i]); err != nil {
				return err
			}
		}
		result = CheckIn{Ticket: *ticket, Luggage: luggage}
		changed = true
		return nil
	})
	if err != nil {
		return nil, service.Fail(s.logger, op, err)
	}

	if changed {
		s.logger.WithFields(logrus.Fields{
			"ticket_id": result.Ticket.ID,
			"flight_id": result.Ticket.FlightID,
			"luggage":   len(result.Luggage),
		}).Info("ticket checked in")
		s.events.Emit(ctx, kafka.Event{
			Type:      kafka.EventTicketCheckedIn,
			BookingID: result.Ticket.BookingID,
			FlightID:  result.Ticket.FlightID,
			TicketID:  result.Ticket.ID,
		})
	}
	return &result, nil
}
