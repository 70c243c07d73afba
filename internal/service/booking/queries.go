package booking

import (
	"context"

	"github.com/Domenick1991/airport/internal/domain"
	"github.com/Domenick1991/airport/internal/service"
)

func (s *BookingService) GetBooking(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	b, err := s.queries.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, service.Fail(s.logger, "get booking", err)
	}
	return b, nil
}

func (s *BookingService) GetTicketsForBooking(ctx context.Context, bookingID int64) ([]domain.Ticket, error) {
	tickets, err := s.queries.TicketsForBooking(ctx, bookingID)
	if err != nil {
		return nil, service.Fail(s.logger, "get tickets", err)
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

func (s *BookingService) GetLuggageForBooking(ctx context.Context, bookingID int64) ([]domain.Luggage, error) {
	luggage, err := s.queries.LuggageForBooking(ctx, bookingID)
	if err != nil {
		return nil, service.Fail(s.logger, "get luggage", err)
	}
	if luggage == nil {
		luggage = []domain.Luggage{}
	}
	return luggage, nil
}

func (s *BookingService) GetBookingsForCustomer(ctx context.Context, customerID int64) ([]domain.Booking, error) {
	bookings, err := s.queries.BookingsForCustomer(ctx, customerID)
	if err != nil {
		return nil, service.Fail(s.logger, "get customer bookings", err)
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	return bookings, nil
}
