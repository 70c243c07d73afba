package booking

import (
	"context"
	"time"

	"github.com/Domenick1991/airport/internal/domain"
	"github.com/Domenick1991/airport/internal/kafka"
	"github.com/Domenick1991/airport/internal/repository"
	"github.com/Domenick1991/airport/internal/service"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*Result, error)
	ModifyBooking(ctx context.Context, input ModifyBookingInput) (*Result, error)
	DeleteBooking(ctx context.Context, bookingID int64) (*domain.Booking, error)
	CheckInTicket(ctx context.Context, ticketID string) (*CheckIn, error)
	OccupiedSeats(ctx context.Context, flightID string, excludeBookingID int64) ([]int, error)
	NextTicketNumber(ctx context.Context, offset int) (string, error)
	GetBooking(ctx context.Context, bookingID int64) (*domain.Booking, error)
	GetTicketsForBooking(ctx context.Context, bookingID int64) ([]domain.Ticket, error)
	GetLuggageForBooking(ctx context.Context, bookingID int64) ([]domain.Luggage, error)
	GetBookingsForCustomer(ctx context.Context, customerID int64) ([]domain.Booking, error)
}

// SeatLocker holds seats for the lifetime of a single request. A hold is
// released only by the token that acquired it.
type SeatLocker interface {
	AcquireSeatLock(ctx context.Context, flightID string, seat int, token string, ttl time.Duration) (bool, error)
	ReleaseSeatLock(ctx context.Context, flightID string, seat int, token string) error
}

type CreateBookingInput struct {
	CustomerID int64                `json:"customer_id"`
	FlightID   string               `json:"flight_id"`
	Status     domain.BookingStatus `json:"status,omitempty"`
	Passengers []PassengerInput     `json:"passengers"`
	Tickets    []TicketInput        `json:"tickets"`
	Luggage    []LuggageInput       `json:"luggage,omitempty"`
}

// ModifyBookingInput replaces the whole content of a booking. An empty
// Status keeps the current one.
type ModifyBookingInput struct {
	BookingID  int64                `json:"booking_id"`
	FlightID   string               `json:"flight_id"`
	Status     domain.BookingStatus `json:"status,omitempty"`
	Passengers []PassengerInput     `json:"passengers"`
	Tickets    []TicketInput        `json:"tickets"`
	Luggage    []LuggageInput       `json:"luggage,omitempty"`
}

type Result struct {
	Booking domain.Booking   `json:"booking"`
	Tickets []domain.Ticket  `json:"tickets"`
	Luggage []domain.Luggage `json:"luggage"`
}

type CheckIn struct {
	Ticket  domain.Ticket    `json:"ticket"`
	Luggage []domain.Luggage `json:"luggage"`
}

type BookingService struct {
	store      repository.Store
	queries    repository.Queries
	logger     *logrus.Logger
	locks      SeatLocker
	holdTTL    time.Duration
	events     *service.Events
	trackingID func() string
}

type BookingServiceOption func(*BookingService)

func WithSeatLocks(locks SeatLocker, ttl time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.locks = locks
		s.holdTTL = ttl
	}
}

func WithEvents(events *service.Events) BookingServiceOption {
	return func(s *BookingService) {
		s.events = events
	}
}

func WithTrackingIDs(gen func() string) BookingServiceOption {
	return func(s *BookingService) {
		s.trackingID = gen
	}
}

func NewBookingService(store repository.Store, queries repository.Queries, logger *logrus.Logger, opts ...BookingServiceOption) *BookingService {
	s := &BookingService{
		store:      store,
		queries:    queries,
		logger:     logger,
		holdTTL:    30 * time.Second,
		trackingID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*Result, error) {
	const op = "create booking"
	if input.CustomerID <= 0 {
		return nil, service.Fail(s.logger, op, domain.Validationf("customer id must be positive"))
	}
	if input.FlightID == "" {
		return nil, service.Fail(s.logger, op, domain.Validationf("flight id is required"))
	}
	status := input.Status
	if status == "" {
		status = domain.BookingStatusPending
	}
	if status != domain.BookingStatusPending && status != domain.BookingStatusConfirmed {
		return nil, service.Fail(s.logger, op, domain.Validationf("a new booking cannot be %q", status))
	}
	p, err := buildPlan(input.Passengers, input.Tickets, input.Luggage)
	if err != nil {
		return nil, service.Fail(s.logger, op, err)
	}

	release, err := s.holdSeats(ctx, input.FlightID, p.seats())
	if err != nil {
		return nil, service.Fail(s.logger, op, err)
	}
	defer release()

	var result Result
	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		flight, err := tx.LockFlight(ctx, input.FlightID)
		if err != nil {
			return err
		}
		if !flight.Status.AcceptsBookings() {
			return domain.Conflictf("flight %s is %s and takes no bookings", flight.ID, flight.Status)
		}
		if err := checkSeats(ctx, tx, flight, 0, p); err != nil {
			return err
		}
		if flight.FreeSeats < len(p.tickets) {
			return domain.Conflictf("flight %s has %d free seats, %d requested", flight.ID, flight.FreeSeats, len(p.tickets))
		}

		booking := domain.Booking{CustomerID: input.CustomerID, FlightID: flight.ID, Status: status}
		if err := tx.InsertBooking(ctx, &booking); err != nil {
			return err
		}
		tickets, luggage, err := writeContents(ctx, tx, &booking, p, nil)
		if err != nil {
			return err
		}
		flight.FreeSeats -= len(tickets)
		if err := tx.UpdateFlight(ctx, flight); err != nil {
			return err
		}
		result = Result{Booking: booking, Tickets: tickets, Luggage: luggage}
		return nil
	})
	if err != nil {
		return nil, service.Fail(s.logger, op, err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": result.Booking.ID,
		"flight_id":  result.Booking.FlightID,
		"tickets":    len(result.Tickets),
	}).Info("booking created")
	s.events.Emit(ctx, kafka.Event{
		Type:       kafka.EventBookingCreated,
		BookingID:  result.Booking.ID,
		CustomerID: result.Booking.CustomerID,
		FlightID:   result.Booking.FlightID,
		Status:     string(result.Booking.Status),
		Tickets:    len(result.Tickets),
	})
	return &result, nil
}

// ModifyBooking swaps the booking's passengers, tickets and luggage for the
// supplied ones. A placeholder ticket keeps the booking non-empty while the
// old tickets are gone and the new ones are not yet written.
func (s *BookingService) ModifyBooking(ctx context.Context, input ModifyBookingInput) (*Result, error) {
	const op = "modify booking"
	if input.BookingID <= 0 {
		return nil, service.Fail(s.logger, op, domain.Validationf("booking id must be positive"))
	}
	if input.FlightID == "" {
		return nil, service.Fail(s.logger, op, domain.Validationf("flight id is required"))
	}
	if input.Status != "" && !input.Status.IsValid() {
		return nil, service.Fail(s.logger, op, domain.Validationf("unknown booking status %q", input.Status))
	}
	p, err := buildPlan(input.Passengers, input.Tickets, input.Luggage)
	if err != nil {
		return nil, service.Fail(s.logger, op, err)
	}

	release, err := s.holdSeats(ctx, input.FlightID, p.seats())
	if err != nil {
		return nil, service.Fail(s.logger, op, err)
	}
	defer release()

	var result Result
	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		booking, err := tx.LockBooking(ctx, input.BookingID)
		if err != nil {
			return err
		}
		if booking.Status.IsTerminal() {
			return domain.Conflictf("booking %d is %s", booking.ID, booking.Status)
		}
		if booking.FlightID != input.FlightID {
			return domain.Validationf("booking %d belongs to flight %s, not %s", booking.ID, booking.FlightID, input.FlightID)
		}
		next := input.Status
		if next == "" {
			next = booking.Status
		}
		if !booking.Status.CanTransitionTo(next) {
			return domain.Conflictf("booking %d cannot move from %s to %s", booking.ID, booking.Status, next)
		}

		flight, err := tx.LockFlight(ctx, booking.FlightID)
		if err != nil {
			return err
		}
		if !flight.Status.AcceptsBookings() {
			return domain.Conflictf("flight %s is %s and takes no booking changes", flight.ID, flight.Status)
		}
		old, err := tx.TicketsByBooking(ctx, booking.ID)
		if err != nil {
			return err
		}
		for _, t := range old {
			if t.CheckedIn {
				return domain.Conflictf("ticket %s is already checked in", t.ID)
			}
		}
		if err := checkSeats(ctx, tx, flight, booking.ID, p); err != nil {
			return err
		}
		// a cancelled booking holds no seats, whatever it contains
		free := flight.FreeSeats + len(old) - len(p.tickets)
		if next == domain.BookingStatusCancelled {
			free = min(flight.FreeSeats+len(old), flight.MaxSeats)
		}
		if free < 0 {
			return domain.Conflictf("flight %s has %d free seats, %d more requested", flight.ID, flight.FreeSeats, len(p.tickets)-len(old))
		}
		own := make(map[string]bool, len(old))
		for _, t := range old {
			own[t.ID] = true
		}

		var placeholder *domain.Ticket
		if len(old) > 0 {
			placeholder = &domain.Ticket{
				ID:           domain.PlaceholderTicketID(booking.ID),
				BookingID:    booking.ID,
				FlightID:     booking.FlightID,
				PassengerSSN: old[0].PassengerSSN,
			}
			if err := tx.InsertTicket(ctx, placeholder); err != nil {
				return err
			}
		}
		for _, t := range old {
			if err := tx.DeleteLuggageByTicket(ctx, t.ID); err != nil {
				return err
			}
			if err := tx.DeleteTicket(ctx, t.ID); err != nil {
				return err
			}
		}

		tickets, luggage, err := writeContents(ctx, tx, booking, p, own)
		if err != nil {
			return err
		}
		if placeholder != nil {
			if err := tx.DeleteTicket(ctx, placeholder.ID); err != nil {
				return err
			}
		}
		if next != booking.Status {
			if err := tx.UpdateBookingStatus(ctx, booking.ID, next); err != nil {
				return err
			}
			booking.Status = next
		}
		if free != flight.FreeSeats {
			flight.FreeSeats = free
			if err := tx.UpdateFlight(ctx, flight); err != nil {
				return err
			}
		}
		result = Result{Booking: *booking, Tickets: tickets, Luggage: luggage}
		return nil
	})
	if err != nil {
		return nil, service.Fail(s.logger, op, err)
	}

	eventType := kafka.EventBookingModified
	if result.Booking.Status == domain.BookingStatusCancelled {
		eventType = kafka.EventBookingCancelled
	}
	s.logger.WithFields(logrus.Fields{
		"booking_id": result.Booking.ID,
		"status":     result.Booking.Status,
		"tickets":    len(result.Tickets),
	}).Info("booking modified")
	s.events.Emit(ctx, kafka.Event{
		Type:       eventType,
		BookingID:  result.Booking.ID,
		CustomerID: result.Booking.CustomerID,
		FlightID:   result.Booking.FlightID,
		Status:     string(result.Booking.Status),
		Tickets:    len(result.Tickets),
	})
	return &result, nil
}

// DeleteBooking cancels the booking and gives its seats back to the flight.
// Cancelling a cancelled booking returns it unchanged.
func (s *BookingService) DeleteBooking(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	const op = "cancel booking"
	if bookingID <= 0 {
		return nil, service.Fail(s.logger, op, domain.Validationf("booking id must be positive"))
	}

	var (
		booking  *domain.Booking
		released int
		changed  bool
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		current, err := tx.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		booking = current
		if current.Status == domain.BookingStatusCancelled {
			return nil
		}
		if !current.Status.CanTransitionTo(domain.BookingStatusCancelled) {
			return domain.Conflictf("booking %d cannot be cancelled from %s", current.ID, current.Status)
		}
		tickets, err := tx.TicketsByBooking(ctx, current.ID)
		if err != nil {
			return err
		}
		if err := tx.UpdateBookingStatus(ctx, current.ID, domain.BookingStatusCancelled); err != nil {
			return err
		}
		flight, err := tx.LockFlight(ctx, current.FlightID)
		if err != nil {
			return err
		}
		flight.FreeSeats += len(tickets)
		if flight.FreeSeats > flight.MaxSeats {
			flight.FreeSeats = flight.MaxSeats
		}
		if err := tx.UpdateFlight(ctx, flight); err != nil {
			return err
		}
		current.Status = domain.BookingStatusCancelled
		released = len(tickets)
		changed = true
		return nil
	})
	if err != nil {
		return nil, service.Fail(s.logger, op, err)
	}

	if changed {
		s.logger.WithFields(logrus.Fields{
			"booking_id": booking.ID,
			"flight_id":  booking.FlightID,
			"released":   released,
		}).Info("booking cancelled")
		s.events.Emit(ctx, kafka.Event{
			Type:       kafka.EventBookingCancelled,
			BookingID:  booking.ID,
			CustomerID: booking.CustomerID,
			FlightID:   booking.FlightID,
			Status:     string(booking.Status),
			Tickets:    released,
		})
	}
	return booking, nil
}

// holdSeats takes advisory holds on seats for the duration of a request.
// An unreachable lock service only costs the early rejection; the store still
// enforces seat uniqueness.
func (s *BookingService) holdSeats(ctx context.Context, flightID string, seats []int) (func(), error) {
	if s.locks == nil || len(seats) == 0 {
		return func() {}, nil
	}
	token := uuid.NewString()
	held := make([]int, 0, len(seats))
	release := func() {
		for _, seat := range held {
			if err := s.locks.ReleaseSeatLock(context.WithoutCancel(ctx), flightID, seat, token); err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{"flight_id": flightID, "seat": seat}).Warn("failed to release seat hold")
			}
		}
	}
	for _, seat := range seats {
		ok, err := s.locks.AcquireSeatLock(ctx, flightID, seat, token, s.holdTTL)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{"flight_id": flightID, "seat": seat}).Warn("seat hold unavailable")
			continue
		}
		if !ok {
			release()
			return nil, domain.Conflictf("seat %d on flight %s is being booked by another request", seat, flightID)
		}
		held = append(held, seat)
	}
	return release, nil
}

var _ BookingUseCase = (*BookingService)(nil)
