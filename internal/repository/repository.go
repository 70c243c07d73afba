package repository

import (
	"context"

	"github.com/Domenick1991/airport/internal/domain"
)

// Store opens exclusive transactions. fn's error rolls the whole unit back;
// a nil return commits it.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of reads and writes available inside one transaction.
// Implementations translate native errors into domain errors for
// not-found rows and constraint violations.
type Tx interface {
	FlightTx
	BookingTx
	PassengerTx
	TicketTx
	LuggageTx
}

type FlightTx interface {
	InsertFlight(ctx context.Context, f *domain.Flight) error
	// LockFlight reads a flight and holds it until the transaction ends.
	LockFlight(ctx context.Context, id string) (*domain.Flight, error)
	UpdateFlight(ctx context.Context, f *domain.Flight) error
	// LockGates serialises gate scans across transactions.
	LockGates(ctx context.Context) error
	// HeldGates maps every gate held by a non-cancelled flight to that flight.
	HeldGates(ctx context.Context) (map[int]string, error)
}

type BookingTx interface {
	InsertBooking(ctx context.Context, b *domain.Booking) error
	LockBooking(ctx context.Context, id int64) (*domain.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, status domain.BookingStatus) error
}

type PassengerTx interface {
	UpsertPassenger(ctx context.Context, patch domain.PassengerPatch) error
	GetPassenger(ctx context.Context, ssn domain.SSN) (*domain.Passenger, error)
}

type TicketTx interface {
	InsertTicket(ctx context.Context, t *domain.Ticket) error
	GetTicket(ctx context.Context, id string) (*domain.Ticket, error)
	DeleteTicket(ctx context.Context, id string) error
	TicketsByBooking(ctx context.Context, bookingID int64) ([]domain.Ticket, error)
	SetCheckedIn(ctx context.Context, id string) error
	// OccupiedSeats returns zero-based seats held on the flight by non-cancelled
	// bookings other than excludeBookingID (0 excludes nothing).
	OccupiedSeats(ctx context.Context, flightID string, excludeBookingID int64) ([]int, error)
	// NextTicketNumber reserves max(high-water mark, max ticket) + offset + 1.
	NextTicketNumber(ctx context.Context, offset int) (string, error)
	// ClaimTicketNumber records a caller-chosen number as the new high-water
	// mark. Numbers at or below the mark are a conflict, so no number is issued twice.
	ClaimTicketNumber(ctx context.Context, id string) error
}

type LuggageTx interface {
	InsertLuggage(ctx context.Context, l *domain.Luggage) error
	LuggageByTicket(ctx context.Context, ticketID string) ([]domain.Luggage, error)
	DeleteLuggageByTicket(ctx context.Context, ticketID string) error
	LockLuggage(ctx context.Context, id int64) (*domain.Luggage, error)
	LockLuggageByTracking(ctx context.Context, trackingID string) (*domain.Luggage, error)
	UpdateLuggage(ctx context.Context, l *domain.Luggage) error
	// MoveFlightLuggage moves every bag of the flight in status from to status to.
	MoveFlightLuggage(ctx context.Context, flightID string, from, to domain.LuggageStatus) (int64, error)
}

// Queries are the pure reads used by presentation layers. Empty results are
// not errors.
type Queries interface {
	ListFlights(ctx context.Context) ([]domain.Flight, error)
	GetFlight(ctx context.Context, id string) (*domain.Flight, error)
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	TicketsForBooking(ctx context.Context, bookingID int64) ([]domain.Ticket, error)
	LuggageForBooking(ctx context.Context, bookingID int64) ([]domain.Luggage, error)
	BookingsForCustomer(ctx context.Context, customerID int64) ([]domain.Booking, error)
	LostLuggageReport(ctx context.Context) ([]domain.LostLuggage, error)
}
