// Package readmodel serves the read-only booking queries from a (possibly
// replica) PostgreSQL connection through sqlx.
package readmodel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/airport/internal/domain"
	"github.com/Domenick1991/airport/internal/repository"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

type Reader struct {
	db *sqlx.DB
}

// Open connects to dsn with the lib/pq driver and verifies the connection.
func Open(dsn string, maxOpen int, maxLifetime time.Duration) (*Reader, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect read model: %w", err)
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen / 2)
	}
	if maxLifetime > 0 {
		db.SetConnMaxLifetime(maxLifetime)
	}
	return &Reader{db: db}, nil
}

func New(db *sqlx.DB) *Reader {
	return &Reader{db: db}
}

func (r *Reader) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Reader) Close() error {
	return r.db.Close()
}

type flightRow struct {
	ID            string        `db:"id"`
	Company       string        `db:"company"`
	Date          time.Time     `db:"flight_date"`
	DepartureTime time.Time     `db:"departure_time"`
	ArrivalTime   time.Time     `db:"arrival_time"`
	MaxSeats      int           `db:"max_seats"`
	FreeSeats     int           `db:"free_seats"`
	DelayMinutes  int           `db:"delay_minutes"`
	Status        string        `db:"status"`
	Gate          sql.NullInt64 `db:"gate"`
	Direction     string        `db:"direction"`
	City          string        `db:"city"`
	CreatedAt     time.Time     `db:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at"`
}

func (r flightRow) toDomain() domain.Flight {
	f := domain.Flight{
		ID:            r.ID,
		Company:       r.Company,
		Date:          r.Date,
		DepartureTime: r.DepartureTime,
		ArrivalTime:   r.ArrivalTime,
		MaxSeats:      r.MaxSeats,
		FreeSeats:     r.FreeSeats,
		DelayMinutes:  r.DelayMinutes,
		Status:        domain.FlightStatus(r.Status),
		Direction:     domain.Direction(r.Direction),
		City:          r.City,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.Gate.Valid {
		g := int(r.Gate.Int64)
		f.Gate = &g
	}
	return f
}

type bookingRow struct {
	ID         int64     `db:"id"`
	CustomerID int64     `db:"customer_id"`
	FlightID   string    `db:"flight_id"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r bookingRow) toDomain() domain.Booking {
	return domain.Booking{
		ID:         r.ID,
		CustomerID: r.CustomerID,
		FlightID:   r.FlightID,
		Status:     domain.BookingStatus(r.Status),
		CreatedAt:  r.CreatedAt,
	}
}

type ticketRow struct {
	ID           string        `db:"id"`
	BookingID    int64         `db:"booking_id"`
	FlightID     string        `db:"flight_id"`
	PassengerSSN string        `db:"passenger_ssn"`
	Seat         sql.NullInt64 `db:"seat"`
	CheckedIn    bool          `db:"checked_in"`
}

// toDomain converts the persisted one-based seat to the zero-based domain seat.
func (r ticketRow) toDomain() domain.Ticket {
	t := domain.Ticket{
		ID:           r.ID,
		BookingID:    r.BookingID,
		FlightID:     r.FlightID,
		PassengerSSN: domain.SSN(r.PassengerSSN),
		CheckedIn:    r.CheckedIn,
	}
	if r.Seat.Valid {
		s := int(r.Seat.Int64) - 1
		t.Seat = &s
	}
	return t
}

type luggageRow struct {
	ID         int64          `db:"id"`
	Type       string         `db:"type"`
	Status     string         `db:"status"`
	TicketID   string         `db:"ticket_id"`
	TrackingID sql.NullString `db:"tracking_id"`
}

func (r luggageRow) toDomain() domain.Luggage {
	l := domain.Luggage{
		ID:       r.ID,
		Type:     domain.LuggageType(r.Type),
		Status:   domain.LuggageStatus(r.Status),
		TicketID: r.TicketID,
	}
	if r.TrackingID.Valid {
		v := r.TrackingID.String
		l.TrackingID = &v
	}
	return l
}

type lostRow struct {
	luggageRow
	BookingID    int64          `db:"booking_id"`
	FlightID     string         `db:"flight_id"`
	PassengerSSN string         `db:"passenger_ssn"`
	FirstName    sql.NullString `db:"first_name"`
	LastName     sql.NullString `db:"last_name"`
}

const flightSelect = `SELECT id, company, flight_date, departure_time, arrival_time, max_seats, free_seats, delay_minutes, status, gate, direction, city, created_at, updated_at FROM flights`

func (r *Reader) ListFlights(ctx context.Context) ([]domain.Flight, error) {
	var rows []flightRow
	if err := r.db.SelectContext(ctx, &rows, flightSelect+` ORDER BY departure_time, id`); err != nil {
		return nil, domain.Wrap("list flights", err)
	}
	flights := make([]domain.Flight, 0, len(rows))
	for _, row := range rows {
		flights = append(flights, row.toDomain())
	}
	return flights, nil
}

func (r *Reader) GetFlight(ctx context.Context, id string) (*domain.Flight, error) {
	var row flightRow
	if err := r.db.GetContext(ctx, &row, flightSelect+` WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("flight %s not found", id)
		}
		return nil, domain.Wrap("get flight", err)
	}
	f := row.toDomain()
	return &f, nil
}

func (r *Reader) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	var row bookingRow
	err := r.db.GetContext(ctx, &row, `SELECT id, customer_id, flight_id, status, created_at FROM bookings WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("booking %d not found", id)
		}
		return nil, domain.Wrap("get booking", err)
	}
	b := row.toDomain()
	return &b, nil
}

func (r *Reader) TicketsForBooking(ctx context.Context, bookingID int64) ([]domain.Ticket, error) {
	var rows []ticketRow
	err := r.db.SelectContext(ctx, &rows, `SELECT id, booking_id, flight_id, passenger_ssn, seat, checked_in
		FROM tickets WHERE booking_id = $1 ORDER BY id`, bookingID)
	if err != nil {
		return nil, domain.Wrap("tickets for booking", err)
	}
	tickets := make([]domain.Ticket, 0, len(rows))
	for _, row := range rows {
		tickets = append(tickets, row.toDomain())
	}
	return tickets, nil
}

func (r *Reader) LuggageForBooking(ctx context.Context, bookingID int64) ([]domain.Luggage, error) {
	var rows []luggageRow
	err := r.db.SelectContext(ctx, &rows, `SELECT l.id, l.type, l.status, l.ticket_id, l.tracking_id
		FROM luggage l JOIN tickets t ON t.id = l.ticket_id
		WHERE t.booking_id = $1 ORDER BY l.id`, bookingID)
	if err != nil {
		return nil, domain.Wrap("luggage for booking", err)
	}
	items := make([]domain.Luggage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toDomain())
	}
	return items, nil
}

func (r *Reader) BookingsForCustomer(ctx context.Context, customerID int64) ([]domain.Booking, error) {
	var rows []bookingRow
	err := r.db.SelectContext(ctx, &rows, `SELECT id, customer_id, flight_id, status, created_at
		FROM bookings WHERE customer_id = $1 ORDER BY id`, customerID)
	if err != nil {
		return nil, domain.Wrap("bookings for customer", err)
	}
	bookings := make([]domain.Booking, 0, len(rows))
	for _, row := range rows {
		bookings = append(bookings, row.toDomain())
	}
	return bookings, nil
}

func (r *Reader) LostLuggageReport(ctx context.Context) ([]domain.LostLuggage, error) {
	var rows []lostRow
	err := r.db.SelectContext(ctx, &rows, `SELECT l.id, l.type, l.status, l.ticket_id, l.tracking_id,
			t.booking_id, t.flight_id, t.passenger_ssn, p.first_name, p.last_name
		FROM luggage l
		JOIN tickets t ON t.id = l.ticket_id
		JOIN passengers p ON p.ssn = t.passenger_ssn
		WHERE l.status = $1
		ORDER BY l.id`, domain.LuggageStatusLost)
	if err != nil {
		return nil, domain.Wrap("lost luggage report", err)
	}
	report := make([]domain.LostLuggage, 0, len(rows))
	for _, row := range rows {
		report = append(report, domain.LostLuggage{
			Luggage:      row.luggageRow.toDomain(),
			BookingID:    row.BookingID,
			FlightID:     row.FlightID,
			PassengerSSN: domain.SSN(row.PassengerSSN),
			FirstName:    row.FirstName.String,
			LastName:     row.LastName.String,
		})
	}
	return report, nil
}

var _ repository.Queries = (*Reader)(nil)
