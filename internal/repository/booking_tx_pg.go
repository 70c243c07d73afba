package repository

import (
	"context"

	"github.com/Domenick1991/airport/internal/domain"
)

func (t *pgTx) InsertBooking(ctx context.Context, b *domain.Booking) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO bookings (customer_id, flight_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`, b.CustomerID, b.FlightID, b.Status).
		Scan(&b.ID, &b.CreatedAt)
	return translate(err)
}

func (t *pgTx) LockBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	var b domain.Booking
	err := t.tx.QueryRow(ctx, `SELECT id, customer_id, flight_id, status, created_at FROM bookings WHERE id=$1 FOR UPDATE`, id).
		Scan(&b.ID, &b.CustomerID, &b.FlightID, &b.Status, &b.CreatedAt)
	if err != nil {
		return nil, notFound(err, "booking %d not found", id)
	}
	return &b, nil
}

func (t *pgTx) UpdateBookingStatus(ctx context.Context, id int64, status domain.BookingStatus) error {
	cmd, err := t.tx.Exec(ctx, `UPDATE bookings SET status=$2 WHERE id=$1`, id, status)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFoundf("booking %d not found", id)
	}
	_, err = t.tx.Exec(ctx, `UPDATE tickets SET booking_cancelled=$2 WHERE booking_id=$1`, id, status == domain.BookingStatusCancelled)
	return translate(err)
}

// UpsertPassenger inserts a new identity key or merges the supplied fields;
// NULL parameters keep the stored column.
func (t *pgTx) UpsertPassenger(ctx context.Context, patch domain.PassengerPatch) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO passengers (ssn, first_name, last_name, birth_date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ssn) DO UPDATE SET
			first_name = COALESCE(EXCLUDED.first_name, passengers.first_name),
			last_name  = COALESCE(EXCLUDED.last_name, passengers.last_name),
			birth_date = COALESCE(EXCLUDED.birth_date, passengers.birth_date)`,
		patch.SSN, patch.FirstName.Ptr(), patch.LastName.Ptr(), patch.BirthDate.Ptr())
	return translate(err)
}

func (t *pgTx) GetPassenger(ctx context.Context, ssn domain.SSN) (*domain.Passenger, error) {
	var p domain.Passenger
	err := t.tx.QueryRow(ctx, `SELECT ssn, first_name, last_name, birth_date FROM passengers WHERE ssn=$1`, ssn).
		Scan(&p.SSN, &p.FirstName, &p.LastName, &p.BirthDate)
	if err != nil {
		return nil, notFound(err, "passenger %s not found", ssn)
	}
	return &p, nil
}

// Seats are persisted one-based.
func seatToStore(seat *int) *int {
	if seat == nil {
		return nil
	}
	v := *seat + 1
	return &v
}

func seatFromStore(seat *int) *int {
	if seat == nil {
		return nil
	}
	v := *seat - 1
	return &v
}

func (t *pgTx) InsertTicket(ctx context.Context, tk *domain.Ticket) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO tickets (id, booking_id, flight_id, passenger_ssn, seat, checked_in)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		tk.ID, tk.BookingID, tk.FlightID, tk.PassengerSSN, seatToStore(tk.Seat), tk.CheckedIn)
	return translate(err)
}

func (t *pgTx) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	var tk domain.Ticket
	var seat *int
	err := t.tx.QueryRow(ctx, `SELECT id, booking_id, flight_id, passenger_ssn, seat, checked_in FROM tickets WHERE id=$1`, id).
		Scan(&tk.ID, &tk.BookingID, &tk.FlightID, &tk.PassengerSSN, &seat, &tk.CheckedIn)
	if err != nil {
		return nil, notFound(err, "ticket %s not found", id)
	}
	tk.Seat = seatFromStore(seat)
	return &tk, nil
}

func (t *pgTx) DeleteTicket(ctx context.Context, id string) error {
	cmd, err := t.tx.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFoundf("ticket %s not found", id)
	}
	return nil
}

func (t *pgTx) TicketsByBooking(ctx context.Context, bookingID int64) ([]domain.Ticket, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, booking_id, flight_id, passenger_ssn, seat, checked_in FROM tickets WHERE booking_id=$1 ORDER BY id`, bookingID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	tickets := make([]domain.Ticket, 0)
	for rows.Next() {
		var tk domain.Ticket
		var seat *int
		if err := rows.Scan(&tk.ID, &tk.BookingID, &tk.FlightID, &tk.PassengerSSN, &seat, &tk.CheckedIn); err != nil {
			return nil, err
		}
		tk.Seat = seatFromStore(seat)
		tickets = append(tickets, tk)
	}
	return tickets, rows.Err()
}

func (t *pgTx) SetCheckedIn(ctx context.Context, id string) error {
	cmd, err := t.tx.Exec(ctx, `UPDATE tickets SET checked_in=true WHERE id=$1`, id)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFoundf("ticket %s not found", id)
	}
	return nil
}

func (t *pgTx) OccupiedSeats(ctx context.Context, flightID string, excludeBookingID int64) ([]int, error) {
	rows, err := t.tx.Query(ctx, `SELECT t.seat FROM tickets t
		JOIN bookings b ON b.id = t.booking_id
		WHERE t.flight_id=$1 AND t.seat IS NOT NULL AND b.status <> $2 AND t.booking_id <> $3
		ORDER BY t.seat`, flightID, domain.BookingStatusCancelled, excludeBookingID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	seats := make([]int, 0)
	for rows.Next() {
		var seat int
		if err := rows.Scan(&seat); err != nil {
			return nil, err
		}
		seats = append(seats, seat-1)
	}
	return seats, rows.Err()
}

// NextTicketNumber holds the sequence lock until the transaction ends, so the
// reserved number and the ticket insert that uses it commit together.
func (t *pgTx) NextTicketNumber(ctx context.Context, offset int) (string, error) {
	highWater, maxTicket, err := t.lockSequence(ctx)
	if err != nil {
		return "", err
	}
	base, err := higherTicketNumber(highWater, maxTicket)
	if err != nil {
		return "", err
	}
	next, err := domain.NextTicketNumber(base, offset)
	if err != nil {
		return "", err
	}
	if err := t.storeHighWater(ctx, next); err != nil {
		return "", err
	}
	return next, nil
}

func (t *pgTx) ClaimTicketNumber(ctx context.Context, id string) error {
	highWater, maxTicket, err := t.lockSequence(ctx)
	if err != nil {
		return err
	}
	if highWater != nil || maxTicket != nil {
		base, err := higherTicketNumber(highWater, maxTicket)
		if err != nil {
			return err
		}
		cmp, err := domain.CompareTicketNumbers(id, base)
		if err != nil {
			return err
		}
		if cmp <= 0 {
			return domain.Conflictf("ticket number %s is not above the last issued %s", id, base)
		}
	}
	return t.storeHighWater(ctx, id)
}

// lockSequence takes the sequence lock and reads the stored mark and the
// largest 13-digit ticket.
func (t *pgTx) lockSequence(ctx context.Context) (highWater, maxTicket *string, err error) {
	if err := t.advisoryLock(ctx, sequenceLockKey); err != nil {
		return nil, nil, translate(err)
	}
	if err := t.tx.QueryRow(ctx, `SELECT
			(SELECT last_value FROM ticket_sequence WHERE id = 1),
			(SELECT MAX(id) FROM tickets WHERE id ~ '^[0-9]{13}$')`).
		Scan(&highWater, &maxTicket); err != nil {
		return nil, nil, translate(err)
	}
	return highWater, maxTicket, nil
}

func (t *pgTx) storeHighWater(ctx context.Context, value string) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO ticket_sequence (id, last_value) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET last_value = EXCLUDED.last_value`, value)
	return translate(err)
}

// higherTicketNumber picks the larger seed. Having neither is a generation failure.
func higherTicketNumber(a, b *string) (string, error) {
	switch {
	case a == nil && b == nil:
		return "", domain.Generationf("no ticket number to seed the sequence from")
	case a == nil:
		return *b, nil
	case b == nil:
		return *a, nil
	}
	cmp, err := domain.CompareTicketNumbers(*a, *b)
	if err != nil {
		return "", err
	}
	if cmp >= 0 {
		return *a, nil
	}
	return *b, nil
}
