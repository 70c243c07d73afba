package memory

import (
	"context"

	"github.com/Domenick1991/airport/internal/domain"
	"github.com/Domenick1991/airport/internal/repository"
)

type memTx struct {
	st    *state
	store *Store
}

func (t *memTx) fail(op string) error {
	return t.store.failures[op]
}

func (t *memTx) InsertFlight(ctx context.Context, f *domain.Flight) error {
	if err := t.fail("InsertFlight"); err != nil {
		return err
	}
	if _, ok := t.st.flights[f.ID]; ok {
		return domain.Conflictf("flight %s already exists", f.ID)
	}
	now := t.store.now()
	f.CreatedAt, f.UpdatedAt = now, now
	t.st.flights[f.ID] = *f
	return nil
}

func (t *memTx) LockFlight(ctx context.Context, id string) (*domain.Flight, error) {
	if err := t.fail("LockFlight"); err != nil {
		return nil, err
	}
	f, ok := t.st.flights[id]
	if !ok {
		return nil, domain.NotFoundf("flight %s not found", id)
	}
	return &f, nil
}

func (t *memTx) UpdateFlight(ctx context.Context, f *domain.Flight) error {
	if err := t.fail("UpdateFlight"); err != nil {
		return err
	}
	current, ok := t.st.flights[f.ID]
	if !ok {
		return domain.NotFoundf("flight %s not found", f.ID)
	}
	if f.FreeSeats < 0 {
		return domain.Conflictf("flight %s has no free seats left", f.ID)
	}
	if f.HasGate() && f.Status != domain.FlightStatusCancelled {
		for id, other := range t.st.flights {
			if id != f.ID && other.HasGate() && *other.Gate == *f.Gate && other.Status != domain.FlightStatusCancelled {
				return domain.Conflictf("gate %d is held by flight %s", *f.Gate, id)
			}
		}
	}
	current.FreeSeats = f.FreeSeats
	current.DelayMinutes = f.DelayMinutes
	current.Status = f.Status
	current.Gate = f.Gate
	current.UpdatedAt = t.store.now()
	f.UpdatedAt = current.UpdatedAt
	t.st.flights[f.ID] = current
	return nil
}

func (t *memTx) LockGates(ctx context.Context) error {
	return t.fail("LockGates")
}

func (t *memTx) HeldGates(ctx context.Context) (map[int]string, error) {
	if err := t.fail("HeldGates"); err != nil {
		return nil, err
	}
	held := make(map[int]string)
	for id, f := range t.st.flights {
		if f.HasGate() && f.Status != domain.FlightStatusCancelled {
			held[*f.Gate] = id
		}
	}
	return held, nil
}

func (t *memTx) InsertBooking(ctx context.Context, b *domain.Booking) error {
	if err := t.fail("InsertBooking"); err != nil {
		return err
	}
	if _, ok := t.st.flights[b.FlightID]; !ok {
		return domain.NotFoundf("flight %s not found", b.FlightID)
	}
	t.st.bookingSeq++
	b.ID = t.st.bookingSeq
	b.CreatedAt = t.store.now()
	t.st.bookings[b.ID] = *b
	return nil
}

func (t *memTx) LockBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	if err := t.fail("LockBooking"); err != nil {
		return nil, err
	}
	b, ok := t.st.bookings[id]
	if !ok {
		return nil, domain.NotFoundf("booking %d not found", id)
	}
	return &b, nil
}

func (t *memTx) UpdateBookingStatus(ctx context.Context, id int64, status domain.BookingStatus) error {
	if err := t.fail("UpdateBookingStatus"); err != nil {
		return err
	}
	b, ok := t.st.bookings[id]
	if !ok {
		return domain.NotFoundf("booking %d not found", id)
	}
	b.Status = status
	t.st.bookings[id] = b
	return nil
}

func (t *memTx) UpsertPassenger(ctx context.Context, patch domain.PassengerPatch) error {
	if err := t.fail("UpsertPassenger"); err != nil {
		return err
	}
	p, ok := t.st.passengers[patch.SSN]
	if !ok {
		p = patch.NewPassenger()
	} else {
		patch.Apply(&p)
	}
	t.st.passengers[patch.SSN] = p
	return nil
}

func (t *memTx) GetPassenger(ctx context.Context, ssn domain.SSN) (*domain.Passenger, error) {
	if err := t.fail("GetPassenger"); err != nil {
		return nil, err
	}
	p, ok := t.st.passengers[ssn]
	if !ok {
		return nil, domain.NotFoundf("passenger %s not found", ssn)
	}
	return &p, nil
}

func (t *memTx) InsertTicket(ctx context.Context, tk *domain.Ticket) error {
	if err := t.fail("InsertTicket"); err != nil {
		return err
	}
	if _, ok := t.st.ticket(tk.ID); ok {
		return domain.Conflictf("ticket %s already exists", tk.ID)
	}
	if _, ok := t.st.bookings[tk.BookingID]; !ok {
		return domain.NotFoundf("booking %d not found", tk.BookingID)
	}
	if _, ok := t.st.flights[tk.FlightID]; !ok {
		return domain.NotFoundf("flight %s not found", tk.FlightID)
	}
	if _, ok := t.st.passengers[tk.PassengerSSN]; !ok {
		return domain.NotFoundf("passenger %s not found", tk.PassengerSSN)
	}
	if tk.Seat != nil && t.st.liveBooking(tk.BookingID) {
		var clash bool
		t.st.eachTicket(func(other domain.Ticket) bool {
			if other.FlightID == tk.FlightID && other.Seat != nil && *other.Seat == *tk.Seat && t.st.liveBooking(other.BookingID) {
				clash = true
				return false
			}
			return true
		})
		if clash {
			return domain.Conflictf("seat %d on flight %s is already held", *tk.Seat, tk.FlightID)
		}
	}
	t.st.tickets.ReplaceOrInsert(ticketItem{*tk})
	return nil
}

func (t *memTx) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	if err := t.fail("GetTicket"); err != nil {
		return nil, err
	}
	tk, ok := t.st.ticket(id)
	if !ok {
		return nil, domain.NotFoundf("ticket %s not found", id)
	}
	return &tk, nil
}

func (t *memTx) DeleteTicket(ctx context.Context, id string) error {
	if err := t.fail("DeleteTicket"); err != nil {
		return err
	}
	if _, ok := t.st.ticket(id); !ok {
		return domain.NotFoundf("ticket %s not found", id)
	}
	for _, l := range t.st.luggage {
		if l.TicketID == id {
			return domain.Conflictf("ticket %s still owns luggage %d", id, l.ID)
		}
	}
	t.st.tickets.Delete(ticketItem{domain.Ticket{ID: id}})
	return nil
}

func (t *memTx) TicketsByBooking(ctx context.Context, bookingID int64) ([]domain.Ticket, error) {
	if err := t.fail("TicketsByBooking"); err != nil {
		return nil, err
	}
	return ticketsOf(t.st, bookingID), nil
}

func (t *memTx) SetCheckedIn(ctx context.Context, id string) error {
	if err := t.fail("SetCheckedIn"); err != nil {
		return err
	}
	tk, ok := t.st.ticket(id)
	if !ok {
		return domain.NotFoundf("ticket %s not found", id)
	}
	tk.CheckedIn = true
	t.st.tickets.ReplaceOrInsert(ticketItem{tk})
	return nil
}

func (t *memTx) OccupiedSeats(ctx context.Context, flightID string, excludeBookingID int64) ([]int, error) {
	if err := t.fail("OccupiedSeats"); err != nil {
		return nil, err
	}
	seats := make([]int, 0)
	t.st.eachTicket(func(tk domain.Ticket) bool {
		if tk.FlightID == flightID && tk.Seat != nil && tk.BookingID != excludeBookingID && t.st.liveBooking(tk.BookingID) {
			seats = append(seats, *tk.Seat)
		}
		return true
	})
	return seats, nil
}

func (t *memTx) sequenceBase() string {
	base := t.st.highWater
	if maxID, ok := t.st.maxTicketNumber(); ok {
		if base == "" || maxID > base {
			base = maxID
		}
	}
	return base
}

func (t *memTx) NextTicketNumber(ctx context.Context, offset int) (string, error) {
	if err := t.fail("NextTicketNumber"); err != nil {
		return "", err
	}
	base := t.sequenceBase()
	if base == "" {
		return "", domain.Generationf("no ticket number to seed the sequence from")
	}
	next, err := domain.NextTicketNumber(base, offset)
	if err != nil {
		return "", err
	}
	t.st.highWater = next
	return next, nil
}

func (t *memTx) ClaimTicketNumber(ctx context.Context, id string) error {
	if err := t.fail("ClaimTicketNumber"); err != nil {
		return err
	}
	if base := t.sequenceBase(); base != "" {
		cmp, err := domain.CompareTicketNumbers(id, base)
		if err != nil {
			return err
		}
		if cmp <= 0 {
			return domain.Conflictf("ticket number %s is not above the last issued %s", id, base)
		}
	}
	t.st.highWater = id
	return nil
}

func (t *memTx) InsertLuggage(ctx context.Context, l *domain.Luggage) error {
	if err := t.fail("InsertLuggage"); err != nil {
		return err
	}
	if _, ok := t.st.ticket(l.TicketID); !ok {
		return domain.NotFoundf("ticket %s not found", l.TicketID)
	}
	if l.TrackingID != nil {
		if err := t.trackingFree(*l.TrackingID, 0); err != nil {
			return err
		}
	}
	t.st.luggageSeq++
	l.ID = t.st.luggageSeq
	t.st.luggage[l.ID] = *l
	return nil
}

func (t *memTx) trackingFree(trackingID string, self int64) error {
	for id, other := range t.st.luggage {
		if id != self && other.TrackingID != nil && *other.TrackingID == trackingID {
			return domain.Conflictf("tracking id %s already in use", trackingID)
		}
	}
	return nil
}

func (t *memTx) LuggageByTicket(ctx context.Context, ticketID string) ([]domain.Luggage, error) {
	if err := t.fail("LuggageByTicket"); err != nil {
		return nil, err
	}
	return luggageOf(t.st, ticketID), nil
}

func (t *memTx) DeleteLuggageByTicket(ctx context.Context, ticketID string) error {
	if err := t.fail("DeleteLuggageByTicket"); err != nil {
		return err
	}
	for id, l := range t.st.luggage {
		if l.TicketID == ticketID {
			delete(t.st.luggage, id)
		}
	}
	return nil
}

func (t *memTx) LockLuggage(ctx context.Context, id int64) (*domain.Luggage, error) {
	if err := t.fail("LockLuggage"); err != nil {
		return nil, err
	}
	l, ok := t.st.luggage[id]
	if !ok {
		return nil, domain.NotFoundf("luggage %d not found", id)
	}
	return &l, nil
}

func (t *memTx) LockLuggageByTracking(ctx context.Context, trackingID string) (*domain.Luggage, error) {
	if err := t.fail("LockLuggageByTracking"); err != nil {
		return nil, err
	}
	for _, l := range t.st.luggage {
		if l.TrackingID != nil && *l.TrackingID == trackingID {
			found := l
			return &found, nil
		}
	}
	return nil, domain.NotFoundf("luggage with tracking id %s not found", trackingID)
}

func (t *memTx) UpdateLuggage(ctx context.Context, l *domain.Luggage) error {
	if err := t.fail("UpdateLuggage"); err != nil {
		return err
	}
	if _, ok := t.st.luggage[l.ID]; !ok {
		return domain.NotFoundf("luggage %d not found", l.ID)
	}
	if l.TrackingID != nil {
		if err := t.trackingFree(*l.TrackingID, l.ID); err != nil {
			return err
		}
	}
	t.st.luggage[l.ID] = *l
	return nil
}

func (t *memTx) MoveFlightLuggage(ctx context.Context, flightID string, from, to domain.LuggageStatus) (int64, error) {
	if err := t.fail("MoveFlightLuggage"); err != nil {
		return 0, err
	}
	var moved int64
	for id, l := range t.st.luggage {
		tk, ok := t.st.ticket(l.TicketID)
		if !ok || tk.FlightID != flightID || l.Status != from {
			continue
		}
		l.Status = to
		t.st.luggage[id] = l
		moved++
	}
	return moved, nil
}

var _ repository.Tx = (*memTx)(nil)
