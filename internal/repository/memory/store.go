// Package memory is an in-process implementation of the repository contracts.
// Every transaction works on a private copy of the state that replaces the
// shared one only on commit, so a failed unit leaves nothing behind.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/airport/internal/domain"
	"github.com/Domenick1991/airport/internal/repository"
	"github.com/google/btree"
)

const btreeDegree = 8

type ticketItem struct {
	domain.Ticket
}

func (a ticketItem) Less(than btree.Item) bool {
	return a.ID < than.(ticketItem).ID
}

type state struct {
	flights    map[string]domain.Flight
	bookings   map[int64]domain.Booking
	passengers map[domain.SSN]domain.Passenger
	tickets    *btree.BTree
	luggage    map[int64]domain.Luggage
	highWater  string
	bookingSeq int64
	luggageSeq int64
}

func newState() *state {
	return &state{
		flights:    make(map[string]domain.Flight),
		bookings:   make(map[int64]domain.Booking),
		passengers: make(map[domain.SSN]domain.Passenger),
		tickets:    btree.New(btreeDegree),
		luggage:    make(map[int64]domain.Luggage),
	}
}

func (s *state) clone() *state {
	c := &state{
		flights:    make(map[string]domain.Flight, len(s.flights)),
		bookings:   make(map[int64]domain.Booking, len(s.bookings)),
		passengers: make(map[domain.SSN]domain.Passenger, len(s.passengers)),
		tickets:    s.tickets.Clone(),
		luggage:    make(map[int64]domain.Luggage, len(s.luggage)),
		highWater:  s.highWater,
		bookingSeq: s.bookingSeq,
		luggageSeq: s.luggageSeq,
	}
	for k, v := range s.flights {
		c.flights[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.passengers {
		c.passengers[k] = v
	}
	for k, v := range s.luggage {
		c.luggage[k] = v
	}
	return c
}

func (s *state) ticket(id string) (domain.Ticket, bool) {
	item := s.tickets.Get(ticketItem{domain.Ticket{ID: id}})
	if item == nil {
		return domain.Ticket{}, false
	}
	return item.(ticketItem).Ticket, true
}

func (s *state) eachTicket(fn func(t domain.Ticket) bool) {
	s.tickets.Ascend(func(i btree.Item) bool {
		return fn(i.(ticketItem).Ticket)
	})
}

// maxTicketNumber walks down from the largest key; placeholders sort below digits.
func (s *state) maxTicketNumber() (string, bool) {
	var found string
	s.tickets.Descend(func(i btree.Item) bool {
		id := i.(ticketItem).ID
		if domain.IsTicketNumber(id) {
			found = id
			return false
		}
		return true
	})
	return found, found != ""
}

func (s *state) liveBooking(id int64) bool {
	b, ok := s.bookings[id]
	return ok && b.Status != domain.BookingStatusCancelled
}

// Store serialises transactions with a single mutex, which gives the same
// exclusion the SQL store gets from row and advisory locks.
type Store struct {
	mu       sync.Mutex
	st       *state
	failures map[string]error
	now      func() time.Time
}

func New() *Store {
	return &Store{
		st:       newState(),
		failures: make(map[string]error),
		now:      time.Now,
	}
}

// FailOn makes every later call of the named Tx method (or "commit") return err.
// A nil err clears the injection.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// SeedTicketNumber sets the sequence high-water mark if none is stored yet.
func (s *Store) SeedTicketNumber(seed string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.highWater == "" {
		s.st.highWater = seed
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.st.clone()
	if err := fn(ctx, &memTx{st: work, store: s}); err != nil {
		return err
	}
	if err := s.failures["commit"]; err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) ListFlights(ctx context.Context) ([]domain.Flight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flights := make([]domain.Flight, 0, len(s.st.flights))
	for _, f := range s.st.flights {
		flights = append(flights, f)
	}
	sort.Slice(flights, func(i, j int) bool {
		if !flights[i].DepartureTime.Equal(flights[j].DepartureTime) {
			return flights[i].DepartureTime.Before(flights[j].DepartureTime)
		}
		return flights[i].ID < flights[j].ID
	})
	return flights, nil
}

func (s *Store) GetFlight(ctx context.Context, id string) (*domain.Flight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.st.flights[id]
	if !ok {
		return nil, domain.NotFoundf("flight %s not found", id)
	}
	return &f, nil
}

func (s *Store) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.st.bookings[id]
	if !ok {
		return nil, domain.NotFoundf("booking %d not found", id)
	}
	return &b, nil
}

func (s *Store) TicketsForBooking(ctx context.Context, bookingID int64) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ticketsOf(s.st, bookingID), nil
}

func (s *Store) LuggageForBooking(ctx context.Context, bookingID int64) ([]domain.Luggage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]domain.Luggage, 0)
	for _, t := range ticketsOf(s.st, bookingID) {
		items = append(items, luggageOf(s.st, t.ID)...)
	}
	return items, nil
}

func (s *Store) BookingsForCustomer(ctx context.Context, customerID int64) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookings := make([]domain.Booking, 0)
	for _, b := range s.st.bookings {
		if b.CustomerID == customerID {
			bookings = append(bookings, b)
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ID < bookings[j].ID })
	return bookings, nil
}

func (s *Store) LostLuggageReport(ctx context.Context) ([]domain.LostLuggage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := make([]domain.LostLuggage, 0)
	for _, l := range s.st.luggage {
		if l.Status != domain.LuggageStatusLost {
			continue
		}
		row := domain.LostLuggage{Luggage: l}
		if t, ok := s.st.ticket(l.TicketID); ok {
			row.BookingID = t.BookingID
			row.FlightID = t.FlightID
			row.PassengerSSN = t.PassengerSSN
			if p, ok := s.st.passengers[t.PassengerSSN]; ok {
				if p.FirstName != nil {
					row.FirstName = *p.FirstName
				}
				if p.LastName != nil {
					row.LastName = *p.LastName
				}
			}
		}
		report = append(report, row)
	}
	sort.Slice(report, func(i, j int) bool { return report[i].ID < report[j].ID })
	return report, nil
}

func ticketsOf(st *state, bookingID int64) []domain.Ticket {
	tickets := make([]domain.Ticket, 0)
	st.eachTicket(func(t domain.Ticket) bool {
		if t.BookingID == bookingID {
			tickets = append(tickets, t)
		}
		return true
	})
	return tickets
}

func luggageOf(st *state, ticketID string) []domain.Luggage {
	items := make([]domain.Luggage, 0)
	for _, l := range st.luggage {
		if l.TicketID == ticketID {
			items = append(items, l)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

var _ repository.Store = (*Store)(nil)
var _ repository.Queries = (*Store)(nil)
