package booking

import (
	"context"
	"sort"
	"time"

	"github.com/Domenick1991/airport/internal/domain"
	"github.com/Domenick1991/airport/internal/repository"
)

type PassengerInput struct {
	SSN       string     `json:"ssn"`
	FirstName *string    `json:"first_name,omitempty"`
	LastName  *string    `json:"last_name,omitempty"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
}

// TicketInput leaves ID empty to have a ticket number allocated. Seat is zero-based.
type TicketInput struct {
	ID           string `json:"id,omitempty"`
	PassengerSSN string `json:"passenger_ssn"`
	Seat         *int   `json:"seat,omitempty"`
}

// LuggageInput names its owning ticket by ID or by the ticket's passenger.
type LuggageInput struct {
	TicketID     string `json:"ticket_id,omitempty"`
	PassengerSSN string `json:"passenger_ssn,omitempty"`
	Type         string `json:"type"`
}

type plannedLuggage struct {
	ticket int
	typ    domain.LuggageType
}

// plan is a validated booking content: one ticket per passenger.
type plan struct {
	passengers []domain.PassengerPatch
	tickets    []domain.Ticket
	luggage    []plannedLuggage
}

func buildPlan(passengers []PassengerInput, tickets []TicketInput, luggage []LuggageInput) (*plan, error) {
	if len(passengers) == 0 {
		return nil, domain.Validationf("at least one passenger is required")
	}
	if len(tickets) == 0 {
		return nil, domain.Validationf("at least one ticket is required")
	}

	p := &plan{}
	known := make(map[domain.SSN]bool, len(passengers))
	for _, in := range passengers {
		ssn, err := domain.ParseSSN(in.SSN)
		if err != nil {
			return nil, err
		}
		if known[ssn] {
			return nil, domain.Validationf("passenger %s is listed twice", ssn)
		}
		known[ssn] = true
		patch := domain.PassengerPatch{
			SSN:       ssn,
			FirstName: domain.OptionalFrom(in.FirstName),
			LastName:  domain.OptionalFrom(in.LastName),
			BirthDate: domain.OptionalFrom(in.BirthDate),
		}
		if err := patch.Validate(); err != nil {
			return nil, err
		}
		p.passengers = append(p.passengers, patch)
	}

	ticketed := make(map[domain.SSN]int, len(tickets))
	ids := make(map[string]bool, len(tickets))
	seats := make(map[int]bool, len(tickets))
	for i, in := range tickets {
		ssn, err := domain.ParseSSN(in.PassengerSSN)
		if err != nil {
			return nil, err
		}
		if !known[ssn] {
			return nil, domain.Validationf("ticket for %s has no matching passenger", ssn)
		}
		if _, dup := ticketed[ssn]; dup {
			return nil, domain.Validationf("passenger %s has more than one ticket", ssn)
		}
		ticketed[ssn] = i

		if in.ID != "" {
			if !domain.IsTicketNumber(in.ID) {
				return nil, domain.Validationf("ticket id %q is not a %d-digit ticket number", in.ID, domain.TicketNumberDigits)
			}
			if ids[in.ID] {
				return nil, domain.Validationf("ticket id %s is used twice", in.ID)
			}
			ids[in.ID] = true
		}

		var seat *int
		if in.Seat != nil {
			if *in.Seat < 0 {
				return nil, domain.Validationf("seat %d is invalid", *in.Seat)
			}
			if seats[*in.Seat] {
				return nil, domain.Conflictf("seat %d is requested twice", *in.Seat)
			}
			seats[*in.Seat] = true
			v := *in.Seat
			seat = &v
		}
		p.tickets = append(p.tickets, domain.Ticket{ID: in.ID, PassengerSSN: ssn, Seat: seat})
	}
	for ssn := range known {
		if _, ok := ticketed[ssn]; !ok {
			return nil, domain.Validationf("passenger %s has no ticket", ssn)
		}
	}

	for _, in := range luggage {
		typ, err := domain.ParseLuggageType(in.Type)
		if err != nil {
			return nil, err
		}
		idx, err := p.ticketFor(in, ticketed)
		if err != nil {
			return nil, err
		}
		p.luggage = append(p.luggage, plannedLuggage{ticket: idx, typ: typ})
	}
	return p, nil
}

func (p *plan) ticketFor(in LuggageInput, ticketed map[domain.SSN]int) (int, error) {
	switch {
	case in.TicketID != "":
		for i, t := range p.tickets {
			if t.ID == in.TicketID {
				return i, nil
			}
		}
		return 0, domain.Validationf("luggage references unknown ticket %s", in.TicketID)
	case in.PassengerSSN != "":
		ssn, err := domain.ParseSSN(in.PassengerSSN)
		if err != nil {
			return 0, err
		}
		idx, ok := ticketed[ssn]
		if !ok {
			return 0, domain.Validationf("luggage references unknown passenger %s", ssn)
		}
		return idx, nil
	case len(p.tickets) == 1:
		return 0, nil
	}
	return 0, domain.Validationf("luggage must name its ticket or passenger")
}

// seats returns the requested seats in ascending order.
func (p *plan) seats() []int {
	seats := make([]int, 0, len(p.tickets))
	for _, t := range p.tickets {
		if t.Seat != nil {
			seats = append(seats, *t.Seat)
		}
	}
	sort.Ints(seats)
	return seats
}

// checkSeats rejects seats outside the cabin or held by another live booking.
func checkSeats(ctx context.Context, tx repository.Tx, flight *domain.Flight, excludeBookingID int64, p *plan) error {
	requested := p.seats()
	if len(requested) == 0 {
		return nil
	}
	for _, seat := range requested {
		if seat >= flight.MaxSeats {
			return domain.Validationf("seat %d is outside flight %s (%d seats)", seat, flight.ID, flight.MaxSeats)
		}
	}
	occupied, err := tx.OccupiedSeats(ctx, flight.ID, excludeBookingID)
	if err != nil {
		return err
	}
	taken := make(map[int]bool, len(occupied))
	for _, seat := range occupied {
		taken[seat] = true
	}
	for _, seat := range requested {
		if taken[seat] {
			return domain.Conflictf("seat %d on flight %s is already held", seat, flight.ID)
		}
	}
	return nil
}

// writeContents applies passengers, tickets and luggage in that order.
// Explicit ticket numbers must lie above everything issued so far, except the
// numbers in own, which the booking held before this write.
func writeContents(ctx context.Context, tx repository.Tx, booking *domain.Booking, p *plan, own map[string]bool) ([]domain.Ticket, []domain.Luggage, error) {
	for _, patch := range p.passengers {
		if err := tx.UpsertPassenger(ctx, patch); err != nil {
			return nil, nil, err
		}
	}

	tickets := make([]domain.Ticket, 0, len(p.tickets))
	for _, planned := range p.tickets {
		t := planned
		t.BookingID = booking.ID
		t.FlightID = booking.FlightID
		switch {
		case t.ID == "":
			id, err := tx.NextTicketNumber(ctx, 0)
			if err != nil {
				return nil, nil, err
			}
			t.ID = id
		case !own[t.ID]:
			if err := tx.ClaimTicketNumber(ctx, t.ID); err != nil {
				return nil, nil, err
			}
		}
		if err := tx.InsertTicket(ctx, &t); err != nil {
			return nil, nil, err
		}
		tickets = append(tickets, t)
	}

	items := make([]domain.Luggage, 0, len(p.luggage))
	for _, planned := range p.luggage {
		l := domain.Luggage{
			Type:     planned.typ,
			Status:   domain.LuggageStatusBooked,
			TicketID: tickets[planned.ticket].ID,
		}
		if err := tx.InsertLuggage(ctx, &l); err != nil {
			return nil, nil, err
		}
		items = append(items, l)
	}
	return tickets, items, nil
}
