package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/airport/internal/domain"
	"github.com/Domenick1991/airport/internal/kafka"
	"github.com/Domenick1991/airport/internal/logging"
	"github.com/Domenick1991/airport/internal/repository"
	"github.com/Domenick1991/airport/internal/repository/memory"
	"github.com/Domenick1991/airport/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock структуры

type MockSeatLocker struct {
	mock.Mock
}

func (m *MockSeatLocker) AcquireSeatLock(ctx context.Context, flightID string, seat int, token string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, flightID, seat, token, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockSeatLocker) ReleaseSeatLock(ctx context.Context, flightID string, seat int, token string) error {
	args := m.Called(ctx, flightID, seat, token)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func seat(n int) *int { return &n }

func newStore(t *testing.T, flights ...domain.Flight) *memory.Store {
	t.Helper()
	store := memory.New()
	store.SeedTicketNumber("0000000000100")
	err := store.WithTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		for i := range flights {
			if err := tx.InsertFlight(ctx, &flights[i]); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return store
}

func testFlight(id string, seats int) domain.Flight {
	return domain.Flight{
		ID:        id,
		Company:   "Aero",
		Date:      time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		MaxSeats:  seats,
		FreeSeats: seats,
		Status:    domain.FlightStatusProgrammed,
		Direction: domain.DirectionDeparting,
		City:      "Rome",
	}
}

func newService(store *memory.Store, opts ...BookingServiceOption) *BookingService {
	return NewBookingService(store, store, logging.Discard(), opts...)
}

func twoPassengers(seatA, seatB *int) CreateBookingInput {
	return CreateBookingInput{
		CustomerID: 7,
		FlightID:   "AZ100",
		Passengers: []PassengerInput{{SSN: "AAA111"}, {SSN: "BBB222"}},
		Tickets: []TicketInput{
			{PassengerSSN: "AAA111", Seat: seatA},
			{PassengerSSN: "BBB222", Seat: seatB},
		},
	}
}

func freeSeats(t *testing.T, store *memory.Store, id string) int {
	t.Helper()
	f, err := store.GetFlight(context.Background(), id)
	require.NoError(t, err)
	return f.FreeSeats
}

// ============================ Тесты для BookingService ============================

func TestBookingService_CreateBooking_Success(t *testing.T) {
	store := newStore(t, testFlight("AZ100", 100))
	svc := newService(store)

	input := twoPassengers(seat(4), seat(5))
	input.Luggage = []LuggageInput{{PassengerSSN: "AAA111", Type: "checked"}, {PassengerSSN: "BBB222", Type: "CARRY_ON"}}

	res, err := svc.CreateBooking(context.Background(), input)
	require.NoError(t, err)
	assert.NotZero(t, res.Booking.ID)
	assert.Equal(t, domain.BookingStatusPending, res.Booking.Status)
	require.Len(t, res.Tickets, 2)
	assert.Equal(t, "0000000000101", res.Tickets[0].ID)
	assert.Equal(t, "0000000000102", res.Tickets[1].ID)
	require.Len(t, res.Luggage, 2)
	assert.Equal(t, res.Tickets[0].ID, res.Luggage[0].TicketID)
	assert.Equal(t, domain.LuggageTypeCarryOn, res.Luggage[1].Type)
	assert.Equal(t, domain.LuggageStatusBooked, res.Luggage[1].Status)
	assert.Equal(t, 98, freeSeats(t, store, "AZ100"))

	seats, err := svc.OccupiedSeats(context.Background(), "AZ100", 0)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, seats)
}

func TestBookingService_CreateBooking_DuplicateSeatInRequest(t *testing.T) {
	store := newStore(t, testFlight("AZ100", 100))
	svc := newService(store)

	_, err := svc.CreateBooking(context.Background(), twoPassengers(seat(5), seat(5)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Equal(t, 100, freeSeats(t, store, "AZ100"))
}

func TestBookingService_CreateBooking_SeatTaken(t *testing.T) {
	store := newStore(t, testFlight("AZ100", 100))
	svc := newService(store)

	_, err := svc.CreateBooking(context.Background(), twoPassengers(seat(1), seat(2)))
	require.NoError(t, err)

	input := twoPassengers(seat(2), seat(3))
	input.Passengers = []PassengerInput{{SSN: "CCC333"}, {SSN: "DDD444"}}
	input.Tickets[0].PassengerSSN, input.Tickets[1].PassengerSSN = "CCC333", "DDD444"

	_, err = svc.CreateBooking(context.Background(), input)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestBookingService_CreateBooking_SeatOutsideCabin(t *testing.T) {
	store := newStore(t, testFlight("AZ100", 10))
	svc := newService(store)

	_, err := svc.CreateBooking(context.Background(), twoPassengers(seat(1), seat(10)))
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestBookingService_CreateBooking_NotEnoughSeats(t *testing.T) {
	store := newStore(t, testFlight("AZ100", 1))
	svc := newService(store)

	_, err := svc.CreateBooking(context.Background(), twoPassengers(nil, nil))
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestBookingService_CreateBooking_Validation(t *testing.T) {
	store := newStore(t, testFlight("AZ100", 100))
	svc := newService(store)

	tests := []struct {
		name  string
		input func() CreateBookingInput
	}{
		{"no customer", func() CreateBookingInput { in := twoPassengers(nil, nil); in.CustomerID = 0; return in }},
		{"no flight", func() CreateBookingInput { in := twoPassengers(nil, nil); in.FlightID = ""; return in }},
		{"cancelled status", func() CreateBookingInput {
			in := twoPassengers(nil, nil)
			in.Status = domain.BookingStatusCancelled
			return in
		}},
		{"bad ssn", func() CreateBookingInput { in := twoPassengers(nil, nil); in.Passengers[0].SSN = "x"; return in }},
		{"passenger without ticket", func() CreateBookingInput { in := twoPassengers(nil, nil); in.Tickets = in.Tickets[:1]; return in }},
		{"ticket without passenger", func() CreateBookingInput {
			in := twoPassengers(nil, nil)
			in.Tickets[1].PassengerSSN = "ZZZ999"
			return in
		}},
		{"bad ticket id", func() CreateBookingInput { in := twoPassengers(nil, nil); in.Tickets[0].ID = "12"; return in }},
		{"negative seat", func() CreateBookingInput { return twoPassengers(seat(-1), nil) }},
		{"unknown luggage type", func() CreateBookingInput {
			in := twoPassengers(nil, nil)
			in.Luggage = []LuggageInput{{PassengerSSN: "AAA111", Type: "crate"}}
			return in
		}},
		{"luggage without owner", func() CreateBookingInput {
			in := twoPassengers(nil, nil)
			in.Luggage = []LuggageInput{{Type: "checked"}}
			return in
		}},
		{"future birth date", func() CreateBookingInput {
			in := twoPassengers(nil, nil)
			future := time.Now().AddDate(1, 0, 0)
			in.Passengers[0].BirthDate = &future
			return in
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateBooking(context.Background(), tt.input())
			assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)
		})
	}
	assert.Equal(t, 100, freeSeats(t, store, "AZ100"))
}

func TestBookingService_CreateBooking_FlightNotFound(t *testing.T) {
	store := newStore(t)
	svc := newService(store)

	_, err := svc.CreateBooking(context.Background(), twoPassengers(nil, nil))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestBookingService_CreateBooking_ClosedFlight(t *testing.T) {
	flight := testFlight("AZ100", 100)
	flight.Status = domain.FlightStatusDeparted
	store := newStore(t, flight)
	svc := newService(store)

	_, err := svc.CreateBooking(context.Background(), twoPassengers(nil, nil))
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestBookingService_CreateBooking_AtomicOnLuggageFailure(t *testing.T) {
	store := newStore(t, testFlight("AZ100", 100))
	store.FailOn("InsertLuggage", errors.New("disk full"))
	svc := newService(store)

	input := twoPassengers(seat(1), seat(2))
	input.Luggage = []LuggageInput{{PassengerSSN: "AAA111", Type: "checked"}}

	_, err := svc.CreateBooking(context.Background(), input)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTransaction))
	assert.Equal(t, domain.KindTransaction, domain.KindOf(err))

	assert.Equal(t, 100, freeSeats(t, store, "AZ100"))
	bookings, err := store.BookingsForCustomer(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, bookings)

	// номера билетов из откаченной транзакции не расходуются
	store.FailOn("InsertLuggage", nil)
	res, err := svc.CreateBooking(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "0000000000101", res.Tickets[0].ID)
}

func TestBookingService_CreateBooking_CommitFailure(t *testing.T) {
	store := newStore(t, testFlight("AZ100", 100))
	store.FailOn("commit", errors.New("connection reset"))
	svc := newService(store)

	_, err := svc.CreateBooking(context.Background(), twoPassengers(nil, nil))
	assert.True(t, errors.Is(err, domain.ErrTransaction))
	assert.Equal(t, 100, freeSeats(t, store, "AZ100"))
}

func TestBookingService_CreateBooking_GenerationFailure(t *testing.T) {
	store := memory.New()
	flight := testFlight("AZ100", 100)
	require.NoError(t, store.WithTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.InsertFlight(ctx, &flight)
	}))
	svc := newService(store)

	_, err := svc.CreateBooking(context.Background(), twoPassengers(nil, nil))
	assert.True(t, errors.Is(err, domain.ErrGeneration))
}

func TestBookingService_CreateBooking_SeatLocks(t *testing.T) {
	store := newStore(t, testFlight("AZ100", 100))
	locks := &MockSeatLocker{}
	var acquired, released []string
	record := func(into *[]string) func(mock.Arguments) {
		return func(args mock.Arguments) { *into = append(*into, args.String(3)) }
	}
	locks.On("AcquireSeatLock", mock.Anything, "AZ100", 4, mock.Anything, 10*time.Second).Run(record(&acquired)).Return(true, nil)
	locks.On("AcquireSeatLock", mock.Anything, "AZ100", 5, mock.Anything, 10*time.Second).Run(record(&acquired)).Return(true, nil)
	locks.On("ReleaseSeatLock", mock.Anything, "AZ100", 4, mock.Anything).Run(record(&released)).Return(nil)
	locks.On("ReleaseSeatLock", mock.Anything, "AZ100", 5, mock.Anything).Run(record(&released)).Return(nil)
	svc := newService(store, WithSeatLocks(locks, 10*time.Second))

	_, err := svc.CreateBooking(context.Background(), twoPassengers(seat(5), seat(4)))
	require.NoError(t, err)
	locks.AssertExpectations(t)

	// один токен на запрос: освобождаем только свои удержания
	require.Len(t, acquired, 2)
	require.Len(t, released, 2)
	assert.NotEmpty(t, acquired[0])
	assert.Equal(t, acquired[0], acquired[1])
	assert.Equal(t, []string{acquired[0], acquired[0]}, released)

	_, err = svc.CreateBooking(context.Background(), CreateBookingInput{
		CustomerID: 8,
		FlightID:   "AZ100",
		Passengers: []PassengerInput{{SSN: "CCC333"}},
		Tickets:    []TicketInput{{PassengerSSN: "CCC333", Seat: seat(4)}},
	})
	assert.True(t, errors.Is(err, domain.ErrConflict))
	require.Len(t, acquired, 3)
	assert.NotEqual(t, acquired[0], acquired[2])
}

func TestBookingService_CreateBooking_SeatHeldElsewhere(t *testing.T) {
	store := newStore(t, testFlight("AZ100", 100))
	locks := &MockSeatLocker{}
	locks.On("AcquireSeatLock", mock.Anything, "AZ100", 4, mock.Anything, mock.Anything).Return(true, nil)
	locks.On("AcquireSeatLock", mock.Anything, "AZ100", 5, mock.Anything, mock.Anything).Return(false, nil)
	locks.On("ReleaseSeatLock", mock.Anything, "AZ100", 4, mock.Anything).Return(nil)
	svc := newService(store, WithSeatLocks(locks, time.Second))

	_, err := svc.CreateBooking(context.Background(), twoPassengers(seat(4), seat(5)))
	assert.True(t, errors.Is(err, domain.ErrConflict))
	locks.AssertExpectations(t)
	assert.Equal(t, 100, freeSeats(t, store, "AZ100"))
}

func TestBookingService_CreateBooking_LockServiceDown(t *testing.T) {
	store := newStore(t, testFlight("AZ100", 100))
	locks := &MockSeatLocker{}
	locks.On("AcquireSeatLock", mock.Anything, "AZ100", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("redis down"))
	svc := newService(store, WithSeatLocks(locks, time.Second))

	_, err := svc.CreateBooking(context.Background(), twoPassengers(seat(4), seat(5)))
	require.NoError(t, err)
	locks.AssertNotCalled(t, "ReleaseSeatLock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_CreateBooking_PublishesEvent(t *testing.T) {
	store := newStore(t, testFlight("AZ100", 100))
	producer := &MockProducer{}
	producer.On("Publish", mock.Anything, "booking-events", "booking-1", mock.MatchedBy(func(e kafka.Event) bool {
		return e.Type == kafka.EventBookingCreated && e.Tickets == 2 && e.EventID != ""
	})).Return(errors.New("broker unavailable"))
	svc := newService(store, WithEvents(service.NewEvents(producer, logging.Discard(), "booking-events")))

	res, err := svc.CreateBooking(context.Background(), twoPassengers(nil, nil))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Booking.ID)
	producer.AssertExpectations(t)
}

func TestBookingService_ModifyBooking_ReplacesContent(t *testing.T) {
	store := newStore(t, testFlight("AZ100", 100))
	svc := newService(store)
	ctx := context.Background()

	input := twoPassengers(seat(1), seat(2))
	input.Luggage = []LuggageInput{{PassengerSSN: "AAA111", Type: "checked"}}
	created, err := svc.CreateBooking(ctx, input)
	require.NoError(t, err)

	name := "Anna"
	res, err := svc.ModifyBooking(ctx, ModifyBookingInput{
		BookingID:  created.Booking.ID,
		FlightID:   "AZ100",
		Status:     domain.BookingStatusConfirmed,
		Passengers: []PassengerInput{{SSN: "aaa111", FirstName: &name}},
		Tickets:    []TicketInput{{ID: created.Tickets[0].ID, PassengerSSN: "AAA111", Seat: seat(2)}},
		Luggage:    []LuggageInput{{TicketID: created.Tickets[0].ID, Type: "carry_on"}, {Type: "checked"}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, res.Booking.Status)
	require.Len(t, res.Tickets, 1)
	assert.Equal(t, created.Tickets[0].ID, res.Tickets[0].ID)
	assert.Equal(t, 2, *res.Tickets[0].Seat)
	assert.Len(t, res.Luggage, 2)
	assert.Equal(t, 99, freeSeats(t, store, "AZ100"))

	tickets, err := svc.GetTicketsForBooking(ctx, created.Booking.ID)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.False(t, domain.IsPlaceholderTicketID(tickets[0].ID))

	luggage, err := svc.GetLuggageForBooking(ctx, created.Booking.ID)
	require.NoError(t, err)
	assert.Len(t, luggage, 2)

	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		p, err := tx.GetPassenger(ctx, "AAA111")
		require.NoError(t, err)
		require.NotNil(t, p.FirstName)
		assert.Equal(t, "Anna", *p.FirstName)
		return nil
	}))
}

func TestBookingService_ModifyBooking_AtomicOnFailure(t *testing.T) {
	store := newStore(t, testFlight("AZ100", 100))
	svc := newService(store)
	ctx := context.Background()

	created, err := svc.CreateBooking(ctx, twoPassengers(seat(1), seat(2)))
	require.NoError(t, err)

	store.FailOn("InsertLuggage", errors.New("timeout"))
	_, err = svc.ModifyBooking(ctx, ModifyBookingInput{
		BookingID:  created.Booking.ID,
		FlightID:   "AZ100",
		Passengers: []PassengerInput{{SSN: "CCC333"}},
		Tickets:    []TicketInput{{PassengerSSN: "CCC333", Seat: seat(9)}},
		Luggage:    []LuggageInput{{Type: "checked"}},
	})
	assert.True(t, errors.Is(err, domain.ErrTransaction))

	tickets, err := svc.GetTicketsForBooking(ctx, created.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Tickets, tickets)
	assert.Equal(t, 98, freeSeats(t, store, "AZ100"))
}

func TestBookingService_ModifyBooking_KeepsOwnSeats(t *testing.T) {
	store := newStore(t, testFlight("AZ100", 100))
	svc := newService(store)
	ctx := context.Background()

	created, err := svc.CreateBooking(ctx, twoPassengers(seat(1), seat(2)))
	require.NoError(t, err)

	in := ModifyBookingInput{BookingID: created.Booking.ID, FlightID: "AZ100"}
	in.Passengers = []PassengerInput{{SSN: "AAA111"}, {SSN: "BBB222"}}
	in.Tickets = []TicketInput{{PassengerSSN: "AAA111", Seat: seat(2)}, {PassengerSSN: "BBB222", Seat: seat(1)}}
	res, err := svc.ModifyBooking(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "0000000000103", res.Tickets[0].ID)
	assert.Equal(t, domain.BookingStatusPending, res.Booking.Status)
}

func TestBookingService_ModifyBooking_Rejections(t *testing.T) {
	store := newStore(t, testFlight("AZ100", 100), testFlight("AZ200", 100))
	svc := newService(store)
	ctx := context.Background()

	created, err := svc.CreateBooking(ctx, twoPassengers(nil, nil))
	require.NoError(t, err)
	base := ModifyBookingInput{
		BookingID:  created.Booking.ID,
		FlightID:   "AZ100",
		Passengers: []PassengerInput{{SSN: "AAA111"}},
		Tickets:    []TicketInput{{PassengerSSN: "AAA111"}},
	}

	wrongFlight := base
	wrongFlight.FlightID = "AZ200"
	_, err = svc.ModifyBooking(ctx, wrongFlight)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	missing := base
	missing.BookingID = 999
	_, err = svc.ModifyBooking(ctx, missing)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = svc.DeleteBooking(ctx, created.Booking.ID)
	require.NoError(t, err)
	_, err = svc.ModifyBooking(ctx, base)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestBookingService_ModifyBooking_ConfirmedCannotGoBack(t *testing.T) {
	store := newStore(t, testFlight("AZ100", 100))
	svc := newService(store)
	ctx := context.Background()

	input := twoPassengers(nil, nil)
	input.Status = domain.BookingStatusConfirmed
	created, err := svc.CreateBooking(ctx, input)
	require.NoError(t, err)

	_, err = svc.ModifyBooking(ctx, ModifyBookingInput{
		BookingID:  created.Booking.ID,
		FlightID:   "AZ100",
		Status:     domain.BookingStatusPending,
		Passengers: []PassengerInput{{SSN: "AAA111"}},
		Tickets:    []TicketInput{{PassengerSSN: "AAA111"}},
	})
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestBookingService_DeleteBooking(t *testing.T) {
	store := newStore(t, testFlight("AZ100", 100))
	svc := newService(store)
	ctx := context.Background()

	created, err := svc.CreateBooking(ctx, twoPassengers(seat(1), seat(2)))
	require.NoError(t, err)
	assert.Equal(t, 98, freeSeats(t, store, "AZ100"))

	cancelled, err := svc.DeleteBooking(ctx, created.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)
	assert.Equal(t, 100, freeSeats(t, store, "AZ100"))

	// повторная отмена ничего не меняет
	again, err := svc.DeleteBooking(ctx, created.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, again.Status)
	assert.Equal(t, 100, freeSeats(t, store, "AZ100"))

	stored, err := svc.GetBooking(ctx, created.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, stored.Status)

	seats, err := svc.OccupiedSeats(ctx, "AZ100", 0)
	require.NoError(t, err)
	assert.Empty(t, seats)

	_, err = svc.CreateBooking(ctx, twoPassengers(seat(1), seat(2)))
	require.NoError(t, err)
}

func TestBookingService_DeleteBooking_NotFound(t *testing.T) {
	svc := newService(newStore(t))
	_, err := svc.DeleteBooking(context.Background(), 42)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestBookingService_OccupiedSeats_ExcludesBooking(t *testing.T) {
	store := newStore(t, testFlight("AZ100", 100))
	svc := newService(store)
	ctx := context.Background()

	first, err := svc.CreateBooking(ctx, twoPassengers(seat(7), seat(3)))
	require.NoError(t, err)
	second := twoPassengers(seat(8), nil)
	second.Passengers = []PassengerInput{{SSN: "CCC333"}, {SSN: "DDD444"}}
	second.Tickets[0].PassengerSSN, second.Tickets[1].PassengerSSN = "CCC333", "DDD444"
	_, err = svc.CreateBooking(ctx, second)
	require.NoError(t, err)

	seats, err := svc.OccupiedSeats(ctx, "AZ100", 0)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 7, 8}, seats)

	seats, err = svc.OccupiedSeats(ctx, "AZ100", first.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{8}, seats)

	_, err = svc.OccupiedSeats(ctx, "XX1", 0)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestBookingService_NextTicketNumber(t *testing.T) {
	ctx := context.Background()

	t.Run("rereads the maximum", func(t *testing.T) {
		store := memory.New()
		store.SeedTicketNumber("0000000000005")
		svc := newService(store)

		n, err := svc.NextTicketNumber(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, "0000000000006", n)

		n, err = svc.NextTicketNumber(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, "0000000000009", n)
	})

	t.Run("fresh seed", func(t *testing.T) {
		store := memory.New()
		store.SeedTicketNumber("0000000000005")
		n, err := newService(store).NextTicketNumber(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, "0000000000008", n)
	})

	t.Run("no seed", func(t *testing.T) {
		_, err := newService(memory.New()).NextTicketNumber(ctx, 0)
		assert.True(t, errors.Is(err, domain.ErrGeneration))
	})

	t.Run("negative offset", func(t *testing.T) {
		_, err := newService(memory.New()).NextTicketNumber(ctx, -1)
		assert.True(t, errors.Is(err, domain.ErrValidation))
	})

	t.Run("explicit ticket ids raise the maximum", func(t *testing.T) {
		store := newStore(t, testFlight("AZ100", 100))
		svc := newService(store)
		input := twoPassengers(nil, nil)
		input.Tickets[0].ID = "0000000005000"
		_, err := svc.CreateBooking(ctx, input)
		require.NoError(t, err)

		n, err := svc.NextTicketNumber(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, "0000000005002", n)
	})
}

func TestBookingService_GetBookingsForCustomer(t *testing.T) {
	store := newStore(t, testFlight("AZ100", 100))
	svc := newService(store)
	ctx := context.Background()

	bookings, err := svc.GetBookingsForCustomer(ctx, 7)
	require.NoError(t, err)
	assert.NotNil(t, bookings)
	assert.Empty(t, bookings)

	_, err = svc.CreateBooking(ctx, twoPassengers(nil, nil))
	require.NoError(t, err)
	bookings, err = svc.GetBookingsForCustomer(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}

func TestBookingService_ModifyBooking_CancelReleasesSeats(t *testing.T) {
	store := newStore(t, testFlight("AZ100", 100))
	producer := &MockProducer{}
	producer.On("Publish", mock.Anything, "booking-events", mock.Anything, mock.MatchedBy(func(e kafka.Event) bool {
		return e.Type == kafka.EventBookingCreated
	})).Return(nil).Once()
	producer.On("Publish", mock.Anything, "booking-events", mock.Anything, mock.MatchedBy(func(e kafka.Event) bool {
		return e.Type == kafka.EventBookingCancelled
	})).Return(nil).Once()
	svc := newService(store, WithEvents(service.NewEvents(producer, logging.Discard(), "booking-events")))
	ctx := context.Background()

	created, err := svc.CreateBooking(ctx, twoPassengers(seat(1), seat(2)))
	require.NoError(t, err)
	assert.Equal(t, 98, freeSeats(t, store, "AZ100"))

	res, err := svc.ModifyBooking(ctx, ModifyBookingInput{
		BookingID:  created.Booking.ID,
		FlightID:   "AZ100",
		Status:     domain.BookingStatusCancelled,
		Passengers: []PassengerInput{{SSN: "AAA111"}, {SSN: "BBB222"}},
		Tickets:    []TicketInput{{PassengerSSN: "AAA111", Seat: seat(1)}, {PassengerSSN: "BBB222", Seat: seat(2)}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, res.Booking.Status)
	// отмена через изменение возвращает места так же, как DeleteBooking
	assert.Equal(t, 100, freeSeats(t, store, "AZ100"))

	seats, err := svc.OccupiedSeats(ctx, "AZ100", 0)
	require.NoError(t, err)
	assert.Empty(t, seats)
	producer.AssertExpectations(t)
}

func TestBookingService_TicketNumbersNeverReused(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit id below the last issued", func(t *testing.T) {
		store := newStore(t, testFlight("AZ100", 100))
		svc := newService(store)
		input := twoPassengers(nil, nil)
		input.Tickets[0].ID = "0000000000050"

		_, err := svc.CreateBooking(ctx, input)
		assert.True(t, errors.Is(err, domain.ErrConflict))
		assert.Equal(t, 100, freeSeats(t, store, "AZ100"))
	})

	t.Run("id dropped by a modify", func(t *testing.T) {
		store := newStore(t, testFlight("AZ100", 100))
		svc := newService(store)
		input := twoPassengers(nil, nil)
		input.Tickets[0].ID = "0000000000500"
		created, err := svc.CreateBooking(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, "0000000000501", created.Tickets[1].ID)

		_, err = svc.ModifyBooking(ctx, ModifyBookingInput{
			BookingID:  created.Booking.ID,
			FlightID:   "AZ100",
			Passengers: []PassengerInput{{SSN: "CCC333"}},
			Tickets:    []TicketInput{{PassengerSSN: "CCC333"}},
		})
		require.NoError(t, err)

		again := twoPassengers(nil, nil)
		again.Tickets[0].ID = "0000000000500"
		_, err = svc.CreateBooking(ctx, again)
		assert.True(t, errors.Is(err, domain.ErrConflict))

		n, err := svc.NextTicketNumber(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, "0000000000503", n)
	})

	t.Run("modify keeps its own numbers", func(t *testing.T) {
		store := newStore(t, testFlight("AZ100", 100))
		svc := newService(store)
		created, err := svc.CreateBooking(ctx, twoPassengers(nil, nil))
		require.NoError(t, err)

		res, err := svc.ModifyBooking(ctx, ModifyBookingInput{
			BookingID:  created.Booking.ID,
			FlightID:   "AZ100",
			Passengers: []PassengerInput{{SSN: "BBB222"}},
			Tickets:    []TicketInput{{ID: created.Tickets[1].ID, PassengerSSN: "BBB222"}},
		})
		require.NoError(t, err)
		assert.Equal(t, created.Tickets[1].ID, res.Tickets[0].ID)
	})
}

func TestBookingService_CreateBooking_ConcurrentSameSeat(t *testing.T) {
	const callers = 12
	store := newStore(t, testFlight("AZ100", 100))
	svc := newService(store)

	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ssn := fmt.Sprintf("PAX%04d", i)
			_, errs[i] = svc.CreateBooking(context.Background(), CreateBookingInput{
				CustomerID: int64(i + 1),
				FlightID:   "AZ100",
				Passengers: []PassengerInput{{SSN: ssn}},
				Tickets:    []TicketInput{{PassengerSSN: ssn, Seat: seat(5)}},
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrConflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 99, freeSeats(t, store, "AZ100"))

	seats, err := svc.OccupiedSeats(context.Background(), "AZ100", 0)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, seats)
}

func TestBookingService_NextTicketNumber_Concurrent(t *testing.T) {
	const callers = 50
	store := memory.New()
	store.SeedTicketNumber("0000000000100")
	svc := newService(store)

	numbers := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			numbers[i], errs[i] = svc.NextTicketNumber(context.Background(), 0)
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, callers)
	for i, n := range numbers {
		require.NoError(t, errs[i])
		assert.True(t, domain.IsTicketNumber(n))
		assert.False(t, seen[n], "ticket number %s issued twice", n)
		seen[n] = true
	}
	assert.Len(t, seen, callers)
	assert.True(t, seen["0000000000101"])
	assert.True(t, seen["0000000000150"])
}
