package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Domenick1991/airport/internal/domain"
	"github.com/Domenick1991/airport/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockBookingUseCase is a mock implementation of booking.BookingUseCase
type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) CreateBooking(ctx context.Context, input booking.CreateBookingInput) (*booking.Result, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Result), args.Error(1)
}

func (m *MockBookingUseCase) ModifyBooking(ctx context.Context, input booking.ModifyBookingInput) (*booking.Result, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Result), args.Error(1)
}

func (m *MockBookingUseCase) DeleteBooking(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) CheckInTicket(ctx context.Context, ticketID string) (*booking.CheckIn, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.CheckIn), args.Error(1)
}

func (m *MockBookingUseCase) OccupiedSeats(ctx context.Context, flightID string, excludeBookingID int64) ([]int, error) {
	args := m.Called(ctx, flightID, excludeBookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

func (m *MockBookingUseCase) NextTicketNumber(ctx context.Context, offset int) (string, error) {
	args := m.Called(ctx, offset)
	return args.String(0), args.Error(1)
}

func (m *MockBookingUseCase) GetBooking(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) GetTicketsForBooking(ctx context.Context, bookingID int64) ([]domain.Ticket, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

func (m *MockBookingUseCase) GetLuggageForBooking(ctx context.Context, bookingID int64) ([]domain.Luggage, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Luggage), args.Error(1)
}

func (m *MockBookingUseCase) GetBookingsForCustomer(ctx context.Context, customerID int64) ([]domain.Booking, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func newTestContext(method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func TestBookingHandler_create(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	seat := 3
	input := booking.CreateBookingInput{
		CustomerID: 9,
		FlightID:   "AZ100",
		Passengers: []booking.PassengerInput{{SSN: "AAA111"}},
		Tickets:    []booking.TicketInput{{PassengerSSN: "AAA111", Seat: &seat}},
	}
	c, w := newTestContext("POST", "/api/v1/bookings", input)

	result := &booking.Result{
		Booking: domain.Booking{ID: 1, CustomerID: 9, FlightID: "AZ100", Status: domain.BookingStatusPending},
		Tickets: []domain.Ticket{{ID: "0000000000001", BookingID: 1, FlightID: "AZ100", PassengerSSN: "AAA111", Seat: &seat}},
	}
	mockService.On("CreateBooking", c.Request.Context(), input).Return(result, nil)

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var response booking.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, int64(1), response.Booking.ID)
	assert.Equal(t, "0000000000001", response.Tickets[0].ID)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_create_ErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", domain.Validationf("bad ssn"), http.StatusBadRequest},
		{"not found", domain.NotFoundf("flight AZ100 not found"), http.StatusNotFound},
		{"conflict", domain.Conflictf("seat 5 is requested twice"), http.StatusConflict},
		{"transaction", domain.Wrap("create booking", assert.AnError), http.StatusServiceUnavailable},
		{"generation", domain.Generationf("no seed"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockBookingUseCase{}
			handler := NewBookingHandler(mockService)
			c, w := newTestContext("POST", "/api/v1/bookings", booking.CreateBookingInput{FlightID: "AZ100"})
			mockService.On("CreateBooking", mock.Anything, mock.Anything).Return(nil, tt.err)

			handler.create(c)

			assert.Equal(t, tt.status, w.Code)
			var response errorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, domain.KindOf(tt.err), response.Kind)
		})
	}
}

func TestBookingHandler_create_BadJSON(t *testing.T) {
	handler := NewBookingHandler(&MockBookingUseCase{})
	c, w := newTestContext("POST", "/api/v1/bookings", nil)
	c.Request = httptest.NewRequest("POST", "/api/v1/bookings", bytes.NewBufferString("{"))

	handler.create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandler_modify(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	req := modifyBookingRequest{
		FlightID:   "AZ100",
		Status:     domain.BookingStatusConfirmed,
		Passengers: []booking.PassengerInput{{SSN: "AAA111"}},
		Tickets:    []booking.TicketInput{{PassengerSSN: "AAA111"}},
	}
	c, w := newTestContext("PUT", "/api/v1/bookings/4", req)
	c.Params = gin.Params{{Key: "id", Value: "4"}}

	expected := booking.ModifyBookingInput{
		BookingID:  4,
		FlightID:   "AZ100",
		Status:     domain.BookingStatusConfirmed,
		Passengers: req.Passengers,
		Tickets:    req.Tickets,
	}
	result := &booking.Result{Booking: domain.Booking{ID: 4, Status: domain.BookingStatusConfirmed}}
	mockService.On("ModifyBooking", c.Request.Context(), expected).Return(result, nil)

	handler.modify(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_cancel(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext("DELETE", "/api/v1/bookings/4", nil)
	c.Params = gin.Params{{Key: "id", Value: "4"}}
	mockService.On("DeleteBooking", c.Request.Context(), int64(4)).
		Return(&domain.Booking{ID: 4, Status: domain.BookingStatusCancelled}, nil)

	handler.cancel(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response domain.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, domain.BookingStatusCancelled, response.Status)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_cancel_InvalidID(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext("DELETE", "/api/v1/bookings/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	handler.cancel(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "DeleteBooking", mock.Anything, mock.Anything)
}

func TestBookingHandler_seats(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext("GET", "/api/v1/bookings/flights/AZ100/seats?exclude_booking=3", nil)
	c.Params = gin.Params{{Key: "id", Value: "AZ100"}}
	mockService.On("OccupiedSeats", c.Request.Context(), "AZ100", int64(3)).Return([]int{1, 4}, nil)

	handler.seats(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response seatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, []int{1, 4}, response.Occupied)
}

func TestBookingHandler_nextTicketNumber(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext("POST", "/api/v1/ticket-numbers", ticketNumberRequest{Offset: 2})
	mockService.On("NextTicketNumber", c.Request.Context(), 2).Return("0000000000008", nil)

	handler.nextTicketNumber(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var response ticketNumberResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "0000000000008", response.TicketNumber)
}

func TestBookingHandler_checkIn(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext("POST", "/api/v1/tickets/0000000000001/checkin", nil)
	c.Params = gin.Params{{Key: "id", Value: "0000000000001"}}
	mockService.On("CheckInTicket", c.Request.Context(), "0000000000001").
		Return(nil, domain.Conflictf("check-in for flight AZ100 is not open"))

	handler.checkIn(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBookingHandler_Routes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockService := &MockBookingUseCase{}
	router := gin.New()
	NewBookingHandler(mockService).Register(router.Group("/api/v1"))

	mockService.On("GetBookingsForCustomer", mock.Anything, int64(9)).Return([]domain.Booking{{ID: 1, CustomerID: 9}}, nil)
	mockService.On("GetTicketsForBooking", mock.Anything, int64(1)).Return([]domain.Ticket{}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/customers/9/bookings", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/bookings/1/tickets", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	mockService.AssertExpectations(t)
}
