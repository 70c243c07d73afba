package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/airport/internal/domain"
	"github.com/Domenick1991/airport/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type modifyBookingRequest struct {
	FlightID   string                   `json:"flight_id"`
	Status     domain.BookingStatus     `json:"status,omitempty"`
	Passengers []booking.PassengerInput `json:"passengers"`
	Tickets    []booking.TicketInput    `json:"tickets"`
	Luggage    []booking.LuggageInput   `json:"luggage,omitempty"`
}

type ticketNumberRequest struct {
	Offset int `json:"offset"`
}

type ticketNumberResponse struct {
	TicketNumber string `json:"ticket_number"`
}

type seatsResponse struct {
	FlightID string `json:"flight_id"`
	Occupied []int  `json:"occupied"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

// Register mounts the booking, ticket and customer routes on the API root group.
func (h *BookingHandler) Register(router *gin.RouterGroup) {
	bookings := router.Group("/bookings")
	bookings.POST("", h.create)
	bookings.GET("/:id", h.get)
	bookings.PUT("/:id", h.modify)
	bookings.DELETE("/:id", h.cancel)
	bookings.GET("/:id/tickets", h.tickets)
	bookings.GET("/:id/luggage", h.luggage)
	bookings.GET("/flights/:id/seats", h.seats)

	router.GET("/customers/:id/bookings", h.customerBookings)
	router.POST("/tickets/:id/checkin", h.checkIn)
	router.POST("/ticket-numbers", h.nextTicketNumber)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req booking.CreateBookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateBooking(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *BookingHandler) get(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	b, err := h.service.GetBooking(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) modify(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req modifyBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := h.service.ModifyBooking(c.Request.Context(), booking.ModifyBookingInput{
		BookingID:  id,
		FlightID:   req.FlightID,
		Status:     req.Status,
		Passengers: req.Passengers,
		Tickets:    req.Tickets,
		Luggage:    req.Luggage,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	b, err := h.service.DeleteBooking(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) tickets(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	tickets, err := h.service.GetTicketsForBooking(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

func (h *BookingHandler) luggage(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	items, err := h.service.GetLuggageForBooking(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// seats takes an optional exclude_booking query parameter.
func (h *BookingHandler) seats(c *gin.Context) {
	flightID := c.Param("id")
	var exclude int64
	if raw := c.Query("exclude_booking"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "invalid exclude_booking")
			return
		}
		exclude = v
	}
	occupied, err := h.service.OccupiedSeats(c.Request.Context(), flightID, exclude)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, seatsResponse{FlightID: flightID, Occupied: occupied})
}

func (h *BookingHandler) customerBookings(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	bookings, err := h.service.GetBookingsForCustomer(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func (h *BookingHandler) checkIn(c *gin.Context) {
	result, err := h.service.CheckInTicket(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *BookingHandler) nextTicketNumber(c *gin.Context) {
	var req ticketNumberRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	n, err := h.service.NextTicketNumber(c.Request.Context(), req.Offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ticketNumberResponse{TicketNumber: n})
}
