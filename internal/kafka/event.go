package kafka

import (
	"strconv"
	"time"
)

// Event types published on the booking events topic.
const (
	EventBookingCreated      = "booking_created"
	EventBookingModified     = "booking_modified"
	EventBookingCancelled    = "booking_cancelled"
	EventTicketCheckedIn     = "ticket_checked_in"
	EventFlightCreated       = "flight_created"
	EventFlightStatusChanged = "flight_status_changed"
	EventFlightDelayed       = "flight_delayed"
	EventGateAssigned        = "gate_assigned"
	EventLuggageLoaded       = "luggage_loaded"
	EventLuggageLost         = "luggage_lost"
)

type Event struct {
	Type       string    `json:"type"`
	EventID    string    `json:"event_id"`
	BookingID  int64     `json:"booking_id,omitempty"`
	CustomerID int64     `json:"customer_id,omitempty"`
	FlightID   string    `json:"flight_id,omitempty"`
	TicketID   string    `json:"ticket_id,omitempty"`
	TrackingID string    `json:"tracking_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	Gate       int       `json:"gate,omitempty"`
	Delay      int       `json:"delay_minutes,omitempty"`
	Tickets    int       `json:"tickets,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Key partitions booking events by booking and the rest by flight.
func (e Event) Key() string {
	if e.BookingID != 0 {
		return "booking-" + strconv.FormatInt(e.BookingID, 10)
	}
	if e.FlightID != "" {
		return "flight-" + e.FlightID
	}
	return e.EventID
}
