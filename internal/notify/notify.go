package notify

import (
	"context"
	"fmt"

	"github.com/Domenick1991/airport/internal/kafka"
	"github.com/sirupsen/logrus"
)

// Sender delivers passenger-facing notices. Delivery is a structured log line;
// the message text is what a mail or SMS gateway would receive.
type Sender struct {
	logger *logrus.Logger
}

func NewSender(logger *logrus.Logger) *Sender {
	return &Sender{logger: logger}
}

func (s *Sender) Send(ctx context.Context, event kafka.Event) error {
	msg, ok := Message(event)
	if !ok {
		return nil
	}
	s.logger.WithFields(logrus.Fields{
		"event_id":    event.EventID,
		"type":        event.Type,
		"customer_id": event.CustomerID,
		"booking_id":  event.BookingID,
		"flight_id":   event.FlightID,
	}).Info(msg)
	return nil
}

// Message renders the notice for an event; ok is false for events nobody is told about.
func Message(e kafka.Event) (string, bool) {
	switch e.Type {
	case kafka.EventBookingCreated:
		return fmt.Sprintf("booking %d on flight %s received (%d tickets, %s)", e.BookingID, e.FlightID, e.Tickets, e.Status), true
	case kafka.EventBookingModified:
		return fmt.Sprintf("booking %d on flight %s updated (%d tickets, %s)", e.BookingID, e.FlightID, e.Tickets, e.Status), true
	case kafka.EventBookingCancelled:
		return fmt.Sprintf("booking %d on flight %s cancelled", e.BookingID, e.FlightID), true
	case kafka.EventTicketCheckedIn:
		return fmt.Sprintf("ticket %s checked in for flight %s", e.TicketID, e.FlightID), true
	case kafka.EventGateAssigned:
		return fmt.Sprintf("flight %s boards from gate %d", e.FlightID, e.Gate), true
	case kafka.EventFlightDelayed:
		return fmt.Sprintf("flight %s is delayed by %d minutes", e.FlightID, e.Delay), true
	case kafka.EventFlightStatusChanged:
		return fmt.Sprintf("flight %s is now %s", e.FlightID, e.Status), true
	case kafka.EventLuggageLost:
		return fmt.Sprintf("bag %s on flight %s has been reported lost", e.TrackingID, e.FlightID), true
	}
	return "", false
}
