package domain

import (
	"regexp"
	"time"
)

type FlightStatus string

const (
	FlightStatusProgrammed    FlightStatus = "programmed"
	FlightStatusAboutToDepart FlightStatus = "aboutToDepart"
	FlightStatusDeparted      FlightStatus = "departed"
	FlightStatusDelayed       FlightStatus = "delayed"
	FlightStatusLanded        FlightStatus = "landed"
	FlightStatusCancelled     FlightStatus = "cancelled"
)

// programmed is only ever entered on creation, so no state lists it as a target.
// aboutToDepart -> aboutToDepart is the repeated start of check-in.
var flightTransitions = map[FlightStatus][]FlightStatus{
	FlightStatusProgrammed:    {FlightStatusAboutToDepart, FlightStatusDelayed, FlightStatusCancelled},
	FlightStatusAboutToDepart: {FlightStatusAboutToDepart, FlightStatusDeparted, FlightStatusDelayed, FlightStatusCancelled},
	FlightStatusDelayed:       {FlightStatusAboutToDepart, FlightStatusDelayed, FlightStatusDeparted, FlightStatusCancelled},
	FlightStatusDeparted:      {FlightStatusLanded, FlightStatusCancelled},
	FlightStatusLanded:        {},
	FlightStatusCancelled:     {},
}

func (s FlightStatus) IsValid() bool {
	_, ok := flightTransitions[s]
	return ok
}

func (s FlightStatus) CanTransitionTo(target FlightStatus) bool {
	for _, t := range flightTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s FlightStatus) IsTerminal() bool {
	return s == FlightStatusLanded || s == FlightStatusCancelled
}

// AcceptsBookings reports whether tickets may still be sold for the flight.
func (s FlightStatus) AcceptsBookings() bool {
	switch s {
	case FlightStatusProgrammed, FlightStatusAboutToDepart, FlightStatusDelayed:
		return true
	}
	return false
}

// CheckInOpen reports whether passengers may check in.
func (s FlightStatus) CheckInOpen() bool {
	return s == FlightStatusAboutToDepart || s == FlightStatusDelayed
}

type Direction string

const (
	DirectionDeparting Direction = "departing"
	DirectionArriving  Direction = "arriving"
)

type Flight struct {
	ID            string       `json:"id"`
	Company       string       `json:"company"`
	Date          time.Time    `json:"date"`
	DepartureTime time.Time    `json:"departure_time"`
	ArrivalTime   time.Time    `json:"arrival_time"`
	MaxSeats      int          `json:"max_seats"`
	FreeSeats     int          `json:"free_seats"`
	DelayMinutes  int          `json:"delay_minutes"`
	Status        FlightStatus `json:"status"`
	Gate          *int         `json:"gate,omitempty"`
	Direction     Direction    `json:"direction"`
	City          string       `json:"city"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

var flightIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{2,16}$`)

// Validate checks the caller-assigned identity and schedule of a new flight.
func (f *Flight) Validate() error {
	if !flightIDPattern.MatchString(f.ID) {
		return Validationf("flight id %q must be 2-16 alphanumeric characters", f.ID)
	}
	if f.Company == "" {
		return Validationf("company is required")
	}
	if f.MaxSeats <= 0 {
		return Validationf("max seats must be positive")
	}
	if f.Direction != DirectionDeparting && f.Direction != DirectionArriving {
		return Validationf("direction must be %q or %q", DirectionDeparting, DirectionArriving)
	}
	if f.City == "" {
		return Validationf("city is required")
	}
	if !f.ArrivalTime.IsZero() && !f.DepartureTime.IsZero() && f.ArrivalTime.Before(f.DepartureTime) {
		return Validationf("arrival precedes departure")
	}
	return nil
}

// HasGate reports whether a gate is currently assigned.
func (f *Flight) HasGate() bool {
	return f.Gate != nil && *f.Gate > 0
}
