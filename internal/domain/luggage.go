package domain

type LuggageType string

const (
	LuggageTypeCarryOn LuggageType = "carry_on"
	LuggageTypeChecked LuggageType = "checked"
)

// ParseLuggageType accepts both the persisted and the upper-case spelling.
func ParseLuggageType(s string) (LuggageType, error) {
	switch s {
	case "carry_on", "CARRY_ON":
		return LuggageTypeCarryOn, nil
	case "checked", "CHECKED":
		return LuggageTypeChecked, nil
	}
	return "", Validationf("unknown luggage type %q", s)
}

type LuggageStatus string

const (
	LuggageStatusBooked       LuggageStatus = "BOOKED"
	LuggageStatusLoaded       LuggageStatus = "LOADED"
	LuggageStatusWithdrawable LuggageStatus = "WITHDRAWABLE"
	LuggageStatusLost         LuggageStatus = "LOST"
)

var luggageTransitions = map[LuggageStatus][]LuggageStatus{
	LuggageStatusBooked:       {LuggageStatusLoaded, LuggageStatusLost},
	LuggageStatusLoaded:       {LuggageStatusWithdrawable, LuggageStatusLost},
	LuggageStatusWithdrawable: {},
	LuggageStatusLost:         {},
}

func (s LuggageStatus) IsValid() bool {
	_, ok := luggageTransitions[s]
	return ok
}

func (s LuggageStatus) CanTransitionTo(target LuggageStatus) bool {
	for _, t := range luggageTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s LuggageStatus) IsTerminal() bool {
	return len(luggageTransitions[s]) == 0
}

type Luggage struct {
	ID       int64         `json:"id"`
	Type     LuggageType   `json:"type"`
	Status   LuggageStatus `json:"status"`
	TicketID string        `json:"ticket_id"`
	// TrackingID is the physical tag assigned once the bag enters handling after check-in.
	TrackingID *string `json:"tracking_id,omitempty"`
}

// LostLuggage is one row of the lost-luggage report.
type LostLuggage struct {
	Luggage
	BookingID    int64  `json:"booking_id"`
	FlightID     string `json:"flight_id"`
	PassengerSSN SSN    `json:"passenger_ssn"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
}
