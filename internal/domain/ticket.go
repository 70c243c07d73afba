package domain

import (
	"math/big"
	"strings"
)

// TicketNumberDigits is the fixed width of a ticket number.
const TicketNumberDigits = 13

// placeholderPrefix sorts below every digit so placeholders never look like ticket numbers.
const placeholderPrefix = "#TMP"

type Ticket struct {
	ID           string `json:"id"`
	BookingID    int64  `json:"booking_id"`
	FlightID     string `json:"flight_id"`
	PassengerSSN SSN    `json:"passenger_ssn"`
	// Seat is zero-based; nil when no seat was chosen.
	Seat      *int `json:"seat,omitempty"`
	CheckedIn bool `json:"checked_in"`
}

var maxTicketNumber = new(big.Int).Sub(new(big.Int).Exp(big.NewInt(10), big.NewInt(TicketNumberDigits), nil), big.NewInt(1))

// ParseTicketNumber reads a stored ticket number as an arbitrary-precision integer.
func ParseTicketNumber(s string) (*big.Int, error) {
	if s == "" {
		return nil, Generationf("empty ticket number")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return nil, Generationf("ticket number %q is not numeric", s)
		}
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, Generationf("ticket number %q is not numeric", s)
	}
	return n, nil
}

// FormatTicketNumber renders n zero-padded to 13 digits.
func FormatTicketNumber(n *big.Int) (string, error) {
	if n.Sign() < 0 || n.Cmp(maxTicketNumber) > 0 {
		return "", Generationf("ticket number %s does not fit in %d digits", n.String(), TicketNumberDigits)
	}
	s := n.String()
	return strings.Repeat("0", TicketNumberDigits-len(s)) + s, nil
}

// NextTicketNumber returns base + offset + 1 rendered as a ticket number.
func NextTicketNumber(base string, offset int) (string, error) {
	if offset < 0 {
		return "", Validationf("offset must be non-negative")
	}
	n, err := ParseTicketNumber(base)
	if err != nil {
		return "", err
	}
	n.Add(n, big.NewInt(int64(offset)+1))
	return FormatTicketNumber(n)
}

// IsTicketNumber reports whether id has the canonical 13-digit form.
func IsTicketNumber(id string) bool {
	if len(id) != TicketNumberDigits {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

// PlaceholderTicketID is the temporary ticket that keeps a booking non-empty while it is modified.
func PlaceholderTicketID(bookingID int64) string {
	return placeholderPrefix + big.NewInt(bookingID).String()
}

func IsPlaceholderTicketID(id string) bool {
	return strings.HasPrefix(id, placeholderPrefix)
}

// CompareTicketNumbers orders two ticket numbers numerically.
func CompareTicketNumbers(a, b string) (int, error) {
	na, err := ParseTicketNumber(a)
	if err != nil {
		return 0, err
	}
	nb, err := ParseTicketNumber(b)
	if err != nil {
		return 0, err
	}
	return na.Cmp(nb), nil
}
