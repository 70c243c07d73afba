package domain

import (
	"regexp"
	"strings"
	"time"
)

// SSN is the national identity string that keys a passenger record.
type SSN string

var ssnPattern = regexp.MustCompile(`^[A-Za-z0-9]{6,20}$`)

// ParseSSN normalises and validates a passenger identity key.
func ParseSSN(raw string) (SSN, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", Validationf("passenger identity key is required")
	}
	if !ssnPattern.MatchString(s) {
		return "", Validationf("passenger identity key %q is malformed", raw)
	}
	return SSN(s), nil
}

type Passenger struct {
	SSN       SSN        `json:"ssn"`
	FirstName *string    `json:"first_name,omitempty"`
	LastName  *string    `json:"last_name,omitempty"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
}

// Optional is a field that is either unset or carries a value.
type Optional[T any] struct {
	value T
	set   bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

// OptionalFrom maps a nil pointer to None.
func OptionalFrom[T any](p *T) Optional[T] {
	if p == nil {
		return None[T]()
	}
	return Some(*p)
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

func (o Optional[T]) IsSet() bool {
	return o.set
}

// Ptr returns nil for an unset value.
func (o Optional[T]) Ptr() *T {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

// PassengerPatch describes an upsert: unset fields leave the stored value untouched.
type PassengerPatch struct {
	SSN       SSN
	FirstName Optional[string]
	LastName  Optional[string]
	BirthDate Optional[time.Time]
}

func (p PassengerPatch) Validate() error {
	if _, err := ParseSSN(string(p.SSN)); err != nil {
		return err
	}
	if bd, ok := p.BirthDate.Get(); ok && bd.After(time.Now()) {
		return Validationf("birth date of %s is in the future", p.SSN)
	}
	return nil
}

// Apply merges the set fields of p into passenger.
func (p PassengerPatch) Apply(passenger *Passenger) {
	passenger.SSN = p.SSN
	if v, ok := p.FirstName.Get(); ok {
		passenger.FirstName = &v
	}
	if v, ok := p.LastName.Get(); ok {
		passenger.LastName = &v
	}
	if v, ok := p.BirthDate.Get(); ok {
		passenger.BirthDate = &v
	}
}

// NewPassenger builds the record inserted when the key is unknown.
func (p PassengerPatch) NewPassenger() Passenger {
	var passenger Passenger
	p.Apply(&passenger)
	return passenger
}
