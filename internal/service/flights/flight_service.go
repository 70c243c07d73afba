package flights

import (
	"context"
	"time"

	"github.com/Domenick1991/airport/internal/domain"
	"github.com/Domenick1991/airport/internal/kafka"
	"github.com/Domenick1991/airport/internal/repository"
	"github.com/Domenick1991/airport/internal/service"
	"github.com/sirupsen/logrus"
)

const defaultGateCount = 20

type FlightUseCase interface {
	CreateFlight(ctx context.Context, input CreateFlightInput) (*domain.Flight, error)
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id string) (*domain.Flight, error)
	StartCheckIn(ctx context.Context, id string) (*domain.Flight, error)
	AssignGate(ctx context.Context, id string) (int, bool, error)
	SetGate(ctx context.Context, id string, gate int) (*domain.Flight, error)
	AddDelay(ctx context.Context, id string, minutes int) (*domain.Flight, error)
	SetFlightStatus(ctx context.Context, id string, status domain.FlightStatus) (*domain.Flight, error)
}

type FlightCache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
	InvalidateFlights(ctx context.Context) error
}

type CreateFlightInput struct {
	ID            string           `json:"id"`
	Company       string           `json:"company"`
	Date          time.Time        `json:"date"`
	DepartureTime time.Time        `json:"departure_time"`
	ArrivalTime   time.Time        `json:"arrival_time"`
	MaxSeats      int              `json:"max_seats"`
	Direction     domain.Direction `json:"direction"`
	City          string           `json:"city"`
}

type FlightService struct {
	store     repository.Store
	queries   repository.Queries
	cache     FlightCache
	logger    *logrus.Logger
	events    *service.Events
	gateCount int
}

type FlightServiceOption func(*FlightService)

func WithGateCount(n int) FlightServiceOption {
	return func(s *FlightService) {
		if n > 0 {
			s.gateCount = n
		}
	}
}

func WithEvents(events *service.Events) FlightServiceOption {
	return func(s *FlightService) {
		s.events = events
	}
}

// cache may be nil.
func NewFlightService(store repository.Store, queries repository.Queries, cache FlightCache, logger *logrus.Logger, opts ...FlightServiceOption) *FlightService {
	s := &FlightService{
		store:     store,
		queries:   queries,
		cache:     cache,
		logger:    logger,
		gateCount: defaultGateCount,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FlightService) CreateFlight(ctx context.Context, input CreateFlightInput) (*domain.Flight, error) {
	const op = "create flight"
	flight := &domain.Flight{
		ID:            input.ID,
		Company:       input.Company,
		Date:          input.Date,
		DepartureTime: input.DepartureTime,
		ArrivalTime:   input.ArrivalTime,
		MaxSeats:      input.MaxSeats,
		FreeSeats:     input.MaxSeats,
		Status:        domain.FlightStatusProgrammed,
		Direction:     input.Direction,
		City:          input.City,
	}
	if err := flight.Validate(); err != nil {
		return nil, service.Fail(s.logger, op, err)
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.InsertFlight(ctx, flight)
	})
	if err != nil {
		return nil, service.Fail(s.logger, op, err)
	}
	s.changed(ctx, flight, kafka.Event{Type: kafka.EventFlightCreated})
	return flight, nil
}

func (s *FlightService) List(ctx context.Context) ([]domain.Flight, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetFlights(ctx); err == nil && cached != nil {
			return cached, nil
		} else if err != nil {
			s.logger.WithError(err).Warn("flights cache read failed")
		}
	}

	flights, err := s.queries.ListFlights(ctx)
	if err != nil {
		return nil, service.Fail(s.logger, "list flights", err)
	}
	if flights == nil {
		flights = []domain.Flight{}
	}
	if s.cache != nil {
		if err := s.cache.SetFlights(ctx, flights); err != nil {
			s.logger.WithError(err).Warn("flights cache write failed")
		}
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	flight, err := s.queries.GetFlight(ctx, id)
	if err != nil {
		return nil, service.Fail(s.logger, "get flight", err)
	}
	return flight, nil
}

// StartCheckIn moves the flight to aboutToDepart and gives it a gate when it
// has none. A full apron leaves the gate unset; an operator can still call SetGate.
func (s *FlightService) StartCheckIn(ctx context.Context, id string) (*domain.Flight, error) {
	const op = "start check-in"
	var (
		flight   *domain.Flight
		assigned bool
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		f, err := tx.LockFlight(ctx, id)
		if err != nil {
			return err
		}
		if !f.Status.CanTransitionTo(domain.FlightStatusAboutToDepart) {
			return domain.Conflictf("flight %s cannot start check-in from %s", f.ID, f.Status)
		}
		f.Status = domain.FlightStatusAboutToDepart
		if !f.HasGate() {
			gate, ok, err := s.freeGate(ctx, tx, f.ID)
			if err != nil {
				return err
			}
			if ok {
				f.Gate = &gate
				assigned = true
			}
		}
		if err := tx.UpdateFlight(ctx, f); err != nil {
			return err
		}
		flight = f
		return nil
	})
	if err != nil {
		return nil, service.Fail(s.logger, op, err)
	}

	if !flight.HasGate() {
		s.logger.WithField("flight_id", flight.ID).Warn("check-in started without a free gate")
	}
	s.changed(ctx, flight, kafka.Event{Type: kafka.EventFlightStatusChanged, Status: string(flight.Status)})
	if assigned {
		s.events.Emit(ctx, kafka.Event{Type: kafka.EventGateAssigned, FlightID: flight.ID, Gate: *flight.Gate})
	}
	return flight, nil
}

// AssignGate claims the lowest gate no other live flight holds. ok is false
// when every gate is taken; the flight is left without a gate then. A flight
// that already has a gate keeps it.
func (s *FlightService) AssignGate(ctx context.Context, id string) (int, bool, error) {
	const op = "assign gate"
	var (
		gate     int
		ok       bool
		assigned bool
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		f, err := tx.LockFlight(ctx, id)
		if err != nil {
			return err
		}
		if f.Status.IsTerminal() {
			return domain.Conflictf("flight %s is %s", f.ID, f.Status)
		}
		if f.HasGate() {
			gate, ok = *f.Gate, true
			return nil
		}
		gate, ok, err = s.freeGate(ctx, tx, f.ID)
		if err != nil || !ok {
			return err
		}
		f.Gate = &gate
		assigned = true
		return tx.UpdateFlight(ctx, f)
	})
	if err != nil {
		return 0, false, service.Fail(s.logger, op, err)
	}

	entry := s.logger.WithField("flight_id", id)
	if !ok {
		entry.Warn("no gate available")
		return 0, false, nil
	}
	if assigned {
		entry.WithField("gate", gate).Info("gate assigned")
		s.invalidate(ctx)
		s.events.Emit(ctx, kafka.Event{Type: kafka.EventGateAssigned, FlightID: id, Gate: gate})
	}
	return gate, true, nil
}

// SetGate is the operator override: it claims gate for the flight without
// scanning, failing with a conflict if another live flight holds it.
func (s *FlightService) SetGate(ctx context.Context, id string, gate int) (*domain.Flight, error) {
	const op = "set gate"
	if gate < 1 || gate > s.gateCount {
		return nil, service.Fail(s.logger, op, domain.Validationf("gate must be between 1 and %d", s.gateCount))
	}
	var flight *domain.Flight
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		f, err := tx.LockFlight(ctx, id)
		if err != nil {
			return err
		}
		if f.Status.IsTerminal() {
			return domain.Conflictf("flight %s is %s", f.ID, f.Status)
		}
		if err := tx.LockGates(ctx); err != nil {
			return err
		}
		held, err := tx.HeldGates(ctx)
		if err != nil {
			return err
		}
		if owner, taken := held[gate]; taken && owner != f.ID {
			return domain.Conflictf("gate %d is held by flight %s", gate, owner)
		}
		f.Gate = &gate
		if err := tx.UpdateFlight(ctx, f); err != nil {
			return err
		}
		flight = f
		return nil
	})
	if err != nil {
		return nil, service.Fail(s.logger, op, err)
	}
	s.changed(ctx, flight, kafka.Event{Type: kafka.EventGateAssigned, Gate: gate})
	return flight, nil
}

// AddDelay accumulates minutes onto the flight's delay. The status is not
// touched; moving to delayed is a separate status change.
func (s *FlightService) AddDelay(ctx context.Context, id string, minutes int) (*domain.Flight, error) {
	const op = "add delay"
	if minutes <= 0 {
		return nil, service.Fail(s.logger, op, domain.Validationf("delay must be a positive number of minutes"))
	}
	var flight *domain.Flight
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		f, err := tx.LockFlight(ctx, id)
		if err != nil {
			return err
		}
		if f.Status.IsTerminal() || f.Status == domain.FlightStatusDeparted {
			return domain.Conflictf("flight %s is %s and cannot be delayed", f.ID, f.Status)
		}
		f.DelayMinutes += minutes
		if err := tx.UpdateFlight(ctx, f); err != nil {
			return err
		}
		flight = f
		return nil
	})
	if err != nil {
		return nil, service.Fail(s.logger, op, err)
	}
	s.changed(ctx, flight, kafka.Event{Type: kafka.EventFlightDelayed, Delay: flight.DelayMinutes})
	return flight, nil
}

// SetFlightStatus applies a state machine transition. Landing makes every
// loaded bag of the flight withdrawable.
func (s *FlightService) SetFlightStatus(ctx context.Context, id string, status domain.FlightStatus) (*domain.Flight, error) {
	const op = "set flight status"
	if !status.IsValid() {
		return nil, service.Fail(s.logger, op, domain.Validationf("unknown flight status %q", status))
	}
	var (
		flight *domain.Flight
		moved  int64
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		f, err := tx.LockFlight(ctx, id)
		if err != nil {
			return err
		}
		if !f.Status.CanTransitionTo(status) {
			return domain.Conflictf("flight %s cannot move from %s to %s", f.ID, f.Status, status)
		}
		f.Status = status
		if err := tx.UpdateFlight(ctx, f); err != nil {
			return err
		}
		if status == domain.FlightStatusLanded {
			moved, err = tx.MoveFlightLuggage(ctx, f.ID, domain.LuggageStatusLoaded, domain.LuggageStatusWithdrawable)
			if err != nil {
				return err
			}
		}
		flight = f
		return nil
	})
	if err != nil {
		return nil, service.Fail(s.logger, op, err)
	}
	if moved > 0 {
		s.logger.WithFields(logrus.Fields{"flight_id": id, "bags": moved}).Info("luggage ready for withdrawal")
	}
	s.changed(ctx, flight, kafka.Event{Type: kafka.EventFlightStatusChanged, Status: string(flight.Status)})
	return flight, nil
}

// freeGate scans gates 1..N under the gate lock and returns the first one no
// other live flight holds.
func (s *FlightService) freeGate(ctx context.Context, tx repository.Tx, flightID string) (int, bool, error) {
	if err := tx.LockGates(ctx); err != nil {
		return 0, false, err
	}
	held, err := tx.HeldGates(ctx)
	if err != nil {
		return 0, false, err
	}
	for gate := 1; gate <= s.gateCount; gate++ {
		if owner, taken := held[gate]; !taken || owner == flightID {
			return gate, true, nil
		}
	}
	return 0, false, nil
}

func (s *FlightService) changed(ctx context.Context, flight *domain.Flight, event kafka.Event) {
	s.logger.WithFields(logrus.Fields{
		"flight_id": flight.ID,
		"status":    flight.Status,
		"event":     event.Type,
	}).Info("flight updated")
	s.invalidate(ctx)
	event.FlightID = flight.ID
	s.events.Emit(ctx, event)
}

func (s *FlightService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlights(ctx); err != nil {
		s.logger.WithError(err).Warn("flights cache invalidation failed")
	}
}

var _ FlightUseCase = (*FlightService)(nil)
