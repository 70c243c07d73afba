package luggage

import (
	"context"
	"strings"

	"github.com/Domenick1991/airport/internal/domain"
	"github.com/Domenick1991/airport/internal/kafka"
	"github.com/Domenick1991/airport/internal/repository"
	"github.com/Domenick1991/airport/internal/service"
	"github.com/sirupsen/logrus"
)

type LuggageUseCase interface {
	ReportLuggageLost(ctx context.Context, trackingID string) (bool, error)
	LoadLuggage(ctx context.Context, trackingID string) (*domain.Luggage, error)
	MarkWithdrawable(ctx context.Context, flightID string) (int64, error)
	LostLuggageReport(ctx context.Context) ([]domain.LostLuggage, error)
}

type LuggageService struct {
	store   repository.Store
	queries repository.Queries
	logger  *logrus.Logger
	events  *service.Events
}

type LuggageServiceOption func(*LuggageService)

func WithEvents(events *service.Events) LuggageServiceOption {
	return func(s *LuggageService) {
		s.events = events
	}
}

func NewLuggageService(store repository.Store, queries repository.Queries, logger *logrus.Logger, opts ...LuggageServiceOption) *LuggageService {
	s := &LuggageService{store: store, queries: queries, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReportLuggageLost marks the bag carrying trackingID as LOST. An unknown tag
// changes nothing and reports found=false. Reporting a lost bag again is a no-op.
func (s *LuggageService) ReportLuggageLost(ctx context.Context, trackingID string) (bool, error) {
	const op = "report luggage lost"
	trackingID = strings.TrimSpace(trackingID)
	if trackingID == "" {
		return false, service.Fail(s.logger, op, domain.Validationf("tracking id is required"))
	}

	var (
		found   bool
		changed bool
		bag     *domain.Luggage
		ticket  *domain.Ticket
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		l, err := tx.LockLuggageByTracking(ctx, trackingID)
		if err != nil {
			if domain.KindOf(err) == domain.KindNotFound {
				return nil
			}
			return err
		}
		found = true
		bag = l
		if l.Status == domain.LuggageStatusLost {
			return nil
		}
		if !l.Status.CanTransitionTo(domain.LuggageStatusLost) {
			return domain.Conflictf("luggage %s is %s", trackingID, l.Status)
		}
		l.Status = domain.LuggageStatusLost
		if err := tx.UpdateLuggage(ctx, l); err != nil {
			return err
		}
		if ticket, err = tx.GetTicket(ctx, l.TicketID); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, service.Fail(s.logger, op, err)
	}

	if !found {
		s.logger.WithField("tracking_id", trackingID).Info("lost report for unknown tracking id ignored")
		return false, nil
	}
	if changed {
		s.logger.WithFields(logrus.Fields{
			"tracking_id": trackingID,
			"luggage_id":  bag.ID,
			"ticket_id":   bag.TicketID,
		}).Warn("luggage reported lost")
		s.events.Emit(ctx, kafka.Event{
			Type:       kafka.EventLuggageLost,
			BookingID:  ticket.BookingID,
			FlightID:   ticket.FlightID,
			TicketID:   ticket.ID,
			TrackingID: trackingID,
			Status:     string(bag.Status),
		})
	}
	return true, nil
}

// LoadLuggage records a tagged bag going into the hold.
func (s *LuggageService) LoadLuggage(ctx context.Context, trackingID string) (*domain.Luggage, error) {
	const op = "load luggage"
	trackingID = strings.TrimSpace(trackingID)
	if trackingID == "" {
		return nil, service.Fail(s.logger, op, domain.Validationf("tracking id is required"))
	}

	var (
		bag    *domain.Luggage
		ticket *domain.Ticket
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		l, err := tx.LockLuggageByTracking(ctx, trackingID)
		if err != nil {
			return err
		}
		if !l.Status.CanTransitionTo(domain.LuggageStatusLoaded) {
			return domain.Conflictf("luggage %s is %s and cannot be loaded", trackingID, l.Status)
		}
		l.Status = domain.LuggageStatusLoaded
		if err := tx.UpdateLuggage(ctx, l); err != nil {
			return err
		}
		if ticket, err = tx.GetTicket(ctx, l.TicketID); err != nil {
			return err
		}
		bag = l
		return nil
	})
	if err != nil {
		return nil, service.Fail(s.logger, op, err)
	}

	s.events.Emit(ctx, kafka.Event{
		Type:       kafka.EventLuggageLoaded,
		BookingID:  ticket.BookingID,
		FlightID:   ticket.FlightID,
		TicketID:   ticket.ID,
		TrackingID: trackingID,
		Status:     string(bag.Status),
	})
	return bag, nil
}

// MarkWithdrawable moves every loaded bag of a landed flight to WITHDRAWABLE
// and returns how many moved.
func (s *LuggageService) MarkWithdrawable(ctx context.Context, flightID string) (int64, error) {
	const op = "mark luggage withdrawable"
	var moved int64
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		f, err := tx.LockFlight(ctx, flightID)
		if err != nil {
			return err
		}
		if f.Status != domain.FlightStatusLanded {
			return domain.Conflictf("flight %s has not landed", f.ID)
		}
		moved, err = tx.MoveFlightLuggage(ctx, f.ID, domain.LuggageStatusLoaded, domain.LuggageStatusWithdrawable)
		return err
	})
	if err != nil {
		return 0, service.Fail(s.logger, op, err)
	}
	s.logger.WithFields(logrus.Fields{"flight_id": flightID, "bags": moved}).Info("luggage ready for withdrawal")
	return moved, nil
}

func (s *LuggageService) LostLuggageReport(ctx context.Context) ([]domain.LostLuggage, error) {
	report, err := s.queries.LostLuggageReport(ctx)
	if err != nil {
		return nil, service.Fail(s.logger, "lost luggage report", err)
	}
	if report == nil {
		report = []domain.LostLuggage{}
	}
	return report, nil
}

var _ LuggageUseCase = (*LuggageService)(nil)
