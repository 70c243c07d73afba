// Package service holds what the booking, flight and luggage services share:
// translating store failures and emitting domain events.
package service

import (
	"github.com/Domenick1991/airport/internal/domain"
	"github.com/sirupsen/logrus"
)

// Fail classifies err for op and logs the original failure. Callers get a
// *domain.Error only.
func Fail(logger *logrus.Logger, op string, err error) error {
	if err == nil {
		return nil
	}
	wrapped := domain.Wrap(op, err)
	if logger == nil {
		return wrapped
	}
	entry := logger.WithError(err).WithFields(logrus.Fields{
		"op":   op,
		"kind": domain.KindOf(wrapped),
	})
	switch domain.KindOf(wrapped) {
	case domain.KindTransaction, domain.KindGeneration:
		entry.Error("operation failed")
	default:
		entry.Info("operation rejected")
	}
	return wrapped
}
