package service

import (
	"context"
	"time"

	"github.com/Domenick1991/airport/internal/kafka"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// Events publishes committed changes. Publishing never fails the operation
// that produced the event.
type Events struct {
	producer Producer
	topics   []string
	logger   *logrus.Logger
	now      func() time.Time
}

func NewEvents(producer Producer, logger *logrus.Logger, topics ...string) *Events {
	filtered := make([]string, 0, len(topics))
	for _, t := range topics {
		if t != "" {
			filtered = append(filtered, t)
		}
	}
	return &Events{producer: producer, topics: filtered, logger: logger, now: time.Now}
}

func (e *Events) Emit(ctx context.Context, event kafka.Event) {
	if e == nil || e.producer == nil {
		return
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = e.now()
	}
	key := event.Key()
	for _, topic := range e.topics {
		if err := e.producer.Publish(ctx, topic, key, event); err != nil && e.logger != nil {
			e.logger.WithError(err).WithFields(logrus.Fields{
				"topic": topic,
				"type":  event.Type,
				"key":   key,
			}).Warn("failed to publish event")
		}
	}
}
