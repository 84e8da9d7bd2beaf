// Package kafka publishes persisted notifications to a Kafka topic so push
// and email workers can deliver them outside the request path.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"bloodlink/internal/notification/models"
	"bloodlink/pkg/platform/circuit"
)

// Producer is satisfied by platform/kafka.Producer.
type Producer interface {
	Publish(ctx context.Context, key, value []byte) error
}

// Sink wraps a producer with a circuit breaker. When the breaker is open,
// failed publishes are dropped with a warning: the notification is already
// stored and visible in-app.
type Sink struct {
	producer Producer
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

type Option func(*Sink)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) {
		s.logger = logger
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Sink) {
		s.breaker = b
	}
}

func New(producer Producer, opts ...Option) *Sink {
	s := &Sink{
		producer: producer,
		breaker:  circuit.New("notification-kafka"),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type message struct {
	ID              string `json:"id"`
	RecipientID     string `json:"recipient_id"`
	Type            string `json:"type"`
	Title           string `json:"title"`
	Message         string `json:"message"`
	RelatedEntityID string `json:"related_entity_id,omitempty"`
	CreatedAt       string `json:"created_at"`
}

// Publish keys records by recipient so one user's notifications stay ordered.
func (s *Sink) Publish(ctx context.Context, n *models.Notification) error {
	value, err := json.Marshal(message{
		ID:              n.ID.String(),
		RecipientID:     n.RecipientID.String(),
		Type:            string(n.Type),
		Title:           n.Title,
		Message:         n.Message,
		RelatedEntityID: n.RelatedEntityID,
		CreatedAt:       n.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	if err := s.producer.Publish(ctx, []byte(n.RecipientID.String()), value); err != nil {
		useFallback, change := s.breaker.RecordFailure()
		if change.Opened {
			s.logger.WarnContext(ctx, "notification publisher circuit opened",
				"breaker", s.breaker.Name(),
				"error", err,
			)
		}
		if useFallback {
			s.logger.WarnContext(ctx, "notification publish skipped",
				"notification_id", n.ID.String(),
				"error", err,
			)
			return nil
		}
		return fmt.Errorf("publish notification: %w", err)
	}

	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.InfoContext(ctx, "notification publisher circuit closed",
			"breaker", s.breaker.Name(),
		)
	}
	return nil
}
