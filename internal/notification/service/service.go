package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"bloodlink/internal/notification/metrics"
	"bloodlink/internal/notification/models"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByRecipient(ctx context.Context, recipient id.UserID, unreadOnly bool) ([]*models.Notification, error)
	MarkRead(ctx context.Context, notificationID id.NotificationID, recipient id.UserID) error
}

// Publisher forwards stored notifications to downstream delivery channels.
type Publisher interface {
	Publish(ctx context.Context, n *models.Notification) error
}

// maxConcurrentDeliveries bounds NotifyMany's fan-out.
const maxConcurrentDeliveries = 8

// Service stores in-app notifications and forwards them to an optional
// publisher.
type Service struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithPublisher(publisher Publisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notify stores a notification for recipient, then publishes it. A publish
// failure is returned alongside the stored notification.
func (s *Service) Notify(ctx context.Context, recipient id.UserID, draft models.Draft) (*models.Notification, error) {
	n := models.New(id.NotificationID(uuid.New()), recipient, draft, requestcontext.Now(ctx))
	if err := s.store.Create(ctx, n); err != nil {
		if s.metrics != nil {
			s.metrics.IncrementPersistFailure()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store notification")
	}
	if s.metrics != nil {
		s.metrics.IncrementCreated(string(n.Type))
	}

	if s.publisher == nil {
		return n, nil
	}
	if err := s.publisher.Publish(ctx, n); err != nil {
		if s.metrics != nil {
			s.metrics.IncrementPublishFailure()
		}
		s.logger.WarnContext(ctx, "notification publish failed",
			"notification_id", n.ID.String(),
			"recipient_id", recipient.String(),
			"error", err,
		)
		return n, dErrors.Wrap(err, dErrors.CodeInternal, "failed to publish notification")
	}
	return n, nil
}

// NotifyMany delivers every draft concurrently. All deliveries are attempted;
// the first error is returned.
func (s *Service) NotifyMany(ctx context.Context, deliveries []models.Delivery) error {
	var g errgroup.Group
	g.SetLimit(maxConcurrentDeliveries)
	for _, d := range deliveries {
		g.Go(func() error {
			_, err := s.Notify(ctx, d.RecipientID, d.Draft)
			return err
		})
	}
	return g.Wait()
}

// List returns the caller's notifications, newest first.
func (s *Service) List(ctx context.Context, actor id.UserID, unreadOnly bool) ([]*models.Notification, error) {
	if actor.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	out, err := s.store.ListByRecipient(ctx, actor, unreadOnly)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	if out == nil {
		out = []*models.Notification{}
	}
	return out, nil
}

// MarkRead flags one of the caller's notifications as read.
func (s *Service) MarkRead(ctx context.Context, actor id.UserID, notificationID id.NotificationID) error {
	if actor.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if err := s.store.MarkRead(ctx, notificationID, actor); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "notification not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notification read")
	}
	return nil
}
