// Package service runs donor matching for blood requests and drives each
// match through its lifecycle.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	requestmodels "bloodlink/internal/bloodrequest/models"
	donormodels "bloodlink/internal/donor/models"
	"bloodlink/internal/donorsearch"
	historymodels "bloodlink/internal/history/models"
	"bloodlink/internal/matching/metrics"
	"bloodlink/internal/matching/models"
	"bloodlink/internal/matching/query"
	notificationmodels "bloodlink/internal/notification/models"
	"bloodlink/pkg/attrs"
	id "bloodlink/pkg/domain"
	audit "bloodlink/pkg/platform/audit"
	"bloodlink/pkg/requestcontext"
)

type MatchStore interface {
	Create(ctx context.Context, m *models.DonationMatch) error
	FindByID(ctx context.Context, matchID id.MatchID) (*models.DonationMatch, error)
	ListByRequest(ctx context.Context, requestID id.RequestID) ([]*models.DonationMatch, error)
	ListByDonor(ctx context.Context, donorID id.UserID) ([]*models.DonationMatch, error)
	HasActiveMatch(ctx context.Context, requestID id.RequestID, donorID id.UserID) (bool, error)
	UpdateIfStatus(ctx context.Context, m *models.DonationMatch, expected models.Status) error
}

type RequestStore interface {
	FindByID(ctx context.Context, requestID id.RequestID) (*requestmodels.BloodRequest, error)
	UpdateStatusIf(ctx context.Context, requestID id.RequestID, expected, status requestmodels.Status, now time.Time) error
}

type DonorStore interface {
	FindByID(ctx context.Context, donorID id.UserID) (*donormodels.Donor, error)
	FindByIDs(ctx context.Context, donorIDs []id.UserID) (map[id.UserID]*donormodels.Donor, error)
}

type HistoryStore interface {
	Create(ctx context.Context, record *historymodels.DonationRecord) error
	ListByDonor(ctx context.Context, donorID id.UserID) ([]*historymodels.DonationRecord, error)
}

// DonorFinder is the candidate-donor oracle.
type DonorFinder interface {
	FindCompatibleDonors(ctx context.Context, params donorsearch.Params) (donorsearch.Result, error)
}

type Notifier interface {
	Notify(ctx context.Context, recipient id.UserID, draft notificationmodels.Draft) (*notificationmodels.Notification, error)
	NotifyMany(ctx context.Context, deliveries []notificationmodels.Delivery) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// TxRunner runs fn so that every store call made with the ctx it receives
// commits or rolls back together.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type StatsCache interface {
	Get(ctx context.Context, key string) (query.Statistics, bool, error)
	Set(ctx context.Context, key string, stats query.Statistics) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Stores groups the persistence dependencies of the service.
type Stores struct {
	Matches  MatchStore
	Requests RequestStore
	Donors   DonorStore
	History  HistoryStore
}

// Service coordinates matching, lifecycle transitions and match queries.
type Service struct {
	matches  MatchStore
	requests RequestStore
	donors   DonorStore
	history  HistoryStore
	finder   DonorFinder

	tx             TxRunner
	notifier       Notifier
	auditPublisher AuditPublisher
	cache          StatsCache
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Service)

func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func WithNotifier(notifier Notifier) Option {
	return func(s *Service) {
		s.notifier = notifier
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithStatsCache(cache StatsCache) Option {
	return func(s *Service) {
		s.cache = cache
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

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func New(stores Stores, finder DonorFinder, opts ...Option) *Service {
	s := &Service{
		matches:  stores.Matches,
		requests: stores.Requests,
		donors:   stores.Donors,
		history:  stores.History,
		finder:   finder,
		tx:       inlineTx{},
		logger:   slog.Default(),
		tracer:   otel.Tracer("bloodlink/matching"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// inlineTx runs fn without a transaction. Used when no TxRunner is configured.
type inlineTx struct{}

func (inlineTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *Service) startSpan(ctx context.Context, name string, kv ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(kv...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// notifyBestEffort sends one notification; failures are logged and counted
// but never surface to the caller.
func (s *Service) notifyBestEffort(ctx context.Context, recipient id.UserID, draft notificationmodels.Draft) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, recipient, draft); err != nil {
		s.notificationFailed(ctx, err, "recipient_id", recipient.String(), "type", string(draft.Type))
	}
}

func (s *Service) notifyManyBestEffort(ctx context.Context, deliveries []notificationmodels.Delivery) {
	if s.notifier == nil || len(deliveries) == 0 {
		return
	}
	if err := s.notifier.NotifyMany(ctx, deliveries); err != nil {
		s.notificationFailed(ctx, err, "recipients", len(deliveries))
	}
}

func (s *Service) notificationFailed(ctx context.Context, err error, args ...any) {
	if s.metrics != nil {
		s.metrics.IncrementNotificationFailure()
	}
	args = append(args, "error", err, "request_id", requestcontext.RequestID(ctx))
	s.logger.WarnContext(ctx, "match notification failed", args...)
}

func (s *Service) invalidateStats(ctx context.Context, keys ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate match statistics", "error", err)
	}
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
	if s.auditPublisher == nil {
		return
	}
	userID, _ := id.ParseUserID(attrs.ExtractString(attributes, "user_id"))
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		UserID:    userID,
		Subject:   attrs.ExtractString(attributes, "subject"),
		Action:    event,
		Reason:    attrs.ExtractString(attributes, "reason"),
		RequestID: requestcontext.RequestID(ctx),
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "event", event, "error", err)
	}
}
