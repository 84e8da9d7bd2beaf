package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bloodlink/internal/bloodrequest/models"
	"bloodlink/pkg/attrs"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	audit "bloodlink/pkg/platform/audit"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, request *models.BloodRequest) error
	FindByID(ctx context.Context, requestID id.RequestID) (*models.BloodRequest, error)
	UpdateStatusIf(ctx context.Context, requestID id.RequestID, expected, status models.Status, now time.Time) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns blood request creation and cancellation.
type Service struct {
	store          Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCommand carries already-parsed input for Create.
type CreateCommand struct {
	RequesterName   string
	PatientName     string
	BloodType       id.BloodType
	UnitsNeeded     int
	Urgency         id.UrgencyLevel
	HospitalName    string
	HospitalAddress string
	HospitalCity    string
	HospitalState   string
}

func (s *Service) Create(ctx context.Context, actor id.UserID, cmd CreateCommand) (*models.BloodRequest, error) {
	if actor.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	request, err := models.NewBloodRequest(
		id.RequestID(uuid.New()), actor, cmd.RequesterName, cmd.PatientName,
		cmd.BloodType, cmd.UnitsNeeded, cmd.Urgency,
		cmd.HospitalName, cmd.HospitalAddress, cmd.HospitalCity, cmd.HospitalState,
		requestcontext.Now(ctx),
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid blood request")
		}
		return nil, err
	}
	if err := s.store.Create(ctx, request); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create blood request")
	}
	s.logAudit(ctx, string(audit.EventRequestCreated),
		"user_id", actor,
		"subject", request.ID,
		"blood_type", string(request.BloodType),
	)
	return request, nil
}

func (s *Service) Get(ctx context.Context, requestID id.RequestID) (*models.BloodRequest, error) {
	request, err := s.store.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "blood request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load blood request")
	}
	return request, nil
}

// Cancel withdraws an open request. Only the requester may cancel.
func (s *Service) Cancel(ctx context.Context, actor id.UserID, requestID id.RequestID) (*models.BloodRequest, error) {
	request, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !request.IsOwnedBy(actor) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the requester can cancel this request")
	}
	if err := request.CanTransitionTo(models.StatusCancelled); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	if err := s.store.UpdateStatusIf(ctx, request.ID, request.Status, models.StatusCancelled, now); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "request changed while cancelling; reload and retry")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel blood request")
	}
	request.ApplyStatus(models.StatusCancelled, now)

	s.logAudit(ctx, string(audit.EventRequestCancelled),
		"user_id", actor,
		"subject", request.ID,
	)
	return request, nil
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
		RequestID: requestcontext.RequestID(ctx),
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "event", event, "error", err)
	}
}
