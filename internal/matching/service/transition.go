package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	requestmodels "bloodlink/internal/bloodrequest/models"
	historymodels "bloodlink/internal/history/models"
	"bloodlink/internal/matching/models"
	"bloodlink/internal/matching/store/statscache"
	notificationmodels "bloodlink/internal/notification/models"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	audit "bloodlink/pkg/platform/audit"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/requestcontext"
)

// TransitionInput carries the optional fields an action may use. Notes apply
// to decline and complete, Reason to cancel, DonationTime to complete.
type TransitionInput struct {
	Notes        string
	Reason       string
	DonationTime *time.Time
}

func (s *Service) Accept(ctx context.Context, actor id.UserID, matchID id.MatchID) (*models.DonationMatch, error) {
	return s.Transition(ctx, actor, matchID, models.ActionAccept, TransitionInput{})
}

func (s *Service) Decline(ctx context.Context, actor id.UserID, matchID id.MatchID, notes string) (*models.DonationMatch, error) {
	return s.Transition(ctx, actor, matchID, models.ActionDecline, TransitionInput{Notes: notes})
}

func (s *Service) Complete(ctx context.Context, actor id.UserID, matchID id.MatchID, notes string, donationTime *time.Time) (*models.DonationMatch, error) {
	return s.Transition(ctx, actor, matchID, models.ActionComplete, TransitionInput{Notes: notes, DonationTime: donationTime})
}

func (s *Service) Cancel(ctx context.Context, actor id.UserID, matchID id.MatchID, reason string) (*models.DonationMatch, error) {
	return s.Transition(ctx, actor, matchID, models.ActionCancel, TransitionInput{Reason: reason})
}

// Transition applies action to the match on behalf of actor. The caller is
// authorized before the transition is checked for legality, and the write is
// a compare-and-set on the status that was read: a concurrent change fails
// with CodeConflict and leaves the stored match untouched.
func (s *Service) Transition(ctx context.Context, actor id.UserID, matchID id.MatchID, action models.Action, in TransitionInput) (result *models.DonationMatch, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "matching.Transition",
		attribute.String("match_id", matchID.String()),
		attribute.String("action", string(action)),
	)
	defer func() {
		endSpan(span, err)
		if s.metrics != nil {
			s.metrics.ObserveTransition(string(action), outcome(err), start)
		}
	}()

	if actor.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !action.IsValid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown match action: "+string(action))
	}

	m, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	request, err := s.requests.FindByID(ctx, m.RequestID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load request for match")
	}

	if err := m.Authorize(action, actor, request.RequesterID); err != nil {
		s.logAudit(ctx, string(audit.EventTransitionDenied),
			"user_id", actor,
			"subject", m.ID,
			"action", string(action),
			"reason", "caller is not a participant allowed to "+string(action),
		)
		return nil, err
	}
	if err := m.CanApply(action); err != nil {
		return nil, err
	}
	if action == models.ActionAccept && request.Status == requestmodels.StatusCancelled {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "request is cancelled; its matches can no longer be accepted")
	}

	expected := m.Status
	now := requestcontext.Now(ctx)
	switch action {
	case models.ActionAccept:
		m.ApplyAccept(now)
	case models.ActionDecline:
		m.ApplyDecline(in.Notes, now)
	case models.ActionComplete:
		m.ApplyComplete(in.Notes, in.DonationTime, now)
	case models.ActionCancel:
		m.ApplyCancel(in.Reason, now)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	fulfilled := false
	if action == models.ActionComplete {
		fulfilled, err = s.completeInTx(ctx, m, expected, request, now)
	} else {
		err = s.save(ctx, m, expected)
	}
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, actor, action, m, request, fulfilled)
	return m, nil
}

// completeInTx writes the completed match, fulfils the request and records
// the donation as one unit. It reports whether the request moved to
// fulfilled in this call.
func (s *Service) completeInTx(
	ctx context.Context,
	m *models.DonationMatch,
	expected models.Status,
	request *requestmodels.BloodRequest,
	now time.Time,
) (bool, error) {
	donatedType := request.BloodType
	if donor, err := s.donors.FindByID(ctx, m.DonorID); err == nil {
		donatedType = donor.BloodType
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donor")
	}

	fulfilled := false
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.loadRequest(txCtx, request.ID)
		if err != nil {
			return err
		}
		needsFulfil := current.Status != requestmodels.StatusFulfilled
		if needsFulfil {
			if err := current.CanTransitionTo(requestmodels.StatusFulfilled); err != nil {
				return err
			}
		}

		if err := s.save(txCtx, m, expected); err != nil {
			return err
		}

		if needsFulfil {
			fulfilled, err = s.fulfil(txCtx, current, now)
			if err != nil {
				return err
			}
			if fulfilled {
				request.ApplyStatus(requestmodels.StatusFulfilled, now)
			}
		}

		record := &historymodels.DonationRecord{
			ID:        id.DonationID(uuid.New()),
			DonorID:   m.DonorID,
			RequestID: m.RequestID,
			MatchID:   m.ID,
			BloodType: donatedType,
			DonatedAt: *m.DonationTime,
			Location:  current.HospitalLocation(),
			Notes:     m.Notes,
			CreatedAt: now,
		}
		if err := s.history.Create(txCtx, record); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeConflict, "donation already recorded for this match")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record donation")
		}
		return nil
	})
	if err != nil {
		var de *dErrors.Error
		if !errors.As(err, &de) {
			return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to complete match")
		}
		return false, err
	}
	return fulfilled, nil
}

// fulfil moves the request to fulfilled only if it still has the status that
// was read. It reports false when a concurrent completion fulfilled it first.
func (s *Service) fulfil(ctx context.Context, current *requestmodels.BloodRequest, now time.Time) (bool, error) {
	err := s.requests.UpdateStatusIf(ctx, current.ID, current.Status, requestmodels.StatusFulfilled, now)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sentinel.ErrConflict) {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fulfil request")
	}
	latest, err := s.loadRequest(ctx, current.ID)
	if err != nil {
		return false, err
	}
	if latest.Status == requestmodels.StatusFulfilled {
		return false, nil
	}
	if err := latest.CanTransitionTo(requestmodels.StatusFulfilled); err != nil {
		return false, err
	}
	return false, dErrors.New(dErrors.CodeConflict, "request changed while completing; reload and retry")
}

func (s *Service) save(ctx context.Context, m *models.DonationMatch, expected models.Status) error {
	err := s.matches.UpdateIfStatus(ctx, m, expected)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("match is no longer %s; reload and retry", expected))
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "match not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update match")
	}
}

func (s *Service) loadMatch(ctx context.Context, matchID id.MatchID) (*models.DonationMatch, error) {
	m, err := s.matches.FindByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "match not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load match")
	}
	return m, nil
}

var transitionEvents = map[models.Action]audit.AuditEvent{
	models.ActionAccept:   audit.EventMatchAccepted,
	models.ActionDecline:  audit.EventMatchDeclined,
	models.ActionComplete: audit.EventMatchCompleted,
	models.ActionCancel:   audit.EventMatchCancelled,
}

var transitionNotifications = map[models.Action]notificationmodels.Type{
	models.ActionAccept:   notificationmodels.TypeMatchAccepted,
	models.ActionDecline:  notificationmodels.TypeMatchDeclined,
	models.ActionComplete: notificationmodels.TypeMatchCompleted,
	models.ActionCancel:   notificationmodels.TypeMatchCancelled,
}

// afterTransition runs the side effects that must not fail a committed
// transition: audit, cache invalidation and notifications.
func (s *Service) afterTransition(
	ctx context.Context,
	actor id.UserID,
	action models.Action,
	m *models.DonationMatch,
	request *requestmodels.BloodRequest,
	fulfilled bool,
) {
	s.logAudit(ctx, string(transitionEvents[action]),
		"user_id", actor,
		"subject", m.ID,
		"status", string(m.Status),
	)
	if fulfilled {
		s.logAudit(ctx, string(audit.EventRequestFulfilled),
			"user_id", actor,
			"subject", request.ID,
		)
	}
	s.invalidateStats(ctx, statscache.DonorKey(m.DonorID), statscache.RequestKey(m.RequestID))

	recipient := request.RequesterID
	if action == models.ActionCancel && actor == request.RequesterID {
		recipient = m.DonorID
	}
	s.notifyBestEffort(ctx, recipient, notificationmodels.Draft{
		Type:            transitionNotifications[action],
		Title:           "Match " + string(m.Status),
		Message:         transitionMessage(action, m, request),
		RelatedEntityID: m.ID.String(),
	})

	if fulfilled {
		s.notifyOtherCandidates(ctx, m, request)
	}
}

// notifyOtherCandidates tells donors still holding an active match that the
// request no longer needs them.
func (s *Service) notifyOtherCandidates(ctx context.Context, completed *models.DonationMatch, request *requestmodels.BloodRequest) {
	others, err := s.matches.ListByRequest(ctx, request.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to list matches for fulfilment notice", "error", err)
		return
	}
	var deliveries []notificationmodels.Delivery
	for _, other := range others {
		if other.ID == completed.ID || !other.Status.IsActive() {
			continue
		}
		deliveries = append(deliveries, notificationmodels.Delivery{
			RecipientID: other.DonorID,
			Draft: notificationmodels.Draft{
				Type:            notificationmodels.TypeRequestFulfilled,
				Title:           "Request fulfilled",
				Message:         fmt.Sprintf("The request for %s at %s has been fulfilled. Thank you for responding.", request.BloodType, request.HospitalLocation()),
				RelatedEntityID: request.ID.String(),
			},
		})
	}
	s.notifyManyBestEffort(ctx, deliveries)
}

func transitionMessage(action models.Action, m *models.DonationMatch, request *requestmodels.BloodRequest) string {
	switch action {
	case models.ActionAccept:
		return fmt.Sprintf("A donor accepted your request for %s.", request.BloodType)
	case models.ActionDecline:
		return fmt.Sprintf("A donor declined your request for %s.", request.BloodType)
	case models.ActionComplete:
		return fmt.Sprintf("A donation for your %s request was completed at %s.", request.BloodType, request.HospitalLocation())
	default:
		if m.Notes != "" {
			return "A match was cancelled. " + m.Notes
		}
		return "A match was cancelled."
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(dErrors.CodeOf(err))
}
