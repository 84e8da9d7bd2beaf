package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	requestmodels "bloodlink/internal/bloodrequest/models"
	donormodels "bloodlink/internal/donor/models"
	"bloodlink/internal/donorsearch"
	"bloodlink/internal/matching/models"
	"bloodlink/internal/matching/query"
	"bloodlink/internal/matching/store/statscache"
	notificationmodels "bloodlink/internal/notification/models"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	audit "bloodlink/pkg/platform/audit"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/requestcontext"
)

// SearchOptions tunes one matching run. Zero values take the search defaults.
type SearchOptions struct {
	MaxDistanceKm      float64
	MaxResults         int
	IncludeUnavailable bool
}

// FindMatchesResult lists the matches created by one run, nearest first.
// TotalCount is the number of donors the search found before truncation.
type FindMatchesResult struct {
	Matches    []models.MatchView `json:"matches"`
	TotalCount int                `json:"total_count"`
}

// FindMatches asks the donor oracle for nearby compatible donors and opens a
// pending match with each one not already holding an active match for the
// request. Only the requester may run it.
func (s *Service) FindMatches(ctx context.Context, actor id.UserID, requestID id.RequestID, opts SearchOptions) (result *FindMatchesResult, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "matching.FindMatches", attribute.String("request_id", requestID.String()))
	defer func() {
		endSpan(span, err)
		if s.metrics != nil {
			s.metrics.ObserveFindMatches(start)
		}
	}()

	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !request.IsOwnedBy(actor) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the requester can run matching for this request")
	}
	if !request.AcceptsMatches() {
		return nil, dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("request is %s; matching requires pending or matching", request.Status))
	}

	params := donorsearch.Params{
		RequestID:          requestID,
		MaxDistanceKm:      opts.MaxDistanceKm,
		MaxResults:         opts.MaxResults,
		IncludeUnavailable: opts.IncludeUnavailable,
	}.WithDefaults()
	found, err := s.finder.FindCompatibleDonors(ctx, params)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "donor search failed")
	}
	span.SetAttributes(attribute.Int("candidates", len(found.Candidates)), attribute.Int("total_count", found.TotalCount))

	donorIDs := make([]id.UserID, 0, len(found.Candidates))
	for _, c := range found.Candidates {
		donorIDs = append(donorIDs, c.DonorID)
	}
	donors, err := s.donors.FindByIDs(ctx, donorIDs)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load candidate donors")
	}

	planned, err := s.planMatches(ctx, request, found.Candidates, donors)
	if err != nil {
		return nil, err
	}

	created := make([]*models.DonationMatch, 0, len(planned))
	for _, m := range planned {
		if err := s.matches.Create(ctx, m); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create match")
		}
		created = append(created, m)
	}

	now := requestcontext.Now(ctx)
	if len(created) > 0 && request.Status == requestmodels.StatusPending {
		err := s.requests.UpdateStatusIf(ctx, request.ID, requestmodels.StatusPending, requestmodels.StatusMatching, now)
		switch {
		case err == nil:
			request.ApplyStatus(requestmodels.StatusMatching, now)
		case errors.Is(err, sentinel.ErrConflict):
			// Another run or a cancel moved the request first; report what is stored.
			if request, err = s.loadRequest(ctx, request.ID); err != nil {
				return nil, err
			}
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark request as matching")
		}
	}

	if s.metrics != nil {
		s.metrics.AddMatchesCreated(len(created))
	}

	deliveries := make([]notificationmodels.Delivery, 0, len(created))
	views := make([]models.MatchView, 0, len(created))
	keys := []string{statscache.RequestKey(request.ID)}
	for _, m := range created {
		donor := donors[m.DonorID]
		views = append(views, models.WithDonor(*m, models.DonorJoin{
			DonorName: donor.Name,
			BloodType: donor.BloodType,
			City:      donor.City,
			State:     donor.State,
		}))
		deliveries = append(deliveries, notificationmodels.Delivery{RecipientID: m.DonorID, Draft: newMatchDraft(request, m)})
		keys = append(keys, statscache.DonorKey(m.DonorID))
		s.logAudit(ctx, string(audit.EventMatchCreated),
			"user_id", actor,
			"subject", m.ID,
			"donor_id", m.DonorID,
			"distance_km", m.DistanceKm,
		)
	}
	s.invalidateStats(ctx, keys...)
	s.notifyManyBestEffort(ctx, deliveries)

	return &FindMatchesResult{
		Matches:    query.SortMatches(views, query.SortByDistance, query.OrderAsc),
		TotalCount: found.TotalCount,
	}, nil
}

// planMatches builds a pending match for every usable candidate. A candidate
// whose blood type cannot supply the request fails the whole run before
// anything is written.
func (s *Service) planMatches(
	ctx context.Context,
	request *requestmodels.BloodRequest,
	candidates []donorsearch.Candidate,
	donors map[id.UserID]*donormodels.Donor,
) ([]*models.DonationMatch, error) {
	now := requestcontext.Now(ctx)
	seen := make(map[id.UserID]bool, len(candidates))
	planned := make([]*models.DonationMatch, 0, len(candidates))
	for _, c := range candidates {
		if c.DonorID == request.RequesterID || seen[c.DonorID] {
			continue
		}
		seen[c.DonorID] = true

		donor, ok := donors[c.DonorID]
		if !ok {
			return nil, dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("donor search returned unknown donor %s", c.DonorID))
		}
		m, err := models.NewDonationMatch(
			id.MatchID(uuid.New()), request.ID, donor.ID,
			donor.BloodType, request.BloodType, c.DistanceKm, now,
		)
		if err != nil {
			s.logger.ErrorContext(ctx, "donor search returned incompatible donor",
				"request_id", request.ID.String(),
				"donor_id", donor.ID.String(),
				"donor_blood_type", string(donor.BloodType),
				"request_blood_type", string(request.BloodType),
			)
			return nil, err
		}

		active, err := s.matches.HasActiveMatch(ctx, request.ID, donor.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing matches")
		}
		if active {
			continue
		}
		planned = append(planned, m)
	}
	return planned, nil
}

func newMatchDraft(request *requestmodels.BloodRequest, m *models.DonationMatch) notificationmodels.Draft {
	return notificationmodels.Draft{
		Type:  notificationmodels.TypeMatchCreated,
		Title: "A blood request needs you",
		Message: fmt.Sprintf("%s needs %d unit(s) of %s at %s (%.1f km away).",
			request.RequesterName, request.UnitsNeeded, request.BloodType, request.HospitalLocation(), m.DistanceKm),
		RelatedEntityID: m.ID.String(),
	}
}

func (s *Service) loadRequest(ctx context.Context, requestID id.RequestID) (*requestmodels.BloodRequest, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "blood request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load blood request")
	}
	return request, nil
}
