package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	historymodels "bloodlink/internal/history/models"
	"bloodlink/internal/matching/models"
	"bloodlink/internal/matching/query"
	"bloodlink/internal/matching/store/statscache"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

// ListOptions narrows and orders a match list. Zero values mean "any" and
// the default sort (newest first).
type ListOptions struct {
	Status models.Status
	From   *time.Time
	To     *time.Time
	City   string
	State  string
	Sort   query.SortKey
	Order  query.SortOrder
}

// ListResult is a filtered page of views plus statistics over every match
// the caller can see, before filtering.
type ListResult struct {
	Matches    []models.MatchView `json:"matches"`
	Statistics query.Statistics   `json:"statistics"`
}

// ListDonorMatches returns the donor's matches joined with the requests they
// answer.
func (s *Service) ListDonorMatches(ctx context.Context, donorID id.UserID, opts ListOptions) (result *ListResult, err error) {
	ctx, span := s.startSpan(ctx, "matching.ListDonorMatches", attribute.String("donor_id", donorID.String()))
	defer func() { endSpan(span, err) }()

	if donorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	matches, err := s.matches.ListByDonor(ctx, donorID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list donor matches")
	}

	views := make([]models.MatchView, 0, len(matches))
	requests := make(map[id.RequestID]models.RequesterJoin)
	for _, m := range matches {
		join, ok := requests[m.RequestID]
		if !ok {
			request, err := s.loadRequest(ctx, m.RequestID)
			if err != nil {
				return nil, err
			}
			join = models.RequesterJoin{
				RequesterID:   request.RequesterID,
				RequesterName: request.RequesterName,
				PatientName:   request.PatientName,
				BloodType:     request.BloodType,
				UnitsNeeded:   request.UnitsNeeded,
				Urgency:       request.Urgency,
				RequestStatus: string(request.Status),
				HospitalName:  request.HospitalName,
				HospitalCity:  request.HospitalCity,
				HospitalState: request.HospitalState,
			}
			requests[m.RequestID] = join
		}
		views = append(views, models.WithRequester(*m, join))
	}

	stats := s.statistics(ctx, statscache.DonorKey(donorID), views)
	return &ListResult{Matches: applyListOptions(views, opts), Statistics: stats}, nil
}

// ListRequestMatches returns the matches for one request joined with donor
// details. Only the requester may list them.
func (s *Service) ListRequestMatches(ctx context.Context, actor id.UserID, requestID id.RequestID, opts ListOptions) (result *ListResult, err error) {
	ctx, span := s.startSpan(ctx, "matching.ListRequestMatches", attribute.String("request_id", requestID.String()))
	defer func() { endSpan(span, err) }()

	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !request.IsOwnedBy(actor) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the requester can view matches for this request")
	}

	matches, err := s.matches.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list request matches")
	}
	donorIDs := make([]id.UserID, 0, len(matches))
	for _, m := range matches {
		donorIDs = append(donorIDs, m.DonorID)
	}
	donors, err := s.donors.FindByIDs(ctx, donorIDs)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load matched donors")
	}

	views := make([]models.MatchView, 0, len(matches))
	for _, m := range matches {
		var join models.DonorJoin
		if donor, ok := donors[m.DonorID]; ok {
			join = models.DonorJoin{
				DonorName: donor.Name,
				BloodType: donor.BloodType,
				City:      donor.City,
				State:     donor.State,
			}
		}
		views = append(views, models.WithDonor(*m, join))
	}

	stats := s.statistics(ctx, statscache.RequestKey(requestID), views)
	return &ListResult{Matches: applyListOptions(views, opts), Statistics: stats}, nil
}

// ListHistory returns the donor's completed donations, newest first.
func (s *Service) ListHistory(ctx context.Context, donorID id.UserID) ([]*historymodels.DonationRecord, error) {
	if donorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	records, err := s.history.ListByDonor(ctx, donorID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list donation history")
	}
	if records == nil {
		records = []*historymodels.DonationRecord{}
	}
	return records, nil
}

func applyListOptions(views []models.MatchView, opts ListOptions) []models.MatchView {
	if opts.Status != "" {
		views = query.FilterByStatus(views, opts.Status)
	}
	if opts.From != nil || opts.To != nil {
		views = query.FilterByDateRange(views, opts.From, opts.To)
	}
	views = query.FilterByLocation(views, opts.City, opts.State)

	key, order, err := query.ParseSort(string(opts.Sort), string(opts.Order))
	if err != nil {
		key, order = query.SortByCreatedAt, query.OrderDesc
	}
	return query.SortMatches(views, key, order)
}

// statistics serves from the cache when possible. Cache failures fall back to
// computing from views.
func (s *Service) statistics(ctx context.Context, key string, views []models.MatchView) query.Statistics {
	if s.cache == nil {
		return query.ComputeStatistics(query.Matches(views))
	}
	cached, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.countCache("error")
		s.logger.WarnContext(ctx, "match statistics cache read failed", "key", key, "error", err)
	case ok:
		s.countCache("hit")
		return cached
	default:
		s.countCache("miss")
	}

	stats := query.ComputeStatistics(query.Matches(views))
	if err := s.cache.Set(ctx, key, stats); err != nil {
		s.logger.WarnContext(ctx, "match statistics cache write failed", "key", key, "error", err)
	}
	return stats
}

func (s *Service) countCache(result string) {
	if s.metrics != nil {
		s.metrics.IncrementStatsCache(result)
	}
}
