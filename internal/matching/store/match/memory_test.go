package match

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"bloodlink/internal/matching/models"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

type MatchStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestMatchStoreSuite(t *testing.T) {
	suite.Run(t, new(MatchStoreSuite))
}

func (s *MatchStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *MatchStoreSuite) newMatch(requestID id.RequestID, donorID id.UserID, createdAt time.Time) *models.DonationMatch {
	return &models.DonationMatch{
		ID:        id.MatchID(uuid.New()),
		RequestID: requestID,
		DonorID:   donorID,
		Status:    models.StatusPending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func (s *MatchStoreSuite) TestActivePairUniqueness() {
	requestID := id.RequestID(uuid.New())
	donorID := id.UserID(uuid.New())
	now := time.Now()

	first := s.newMatch(requestID, donorID, now)
	s.Require().NoError(s.store.Create(s.ctx, first))

	s.Run("second active match for the pair is rejected", func() {
		err := s.store.Create(s.ctx, s.newMatch(requestID, donorID, now))
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("same donor on another request is fine", func() {
		s.NoError(s.store.Create(s.ctx, s.newMatch(id.RequestID(uuid.New()), donorID, now)))
	})

	s.Run("pair frees up once the match is no longer active", func() {
		declined := *first
		declined.ApplyDecline("", now)
		s.Require().NoError(s.store.UpdateIfStatus(s.ctx, &declined, models.StatusPending))

		active, err := s.store.HasActiveMatch(s.ctx, requestID, donorID)
		s.Require().NoError(err)
		s.False(active)
		s.NoError(s.store.Create(s.ctx, s.newMatch(requestID, donorID, now)))
	})
}

func (s *MatchStoreSuite) TestUpdateIfStatus() {
	now := time.Now()
	m := s.newMatch(id.RequestID(uuid.New()), id.UserID(uuid.New()), now)
	s.Require().NoError(s.store.Create(s.ctx, m))

	s.Run("applies when expected status holds", func() {
		accepted := *m
		accepted.ApplyAccept(now.Add(time.Minute))
		s.Require().NoError(s.store.UpdateIfStatus(s.ctx, &accepted, models.StatusPending))

		stored, err := s.store.FindByID(s.ctx, m.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusAccepted, stored.Status)
	})

	s.Run("stale expectation is a conflict and leaves the record alone", func() {
		declined := *m
		declined.ApplyDecline("late", now.Add(2*time.Minute))
		err := s.store.UpdateIfStatus(s.ctx, &declined, models.StatusPending)
		s.ErrorIs(err, sentinel.ErrConflict)

		stored, err := s.store.FindByID(s.ctx, m.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusAccepted, stored.Status)
		s.Empty(stored.Notes)
	})

	s.Run("unknown match is not found", func() {
		ghost := s.newMatch(id.RequestID(uuid.New()), id.UserID(uuid.New()), now)
		s.ErrorIs(s.store.UpdateIfStatus(s.ctx, ghost, models.StatusPending), sentinel.ErrNotFound)
	})
}

func (s *MatchStoreSuite) TestListsAreOrderedByCreation() {
	requestID := id.RequestID(uuid.New())
	donorID := id.UserID(uuid.New())
	base := time.Now()

	later := s.newMatch(requestID, id.UserID(uuid.New()), base.Add(time.Hour))
	earlier := s.newMatch(requestID, donorID, base)
	s.Require().NoError(s.store.Create(s.ctx, later))
	s.Require().NoError(s.store.Create(s.ctx, earlier))

	byRequest, err := s.store.ListByRequest(s.ctx, requestID)
	s.Require().NoError(err)
	s.Require().Len(byRequest, 2)
	s.Equal(earlier.ID, byRequest[0].ID)
	s.Equal(later.ID, byRequest[1].ID)

	byDonor, err := s.store.ListByDonor(s.ctx, donorID)
	s.Require().NoError(err)
	s.Require().Len(byDonor, 1)
	s.Equal(earlier.ID, byDonor[0].ID)
}
