package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"bloodlink/internal/bloodrequest/models"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

type RequestStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestRequestStoreSuite(t *testing.T) {
	suite.Run(t, new(RequestStoreSuite))
}

func (s *RequestStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *RequestStoreSuite) newRequest() *models.BloodRequest {
	now := time.Now()
	return &models.BloodRequest{
		ID:           id.RequestID(uuid.New()),
		RequesterID:  id.UserID(uuid.New()),
		BloodType:    id.BloodTypeOPos,
		UnitsNeeded:  1,
		Urgency:      id.UrgencyNormal,
		Status:       models.StatusPending,
		HospitalName: "General",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *RequestStoreSuite) TestCreateAndFind() {
	s.Run("round trips a request", func() {
		r := s.newRequest()
		s.Require().NoError(s.store.Create(s.ctx, r))

		found, err := s.store.FindByID(s.ctx, r.ID)
		s.Require().NoError(err)
		s.Equal(r.RequesterID, found.RequesterID)
	})

	s.Run("duplicate id is rejected", func() {
		r := s.newRequest()
		s.Require().NoError(s.store.Create(s.ctx, r))
		s.ErrorIs(s.store.Create(s.ctx, r), sentinel.ErrAlreadyUsed)
	})

	s.Run("unknown id returns ErrNotFound", func() {
		_, err := s.store.FindByID(s.ctx, id.RequestID(uuid.New()))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *RequestStoreSuite) TestUpdateStatus() {
	r := s.newRequest()
	s.Require().NoError(s.store.Create(s.ctx, r))

	later := r.CreatedAt.Add(time.Hour)
	s.Require().NoError(s.store.UpdateStatusIf(s.ctx, r.ID, models.StatusPending, models.StatusMatching, later))

	found, err := s.store.FindByID(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusMatching, found.Status)
	s.Equal(later, found.UpdatedAt)

	s.Run("stale expected status is a conflict", func() {
		err := s.store.UpdateStatusIf(s.ctx, r.ID, models.StatusPending, models.StatusCancelled, later.Add(time.Minute))
		s.ErrorIs(err, sentinel.ErrConflict)

		found, err := s.store.FindByID(s.ctx, r.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusMatching, found.Status)
		s.Equal(later, found.UpdatedAt)
	})

	s.Run("only one of two racing fulfilments wins", func() {
		results := make(chan error, 2)
		for range 2 {
			go func() {
				results <- s.store.UpdateStatusIf(s.ctx, r.ID, models.StatusMatching, models.StatusFulfilled, later)
			}()
		}
		first, second := <-results, <-results
		s.True((first == nil) != (second == nil), "exactly one update should win: %v, %v", first, second)
		if first != nil {
			s.ErrorIs(first, sentinel.ErrConflict)
		} else {
			s.ErrorIs(second, sentinel.ErrConflict)
		}
	})

	s.ErrorIs(s.store.UpdateStatusIf(s.ctx, id.RequestID(uuid.New()), models.StatusPending, models.StatusMatching, later), sentinel.ErrNotFound)
}

func (s *RequestStoreSuite) TestReturnedValuesAreCopies() {
	r := s.newRequest()
	s.Require().NoError(s.store.Create(s.ctx, r))

	found, err := s.store.FindByID(s.ctx, r.ID)
	s.Require().NoError(err)
	found.Status = models.StatusCancelled

	again, err := s.store.FindByID(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, again.Status)
}
