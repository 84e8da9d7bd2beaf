//go:build integration

package donorsearch_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	requestmodels "bloodlink/internal/bloodrequest/models"
	requeststore "bloodlink/internal/bloodrequest/store"
	donormodels "bloodlink/internal/donor/models"
	donorstore "bloodlink/internal/donor/store"
	"bloodlink/internal/donorsearch"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/testutil/containers"
)

type PostgresFinderSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	requests *requeststore.PostgresStore
	donors   *donorstore.PostgresStore
	finder   *donorsearch.PostgresFinder
}

func TestPostgresFinderSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresFinderSuite))
}

func (s *PostgresFinderSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.requests = requeststore.NewPostgres(s.postgres.DB)
	s.donors = donorstore.NewPostgres(s.postgres.DB)
	s.finder = donorsearch.NewPostgresFinder(s.postgres.DB)
}

func (s *PostgresFinderSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "donation_matches", "donors", "blood_requests"))
}

func (s *PostgresFinderSuite) seedRequest(ctx context.Context, bloodType id.BloodType, lat, lon float64) *requestmodels.BloodRequest {
	req, err := requestmodels.NewBloodRequest(
		id.RequestID(uuid.New()), id.UserID(uuid.New()), "Rita", "Pat",
		bloodType, 1, id.UrgencyHigh, "General", "", "Springfield", "IL", time.Now().UTC(),
	)
	s.Require().NoError(err)
	s.Require().NoError(s.requests.Create(ctx, req))
	_, err = s.postgres.DB.ExecContext(ctx,
		`UPDATE blood_requests SET hospital_latitude = $2, hospital_longitude = $3 WHERE id = $1`,
		uuid.UUID(req.ID), lat, lon)
	s.Require().NoError(err)
	return req
}

func (s *PostgresFinderSuite) seedDonor(ctx context.Context, bloodType id.BloodType, available bool, lat, lon float64) id.UserID {
	donor := &donormodels.Donor{
		ID:        id.UserID(uuid.New()),
		Name:      "Donor " + string(bloodType),
		BloodType: bloodType,
		City:      "Springfield",
		State:     "IL",
		Available: available,
	}
	s.Require().NoError(s.donors.Save(ctx, donor))
	_, err := s.postgres.DB.ExecContext(ctx,
		`UPDATE donors SET latitude = $2, longitude = $3 WHERE id = $1`,
		uuid.UUID(donor.ID), lat, lon)
	s.Require().NoError(err)
	return donor.ID
}

func (s *PostgresFinderSuite) TestFindCompatibleDonors() {
	ctx := context.Background()
	req := s.seedRequest(ctx, id.BloodTypeAPos, 39.78, -89.65)

	// Roughly 1 km and 13 km from the hospital, then an incompatible donor,
	// an unavailable one and one in Chicago.
	near := s.seedDonor(ctx, id.BloodTypeONeg, true, 39.79, -89.65)
	farther := s.seedDonor(ctx, id.BloodTypeAPos, true, 39.90, -89.65)
	s.seedDonor(ctx, id.BloodTypeBPos, true, 39.78, -89.65)
	unavailable := s.seedDonor(ctx, id.BloodTypeAPos, false, 39.78, -89.66)
	s.seedDonor(ctx, id.BloodTypeONeg, true, 41.88, -87.63)

	s.Run("nearest compatible available donors first", func() {
		result, err := s.finder.FindCompatibleDonors(ctx, donorsearch.Params{RequestID: req.ID})
		s.Require().NoError(err)
		s.Equal(2, result.TotalCount)
		s.Require().Len(result.Candidates, 2)
		s.Equal(near, result.Candidates[0].DonorID)
		s.Equal(farther, result.Candidates[1].DonorID)
		s.Less(result.Candidates[0].DistanceKm, result.Candidates[1].DistanceKm)
	})

	s.Run("unavailable donors on request", func() {
		result, err := s.finder.FindCompatibleDonors(ctx, donorsearch.Params{RequestID: req.ID, IncludeUnavailable: true})
		s.Require().NoError(err)
		s.Equal(3, result.TotalCount)
		var ids []id.UserID
		for _, c := range result.Candidates {
			ids = append(ids, c.DonorID)
		}
		s.Contains(ids, unavailable)
	})

	s.Run("max results truncates but keeps the total", func() {
		result, err := s.finder.FindCompatibleDonors(ctx, donorsearch.Params{RequestID: req.ID, MaxResults: 1})
		s.Require().NoError(err)
		s.Equal(2, result.TotalCount)
		s.Require().Len(result.Candidates, 1)
		s.Equal(near, result.Candidates[0].DonorID)
	})

	s.Run("donor store loads every candidate", func() {
		found, err := s.donors.FindByIDs(ctx, []id.UserID{near, farther})
		s.Require().NoError(err)
		s.Len(found, 2)
		s.Equal(id.BloodTypeONeg, found[near].BloodType)
	})
}

func (s *PostgresFinderSuite) TestUnknownRequestReturnsNothing() {
	result, err := s.finder.FindCompatibleDonors(context.Background(), donorsearch.Params{RequestID: id.RequestID(uuid.New())})
	s.Require().NoError(err)
	s.Empty(result.Candidates)
	s.Zero(result.TotalCount)
}
