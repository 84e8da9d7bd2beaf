//go:build integration

package statscache_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"bloodlink/internal/matching/models"
	"bloodlink/internal/matching/query"
	"bloodlink/internal/matching/store/statscache"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *statscache.RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.cache = statscache.New(s.redis.Client, statscache.WithTTL(time.Minute))
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestRoundTripAndInvalidate() {
	ctx := context.Background()
	donorKey := statscache.DonorKey(id.UserID(uuid.New()))
	requestKey := statscache.RequestKey(id.RequestID(uuid.New()))

	_, found, err := s.cache.Get(ctx, donorKey)
	s.Require().NoError(err)
	s.False(found)

	stats := query.Statistics{
		Total:       3,
		ByStatus:    map[models.Status]int{models.StatusAccepted: 2, models.StatusDeclined: 1},
		SuccessRate: 2.0 / 3.0,
	}
	s.Require().NoError(s.cache.Set(ctx, donorKey, stats))
	s.Require().NoError(s.cache.Set(ctx, requestKey, stats))

	got, found, err := s.cache.Get(ctx, donorKey)
	s.Require().NoError(err)
	s.True(found)
	s.Equal(stats.Total, got.Total)
	s.Equal(2, got.ByStatus[models.StatusAccepted])
	s.InDelta(stats.SuccessRate, got.SuccessRate, 1e-9)

	s.Require().NoError(s.cache.Invalidate(ctx, donorKey, requestKey))
	_, found, err = s.cache.Get(ctx, requestKey)
	s.Require().NoError(err)
	s.False(found)
}
