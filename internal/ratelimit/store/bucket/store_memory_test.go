package bucket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bloodlink/internal/ratelimit/models"
)

var testLimit = models.Limit{Requests: 3, Window: time.Minute}

type InMemoryBucketStoreSuite struct {
	suite.Suite
	store *InMemoryBucketStore
	now   time.Time
	ctx   context.Context
}

func TestInMemoryBucketStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryBucketStoreSuite))
}

func (s *InMemoryBucketStoreSuite) SetupTest() {
	s.now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s.store = NewInMemoryBucketStore(WithClock(func() time.Time { return s.now }))
	s.ctx = context.Background()
}

func (s *InMemoryBucketStoreSuite) TestAllow() {
	s.Run("requests up to the limit are allowed", func() {
		for i := range testLimit.Requests {
			result, err := s.store.Allow(s.ctx, "user:a", testLimit)
			s.Require().NoError(err)
			s.True(result.Allowed)
			s.Equal(testLimit.Requests-i-1, result.Remaining)
			s.Equal(s.now.Add(time.Minute), result.ResetAt)
		}
	})

	s.Run("request over the limit is denied with a retry hint", func() {
		s.now = s.now.Add(20 * time.Second)
		result, err := s.store.Allow(s.ctx, "user:a", testLimit)
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.Equal(0, result.Remaining)
		s.Equal(40, result.RetryAfter)
	})

	s.Run("window slides", func() {
		s.now = s.now.Add(41 * time.Second)
		result, err := s.store.Allow(s.ctx, "user:a", testLimit)
		s.Require().NoError(err)
		s.True(result.Allowed)
	})

	s.Run("keys are independent", func() {
		result, err := s.store.Allow(s.ctx, "user:b", testLimit)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(testLimit.Requests-1, result.Remaining)
	})
}

func (s *InMemoryBucketStoreSuite) TestReset() {
	for range testLimit.Requests {
		_, err := s.store.Allow(s.ctx, "user:c", testLimit)
		s.Require().NoError(err)
	}
	s.Require().NoError(s.store.Reset(s.ctx, "user:c"))
	result, err := s.store.Allow(s.ctx, "user:c", testLimit)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *InMemoryBucketStoreSuite) TestConcurrentAllow() {
	limit := models.Limit{Requests: 50, Window: time.Minute}
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.store.Allow(s.ctx, "user:concurrent", limit)
			if err == nil && result.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Equal(50, allowed)
}
