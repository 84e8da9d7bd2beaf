package ratelimit

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GetResponseField(field string) (interface{}, error)
	GetLastResponseStatus() int
}

// RegisterSteps registers per-user rate limiting steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I search for donors for the request (\d+) times$`, steps.searchRepeatedly)
	ctx.Step(`^at least one search should be rate limited$`, steps.atLeastOneLimited)
	ctx.Step(`^the response should indicate the rate limit was exceeded$`, steps.responseIndicatesExceeded)
}

type ratelimitSteps struct {
	tc       TestContext
	statuses []int
}

func (s *ratelimitSteps) searchRepeatedly(ctx context.Context, n int) error {
	s.statuses = s.statuses[:0]
	for range n {
		if err := s.tc.POST("/requests/{request_id}/matches", map[string]any{}); err != nil {
			return err
		}
		s.statuses = append(s.statuses, s.tc.GetLastResponseStatus())
		if s.tc.GetLastResponseStatus() == http.StatusTooManyRequests {
			return nil
		}
	}
	return nil
}

func (s *ratelimitSteps) atLeastOneLimited(ctx context.Context) error {
	for _, status := range s.statuses {
		if status == http.StatusTooManyRequests {
			return nil
		}
	}
	return fmt.Errorf("no request was rate limited, statuses: %v", s.statuses)
}

func (s *ratelimitSteps) responseIndicatesExceeded(ctx context.Context) error {
	code, err := s.tc.GetResponseField("error")
	if err != nil {
		return err
	}
	if code != "rate_limit_exceeded" {
		return fmt.Errorf("expected error rate_limit_exceeded, got %v", code)
	}
	return nil
}
