package matching

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	ActAs(name string)
	Save(key, value string)
	Saved(key string) string
	POST(path string, body interface{}) error
	PUT(path string, body interface{}) error
	GetResponseField(field string) (interface{}, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers donor, blood request and match lifecycle steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &matchingSteps{tc: tc}

	ctx.Step(`^donor "([^"]*)" with blood type "([^"]*)" lives in "([^"]*)", "([^"]*)"$`, steps.registerDonor)
	ctx.Step(`^"([^"]*)" requests (\d+) units of "([^"]*)" at "([^"]*)" in "([^"]*)", "([^"]*)"$`, steps.createRequest)
	ctx.Step(`^I search for donors for the request$`, steps.findMatches)
	ctx.Step(`^I save the first match$`, steps.saveFirstMatch)
	ctx.Step(`^I (accept|decline|complete|cancel) the match$`, steps.transition)
	ctx.Step(`^I cancel the match with reason "([^"]*)"$`, steps.cancelWithReason)
	ctx.Step(`^the search should return (\d+) match(?:es)?$`, steps.searchShouldReturn)
}

type matchingSteps struct {
	tc TestContext
}

func (s *matchingSteps) registerDonor(ctx context.Context, name, bloodType, city, state string) error {
	s.tc.ActAs(name)
	if err := s.tc.PUT("/donors/me", map[string]any{
		"name":       name,
		"blood_type": bloodType,
		"city":       city,
		"state":      state,
	}); err != nil {
		return err
	}
	return expectStatus(s.tc, 200)
}

func (s *matchingSteps) createRequest(ctx context.Context, requester string, units int, bloodType, hospital, city, state string) error {
	s.tc.ActAs(requester)
	if err := s.tc.POST("/requests", map[string]any{
		"requester_name": requester,
		"patient_name":   "Patient of " + requester,
		"blood_type":     bloodType,
		"units_needed":   units,
		"urgency":        "high",
		"hospital_name":  hospital,
		"hospital_city":  city,
		"hospital_state": state,
	}); err != nil {
		return err
	}
	if err := expectStatus(s.tc, 201); err != nil {
		return err
	}
	requestID, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	s.tc.Save("request_id", fmt.Sprint(requestID))
	return nil
}

func (s *matchingSteps) findMatches(ctx context.Context) error {
	return s.tc.POST("/requests/{request_id}/matches", map[string]any{
		"max_distance_km": 50,
		"max_results":     20,
	})
}

func (s *matchingSteps) saveFirstMatch(ctx context.Context) error {
	matches, err := s.matches()
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("no matches in response")
	}
	first, ok := matches[0].(map[string]any)
	if !ok {
		return fmt.Errorf("unexpected match shape: %v", matches[0])
	}
	s.tc.Save("match_id", fmt.Sprint(first["id"]))
	return nil
}

func (s *matchingSteps) transition(ctx context.Context, action string) error {
	return s.tc.POST("/matches/{match_id}/"+action, map[string]any{})
}

func (s *matchingSteps) cancelWithReason(ctx context.Context, reason string) error {
	return s.tc.POST("/matches/{match_id}/cancel", map[string]any{"reason": reason})
}

func (s *matchingSteps) searchShouldReturn(ctx context.Context, expected int) error {
	if err := expectStatus(s.tc, 200); err != nil {
		return err
	}
	matches, err := s.matches()
	if err != nil {
		return err
	}
	if len(matches) != expected {
		return fmt.Errorf("expected %d matches, got %d", expected, len(matches))
	}
	return nil
}

func (s *matchingSteps) matches() ([]any, error) {
	raw, err := s.tc.GetResponseField("matches")
	if err != nil {
		return nil, err
	}
	matches, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("matches is not a list: %v", raw)
	}
	return matches, nil
}

func expectStatus(tc TestContext, expected int) error {
	if got := tc.GetLastResponseStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, got, tc.GetLastResponseBody())
	}
	return nil
}
