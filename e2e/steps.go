package e2e

import (
	"github.com/cucumber/godog"

	"bloodlink/e2e/steps/common"
	"bloodlink/e2e/steps/matching"
	"bloodlink/e2e/steps/ratelimit"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	matching.RegisterSteps(ctx, tc)
	ratelimit.RegisterSteps(ctx, tc)
}
