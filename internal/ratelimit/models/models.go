// Package models defines rate limit classes and results.
package models

import (
	"fmt"
	"time"
)

// Class groups endpoints that share a per-user budget.
type Class string

const (
	ClassMatchSearch Class = "match_search"
	ClassWrite       Class = "write"
	ClassRead        Class = "read"
)

// Limit is a sliding-window budget.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Result describes the outcome of one check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds
}

// UserKey builds the bucket key for a user and class.
func UserKey(userID string, class Class) string {
	return fmt.Sprintf("ratelimit:user:%s:%s", class, userID)
}

// ExceededResponse is the body of a 429 response.
type ExceededResponse struct {
	Error          string    `json:"error"`
	Message        string    `json:"message"`
	QuotaLimit     int       `json:"quota_limit"`
	QuotaRemaining int       `json:"quota_remaining"`
	QuotaReset     time.Time `json:"quota_reset"`
	RetryAfter     int       `json:"retry_after"`
}
