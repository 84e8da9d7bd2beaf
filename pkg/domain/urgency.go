package domain

import (
	"strings"

	dErrors "bloodlink/pkg/domain-errors"
)

// UrgencyLevel ranks how quickly a blood request must be served.
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "low"
	UrgencyNormal   UrgencyLevel = "normal"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyCritical UrgencyLevel = "critical"
)

var urgencyRank = map[UrgencyLevel]int{
	UrgencyLow:      1,
	UrgencyNormal:   2,
	UrgencyHigh:     3,
	UrgencyCritical: 4,
}

// ParseUrgencyLevel accepts any casing. An empty value defaults to normal.
func ParseUrgencyLevel(s string) (UrgencyLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return UrgencyNormal, nil
	}
	u := UrgencyLevel(s)
	if !u.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid urgency: "+s)
	}
	return u, nil
}

func (u UrgencyLevel) IsValid() bool {
	_, ok := urgencyRank[u]
	return ok
}

// Rank orders urgency levels; higher is more urgent. Unknown levels rank 0.
func (u UrgencyLevel) Rank() int {
	return urgencyRank[u]
}

func (u UrgencyLevel) String() string {
	return string(u)
}
