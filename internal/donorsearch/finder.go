// Package donorsearch wraps the candidate-donor oracle. The oracle is trusted
// to return nearby compatible donors; callers still re-check compatibility.
package donorsearch

import (
	id "bloodlink/pkg/domain"
)

const (
	DefaultMaxDistanceKm = 50.0
	DefaultMaxResults    = 20
)

// Params mirrors the arguments of find_compatible_donors.
type Params struct {
	RequestID          id.RequestID
	MaxDistanceKm      float64
	MaxResults         int
	IncludeUnavailable bool
}

// WithDefaults fills zero values with the standard search radius and page size.
func (p Params) WithDefaults() Params {
	if p.MaxDistanceKm <= 0 {
		p.MaxDistanceKm = DefaultMaxDistanceKm
	}
	if p.MaxResults <= 0 {
		p.MaxResults = DefaultMaxResults
	}
	return p
}

// Candidate is one donor returned by the oracle.
type Candidate struct {
	DonorID    id.UserID
	DistanceKm float64
}

// Result holds at most MaxResults candidates and the total number of donors
// that satisfied the search before truncation.
type Result struct {
	Candidates []Candidate
	TotalCount int
}
