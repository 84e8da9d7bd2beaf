package handler

import (
	"net/url"
	"strings"
	"time"

	"bloodlink/internal/matching/models"
	"bloodlink/internal/matching/query"
	"bloodlink/internal/matching/service"
	dErrors "bloodlink/pkg/domain-errors"
)

const maxSearchResults = 100

// FindMatchesRequest is the optional body of POST /requests/{id}/matches.
type FindMatchesRequest struct {
	MaxDistanceKm      float64 `json:"max_distance_km"`
	MaxResults         int     `json:"max_results"`
	IncludeUnavailable bool    `json:"include_unavailable"`
}

func (r *FindMatchesRequest) Validate() error {
	if r.MaxDistanceKm < 0 {
		return dErrors.New(dErrors.CodeValidation, "max_distance_km must not be negative")
	}
	if r.MaxResults < 0 || r.MaxResults > maxSearchResults {
		return dErrors.New(dErrors.CodeValidation, "max_results must be between 0 and 100")
	}
	return nil
}

func (r *FindMatchesRequest) Options() service.SearchOptions {
	return service.SearchOptions{
		MaxDistanceKm:      r.MaxDistanceKm,
		MaxResults:         r.MaxResults,
		IncludeUnavailable: r.IncludeUnavailable,
	}
}

// TransitionRequest is the optional body of POST /matches/{id}/{action}.
type TransitionRequest struct {
	Notes        string     `json:"notes"`
	Reason       string     `json:"reason"`
	DonationTime *time.Time `json:"donation_time"`
}

func (r *TransitionRequest) Validate() error {
	r.Notes = strings.TrimSpace(r.Notes)
	r.Reason = strings.TrimSpace(r.Reason)
	if len(r.Notes) > 1000 || len(r.Reason) > 1000 {
		return dErrors.New(dErrors.CodeValidation, "notes and reason must be at most 1000 characters")
	}
	return nil
}

func (r *TransitionRequest) Input() service.TransitionInput {
	return service.TransitionInput{Notes: r.Notes, Reason: r.Reason, DonationTime: r.DonationTime}
}

// parseListOptions reads status, city, state, from, to, sort and order.
func parseListOptions(values url.Values) (service.ListOptions, error) {
	var opts service.ListOptions
	if raw := values.Get("status"); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			return opts, err
		}
		opts.Status = status
	}
	for _, bound := range []struct {
		name string
		dst  **time.Time
	}{{"from", &opts.From}, {"to", &opts.To}} {
		raw := values.Get(bound.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return opts, dErrors.New(dErrors.CodeInvalidInput, bound.name+" must be an RFC3339 timestamp")
		}
		*bound.dst = &t
	}
	if opts.From != nil && opts.To != nil && opts.To.Before(*opts.From) {
		return opts, dErrors.New(dErrors.CodeInvalidInput, "to must not be before from")
	}
	opts.City = strings.TrimSpace(values.Get("city"))
	opts.State = strings.TrimSpace(values.Get("state"))

	key, order, err := query.ParseSort(values.Get("sort"), values.Get("order"))
	if err != nil {
		return opts, err
	}
	opts.Sort, opts.Order = key, order
	return opts, nil
}
