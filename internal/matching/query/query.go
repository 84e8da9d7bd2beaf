// Package query derives filtered, sorted and aggregated views over a set of
// matches. Every function is pure and preserves input order unless it sorts.
package query

import (
	"sort"
	"strings"
	"time"

	"bloodlink/internal/matching/models"
	dErrors "bloodlink/pkg/domain-errors"
	platformstrings "bloodlink/pkg/platform/strings"
)

// FilterByStatus keeps views whose match status equals status.
func FilterByStatus(views []models.MatchView, status models.Status) []models.MatchView {
	return filter(views, func(v models.MatchView) bool {
		return v.Match.Status == status
	})
}

// FilterByDateRange keeps views created within [start, end]. A nil bound is open.
func FilterByDateRange(views []models.MatchView, start, end *time.Time) []models.MatchView {
	return filter(views, func(v models.MatchView) bool {
		created := v.Match.CreatedAt
		if start != nil && created.Before(*start) {
			return false
		}
		if end != nil && created.After(*end) {
			return false
		}
		return true
	})
}

// FilterByLocation keeps views whose city and state match case-insensitively.
// An empty city or state matches anything.
func FilterByLocation(views []models.MatchView, city, state string) []models.MatchView {
	city = strings.TrimSpace(city)
	state = strings.TrimSpace(state)
	if city == "" && state == "" {
		return filter(views, func(models.MatchView) bool { return true })
	}
	return filter(views, func(v models.MatchView) bool {
		if city != "" && !platformstrings.EqualFoldTrim(v.City(), city) {
			return false
		}
		if state != "" && !platformstrings.EqualFoldTrim(v.State(), state) {
			return false
		}
		return true
	})
}

func filter(views []models.MatchView, keep func(models.MatchView) bool) []models.MatchView {
	out := make([]models.MatchView, 0, len(views))
	for _, v := range views {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// Statistics summarizes a set of matches.
type Statistics struct {
	Total                      int                   `json:"total"`
	ByStatus                   map[models.Status]int `json:"by_status"`
	AverageResponseTimeMinutes float64               `json:"average_response_time_minutes"`
	SuccessRate                float64               `json:"success_rate"`
}

// ComputeStatistics counts matches per status, averages the minutes between
// creation and response over responded matches, and reports the share of
// responded matches that were accepted or completed. Empty denominators give 0.
func ComputeStatistics(matches []models.DonationMatch) Statistics {
	stats := Statistics{
		Total:    len(matches),
		ByStatus: make(map[models.Status]int, len(models.AllStatuses)),
	}
	for _, st := range models.AllStatuses {
		stats.ByStatus[st] = 0
	}

	var (
		responseMinutes float64
		responded       int
	)
	for _, m := range matches {
		stats.ByStatus[m.Status]++
		if m.ResponseTime != nil {
			responseMinutes += m.ResponseTime.Sub(m.CreatedAt).Minutes()
			responded++
		}
	}
	if responded > 0 {
		stats.AverageResponseTimeMinutes = responseMinutes / float64(responded)
	}

	nonPending := stats.Total - stats.ByStatus[models.StatusPending]
	if nonPending > 0 {
		successes := stats.ByStatus[models.StatusAccepted] + stats.ByStatus[models.StatusCompleted]
		stats.SuccessRate = float64(successes) / float64(nonPending)
	}
	return stats
}

// Matches unwraps the core match from each view.
func Matches(views []models.MatchView) []models.DonationMatch {
	out := make([]models.DonationMatch, len(views))
	for i, v := range views {
		out[i] = v.Match
	}
	return out
}

type SortKey string

const (
	SortByCreatedAt     SortKey = "created_at"
	SortByBloodType     SortKey = "blood_type"
	SortByRequesterName SortKey = "requester_name"
	SortByDonorName     SortKey = "donor_name"
	SortByLocation      SortKey = "location"
	SortByDistance      SortKey = "distance"
)

type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ParseSort validates caller-supplied sort parameters. Empty values default
// to newest first.
func ParseSort(key, order string) (SortKey, SortOrder, error) {
	k := SortKey(strings.ToLower(strings.TrimSpace(key)))
	if k == "" {
		k = SortByCreatedAt
	}
	switch k {
	case SortByCreatedAt, SortByBloodType, SortByRequesterName, SortByDonorName, SortByLocation, SortByDistance:
	default:
		return "", "", dErrors.New(dErrors.CodeInvalidInput, "invalid sort key: "+key)
	}

	o := SortOrder(strings.ToLower(strings.TrimSpace(order)))
	if o == "" {
		o = OrderDesc
		if k != SortByCreatedAt {
			o = OrderAsc
		}
	}
	if o != OrderAsc && o != OrderDesc {
		return "", "", dErrors.New(dErrors.CodeInvalidInput, "invalid sort order: "+order)
	}
	return k, o, nil
}

// SortMatches returns a sorted copy. Ties keep input order in both directions.
func SortMatches(views []models.MatchView, key SortKey, order SortOrder) []models.MatchView {
	out := make([]models.MatchView, len(views))
	copy(out, views)

	cmp := comparator(key)
	sort.SliceStable(out, func(i, j int) bool {
		c := cmp(out[i], out[j])
		if order == OrderDesc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func comparator(key SortKey) func(a, b models.MatchView) int {
	switch key {
	case SortByBloodType:
		return func(a, b models.MatchView) int {
			return strings.Compare(string(a.BloodType()), string(b.BloodType()))
		}
	case SortByRequesterName:
		return func(a, b models.MatchView) int {
			return strings.Compare(a.RequesterName(), b.RequesterName())
		}
	case SortByDonorName:
		return func(a, b models.MatchView) int {
			return strings.Compare(a.DonorName(), b.DonorName())
		}
	case SortByLocation:
		return func(a, b models.MatchView) int {
			return strings.Compare(a.City()+a.State(), b.City()+b.State())
		}
	case SortByDistance:
		return func(a, b models.MatchView) int {
			return compareFloat(a.Match.DistanceKm, b.Match.DistanceKm)
		}
	default:
		return func(a, b models.MatchView) int {
			return a.Match.CreatedAt.Compare(b.Match.CreatedAt)
		}
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
