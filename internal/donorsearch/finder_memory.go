package donorsearch

import (
	"context"
	"fmt"
	"sort"

	requestmodels "bloodlink/internal/bloodrequest/models"
	"bloodlink/internal/compatibility"
	donormodels "bloodlink/internal/donor/models"
	id "bloodlink/pkg/domain"
)

type RequestLookup interface {
	FindByID(ctx context.Context, requestID id.RequestID) (*requestmodels.BloodRequest, error)
}

type DonorLister interface {
	List(ctx context.Context) ([]*donormodels.Donor, error)
}

// DistanceFunc estimates the distance between a donor and the request's hospital.
type DistanceFunc func(donor *donormodels.Donor, request *requestmodels.BloodRequest) float64

// MemoryFinder searches the in-memory donor store. Without a DistanceFunc all
// donors are treated as co-located.
type MemoryFinder struct {
	requests RequestLookup
	donors   DonorLister
	distance DistanceFunc
}

type MemoryOption func(*MemoryFinder)

func WithDistanceFunc(fn DistanceFunc) MemoryOption {
	return func(f *MemoryFinder) {
		f.distance = fn
	}
}

func NewMemoryFinder(requests RequestLookup, donors DonorLister, opts ...MemoryOption) *MemoryFinder {
	f := &MemoryFinder{requests: requests, donors: donors}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *MemoryFinder) FindCompatibleDonors(ctx context.Context, params Params) (Result, error) {
	params = params.WithDefaults()
	request, err := f.requests.FindByID(ctx, params.RequestID)
	if err != nil {
		return Result{}, fmt.Errorf("load request for donor search: %w", err)
	}
	donors, err := f.donors.List(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list donors: %w", err)
	}

	var candidates []Candidate
	for _, d := range donors {
		if d.ID == request.RequesterID {
			continue
		}
		if !d.Available && !params.IncludeUnavailable {
			continue
		}
		if !compatibility.IsCompatible(d.BloodType, request.BloodType) {
			continue
		}
		distance := 0.0
		if f.distance != nil {
			distance = f.distance(d, request)
		}
		if distance > params.MaxDistanceKm {
			continue
		}
		candidates = append(candidates, Candidate{DonorID: d.ID, DistanceKm: distance})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].DistanceKm < candidates[j].DistanceKm
	})

	result := Result{TotalCount: len(candidates)}
	if len(candidates) > params.MaxResults {
		candidates = candidates[:params.MaxResults]
	}
	result.Candidates = candidates
	return result, nil
}
