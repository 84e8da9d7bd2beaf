package store

import (
	"context"
	"sort"
	"sync"

	"bloodlink/internal/history/models"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

type InMemory struct {
	mu      sync.RWMutex
	records []models.DonationRecord
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

// Create appends a record. One record per match.
func (s *InMemory) Create(_ context.Context, record *models.DonationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.records {
		if existing.MatchID == record.MatchID {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.records = append(s.records, *record)
	return nil
}

// ListByDonor returns a donor's records, most recent donation first.
func (s *InMemory) ListByDonor(_ context.Context, donorID id.UserID) ([]*models.DonationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.DonationRecord
	for _, r := range s.records {
		if r.DonorID == donorID {
			record := r
			out = append(out, &record)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DonatedAt.After(out[j].DonatedAt)
	})
	return out, nil
}
