package match

import (
	"context"
	"sort"
	"sync"

	"bloodlink/internal/matching/models"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

// InMemory is a thread-safe match store. The mutex makes every write a true
// compare-and-set, matching the conditional UPDATE of the Postgres store.
type InMemory struct {
	mu      sync.RWMutex
	matches map[id.MatchID]models.DonationMatch
}

func NewInMemory() *InMemory {
	return &InMemory{matches: make(map[id.MatchID]models.DonationMatch)}
}

// Create inserts a match. Returns sentinel.ErrAlreadyUsed when the donor
// already holds an active match on the request.
func (s *InMemory) Create(_ context.Context, m *models.DonationMatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.matches[m.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	if m.Status.IsActive() && s.hasActiveLocked(m.RequestID, m.DonorID) {
		return sentinel.ErrAlreadyUsed
	}
	s.matches[m.ID] = *m
	return nil
}

func (s *InMemory) FindByID(_ context.Context, matchID id.MatchID) (*models.DonationMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[matchID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &m, nil
}

func (s *InMemory) ListByRequest(_ context.Context, requestID id.RequestID) ([]*models.DonationMatch, error) {
	return s.list(func(m models.DonationMatch) bool { return m.RequestID == requestID }), nil
}

func (s *InMemory) ListByDonor(_ context.Context, donorID id.UserID) ([]*models.DonationMatch, error) {
	return s.list(func(m models.DonationMatch) bool { return m.DonorID == donorID }), nil
}

func (s *InMemory) HasActiveMatch(_ context.Context, requestID id.RequestID, donorID id.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasActiveLocked(requestID, donorID), nil
}

// UpdateIfStatus replaces the stored match only while its status still equals
// expected. Returns sentinel.ErrConflict otherwise.
func (s *InMemory) UpdateIfStatus(_ context.Context, m *models.DonationMatch, expected models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.matches[m.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Status != expected {
		return sentinel.ErrConflict
	}
	// identity fields are immutable
	updated := *m
	updated.RequestID = stored.RequestID
	updated.DonorID = stored.DonorID
	updated.CreatedAt = stored.CreatedAt
	s.matches[m.ID] = updated
	return nil
}

func (s *InMemory) hasActiveLocked(requestID id.RequestID, donorID id.UserID) bool {
	for _, m := range s.matches {
		if m.RequestID == requestID && m.DonorID == donorID && m.Status.IsActive() {
			return true
		}
	}
	return false
}

// list returns matching records ordered by creation time.
func (s *InMemory) list(keep func(models.DonationMatch) bool) []*models.DonationMatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.DonationMatch
	for _, m := range s.matches {
		if keep(m) {
			record := m
			out = append(out, &record)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
