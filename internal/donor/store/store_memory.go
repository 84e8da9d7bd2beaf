package store

import (
	"context"
	"sync"

	"bloodlink/internal/donor/models"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

// InMemory keeps donors in insertion order so candidate lists are stable.
type InMemory struct {
	mu     sync.RWMutex
	donors map[id.UserID]models.Donor
	order  []id.UserID
}

func NewInMemory() *InMemory {
	return &InMemory{donors: make(map[id.UserID]models.Donor)}
}

// Save inserts or replaces a donor.
func (s *InMemory) Save(_ context.Context, donor *models.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.donors[donor.ID]; !exists {
		s.order = append(s.order, donor.ID)
	}
	s.donors[donor.ID] = *donor
	return nil
}

func (s *InMemory) FindByID(_ context.Context, donorID id.UserID) (*models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	donor, ok := s.donors[donorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &donor, nil
}

// FindByIDs returns the donors that exist, keyed by ID. Missing IDs are skipped.
func (s *InMemory) FindByIDs(_ context.Context, donorIDs []id.UserID) (map[id.UserID]*models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.UserID]*models.Donor, len(donorIDs))
	for _, donorID := range donorIDs {
		if donor, ok := s.donors[donorID]; ok {
			out[donorID] = &donor
		}
	}
	return out, nil
}

// List returns every donor in insertion order.
func (s *InMemory) List(_ context.Context) ([]*models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Donor, 0, len(s.order))
	for _, donorID := range s.order {
		donor := s.donors[donorID]
		out = append(out, &donor)
	}
	return out, nil
}
