package store

import (
	"context"
	"sync"
	"time"

	"bloodlink/internal/bloodrequest/models"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

// InMemory is a thread-safe request store for development and tests.
type InMemory struct {
	mu       sync.RWMutex
	requests map[id.RequestID]models.BloodRequest
}

func NewInMemory() *InMemory {
	return &InMemory{requests: make(map[id.RequestID]models.BloodRequest)}
}

func (s *InMemory) Create(_ context.Context, request *models.BloodRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[request.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.requests[request.ID] = *request
	return nil
}

func (s *InMemory) FindByID(_ context.Context, requestID id.RequestID) (*models.BloodRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	request, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &request, nil
}

// UpdateStatusIf moves the request to status only while it is still in
// expected. A request in any other status returns sentinel.ErrConflict.
func (s *InMemory) UpdateStatusIf(_ context.Context, requestID id.RequestID, expected, status models.Status, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[requestID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if request.Status != expected {
		return sentinel.ErrConflict
	}
	request.Status = status
	request.UpdatedAt = now
	s.requests[requestID] = request
	return nil
}
