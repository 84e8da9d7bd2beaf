package memory

import (
	"context"
	"sync"

	id "bloodlink/pkg/domain"
	audit "bloodlink/pkg/platform/audit"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.UserID][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.UserID][]audit.Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.UserID] = append(s.events[event.UserID], event)
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[userID]...), nil
}

// ListBySubject returns every event recorded against one entity. Events from
// one actor keep append order; order across actors is unspecified.
func (s *InMemoryStore) ListBySubject(_ context.Context, subject string) []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, userEvents := range s.events {
		for _, e := range userEvents {
			if e.Subject == subject {
				out = append(out, e)
			}
		}
	}
	return out
}
