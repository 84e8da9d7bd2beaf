package store

import (
	"context"
	"sort"
	"sync"

	"bloodlink/internal/notification/models"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

type InMemory struct {
	mu            sync.RWMutex
	notifications map[id.NotificationID]models.Notification
}

func NewInMemory() *InMemory {
	return &InMemory{notifications: make(map[id.NotificationID]models.Notification)}
}

func (s *InMemory) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.notifications[n.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.notifications[n.ID] = *n
	return nil
}

// ListByRecipient returns newest first.
func (s *InMemory) ListByRecipient(_ context.Context, recipient id.UserID, unreadOnly bool) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Notification
	for _, n := range s.notifications {
		if n.RecipientID != recipient || (unreadOnly && n.Read) {
			continue
		}
		record := n
		out = append(out, &record)
	}
	sortNewestFirst(out)
	return out, nil
}

// MarkRead flags a notification as read. Notifications addressed to someone
// else are reported as not found.
func (s *InMemory) MarkRead(_ context.Context, notificationID id.NotificationID, recipient id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[notificationID]
	if !ok || n.RecipientID != recipient {
		return sentinel.ErrNotFound
	}
	n.Read = true
	s.notifications[notificationID] = n
	return nil
}

func sortNewestFirst(out []*models.Notification) {
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
}
