package models

import (
	"time"

	id "bloodlink/pkg/domain"
)

// Type classifies a notification for client-side routing.
type Type string

const (
	TypeMatchCreated     Type = "match_created"
	TypeMatchAccepted    Type = "match_accepted"
	TypeMatchDeclined    Type = "match_declined"
	TypeMatchCompleted   Type = "match_completed"
	TypeMatchCancelled   Type = "match_cancelled"
	TypeRequestFulfilled Type = "request_fulfilled"
)

// Draft is what a producer hands to the notifier; the notifier assigns
// identity and time.
type Draft struct {
	Type            Type
	Title           string
	Message         string
	RelatedEntityID string
}

// Notification is an in-app message addressed to one user.
type Notification struct {
	ID              id.NotificationID `json:"id"`
	RecipientID     id.UserID         `json:"recipient_id"`
	Type            Type              `json:"type"`
	Title           string            `json:"title"`
	Message         string            `json:"message"`
	RelatedEntityID string            `json:"related_entity_id,omitempty"`
	Read            bool              `json:"read"`
	CreatedAt       time.Time         `json:"created_at"`
}

// New builds an unread notification from a draft.
func New(notificationID id.NotificationID, recipient id.UserID, draft Draft, now time.Time) *Notification {
	return &Notification{
		ID:              notificationID,
		RecipientID:     recipient,
		Type:            draft.Type,
		Title:           draft.Title,
		Message:         draft.Message,
		RelatedEntityID: draft.RelatedEntityID,
		CreatedAt:       now,
	}
}

// Delivery pairs a recipient with the draft addressed to them.
type Delivery struct {
	RecipientID id.UserID
	Draft       Draft
}
