package audit

import (
	"context"
	"time"

	id "bloodlink/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and storage backends.
type EventCategory string

const (
	// CategoryCompliance covers events with clinical or regulatory significance.
	// A completed donation is the canonical example.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers rejected attempts to act on someone else's match.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine lifecycle activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// UserID is the actor who performed the action.
	UserID id.UserID
	// Subject is the entity the action applied to (match or request ID).
	Subject   string
	Action    string
	Reason    string
	RequestID string // Correlation ID from HTTP request context
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}

type AuditEvent string

const (
	// Request events
	EventRequestCreated   AuditEvent = "request_created"
	EventRequestCancelled AuditEvent = "request_cancelled"
	EventRequestFulfilled AuditEvent = "request_fulfilled"

	// Match events
	EventMatchCreated   AuditEvent = "match_created"
	EventMatchAccepted  AuditEvent = "match_accepted"
	EventMatchDeclined  AuditEvent = "match_declined"
	EventMatchCompleted AuditEvent = "match_completed"
	EventMatchCancelled AuditEvent = "match_cancelled"

	// EventTransitionDenied records a caller acting on a match they do not own.
	EventTransitionDenied AuditEvent = "match_transition_denied"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventMatchCompleted:   CategoryCompliance,
	EventRequestFulfilled: CategoryCompliance,

	EventTransitionDenied: CategorySecurity,

	EventRequestCreated:   CategoryOperations,
	EventRequestCancelled: CategoryOperations,
	EventMatchCreated:     CategoryOperations,
	EventMatchAccepted:    CategoryOperations,
	EventMatchDeclined:    CategoryOperations,
	EventMatchCancelled:   CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
