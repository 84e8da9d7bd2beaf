package domain

import (
	"github.com/google/uuid"

	dErrors "bloodlink/pkg/domain-errors"
)

// Typed identifiers. Each wraps a UUID so a donor ID can never be passed where a
// request ID is expected.
type (
	UserID         uuid.UUID
	RequestID      uuid.UUID
	MatchID        uuid.UUID
	DonationID     uuid.UUID
	NotificationID uuid.UUID
)

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be nil")
	}
	return parsed, nil
}

// ParseUserID parses a user (donor or requester) identifier from external input.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	return UserID(u), err
}

// ParseRequestID parses a blood request identifier.
func ParseRequestID(s string) (RequestID, error) {
	u, err := parseUUID(s, "request_id")
	return RequestID(u), err
}

// ParseMatchID parses a donation match identifier.
func ParseMatchID(s string) (MatchID, error) {
	u, err := parseUUID(s, "match_id")
	return MatchID(u), err
}

// ParseDonationID parses a donation history identifier.
func ParseDonationID(s string) (DonationID, error) {
	u, err := parseUUID(s, "donation_id")
	return DonationID(u), err
}

// ParseNotificationID parses a notification identifier.
func ParseNotificationID(s string) (NotificationID, error) {
	u, err := parseUUID(s, "notification_id")
	return NotificationID(u), err
}

func (id UserID) String() string { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id UserID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}
func (id *UserID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id RequestID) String() string { return uuid.UUID(id).String() }
func (id RequestID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}
func (id *RequestID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id MatchID) String() string { return uuid.UUID(id).String() }
func (id MatchID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id MatchID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}
func (id *MatchID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id DonationID) String() string { return uuid.UUID(id).String() }
func (id DonationID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id DonationID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}
func (id *DonationID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id NotificationID) String() string { return uuid.UUID(id).String() }
func (id NotificationID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}
func (id *NotificationID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
