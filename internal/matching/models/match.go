package models

import (
	"fmt"
	"strings"
	"time"

	"bloodlink/internal/compatibility"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

// Status is the lifecycle state of a donation match.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusDeclined  Status = "declined"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{StatusPending, StatusAccepted, StatusDeclined, StatusCompleted, StatusCancelled}

var transitions = map[Status][]Status{
	StatusPending:  {StatusAccepted, StatusDeclined},
	StatusAccepted: {StatusCompleted, StatusCancelled},
}

// ParseStatus accepts any casing.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid match status: "+s)
	}
	return st, nil
}

func (s Status) IsValid() bool {
	for _, st := range AllStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// IsActive reports whether the match still holds the donor's candidacy.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusAccepted
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// Action is a caller-requested lifecycle step.
type Action string

const (
	ActionAccept   Action = "accept"
	ActionDecline  Action = "decline"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

var actionTargets = map[Action]Status{
	ActionAccept:   StatusAccepted,
	ActionDecline:  StatusDeclined,
	ActionComplete: StatusCompleted,
	ActionCancel:   StatusCancelled,
}

// Target returns the status the action moves a match to.
func (a Action) Target() Status {
	return actionTargets[a]
}

func (a Action) IsValid() bool {
	_, ok := actionTargets[a]
	return ok
}

// CancelNotePrefix marks notes written by a cancellation so they are not
// confused with decline or completion notes.
const CancelNotePrefix = "Cancelled: "

// DonationMatch pairs one blood request with one candidate donor.
//
// Invariants:
//   - ResponseTime is nil iff Status is pending
//   - DonationTime is non-nil iff Status is completed
//   - the donor's blood type was compatible with the request at creation
//   - CreatedAt, RequestID and DonorID never change
type DonationMatch struct {
	ID           id.MatchID   `json:"id"`
	RequestID    id.RequestID `json:"request_id"`
	DonorID      id.UserID    `json:"donor_id"`
	Status       Status       `json:"status"`
	DistanceKm   float64      `json:"distance_km"`
	CreatedAt    time.Time    `json:"created_at"`
	ResponseTime *time.Time   `json:"response_time,omitempty"`
	DonationTime *time.Time   `json:"donation_time,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// NewDonationMatch creates a pending match after re-checking compatibility.
// An incompatible pair is a data error from upstream and fails with CodeValidation.
func NewDonationMatch(
	matchID id.MatchID,
	requestID id.RequestID,
	donorID id.UserID,
	donorType id.BloodType,
	requestType id.BloodType,
	distanceKm float64,
	now time.Time,
) (*DonationMatch, error) {
	if !compatibility.IsCompatible(donorType, requestType) {
		return nil, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("donor %s with blood type %q cannot supply request %s needing %q",
				donorID, donorType, requestID, requestType))
	}
	return &DonationMatch{
		ID:         matchID,
		RequestID:  requestID,
		DonorID:    donorID,
		Status:     StatusPending,
		DistanceKm: distanceKm,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Authorize checks that actor may perform action. The donor may perform any
// action; the requester may additionally cancel.
func (m *DonationMatch) Authorize(action Action, actor, requesterID id.UserID) error {
	if !actor.IsNil() && actor == m.DonorID {
		return nil
	}
	if action == ActionCancel && !actor.IsNil() && actor == requesterID {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, fmt.Sprintf("caller may not %s this match", action))
}

// CanApply returns CodeInvalidTransition naming both statuses when the action
// is not legal from the current status.
func (m *DonationMatch) CanApply(action Action) error {
	if !action.IsValid() {
		return dErrors.New(dErrors.CodeBadRequest, "unknown match action: "+string(action))
	}
	if !m.Status.CanTransitionTo(action.Target()) {
		return dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("cannot move match from %s to %s", m.Status, action.Target()))
	}
	return nil
}

// ApplyAccept records the donor's acceptance. Call CanApply first.
func (m *DonationMatch) ApplyAccept(now time.Time) {
	m.Status = StatusAccepted
	m.ResponseTime = &now
	m.UpdatedAt = now
}

// ApplyDecline records the donor's refusal with optional notes.
func (m *DonationMatch) ApplyDecline(notes string, now time.Time) {
	m.Status = StatusDeclined
	m.ResponseTime = &now
	if notes = strings.TrimSpace(notes); notes != "" {
		m.Notes = notes
	}
	m.UpdatedAt = now
}

// ApplyComplete records the donation. donationTime defaults to now.
func (m *DonationMatch) ApplyComplete(notes string, donationTime *time.Time, now time.Time) {
	at := now
	if donationTime != nil && !donationTime.IsZero() {
		at = *donationTime
	}
	m.Status = StatusCompleted
	m.DonationTime = &at
	if notes = strings.TrimSpace(notes); notes != "" {
		m.Notes = notes
	}
	m.UpdatedAt = now
}

// ApplyCancel withdraws an accepted match. A non-empty reason is kept in
// Notes behind CancelNotePrefix.
func (m *DonationMatch) ApplyCancel(reason string, now time.Time) {
	m.Status = StatusCancelled
	if reason = strings.TrimSpace(reason); reason != "" {
		m.Notes = CancelNotePrefix + reason
	}
	m.UpdatedAt = now
}

// Validate checks the timestamp invariants against the current status.
func (m *DonationMatch) Validate() error {
	if !m.Status.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "unknown match status: "+string(m.Status))
	}
	if (m.ResponseTime == nil) != (m.Status == StatusPending) {
		return dErrors.New(dErrors.CodeInvariantViolation, "response_time must be set iff match has left pending")
	}
	if (m.DonationTime != nil) != (m.Status == StatusCompleted) {
		return dErrors.New(dErrors.CodeInvariantViolation, "donation_time must be set iff match is completed")
	}
	return nil
}
