package models

import (
	"strings"
	"time"

	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

// Status is the fulfilment state of a blood request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusMatching  Status = "matching"
	StatusFulfilled Status = "fulfilled"
	StatusCancelled Status = "cancelled"
)

var statusTransitions = map[Status][]Status{
	StatusPending:  {StatusMatching, StatusCancelled},
	StatusMatching: {StatusFulfilled, StatusCancelled},
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusMatching, StatusFulfilled, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether to is reachable from s in one step.
func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range statusTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// BloodRequest is a patient's need for units of one blood type at a hospital.
//
// Invariants:
//   - BloodType is one of the eight known groups
//   - UnitsNeeded is positive
//   - RequesterID is immutable after construction
//   - Status moves forward only: pending -> matching -> fulfilled, or to cancelled
type BloodRequest struct {
	ID              id.RequestID    `json:"id"`
	RequesterID     id.UserID       `json:"requester_id"`
	RequesterName   string          `json:"requester_name"`
	PatientName     string          `json:"patient_name"`
	BloodType       id.BloodType    `json:"blood_type"`
	UnitsNeeded     int             `json:"units_needed"`
	Urgency         id.UrgencyLevel `json:"urgency"`
	Status          Status          `json:"status"`
	HospitalName    string          `json:"hospital_name"`
	HospitalAddress string          `json:"hospital_address,omitempty"`
	HospitalCity    string          `json:"hospital_city"`
	HospitalState   string          `json:"hospital_state"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewBloodRequest validates inputs and returns a pending request.
func NewBloodRequest(
	requestID id.RequestID,
	requesterID id.UserID,
	requesterName string,
	patientName string,
	bloodType id.BloodType,
	unitsNeeded int,
	urgency id.UrgencyLevel,
	hospitalName, hospitalAddress, hospitalCity, hospitalState string,
	now time.Time,
) (*BloodRequest, error) {
	if requesterID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "requester_id is required")
	}
	if !bloodType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid blood_type")
	}
	if unitsNeeded <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "units_needed must be positive")
	}
	if !urgency.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid urgency")
	}
	if strings.TrimSpace(hospitalName) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "hospital_name is required")
	}
	return &BloodRequest{
		ID:              requestID,
		RequesterID:     requesterID,
		RequesterName:   requesterName,
		PatientName:     patientName,
		BloodType:       bloodType,
		UnitsNeeded:     unitsNeeded,
		Urgency:         urgency,
		Status:          StatusPending,
		HospitalName:    hospitalName,
		HospitalAddress: hospitalAddress,
		HospitalCity:    hospitalCity,
		HospitalState:   hospitalState,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// IsOwnedBy reports whether userID created the request.
func (r *BloodRequest) IsOwnedBy(userID id.UserID) bool {
	return r.RequesterID == userID
}

// AcceptsMatches reports whether matching may run against the request.
func (r *BloodRequest) AcceptsMatches() bool {
	return r.Status == StatusPending || r.Status == StatusMatching
}

// CanTransitionTo returns CodeInvalidTransition when to is unreachable.
func (r *BloodRequest) CanTransitionTo(to Status) error {
	if !r.Status.CanTransitionTo(to) {
		return dErrors.New(dErrors.CodeInvalidTransition,
			"request cannot move from "+string(r.Status)+" to "+string(to))
	}
	return nil
}

// ApplyStatus sets the status. Call CanTransitionTo first.
func (r *BloodRequest) ApplyStatus(to Status, now time.Time) {
	r.Status = to
	r.UpdatedAt = now
}

// HospitalLocation joins the non-empty hospital name, city and state.
func (r *BloodRequest) HospitalLocation() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{r.HospitalName, r.HospitalCity, r.HospitalState} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
