package models

import (
	"time"

	id "bloodlink/pkg/domain"
)

// DonationRecord is written once when a match completes.
type DonationRecord struct {
	ID        id.DonationID `json:"id"`
	DonorID   id.UserID     `json:"donor_id"`
	RequestID id.RequestID  `json:"request_id"`
	MatchID   id.MatchID    `json:"match_id"`
	BloodType id.BloodType  `json:"blood_type"`
	DonatedAt time.Time     `json:"donated_at"`
	Location  string        `json:"location"`
	Notes     string        `json:"notes,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}
