package models

import (
	"time"

	id "bloodlink/pkg/domain"
)

// Donor is the matching-relevant slice of a user's donor profile. A donor is
// identified by the owning user's ID.
type Donor struct {
	ID             id.UserID    `json:"id"`
	Name           string       `json:"name"`
	BloodType      id.BloodType `json:"blood_type"`
	City           string       `json:"city"`
	State          string       `json:"state"`
	Available      bool         `json:"available"`
	LastDonationAt *time.Time   `json:"last_donation_at,omitempty"`
}
