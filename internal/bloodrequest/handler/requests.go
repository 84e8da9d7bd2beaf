package handler

import (
	"bloodlink/internal/bloodrequest/service"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

const maxTextField = 200

// CreateRequest is the HTTP body for POST /requests.
type CreateRequest struct {
	RequesterName   string `json:"requester_name"`
	PatientName     string `json:"patient_name"`
	BloodType       string `json:"blood_type"`
	UnitsNeeded     int    `json:"units_needed"`
	Urgency         string `json:"urgency"`
	HospitalName    string `json:"hospital_name"`
	HospitalAddress string `json:"hospital_address"`
	HospitalCity    string `json:"hospital_city"`
	HospitalState   string `json:"hospital_state"`

	// Parsed values (populated by Validate)
	parsedBloodType id.BloodType
	parsedUrgency   id.UrgencyLevel
}

// Validate trims and parses the body.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateRequest) Validate() error {
	sanitize(r)

	for _, field := range []struct{ name, value string }{
		{"requester_name", r.RequesterName},
		{"patient_name", r.PatientName},
		{"hospital_name", r.HospitalName},
		{"hospital_address", r.HospitalAddress},
		{"hospital_city", r.HospitalCity},
		{"hospital_state", r.HospitalState},
	} {
		if len(field.value) > maxTextField {
			return dErrors.New(dErrors.CodeValidation, field.name+" must be at most 200 characters")
		}
	}
	if r.HospitalName == "" {
		return dErrors.New(dErrors.CodeValidation, "hospital_name is required")
	}
	if r.UnitsNeeded <= 0 {
		return dErrors.New(dErrors.CodeValidation, "units_needed must be positive")
	}

	bloodType, err := id.ParseBloodType(r.BloodType)
	if err != nil {
		return err
	}
	r.parsedBloodType = bloodType

	urgency, err := id.ParseUrgencyLevel(r.Urgency)
	if err != nil {
		return err
	}
	r.parsedUrgency = urgency
	return nil
}

func (r *CreateRequest) Command() service.CreateCommand {
	return service.CreateCommand{
		RequesterName:   r.RequesterName,
		PatientName:     r.PatientName,
		BloodType:       r.parsedBloodType,
		UnitsNeeded:     r.UnitsNeeded,
		Urgency:         r.parsedUrgency,
		HospitalName:    r.HospitalName,
		HospitalAddress: r.HospitalAddress,
		HospitalCity:    r.HospitalCity,
		HospitalState:   r.HospitalState,
	}
}
