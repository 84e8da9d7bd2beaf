package domain

import (
	"strings"

	dErrors "bloodlink/pkg/domain-errors"
)

// BloodType is an ABO/Rh group. Invariant: one of the eight values below.
//
// Usage: construct via ParseBloodType at trust boundaries; direct casting
// bypasses validation.
type BloodType string

const (
	BloodTypeONeg  BloodType = "O-"
	BloodTypeOPos  BloodType = "O+"
	BloodTypeANeg  BloodType = "A-"
	BloodTypeAPos  BloodType = "A+"
	BloodTypeBNeg  BloodType = "B-"
	BloodTypeBPos  BloodType = "B+"
	BloodTypeABNeg BloodType = "AB-"
	BloodTypeABPos BloodType = "AB+"
)

// AllBloodTypes lists every blood type in a stable order.
var AllBloodTypes = []BloodType{
	BloodTypeONeg, BloodTypeOPos,
	BloodTypeANeg, BloodTypeAPos,
	BloodTypeBNeg, BloodTypeBPos,
	BloodTypeABNeg, BloodTypeABPos,
}

var bloodTypeReplacer = strings.NewReplacer(
	"−", "-", // unicode minus
	"_NEG", "-",
	"_POS", "+",
	"NEG", "-",
	"POS", "+",
	" ", "",
)

// ParseBloodType normalizes external spellings ("o-", "O−", "AB_POS") into a
// BloodType. Returns CodeInvalidInput for anything else.
func ParseBloodType(s string) (BloodType, error) {
	normalized := bloodTypeReplacer.Replace(strings.ToUpper(strings.TrimSpace(s)))
	if normalized == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "blood_type is required")
	}
	bt := BloodType(normalized)
	if !bt.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid blood_type: "+s)
	}
	return bt, nil
}

// IsValid reports whether b is one of the eight known groups.
func (b BloodType) IsValid() bool {
	for _, bt := range AllBloodTypes {
		if bt == b {
			return true
		}
	}
	return false
}

// RhPositive reports whether the type carries the Rh(D) antigen.
func (b BloodType) RhPositive() bool {
	return strings.HasSuffix(string(b), "+")
}

func (b BloodType) String() string {
	return string(b)
}
