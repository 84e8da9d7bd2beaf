// Package compatibility holds the red-cell transfusion table used to validate
// donor candidates. The table is fixed domain knowledge; nothing here is computed.
package compatibility

import (
	id "bloodlink/pkg/domain"
)

var recipientsByDonor = map[id.BloodType][]id.BloodType{
	id.BloodTypeONeg: {
		id.BloodTypeONeg, id.BloodTypeOPos,
		id.BloodTypeANeg, id.BloodTypeAPos,
		id.BloodTypeBNeg, id.BloodTypeBPos,
		id.BloodTypeABNeg, id.BloodTypeABPos,
	},
	id.BloodTypeOPos:  {id.BloodTypeOPos, id.BloodTypeAPos, id.BloodTypeBPos, id.BloodTypeABPos},
	id.BloodTypeANeg:  {id.BloodTypeANeg, id.BloodTypeAPos, id.BloodTypeABNeg, id.BloodTypeABPos},
	id.BloodTypeAPos:  {id.BloodTypeAPos, id.BloodTypeABPos},
	id.BloodTypeBNeg:  {id.BloodTypeBNeg, id.BloodTypeBPos, id.BloodTypeABNeg, id.BloodTypeABPos},
	id.BloodTypeBPos:  {id.BloodTypeBPos, id.BloodTypeABPos},
	id.BloodTypeABNeg: {id.BloodTypeABNeg, id.BloodTypeABPos},
	id.BloodTypeABPos: {id.BloodTypeABPos},
}

// donorsByRecipient is the inverse of recipientsByDonor, ordered like AllBloodTypes.
var donorsByRecipient = invert(recipientsByDonor)

func invert(table map[id.BloodType][]id.BloodType) map[id.BloodType][]id.BloodType {
	out := make(map[id.BloodType][]id.BloodType, len(table))
	for _, donor := range id.AllBloodTypes {
		for _, recipient := range table[donor] {
			out[recipient] = append(out[recipient], donor)
		}
	}
	return out
}

// CompatibleRecipients returns the recipient types a donor can supply. The
// result is a fresh slice; unknown donor types yield an empty set.
func CompatibleRecipients(donor id.BloodType) []id.BloodType {
	return clone(recipientsByDonor[donor])
}

// CompatibleDonors returns the donor types a recipient can receive from.
func CompatibleDonors(recipient id.BloodType) []id.BloodType {
	return clone(donorsByRecipient[recipient])
}

// IsCompatible reports whether recipient is in donor's recipient set.
func IsCompatible(donor, recipient id.BloodType) bool {
	for _, r := range recipientsByDonor[donor] {
		if r == recipient {
			return true
		}
	}
	return false
}

func clone(in []id.BloodType) []id.BloodType {
	out := make([]id.BloodType, len(in))
	copy(out, in)
	return out
}
