package compatibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "bloodlink/pkg/domain"
)

// Rows are donors, columns are recipients, both in AllBloodTypes order:
// O-, O+, A-, A+, B-, B+, AB-, AB+.
var expectedTable = [8][8]bool{
	{true, true, true, true, true, true, true, true},          // O-
	{false, true, false, true, false, true, false, true},      // O+
	{false, false, true, true, false, false, true, true},      // A-
	{false, false, false, true, false, false, false, true},    // A+
	{false, false, false, false, true, true, true, true},      // B-
	{false, false, false, false, false, true, false, true},    // B+
	{false, false, false, false, false, false, true, true},    // AB-
	{false, false, false, false, false, false, false, true},   // AB+
}

func TestIsCompatible_AllPairs(t *testing.T) {
	require.Len(t, id.AllBloodTypes, 8)
	for i, donor := range id.AllBloodTypes {
		for j, recipient := range id.AllBloodTypes {
			assert.Equal(t, expectedTable[i][j], IsCompatible(donor, recipient),
				"donor %s -> recipient %s", donor, recipient)
		}
	}
}

func TestCompatibleRecipients(t *testing.T) {
	t.Run("O- is the universal donor", func(t *testing.T) {
		assert.Len(t, CompatibleRecipients(id.BloodTypeONeg), 8)
	})

	t.Run("every donor type can supply AB+", func(t *testing.T) {
		for _, donor := range id.AllBloodTypes {
			assert.Contains(t, CompatibleRecipients(donor), id.BloodTypeABPos, "donor %s", donor)
		}
	})

	t.Run("AB+ can only supply AB+", func(t *testing.T) {
		assert.Equal(t, []id.BloodType{id.BloodTypeABPos}, CompatibleRecipients(id.BloodTypeABPos))
	})

	t.Run("unknown donor type yields empty set", func(t *testing.T) {
		assert.Empty(t, CompatibleRecipients(id.BloodType("X")))
		assert.False(t, IsCompatible(id.BloodType("X"), id.BloodTypeABPos))
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		got := CompatibleRecipients(id.BloodTypeOPos)
		got[0] = id.BloodTypeABNeg
		assert.Equal(t, id.BloodTypeOPos, CompatibleRecipients(id.BloodTypeOPos)[0])
	})
}

func TestCompatibleDonors(t *testing.T) {
	assert.Len(t, CompatibleDonors(id.BloodTypeABPos), 8)
	assert.Equal(t, []id.BloodType{id.BloodTypeONeg}, CompatibleDonors(id.BloodTypeONeg))
	assert.Equal(t,
		[]id.BloodType{id.BloodTypeONeg, id.BloodTypeOPos, id.BloodTypeANeg, id.BloodTypeAPos},
		CompatibleDonors(id.BloodTypeAPos))

	for _, recipient := range id.AllBloodTypes {
		for _, donor := range CompatibleDonors(recipient) {
			assert.True(t, IsCompatible(donor, recipient))
		}
	}
}
