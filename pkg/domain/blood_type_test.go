package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "bloodlink/pkg/domain-errors"
)

func TestParseBloodType(t *testing.T) {
	tests := []struct {
		input string
		want  BloodType
	}{
		{"O-", BloodTypeONeg},
		{"o+", BloodTypeOPos},
		{"A−", BloodTypeANeg},
		{" ab+ ", BloodTypeABPos},
		{"AB_NEG", BloodTypeABNeg},
		{"B_POS", BloodTypeBPos},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBloodType(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "C+", "A", "AB", "O--", "ABO+"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			_, err := ParseBloodType(bad)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestBloodType_RhPositive(t *testing.T) {
	assert.True(t, BloodTypeABPos.RhPositive())
	assert.False(t, BloodTypeONeg.RhPositive())
	assert.Len(t, AllBloodTypes, 8)
}

func TestParseUrgencyLevel(t *testing.T) {
	u, err := ParseUrgencyLevel("")
	require.NoError(t, err)
	assert.Equal(t, UrgencyNormal, u)

	u, err = ParseUrgencyLevel("CRITICAL")
	require.NoError(t, err)
	assert.Equal(t, UrgencyCritical, u)
	assert.Greater(t, UrgencyCritical.Rank(), UrgencyHigh.Rank())

	_, err = ParseUrgencyLevel("urgent")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
