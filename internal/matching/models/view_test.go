package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "bloodlink/pkg/domain"
)

func TestMatchView_Accessors(t *testing.T) {
	m := *newPendingMatch(t)

	t.Run("core view exposes no counterparty", func(t *testing.T) {
		v := CoreView(m)
		assert.Equal(t, JoinNone, v.Kind())
		assert.Empty(t, v.CounterpartyName())
		assert.Empty(t, v.Location())
		_, ok := v.Donor()
		assert.False(t, ok)
	})

	t.Run("requester join is donor facing", func(t *testing.T) {
		v := WithRequester(m, RequesterJoin{
			RequesterName: "Dana",
			BloodType:     id.BloodTypeABPos,
			HospitalCity:  "Austin",
			HospitalState: "TX",
		})
		assert.Equal(t, "Dana", v.CounterpartyName())
		assert.Equal(t, "Dana", v.RequesterName())
		assert.Empty(t, v.DonorName())
		assert.Equal(t, id.BloodTypeABPos, v.BloodType())
		assert.Equal(t, "Austin TX", v.Location())
	})

	t.Run("donor join is requester facing", func(t *testing.T) {
		v := WithDonor(m, DonorJoin{DonorName: "Ana", BloodType: id.BloodTypeONeg, City: "Reno"})
		assert.Equal(t, "Ana", v.DonorName())
		assert.Empty(t, v.RequesterName())
		assert.Equal(t, "Reno", v.Location())
		_, ok := v.Requester()
		assert.False(t, ok)
	})
}

func TestMatchView_JSON(t *testing.T) {
	m := *newPendingMatch(t)
	body, err := json.Marshal(WithDonor(m, DonorJoin{DonorName: "Ana", BloodType: id.BloodTypeONeg}))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "donor", decoded["join"])
	assert.Equal(t, m.ID.String(), decoded["id"])
	assert.Equal(t, "pending", decoded["status"])
	assert.NotContains(t, decoded, "requester")
	donor, ok := decoded["donor"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ana", donor["donor_name"])
}
