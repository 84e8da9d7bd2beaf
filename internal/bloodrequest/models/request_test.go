package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

func newRequest(t *testing.T) *BloodRequest {
	t.Helper()
	r, err := NewBloodRequest(
		id.RequestID(uuid.New()), id.UserID(uuid.New()), "Dana", "Patient",
		id.BloodTypeAPos, 2, id.UrgencyHigh,
		"St. Mary", "12 Elm St", "Portland", "OR",
		time.Now(),
	)
	require.NoError(t, err)
	return r
}

func TestNewBloodRequest(t *testing.T) {
	t.Run("starts pending", func(t *testing.T) {
		r := newRequest(t)
		assert.Equal(t, StatusPending, r.Status)
		assert.True(t, r.AcceptsMatches())
	})

	t.Run("rejects non-positive units", func(t *testing.T) {
		_, err := NewBloodRequest(id.RequestID(uuid.New()), id.UserID(uuid.New()), "", "",
			id.BloodTypeAPos, 0, id.UrgencyNormal, "H", "", "", "", time.Now())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("rejects unknown blood type", func(t *testing.T) {
		_, err := NewBloodRequest(id.RequestID(uuid.New()), id.UserID(uuid.New()), "", "",
			id.BloodType("C+"), 1, id.UrgencyNormal, "H", "", "", "", time.Now())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusMatching, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusFulfilled, false},
		{StatusMatching, StatusFulfilled, true},
		{StatusMatching, StatusCancelled, true},
		{StatusFulfilled, StatusCancelled, false},
		{StatusCancelled, StatusMatching, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			r := newRequest(t)
			r.Status = tc.from
			err := r.CanTransitionTo(tc.to)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
		})
	}
}

func TestHospitalLocation(t *testing.T) {
	r := newRequest(t)
	assert.Equal(t, "St. Mary, Portland, OR", r.HospitalLocation())

	r.HospitalCity = " "
	assert.Equal(t, "St. Mary, OR", r.HospitalLocation())
}
