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

var t0 = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func newPendingMatch(t *testing.T) *DonationMatch {
	t.Helper()
	m, err := NewDonationMatch(id.MatchID(uuid.New()), id.RequestID(uuid.New()), id.UserID(uuid.New()),
		id.BloodTypeONeg, id.BloodTypeABPos, 4.2, t0)
	require.NoError(t, err)
	return m
}

// matchIn returns a match that satisfies the invariants for the given status.
func matchIn(t *testing.T, status Status) *DonationMatch {
	t.Helper()
	m := newPendingMatch(t)
	responded := t0.Add(time.Minute)
	switch status {
	case StatusAccepted:
		m.ApplyAccept(responded)
	case StatusDeclined:
		m.ApplyDecline("", responded)
	case StatusCompleted:
		m.ApplyAccept(responded)
		m.ApplyComplete("", nil, responded.Add(time.Hour))
	case StatusCancelled:
		m.ApplyAccept(responded)
		m.ApplyCancel("", responded.Add(time.Hour))
	}
	require.NoError(t, m.Validate())
	return m
}

func TestNewDonationMatch(t *testing.T) {
	t.Run("starts pending without response time", func(t *testing.T) {
		m := newPendingMatch(t)
		assert.Equal(t, StatusPending, m.Status)
		assert.Nil(t, m.ResponseTime)
		assert.Nil(t, m.DonationTime)
		assert.NoError(t, m.Validate())
	})

	t.Run("incompatible pair is a validation error", func(t *testing.T) {
		_, err := NewDonationMatch(id.MatchID(uuid.New()), id.RequestID(uuid.New()), id.UserID(uuid.New()),
			id.BloodTypeABPos, id.BloodTypeONeg, 1, t0)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestCanApply_TransitionTable(t *testing.T) {
	legal := map[Status]map[Action]bool{
		StatusPending:  {ActionAccept: true, ActionDecline: true},
		StatusAccepted: {ActionComplete: true, ActionCancel: true},
	}
	actions := []Action{ActionAccept, ActionDecline, ActionComplete, ActionCancel}

	for _, from := range AllStatuses {
		for _, action := range actions {
			t.Run(string(from)+"/"+string(action), func(t *testing.T) {
				m := matchIn(t, from)
				err := m.CanApply(action)
				if legal[from][action] {
					assert.NoError(t, err)
					return
				}
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
				assert.Contains(t, err.Error(), string(from))
				assert.Contains(t, err.Error(), string(action.Target()))
				assert.Equal(t, from, m.Status)
			})
		}
	}
}

func TestCanApply_UnknownAction(t *testing.T) {
	err := newPendingMatch(t).CanApply(Action("snooze"))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestAuthorize(t *testing.T) {
	m := newPendingMatch(t)
	requester := id.UserID(uuid.New())
	stranger := id.UserID(uuid.New())

	for _, action := range []Action{ActionAccept, ActionDecline, ActionComplete, ActionCancel} {
		assert.NoError(t, m.Authorize(action, m.DonorID, requester), "donor may %s", action)
		assert.True(t, dErrors.HasCode(m.Authorize(action, stranger, requester), dErrors.CodeForbidden))
	}

	assert.NoError(t, m.Authorize(ActionCancel, requester, requester))
	for _, action := range []Action{ActionAccept, ActionDecline, ActionComplete} {
		assert.True(t, dErrors.HasCode(m.Authorize(action, requester, requester), dErrors.CodeForbidden),
			"requester may not %s", action)
	}

	assert.True(t, dErrors.HasCode(m.Authorize(ActionCancel, id.UserID{}, id.UserID{}), dErrors.CodeForbidden))
}

func TestApply_SideEffects(t *testing.T) {
	t.Run("accept sets response time", func(t *testing.T) {
		m := newPendingMatch(t)
		t1 := t0.Add(10 * time.Minute)
		m.ApplyAccept(t1)
		assert.Equal(t, StatusAccepted, m.Status)
		require.NotNil(t, m.ResponseTime)
		assert.Equal(t, t1, *m.ResponseTime)
	})

	t.Run("decline keeps notes", func(t *testing.T) {
		m := newPendingMatch(t)
		m.ApplyDecline("  travelling  ", t0.Add(time.Minute))
		assert.Equal(t, "travelling", m.Notes)
		assert.NoError(t, m.Validate())
	})

	t.Run("complete defaults donation time to now", func(t *testing.T) {
		m := matchIn(t, StatusAccepted)
		now := t0.Add(2 * time.Hour)
		m.ApplyComplete("", nil, now)
		require.NotNil(t, m.DonationTime)
		assert.Equal(t, now, *m.DonationTime)
	})

	t.Run("complete honours explicit donation time", func(t *testing.T) {
		m := matchIn(t, StatusAccepted)
		donated := t0.Add(90 * time.Minute)
		m.ApplyComplete("went well", &donated, t0.Add(3*time.Hour))
		assert.Equal(t, donated, *m.DonationTime)
		assert.Equal(t, "went well", m.Notes)
	})

	t.Run("cancel prefixes reason", func(t *testing.T) {
		m := matchIn(t, StatusAccepted)
		m.ApplyCancel("feeling unwell", t0.Add(time.Hour))
		assert.Equal(t, StatusCancelled, m.Status)
		assert.Equal(t, CancelNotePrefix+"feeling unwell", m.Notes)
	})

	t.Run("cancel without reason leaves notes alone", func(t *testing.T) {
		m := matchIn(t, StatusAccepted)
		m.ApplyCancel("", t0.Add(time.Hour))
		assert.Empty(t, m.Notes)
	})
}

func TestValidate_DetectsBrokenInvariants(t *testing.T) {
	m := newPendingMatch(t)
	now := t0
	m.ResponseTime = &now
	assert.True(t, dErrors.HasCode(m.Validate(), dErrors.CodeInvariantViolation))

	m = matchIn(t, StatusAccepted)
	m.DonationTime = &now
	assert.True(t, dErrors.HasCode(m.Validate(), dErrors.CodeInvariantViolation))
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(" Accepted ")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, st)

	_, err = ParseStatus("archived")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusAccepted.IsTerminal())
	assert.True(t, StatusDeclined.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
}
