package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/internal/donor/store"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

func TestSaveProfile(t *testing.T) {
	ctx := context.Background()
	donors := store.NewInMemory()
	svc := New(donors, nil)
	actor := id.UserID(uuid.New())

	_, err := svc.Get(ctx, actor)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	saved, err := svc.SaveProfile(ctx, actor, ProfileCommand{Name: "Dana", BloodType: id.BloodTypeONeg, City: "Portland", State: "OR", Available: true})
	require.NoError(t, err)
	assert.Equal(t, actor, saved.ID)

	t.Run("edits keep the last donation date", func(t *testing.T) {
		donated := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		current, err := donors.FindByID(ctx, actor)
		require.NoError(t, err)
		current.LastDonationAt = &donated
		require.NoError(t, donors.Save(ctx, current))

		updated, err := svc.SaveProfile(ctx, actor, ProfileCommand{Name: "Dana", BloodType: id.BloodTypeONeg, Available: false})
		require.NoError(t, err)
		require.NotNil(t, updated.LastDonationAt)
		assert.True(t, donated.Equal(*updated.LastDonationAt))
		assert.False(t, updated.Available)
	})

	t.Run("anonymous callers are rejected", func(t *testing.T) {
		_, err := svc.SaveProfile(ctx, id.UserID{}, ProfileCommand{BloodType: id.BloodTypeAPos})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
