// Package service manages the caller's donor profile.
package service

import (
	"context"
	"errors"
	"log/slog"

	"bloodlink/internal/donor/models"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/requestcontext"
)

type Store interface {
	Save(ctx context.Context, donor *models.Donor) error
	FindByID(ctx context.Context, donorID id.UserID) (*models.Donor, error)
}

type Service struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// ProfileCommand carries already-parsed profile fields.
type ProfileCommand struct {
	Name      string
	BloodType id.BloodType
	City      string
	State     string
	Available bool
}

func (s *Service) Get(ctx context.Context, actor id.UserID) (*models.Donor, error) {
	if actor.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	donor, err := s.store.FindByID(ctx, actor)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "donor profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donor profile")
	}
	return donor, nil
}

// SaveProfile creates or replaces the caller's profile. The last donation
// date is owned by completed matches and survives profile edits.
func (s *Service) SaveProfile(ctx context.Context, actor id.UserID, cmd ProfileCommand) (*models.Donor, error) {
	if actor.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !cmd.BloodType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid blood_type")
	}

	donor := &models.Donor{
		ID:        actor,
		Name:      cmd.Name,
		BloodType: cmd.BloodType,
		City:      cmd.City,
		State:     cmd.State,
		Available: cmd.Available,
	}
	existing, err := s.store.FindByID(ctx, actor)
	switch {
	case err == nil:
		donor.LastDonationAt = existing.LastDonationAt
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donor profile")
	}

	if err := s.store.Save(ctx, donor); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save donor profile")
	}
	s.logger.InfoContext(ctx, "donor_profile_saved",
		"user_id", actor.String(),
		"blood_type", donor.BloodType.String(),
		"available", donor.Available,
		"request_id", requestcontext.RequestID(ctx),
	)
	return donor, nil
}
