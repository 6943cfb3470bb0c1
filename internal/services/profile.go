package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gigledger/internal/auth"
	"gigledger/internal/core"
	"gigledger/internal/log"
	"gigledger/internal/store"
)

// OnboardingForm is what a new user declares before reaching the dashboard.
type OnboardingForm struct {
	GigType        string
	MonthlyIncome  core.Money
	MonthlyExpense core.Money
}

type ProfileService struct {
	store  store.ProfileStore
	logger *slog.Logger
}

func NewProfileService(s store.ProfileStore, logger *slog.Logger) *ProfileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileService{store: s, logger: logger}
}

// EnsureProfile returns the user's profile, creating it on first sign-in
// with onboarding still to do.
func (s *ProfileService) EnsureProfile(ctx context.Context, id auth.Identity) (core.UserProfile, error) {
	p, err := s.store.GetProfile(ctx, id.UserID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return core.UserProfile{}, fmt.Errorf("get profile: %w", err)
	}

	done := false
	patch := core.ProfilePatch{OnboardingCompleted: &done}
	if id.Email != "" {
		patch.Email = &id.Email
	}
	if err := s.store.UpsertProfile(ctx, id.UserID, patch); err != nil {
		return core.UserProfile{}, fmt.Errorf("create profile: %w", err)
	}
	s.logger.InfoContext(ctx, "Profile created", log.FieldComponent, log.ComponentProfile, log.FieldUserID, id.UserID)

	p, err = s.store.GetProfile(ctx, id.UserID)
	if err != nil {
		return core.UserProfile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// CompleteOnboarding stores the declared figures and opens the dashboard.
func (s *ProfileService) CompleteOnboarding(ctx context.Context, uid string, f OnboardingForm) error {
	gig := strings.TrimSpace(f.GigType)
	if gig == "" {
		return ErrGigTypeMissing
	}
	done := true
	patch := core.ProfilePatch{
		GigType:             &gig,
		MonthlyIncome:       &f.MonthlyIncome,
		MonthlyExpense:      &f.MonthlyExpense,
		OnboardingCompleted: &done,
	}
	if err := patch.Validate(); err != nil {
		return err
	}
	if err := s.store.UpsertProfile(ctx, uid, patch); err != nil {
		return fmt.Errorf("complete onboarding: %w", err)
	}
	s.logger.InfoContext(ctx, "Onboarding completed", log.FieldComponent, log.ComponentProfile, log.FieldUserID, uid, "gig_type", gig)
	return nil
}

// UpdateProfile merges the patch into the stored profile.
func (s *ProfileService) UpdateProfile(ctx context.Context, uid string, p core.ProfilePatch) error {
	if p.IsEmpty() {
		return ErrEmptyPatch
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.store.UpsertProfile(ctx, uid, p); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

func (s *ProfileService) Profile(ctx context.Context, uid string) (core.UserProfile, error) {
	return s.store.GetProfile(ctx, uid)
}
