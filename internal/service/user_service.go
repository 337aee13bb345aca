package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/studymate/backend/internal/config"
	"github.com/studymate/backend/internal/credits"
	"github.com/studymate/backend/internal/models"
	"github.com/studymate/backend/internal/repository"
)

// UserService owns profile lifecycle: first-login creation with the default
// credit grant, profile refresh and plan switching.
type UserService struct {
	users  repository.UserStore
	plans  repository.PlanStore
	ledger *credits.Ledger
	cfg    config.Config
	log    *slog.Logger
}

func NewUserService(cfg config.Config, users repository.UserStore, plans repository.PlanStore, ledger *credits.Ledger, log *slog.Logger) *UserService {
	return &UserService{users: users, plans: plans, ledger: ledger, cfg: cfg, log: log}
}

// Ensure finds or creates the profile behind an external identity. New
// profiles start on the Free plan with its configured credit grant.
func (s *UserService) Ensure(ctx context.Context, identityID, name, email, photoURL string) (*models.User, bool, error) {
	user, created, err := s.users.Ensure(ctx, identityID, name, email, photoURL, models.PlanFree, s.cfg.FreePlanCredits)
	if err != nil {
		return nil, false, fmt.Errorf("ensure user: %w", err)
	}
	if created {
		s.log.Info("profile created", "identity", identityID, "credits", user.Credits)
	}
	return user, created, nil
}

func (s *UserService) Get(ctx context.Context, identityID string) (*models.User, error) {
	user, err := s.users.FindByIdentity(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, identityID, name, email, photoURL string) error {
	return s.users.UpdateProfile(ctx, identityID, name, email, photoURL)
}

// SwitchPlan moves the user to a purchasable tier and grants its credits.
func (s *UserService) SwitchPlan(ctx context.Context, identityID string, planName models.PlanType) (*models.User, error) {
	plan, err := s.plans.GetByName(ctx, planName)
	if err != nil {
		return nil, err
	}
	if plan == nil || !plan.IsActive {
		return nil, fmt.Errorf("%w: plan %s", ErrNotFound, planName)
	}
	if err := s.users.SetPlan(ctx, identityID, plan.Name); err != nil {
		return nil, err
	}
	if err := s.ledger.Credit(ctx, identityID, plan.Credits); err != nil {
		return nil, err
	}
	s.log.Info("plan switched", "identity", identityID, "plan", plan.Name, "credits_granted", plan.Credits)
	return s.Get(ctx, identityID)
}
