package service

import (
	"context"
	"fmt"

	"github.com/studymate/backend/internal/config"
	"github.com/studymate/backend/internal/models"
	"github.com/studymate/backend/internal/repository"
)

// PlanService exposes the purchasable tiers and seeds them at startup.
type PlanService struct {
	cfg   config.Config
	plans repository.PlanStore
}

func NewPlanService(cfg config.Config, plans repository.PlanStore) *PlanService {
	return &PlanService{cfg: cfg, plans: plans}
}

// EnsureDefaults creates the four product tiers when they are missing.
func (s *PlanService) EnsureDefaults(ctx context.Context) error {
	defaults := []models.Plan{
		{
			Name:        models.PlanFree,
			Description: "Starter credits on sign-up",
			Credits:     s.cfg.FreePlanCredits,
		},
		{
			Name:            models.PlanStarter,
			Description:     "For regular revision",
			PriceMinorUnits: s.cfg.StarterPlanPriceMinor,
			Credits:         s.cfg.StarterPlanCredits,
		},
		{
			Name:            models.PlanScholar,
			Description:     "For exam preparation",
			PriceMinorUnits: s.cfg.ScholarPlanPriceMinor,
			Credits:         s.cfg.ScholarPlanCredits,
		},
		{
			Name:            models.PlanAchiever,
			Description:     "Everything, all term long",
			PriceMinorUnits: s.cfg.AchieverPlanPriceMinor,
			Credits:         s.cfg.AchieverPlanCredits,
		},
	}

	for _, plan := range defaults {
		existing, err := s.plans.GetByName(ctx, plan.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		plan.Currency = s.cfg.PlanCurrency
		plan.IsActive = true
		if _, err := s.plans.Create(ctx, &plan); err != nil {
			return fmt.Errorf("create default plan %s: %w", plan.Name, err)
		}
	}
	return nil
}

func (s *PlanService) List(ctx context.Context) ([]models.Plan, error) {
	return s.plans.List(ctx)
}
