package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/skillshare/internal/apperror"
	"github.com/sakif/skillshare/internal/clock"
	"github.com/sakif/skillshare/internal/model"
	"github.com/sakif/skillshare/internal/repository"
)

// PlanService stores learning plans. Beyond a required title and owner-only
// writes there are no rules; the plan body is kept as sent.
type PlanService struct {
	plans  repository.LearningPlanRepository
	clock  clock.Clock
	logger *slog.Logger
}

func NewPlanService(plans repository.LearningPlanRepository, clk clock.Clock, logger *slog.Logger) *PlanService {
	return &PlanService{plans: plans, clock: clk, logger: logger}
}

type PlanInput struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Resources   []model.PlanResource `json:"resources"`
	Weeks       []model.PlanWeek     `json:"weeks"`
}

func (in PlanInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return apperror.ValidationFailed("title", "title is required")
	}
	return nil
}

func (s *PlanService) Create(ctx context.Context, principal *model.User, in PlanInput) (*model.LearningPlan, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	p := &model.LearningPlan{
		UserID:      principal.ID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Resources:   nonNil(in.Resources),
		Weeks:       nonNil(in.Weeks),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.plans.CreatePlan(ctx, p); err != nil {
		return nil, fmt.Errorf("service/plan: creating plan: %w", err)
	}
	s.logger.Info("learning plan created", slog.String("planID", p.ID), slog.String("userID", p.UserID))
	return p, nil
}

func (s *PlanService) Get(ctx context.Context, id string) (*model.LearningPlan, error) {
	p, err := s.plans.GetPlanByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/plan: fetching %s: %w", id, err)
	}
	return p, nil
}

func (s *PlanService) List(ctx context.Context) ([]model.LearningPlan, error) {
	plans, err := s.plans.ListPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/plan: listing plans: %w", err)
	}
	return plans, nil
}

func (s *PlanService) ListByUser(ctx context.Context, userID string) ([]model.LearningPlan, error) {
	plans, err := s.plans.ListPlansByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/plan: listing plans for %s: %w", userID, err)
	}
	return plans, nil
}

// Update replaces the plan body. Only the owner may update.
func (s *PlanService) Update(ctx context.Context, principal *model.User, id string, in PlanInput) (*model.LearningPlan, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p, err := s.ownedPlan(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	p.Title = strings.TrimSpace(in.Title)
	p.Description = in.Description
	p.Resources = nonNil(in.Resources)
	p.Weeks = nonNil(in.Weeks)
	p.UpdatedAt = s.clock.Now()

	if err := s.plans.UpdatePlan(ctx, p); err != nil {
		return nil, fmt.Errorf("service/plan: updating %s: %w", id, err)
	}
	return p, nil
}

func (s *PlanService) Delete(ctx context.Context, principal *model.User, id string) error {
	if _, err := s.ownedPlan(ctx, principal, id); err != nil {
		return err
	}
	if err := s.plans.DeletePlan(ctx, id); err != nil {
		return fmt.Errorf("service/plan: deleting %s: %w", id, err)
	}
	return nil
}

func (s *PlanService) ownedPlan(ctx context.Context, principal *model.User, id string) (*model.LearningPlan, error) {
	p, err := s.plans.GetPlanByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/plan: fetching %s: %w", id, err)
	}
	if p.UserID != principal.ID {
		return nil, apperror.Forbidden("you can only modify your own learning plans")
	}
	return p, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
