package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go-plan-portal/internal/model"
)

type planFinder interface {
	FindByID(ctx context.Context, id int64) (model.Plan, error)
}

type freePlanStore interface {
	EnsureFreePlan(ctx context.Context, name string, validityDays *int) (model.Plan, error)
}

type PlanService struct {
	plans planFinder
	now   func() time.Time
}

func NewPlanService(plans planFinder) *PlanService {
	return &PlanService{plans: plans, now: time.Now}
}

// Status derives the plan status of user at the current time. It is computed
// on every call and never cached.
func (s *PlanService) Status(ctx context.Context, user model.User) (model.PlanStatus, error) {
	if user.PlanID == nil || user.PlanAssignedAt == nil {
		return model.PlanStatusNone, nil
	}

	plan, err := s.plans.FindByID(ctx, *user.PlanID)
	if err != nil {
		if errors.Is(err, model.ErrPlanNotFound) {
			return model.PlanStatusNone, nil
		}
		return "", fmt.Errorf("load plan %d: %w", *user.PlanID, err)
	}

	expiresAt, ok := plan.ExpiresAt(*user.PlanAssignedAt)
	if !ok {
		return model.PlanStatusActive, nil
	}
	if s.now().After(expiresAt) {
		return model.PlanStatusExpired, nil
	}

	return model.PlanStatusActive, nil
}

// SeedFreePlan makes sure the demo plan exists. It returns nil plan when the
// demo is disabled.
func SeedFreePlan(ctx context.Context, store freePlanStore, name string, validityDays int) (*model.Plan, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	var days *int
	if validityDays > 0 {
		days = &validityDays
	}

	plan, err := store.EnsureFreePlan(ctx, name, days)
	if err != nil {
		return nil, fmt.Errorf("seed free plan %q: %w", name, err)
	}

	slog.Info("free plan ready", "plan_id", plan.ID, "name", plan.Name)
	return &plan, nil
}
