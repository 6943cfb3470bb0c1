package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gigledger/internal/core"
	"gigledger/internal/log"
	"gigledger/internal/store"
)

type GoalService struct {
	store  store.GoalStore
	plans  PlanInvalidator
	logger *slog.Logger
}

func NewGoalService(s store.GoalStore, plans PlanInvalidator, logger *slog.Logger) *GoalService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoalService{store: s, plans: plans, logger: logger}
}

// List returns the user's goals, oldest first. Progress is derived on read.
func (s *GoalService) List(ctx context.Context, uid string) ([]core.Goal, error) {
	goals, err := s.store.ListGoals(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

func (s *GoalService) Get(ctx context.Context, uid, id string) (core.Goal, error) {
	return s.store.GetGoal(ctx, uid, id)
}

func (s *GoalService) Create(ctx context.Context, uid string, g core.Goal) (core.Goal, error) {
	g.Title = strings.TrimSpace(g.Title)
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	id, err := s.store.CreateGoal(ctx, uid, g)
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	s.changed(ctx, uid, "created", id)
	return s.store.GetGoal(ctx, uid, id)
}

// Update replaces the editable fields of an existing goal. The creation
// time is kept.
func (s *GoalService) Update(ctx context.Context, uid string, g core.Goal) (core.Goal, error) {
	g.Title = strings.TrimSpace(g.Title)
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	cur, err := s.store.GetGoal(ctx, uid, g.ID)
	if err != nil {
		return core.Goal{}, err
	}
	g.CreatedAt = cur.CreatedAt
	if err := s.store.UpdateGoal(ctx, uid, g); err != nil {
		return core.Goal{}, fmt.Errorf("update goal: %w", err)
	}
	s.changed(ctx, uid, "updated", g.ID)
	return g, nil
}

// LinkInvestment ties the goal to a snapshot of inv. A nil inv unlinks.
func (s *GoalService) LinkInvestment(ctx context.Context, uid, goalID string, inv *core.LinkedInvestment) (core.Goal, error) {
	g, err := s.store.GetGoal(ctx, uid, goalID)
	if err != nil {
		return core.Goal{}, err
	}
	if inv != nil {
		snap := *inv
		g.Linked = &snap
	} else {
		g.Linked = nil
	}
	return s.Update(ctx, uid, g)
}

func (s *GoalService) Delete(ctx context.Context, uid, id string) error {
	if err := s.store.DeleteGoal(ctx, uid, id); err != nil {
		return err
	}
	s.changed(ctx, uid, "deleted", id)
	return nil
}

func (s *GoalService) changed(ctx context.Context, uid, action, id string) {
	if s.plans != nil {
		s.plans.InvalidateGoals(uid)
	}
	s.logger.InfoContext(ctx, "Goal "+action, log.FieldComponent, log.ComponentGoals, log.FieldUserID, uid, log.FieldGoalID, id)
}
