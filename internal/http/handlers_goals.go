package http

import (
	"errors"
	"net/http"
	"strings"

	"gigledger/internal/auth"
	"gigledger/internal/core"
	"gigledger/internal/log"
	"gigledger/internal/store"
)

type goalsView struct {
	Goals       []core.Goal
	Investments []core.Investment
	Error       string
}

// goalsView loads the goal list with the investments a goal can link to.
// Missing investments only empty the link picker.
func (s *Server) goalsView(r *http.Request, uid string) (goalsView, error) {
	ctx := r.Context()
	goals, err := s.goals.List(ctx, uid)
	if err != nil {
		return goalsView{}, err
	}
	invs, err := s.investments.List(ctx, uid)
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Investments unavailable for goal linking",
			log.FieldComponent, log.ComponentGoals, log.FieldUserID, uid, log.FieldError, err)
	}
	return goalsView{Goals: goals, Investments: invs}, nil
}

// renderGoals answers every goal request with the refreshed list.
func (s *Server) renderGoals(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, uid, formErr string) {
	v, err := s.goalsView(r, uid)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to list goals",
			log.FieldComponent, log.ComponentGoals, log.FieldUserID, uid, log.FieldError, err)
		Placeholder("goals", "Your goals could not be loaded.").Write(w)
		return
	}
	v.Error = formErr
	s.render(w, r, b, "goals", v)
}

// goalFailure maps a goal write error to a response.
func (s *Server) goalFailure(w http.ResponseWriter, r *http.Request, uid, goalID string, err error) {
	ctx := r.Context()
	if errors.Is(err, store.ErrNotFound) {
		NotFoundError("That goal no longer exists").Write(w)
		return
	}
	if msg := validationMessage(err); msg != "" {
		s.renderGoals(w, r, NewHTMXResponse().Status(http.StatusUnprocessableEntity), uid, msg)
		return
	}
	fields := log.NewFields().WithUser(uid)
	if goalID != "" {
		fields[log.FieldGoalID] = goalID
	}
	log.NewStructuredLogger(log.FromContext(ctx)).
		LogError(ctx, "Goal write failed", err, log.ComponentGoals, log.OpUpdate, fields)
	InternalServerError("Could not save the goal. Please try again.").Write(w)
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	s.renderGoals(w, r, NewHTMXResponse(), id.UserID, "")
}

func (s *Server) handleGoalPlan(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	if !s.insightsReady() {
		s.unavailable(w, r, "goal_plan", id.UserID, nil)
		return
	}
	plan, err := s.insights.DreamPlan(r.Context(), id.UserID)
	if err != nil {
		s.unavailable(w, r, "goal_plan", id.UserID, err)
		return
	}
	s.render(w, r, NewHTMXResponse(), "goal_plan", plan)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	if !parseFormOrFail(w, r) {
		return
	}
	g, err := ParseGoalForm(r.PostForm)
	if err == nil {
		g, err = s.goals.Create(r.Context(), id.UserID, g)
	}
	if err != nil {
		s.goalFailure(w, r, id.UserID, "", err)
		return
	}
	s.renderGoals(w, r, NewHTMXResponse().
		TriggerGoalsChanged(g.ID).
		TriggerFormReset().
		TriggerSuccessNotification("Goal added"),
		id.UserID, "")
}

// handleUpdateGoal replaces the goal's editable fields. The linked
// investment is kept unless the link endpoint changes it.
func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	ctx := r.Context()
	goalID := r.PathValue("id")
	if !parseFormOrFail(w, r) {
		return
	}
	g, err := ParseGoalForm(r.PostForm)
	if err != nil {
		s.goalFailure(w, r, id.UserID, goalID, err)
		return
	}
	cur, err := s.goals.Get(ctx, id.UserID, goalID)
	if err != nil {
		s.goalFailure(w, r, id.UserID, goalID, err)
		return
	}
	g.ID = goalID
	g.Linked = cur.Linked
	if _, err := s.goals.Update(ctx, id.UserID, g); err != nil {
		s.goalFailure(w, r, id.UserID, goalID, err)
		return
	}
	s.renderGoals(w, r, NewHTMXResponse().
		TriggerGoalsChanged(goalID).
		TriggerSuccessNotification("Goal updated"),
		id.UserID, "")
}

// handleLinkGoal ties the goal to one of the user's investments by id. An
// empty id removes the link.
func (s *Server) handleLinkGoal(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	ctx := r.Context()
	goalID := r.PathValue("id")
	if !parseFormOrFail(w, r) {
		return
	}

	var link *core.LinkedInvestment
	if invID := strings.TrimSpace(r.PostForm.Get("investment_id")); invID != "" {
		invs, err := s.investments.List(ctx, id.UserID)
		if err != nil {
			s.goalFailure(w, r, id.UserID, goalID, err)
			return
		}
		for _, inv := range invs {
			if inv.ID == invID {
				link = &core.LinkedInvestment{Name: inv.Name, MinAmount: inv.MinAmount}
				break
			}
		}
		if link == nil {
			s.renderGoals(w, r, NewHTMXResponse().Status(http.StatusUnprocessableEntity), id.UserID,
				"Pick one of your investments")
			return
		}
	}

	if _, err := s.goals.LinkInvestment(ctx, id.UserID, goalID, link); err != nil {
		s.goalFailure(w, r, id.UserID, goalID, err)
		return
	}
	msg := "Investment unlinked"
	if link != nil {
		msg = "Linked to " + link.Name
	}
	s.renderGoals(w, r, NewHTMXResponse().
		TriggerGoalsChanged(goalID).
		TriggerSuccessNotification(msg),
		id.UserID, "")
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	goalID := r.PathValue("id")
	if err := s.goals.Delete(r.Context(), id.UserID, goalID); err != nil {
		s.goalFailure(w, r, id.UserID, goalID, err)
		return
	}
	s.renderGoals(w, r, NewHTMXResponse().
		TriggerGoalsChanged(goalID).
		TriggerSuccessNotification("Goal deleted"),
		id.UserID, "")
}
