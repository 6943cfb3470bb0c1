// Package storetest holds behaviour checks shared by every store.Store
// backend.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"gigledger/internal/core"
	"gigledger/internal/store"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) store.Store

// Run exercises s against the behaviour every backend must share.
func Run(t *testing.T, newStore Factory) {
	t.Run("profile merge", func(t *testing.T) { testProfile(t, newStore(t)) })
	t.Run("ledger merge", func(t *testing.T) { testLedger(t, newStore(t)) })
	t.Run("goals", func(t *testing.T) { testGoals(t, newStore(t)) })
	t.Run("investments", func(t *testing.T) { testInvestments(t, newStore(t)) })
	t.Run("users are isolated", func(t *testing.T) { testIsolation(t, newStore(t)) })
}

func ptr[T any](v T) *T { return &v }

func testProfile(t *testing.T, s store.Store) {
	ctx := context.Background()
	if _, err := s.GetProfile(ctx, "u1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("GetProfile on empty store: err = %v, want ErrNotFound", err)
	}
	if err := s.UpsertProfile(ctx, "u1", core.ProfilePatch{Email: ptr("a@b.in")}); err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}
	err := s.UpsertProfile(ctx, "u1", core.ProfilePatch{
		GigType:             ptr("delivery"),
		MonthlyIncome:       ptr(core.Rupees(30000)),
		OnboardingCompleted: ptr(true),
	})
	if err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}
	p, err := s.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p.Email != "a@b.in" || p.GigType != "delivery" || p.MonthlyIncome != core.Rupees(30000) || !p.OnboardingCompleted {
		t.Fatalf("profile not merged: %+v", p)
	}
	if !p.MonthlyExpense.IsZero() {
		t.Fatalf("untouched field changed: %+v", p.MonthlyExpense)
	}
}

func testLedger(t *testing.T, s store.Store) {
	ctx := context.Background()
	const day = core.DateKey("2024-05-15")

	if _, err := s.GetEntry(ctx, "u1", day); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("GetEntry on empty store: err = %v", err)
	}
	first := core.LedgerPatch{
		Income:   ptr(core.Rupees(800)),
		Hours:    ptr(decimal.RequireFromString("6.5")),
		Platform: ptr("Swiggy"),
		Expenses: map[string]core.Money{"fuel": core.Rupees(120), "food": core.Rupees(80)},
	}
	if err := s.UpsertEntry(ctx, "u1", day, first); err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}
	second := core.LedgerPatch{
		Expenses: map[string]core.Money{"fuel": core.Rupees(150), "misc": core.Money{Cents: 2550}},
		Note:     ptr("rainy"),
	}
	if err := s.UpsertEntry(ctx, "u1", day, second); err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}

	got, err := s.GetEntry(ctx, "u1", day)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got.Date != day || got.Income != core.Rupees(800) || got.Platform != "Swiggy" || got.Note != "rainy" {
		t.Fatalf("entry fields not merged: %+v", got)
	}
	if !got.Hours.Equal(decimal.RequireFromString("6.5")) {
		t.Fatalf("hours = %v", got.Hours)
	}
	want := map[string]core.Money{"fuel": core.Rupees(150), "food": core.Rupees(80), "misc": {Cents: 2550}}
	if len(got.Expenses) != len(want) {
		t.Fatalf("expenses = %v, want %v", got.Expenses, want)
	}
	for k, v := range want {
		if got.Expenses[k] != v {
			t.Fatalf("expense %s = %v, want %v", k, got.Expenses[k], v)
		}
	}

	if err := s.UpsertEntry(ctx, "u1", "2024-05-10", core.LedgerPatch{Income: ptr(core.Rupees(100))}); err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}
	list, err := s.ListEntries(ctx, "u1")
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(list) != 2 || list[0].Date != day || list[1].Date != "2024-05-10" {
		t.Fatalf("ListEntries not newest first: %+v", list)
	}

	cats, err := s.ExpenseCategories(ctx, "u1")
	if err != nil {
		t.Fatalf("ExpenseCategories: %v", err)
	}
	has := map[string]bool{}
	for _, c := range cats {
		has[c] = true
	}
	for _, c := range []string{"fuel", "food", "misc"} {
		if !has[c] {
			t.Fatalf("ExpenseCategories = %v, missing %s", cats, c)
		}
	}
}

func testGoals(t *testing.T, s store.Store) {
	ctx := context.Background()
	id, err := s.CreateGoal(ctx, "u1", core.Goal{
		Title:  "Bike",
		Target: core.Rupees(60000),
		Saved:  core.Rupees(15000),
		Linked: &core.LinkedInvestment{Name: "SBI - FD", MinAmount: core.Rupees(1000)},
	})
	if err != nil || id == "" {
		t.Fatalf("CreateGoal: id=%q err=%v", id, err)
	}
	second, err := s.CreateGoal(ctx, "u1", core.Goal{Title: "Phone", Target: core.Rupees(20000)})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	g, err := s.GetGoal(ctx, "u1", id)
	if err != nil {
		t.Fatalf("GetGoal: %v", err)
	}
	if g.Title != "Bike" || g.Progress() != 25 || g.Linked == nil || g.Linked.Name != "SBI - FD" || g.Linked.MinAmount != core.Rupees(1000) {
		t.Fatalf("goal = %+v", g)
	}

	g.Saved = core.Rupees(90000)
	if err := s.UpdateGoal(ctx, "u1", g); err != nil {
		t.Fatalf("UpdateGoal: %v", err)
	}
	g, _ = s.GetGoal(ctx, "u1", id)
	if g.Progress() != 100 {
		t.Fatalf("progress after overshoot = %d", g.Progress())
	}
	if err := s.UpdateGoal(ctx, "u1", core.Goal{ID: "missing", Title: "x"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("UpdateGoal missing: err = %v", err)
	}

	goals, err := s.ListGoals(ctx, "u1")
	if err != nil || len(goals) != 2 {
		t.Fatalf("ListGoals: %v %+v", err, goals)
	}

	if err := s.DeleteGoal(ctx, "u1", second); err != nil {
		t.Fatalf("DeleteGoal: %v", err)
	}
	if _, err := s.GetGoal(ctx, "u1", second); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("deleted goal still present: %v", err)
	}
	if err := s.DeleteGoal(ctx, "u1", second); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete: err = %v", err)
	}
}

func testInvestments(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, err := s.AddInvestment(ctx, "u1", core.Investment{
		Name: "HDFC - Regular", Type: "fd", MinAmount: core.Rupees(5000), Invested: core.Rupees(4999),
	})
	if !errors.Is(err, core.ErrBelowMinimum) {
		t.Fatalf("below minimum: err = %v", err)
	}
	list, _ := s.ListInvestments(ctx, "u1")
	if len(list) != 0 {
		t.Fatalf("rejected investment was written: %+v", list)
	}

	for _, amt := range []int64{5000, 7000} {
		_, err := s.AddInvestment(ctx, "u1", core.Investment{
			Name: "HDFC - Regular", Type: "fd", MinAmount: core.Rupees(5000), Invested: core.Rupees(amt), Risk: "low",
		})
		if err != nil {
			t.Fatalf("AddInvestment(%d): %v", amt, err)
		}
	}
	list, err = s.ListInvestments(ctx, "u1")
	if err != nil || len(list) != 2 {
		t.Fatalf("ListInvestments: %v %+v", err, list)
	}
	if list[0].ID == list[1].ID {
		t.Fatalf("investments share an id: %+v", list)
	}
	var total core.Money
	for _, inv := range list {
		total = total.Add(inv.Invested)
	}
	if total != core.Rupees(12000) {
		t.Fatalf("total invested = %v", total)
	}
}

func testIsolation(t *testing.T, s store.Store) {
	ctx := context.Background()
	if err := s.UpsertEntry(ctx, "u1", "2024-05-15", core.LedgerPatch{Income: ptr(core.Rupees(1))}); err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}
	if _, err := s.CreateGoal(ctx, "u1", core.Goal{Title: "g"}); err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	entries, _ := s.ListEntries(ctx, "u2")
	goals, _ := s.ListGoals(ctx, "u2")
	if len(entries) != 0 || len(goals) != 0 {
		t.Fatalf("u2 sees u1 data: %v %v", entries, goals)
	}
}
