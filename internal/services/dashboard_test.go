package services

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gigledger/internal/auth"
	"gigledger/internal/core"
	"gigledger/internal/insights"
	"gigledger/internal/store/memory"
)

var dashNow = time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC)

func onboardedStore(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.New(core.DefaultExpenseCategories)
	done := true
	gig := "delivery"
	if err := st.UpsertProfile(ctx, "u1", core.ProfilePatch{
		GigType:             &gig,
		MonthlyIncome:       money(20000),
		MonthlyExpense:      money(15000),
		OnboardingCompleted: &done,
	}); err != nil {
		t.Fatal(err)
	}
	hours := decimal.NewFromInt(8)
	if err := st.UpsertEntry(ctx, "u1", "2024-05-15", core.LedgerPatch{
		Income:   money(1000),
		Hours:    &hours,
		Expenses: map[string]core.Money{"fuel": core.Rupees(150)},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateGoal(ctx, "u1", core.Goal{Title: "Bike", Target: core.Rupees(1000), Saved: core.Rupees(500)}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.AddInvestment(ctx, "u1", core.Investment{Name: "PPF", MinAmount: core.Rupees(500), Invested: core.Rupees(1500)}); err != nil {
		t.Fatal(err)
	}
	return st
}

func TestDashboardGate(t *testing.T) {
	st := memory.New(nil)
	d := NewDashboardService(NewProfileService(st, nil), st, nil, nil)

	sess, err := d.Load(ctx, auth.Identity{}, dashNow)
	if err != nil || sess.State != StateUnauthenticated {
		t.Fatalf("anonymous = %v, %v", sess.State, err)
	}

	sess, err = d.Load(ctx, auth.Identity{UserID: "new"}, dashNow)
	if err != nil || sess.State != StateOnboarding {
		t.Fatalf("new user = %v, %v", sess.State, err)
	}
	if sess.Entries != nil || sess.Goals != nil {
		t.Fatalf("onboarding session should not load sections: %+v", sess)
	}
}

func TestDashboardLoadsEverySection(t *testing.T) {
	st := onboardedStore(t)
	src := &fakeInsights{
		cashflow: insights.Cashflow{CashflowProjection: core.CashflowProjection{Score: 80}},
		tip:      "Skip the second chai",
		opp:      insights.Opportunity{BestArea: "Koramangala"},
	}
	d := NewDashboardService(NewProfileService(st, nil), st, src, nil)

	sess, err := d.Load(ctx, auth.Identity{UserID: "u1"}, dashNow)
	if err != nil {
		t.Fatal(err)
	}
	if sess.State != StateDashboard || sess.State.String() != "dashboard" {
		t.Fatalf("state = %v", sess.State)
	}
	if len(sess.Entries) != 1 || len(sess.Goals) != 1 || len(sess.Investments) != 1 {
		t.Fatalf("sections = %d entries, %d goals, %d investments", len(sess.Entries), len(sess.Goals), len(sess.Investments))
	}
	if sess.Invested != core.Rupees(1500) {
		t.Errorf("Invested = %v", sess.Invested)
	}
	if sess.Summary.TodaySpend != core.Rupees(150) || sess.Summary.Week.EfficiencyPerHour != core.Rupees(125) {
		t.Errorf("summary = %+v", sess.Summary)
	}
	if sess.Cashflow.Score != 80 || sess.Cashflow.Local {
		t.Errorf("cashflow = %+v", sess.Cashflow)
	}
	if sess.SmartTip != "Skip the second chai" || sess.Opportunity.BestArea != "Koramangala" {
		t.Errorf("insights = %q / %+v", sess.SmartTip, sess.Opportunity)
	}
	if len(sess.Degraded) != 0 {
		t.Errorf("Degraded = %v", sess.Degraded)
	}
}

func TestDashboardDegradesOnInsightFailures(t *testing.T) {
	st := onboardedStore(t)
	down := errors.New("backend down")
	src := &fakeInsights{cashflowErr: down, tipErr: down, oppErr: down}
	d := NewDashboardService(NewProfileService(st, nil), st, src, nil)

	sess, err := d.Load(ctx, auth.Identity{UserID: "u1"}, dashNow)
	if err != nil {
		t.Fatalf("insight failures must not fail the page: %v", err)
	}
	if !sess.Cashflow.Local || !sess.Cashflow.FromLogs || sess.Cashflow.DaysLogged != 1 {
		t.Errorf("expected local projection, got %+v", sess.Cashflow)
	}
	if want := []string{"opportunity", "smart_spend"}; !reflect.DeepEqual(sess.Degraded, want) {
		t.Errorf("Degraded = %v, want %v", sess.Degraded, want)
	}
	if len(sess.Entries) != 1 {
		t.Errorf("ledger section lost: %+v", sess.Entries)
	}
}

func TestDashboardWithoutInsightsBackend(t *testing.T) {
	st := onboardedStore(t)
	d := NewDashboardService(NewProfileService(st, nil), st, nil, nil)
	sess, err := d.Load(ctx, auth.Identity{UserID: "u1"}, dashNow)
	if err != nil {
		t.Fatal(err)
	}
	if !sess.Cashflow.Local || sess.SmartTip != "" {
		t.Fatalf("session = %+v", sess)
	}
}
