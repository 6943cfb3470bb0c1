package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"gigledger/internal/auth"
	"gigledger/internal/core"
	"gigledger/internal/insights"
	"gigledger/internal/log"
	"gigledger/internal/metrics"
	"gigledger/internal/services"
	"gigledger/internal/store/memory"
)

var testNow = time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC)

type fakeInsights struct {
	err     error
	catalog []insights.CatalogItem
}

func (f *fakeInsights) Configured() bool     { return true }
func (f *fakeInsights) BreakerState() string { return "closed" }

func (f *fakeInsights) Cashflow(context.Context, string) (insights.Cashflow, error) {
	if f.err != nil {
		return insights.Cashflow{}, f.err
	}
	return insights.Cashflow{CashflowProjection: core.CashflowProjection{Score: 72}, Tips: []string{"Refuel before 9am"}}, nil
}

func (f *fakeInsights) SmartSpend(context.Context, string) (string, error) {
	return "Pack lunch on Fridays", f.err
}

func (f *fakeInsights) Opportunity(_ context.Context, _ string, loc insights.Location) (insights.Opportunity, error) {
	if f.err != nil {
		return insights.Opportunity{}, f.err
	}
	area := "Indiranagar"
	if loc.Known {
		area = "Near you"
	}
	return insights.Opportunity{BestArea: area, BestTime: "7pm"}, nil
}

func (f *fakeInsights) Catalog(context.Context, insights.CatalogKind) ([]insights.CatalogItem, error) {
	return f.catalog, f.err
}

func (f *fakeInsights) DreamPlan(context.Context, string) (insights.DreamPlan, error) {
	return insights.DreamPlan{Plan: "Save steadily"}, f.err
}

func (f *fakeInsights) Portfolio(context.Context, string) (string, error) {
	return "Well diversified", f.err
}

func (f *fakeInsights) Chat(_ context.Context, _, message string) (string, error) {
	return "You asked: " + message, f.err
}

func (f *fakeInsights) Loans(context.Context, insights.LoanFilter) ([]insights.LoanOffer, error) {
	return []insights.LoanOffer{{Bank: "SBI", Type: "personal", InterestRate: "11%"}}, f.err
}

type testEnv struct {
	srv      *Server
	store    *memory.Store
	verifier *auth.Verifier
	metrics  *metrics.Registry
}

func newTestEnv(t *testing.T, ins *fakeInsights) *testEnv {
	t.Helper()
	st := memory.New(core.DefaultExpenseCategories)
	logger := log.New(log.Config{Output: io.Discard})

	var src Insights
	var dashSrc services.InsightsSource
	var catalog services.CatalogSource
	if ins != nil {
		src, dashSrc, catalog = ins, ins, ins
	}

	profiles := services.NewProfileService(st, logger.Logger)
	reg := metrics.New()
	verifier := auth.NewVerifier("test-secret", "", time.Hour)
	srv := NewServer("", Deps{
		Profiles:    profiles,
		Ledger:      services.NewLedgerService(st, st, nil, nil, logger.Logger),
		Goals:       services.NewGoalService(st, nil, logger.Logger),
		Investments: services.NewInvestmentService(st, catalog, logger.Logger),
		Dashboard:   services.NewDashboardService(profiles, st, dashSrc, logger.Logger),
		Insights:    src,
		Verifier:    verifier,
		Metrics:     reg,
		Logger:      logger,
		Location:    time.UTC,
	})
	srv.now = func() time.Time { return testNow }
	t.Cleanup(func() { srv.limiter.Stop() })
	if srv.templates == nil {
		t.Fatal("templates failed to parse")
	}
	return &testEnv{srv: srv, store: st, verifier: verifier, metrics: reg}
}

func (e *testEnv) onboard(t *testing.T, uid string) {
	t.Helper()
	done := true
	gig := "delivery"
	income, expense := core.Rupees(30000), core.Rupees(20000)
	if err := e.store.UpsertProfile(context.Background(), uid, core.ProfilePatch{
		GigType:             &gig,
		MonthlyIncome:       &income,
		MonthlyExpense:      &expense,
		OnboardingCompleted: &done,
	}); err != nil {
		t.Fatal(err)
	}
}

func counterValue(t *testing.T, reg *metrics.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gatherer().Gather()
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
	}
	return sum
}

// do sends a request as uid; an empty uid is anonymous.
func (e *testEnv) do(t *testing.T, method, target, uid string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if uid != "" {
		token, err := e.verifier.Mint(uid, uid+"@example.com")
		if err != nil {
			t.Fatal(err)
		}
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
	req.Header.Set("HX-Request", "true")
	w := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(w, req)
	return w
}

func TestSessionGate(t *testing.T) {
	env := newTestEnv(t, &fakeInsights{})

	w := env.do(t, http.MethodGet, "/", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Sign in") {
		t.Fatalf("anonymous = %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/", "new-user", nil)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/onboarding" {
		t.Fatalf("new user = %d, Location %q", w.Code, w.Header().Get("Location"))
	}

	w = env.do(t, http.MethodGet, "/onboarding", "new-user", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Delivery Partner") {
		t.Fatalf("onboarding form = %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/onboarding", "new-user", url.Values{
		"gig_type":        {"ride"},
		"monthly_income":  {"25000"},
		"monthly_expense": {"15000"},
	})
	if w.Code != http.StatusNoContent || w.Header().Get("HX-Redirect") != "/" {
		t.Fatalf("onboarding submit = %d, HX-Redirect %q", w.Code, w.Header().Get("HX-Redirect"))
	}

	w = env.do(t, http.MethodGet, "/", "new-user", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard = %d %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	for _, want := range []string{"Ride / Transport", "Today", "Last 7 days", "Pack lunch on Fridays", "Indiranagar"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}

func TestOnboardingValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodPost, "/onboarding", "u1", url.Values{
		"monthly_income":  {"25000"},
		"monthly_expense": {"15000"},
	})
	if w.Code != http.StatusUnprocessableEntity || !strings.Contains(w.Body.String(), "what kind of gig work") {
		t.Fatalf("missing gig type = %d %s", w.Code, w.Body.String())
	}
}

func TestSessionExchange(t *testing.T) {
	env := newTestEnv(t, nil)

	token, _ := env.verifier.Mint("u9", "u9@example.com")
	w := env.do(t, http.MethodPost, "/session", "", url.Values{"token": {token}})
	if w.Code != http.StatusNoContent {
		t.Fatalf("session = %d %s", w.Code, w.Body.String())
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != auth.CookieName || cookies[0].Value != token || !cookies[0].HttpOnly {
		t.Fatalf("cookies = %+v", cookies)
	}
	if _, err := env.store.GetProfile(context.Background(), "u9"); err != nil {
		t.Errorf("profile not created on sign-in: %v", err)
	}

	w = env.do(t, http.MethodPost, "/session", "", url.Values{"token": {"garbage"}})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad token = %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/logout", "u9", url.Values{})
	if c := w.Result().Cookies(); len(c) != 1 || c[0].MaxAge >= 0 {
		t.Errorf("logout cookies = %+v", c)
	}
}

func TestUserRoutesRequireSignIn(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, target := range []string{"/ui/weekly", "/ui/goals", "/api/summary"} {
		w := env.do(t, http.MethodGet, target, "", nil)
		if w.Code != http.StatusUnauthorized || w.Header().Get("HX-Redirect") != "/" {
			t.Errorf("%s = %d, HX-Redirect %q", target, w.Code, w.Header().Get("HX-Redirect"))
		}
	}
}

func TestSaveLedgerMerges(t *testing.T) {
	env := newTestEnv(t, nil)
	env.onboard(t, "u1")

	w := env.do(t, http.MethodPost, "/ledger", "u1", url.Values{
		"date":          {"2024-05-15"},
		"income":        {"1000"},
		"expense[fuel]": {"150"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("first save = %d %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Header().Get("HX-Trigger"), EventLedgerSaved) {
		t.Errorf("HX-Trigger = %q", w.Header().Get("HX-Trigger"))
	}

	w = env.do(t, http.MethodPost, "/ledger", "u1", url.Values{
		"date":          {"2024-05-15"},
		"income":        {""},
		"expense[food]": {"50"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("second save = %d", w.Code)
	}

	e, err := env.store.GetEntry(context.Background(), "u1", "2024-05-15")
	if err != nil {
		t.Fatal(err)
	}
	if e.Income != core.Rupees(1000) || e.Expenses["fuel"] != core.Rupees(150) || e.Expenses["food"] != core.Rupees(50) {
		t.Errorf("merged entry = %+v", e)
	}

	got := counterValue(t, env.metrics, "gigledger_ledger_saves_total")
	if got != 2 {
		t.Errorf("ledger saves metric = %v, want 2", got)
	}
}

func TestSaveLedgerValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	env.onboard(t, "u1")

	w := env.do(t, http.MethodPost, "/ledger", "u1", url.Values{"income": {"a lot"}})
	if w.Code != http.StatusUnprocessableEntity || !strings.Contains(w.Body.String(), "enter a valid amount") {
		t.Fatalf("bad income = %d %s", w.Code, w.Body.String())
	}
	if entries, _ := env.store.ListEntries(context.Background(), "u1"); len(entries) != 0 {
		t.Errorf("invalid save wrote %d entries", len(entries))
	}

	w = env.do(t, http.MethodPost, "/ledger", "u1", url.Values{"date": {"2024-13-01"}, "income": {"5"}})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad date = %d", w.Code)
	}
}

func TestSummaryJSON(t *testing.T) {
	env := newTestEnv(t, nil)
	env.onboard(t, "u1")
	env.do(t, http.MethodPost, "/ledger", "u1", url.Values{
		"date": {"2024-05-14"}, "income": {"800"}, "hours": {"4"}, "expense[fuel]": {"100"},
	})
	env.do(t, http.MethodPost, "/ledger", "u1", url.Values{
		"date": {"2024-05-15"}, "income": {"1200"}, "expense[food]": {"60"},
	})

	w := env.do(t, http.MethodGet, "/api/summary", "u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("summary = %d", w.Code)
	}
	var got summaryJSON
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Date != "2024-05-15" || got.TodaySpend != "60" {
		t.Errorf("date/today = %q/%q", got.Date, got.TodaySpend)
	}
	if got.Month.Income != "2000" || got.Month.Expenses != "160" || got.Month.Net != "1840" || got.Month.DaysLogged != 2 {
		t.Errorf("month = %+v", got.Month)
	}
	if got.Week.BestDay != "2024-05-15" || got.Week.Net != "1840" {
		t.Errorf("week = %+v", got.Week)
	}
}

func TestInsightSectionsDegrade(t *testing.T) {
	env := newTestEnv(t, &fakeInsights{err: errors.New("backend down")})
	env.onboard(t, "u1")

	for _, target := range []string{"/ui/smart-spend", "/ui/opportunity", "/ui/portfolio", "/ui/goals/plan", "/ui/loans", "/ui/catalog"} {
		w := env.do(t, http.MethodGet, target, "u1", nil)
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `class="placeholder"`) {
			t.Errorf("%s = %d %s", target, w.Code, w.Body.String())
		}
	}

	w := env.do(t, http.MethodGet, "/ui/cashflow", "u1", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "declared monthly figures") {
		t.Errorf("cashflow fallback = %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/", "u1", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "could not be loaded") {
		t.Errorf("dashboard with insights down = %d", w.Code)
	}
}

func TestInsightsWithoutBackend(t *testing.T) {
	env := newTestEnv(t, nil)
	env.onboard(t, "u1")

	w := env.do(t, http.MethodGet, "/ui/smart-spend", "u1", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "placeholder") {
		t.Errorf("smart spend = %d %s", w.Code, w.Body.String())
	}
	w = env.do(t, http.MethodGet, "/", "u1", nil)
	if w.Code != http.StatusOK {
		t.Errorf("dashboard = %d %s", w.Code, w.Body.String())
	}
}

func TestOpportunityUsesLocation(t *testing.T) {
	env := newTestEnv(t, &fakeInsights{})
	env.onboard(t, "u1")
	w := env.do(t, http.MethodGet, "/ui/opportunity?lat=12.97&lon=77.59", "u1", nil)
	if !strings.Contains(w.Body.String(), "Near you") {
		t.Errorf("opportunity = %s", w.Body.String())
	}
}

func TestChat(t *testing.T) {
	env := newTestEnv(t, &fakeInsights{})
	env.onboard(t, "u1")

	w := env.do(t, http.MethodPost, "/chat", "u1", url.Values{"message": {"  "}})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty message = %d", w.Code)
	}
	w = env.do(t, http.MethodPost, "/chat", "u1", url.Values{"message": {"Can I buy a phone?"}})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "You asked: Can I buy a phone?") {
		t.Errorf("chat = %d %s", w.Code, w.Body.String())
	}
}

func TestGoalLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	env.onboard(t, "u1")
	ctx := context.Background()

	w := env.do(t, http.MethodPost, "/goals", "u1", url.Values{"title": {"Bike"}, "target": {"40000"}, "saved": {"10000"}})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "25% saved") {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Header().Get("HX-Trigger"), EventGoalsChanged) {
		t.Errorf("HX-Trigger = %q", w.Header().Get("HX-Trigger"))
	}
	goals, _ := env.store.ListGoals(ctx, "u1")
	if len(goals) != 1 {
		t.Fatalf("goals = %+v", goals)
	}
	id := goals[0].ID

	w = env.do(t, http.MethodPost, "/goals", "u1", url.Values{"title": {""}, "target": {"100"}})
	if w.Code != http.StatusUnprocessableEntity || !strings.Contains(w.Body.String(), "Give the goal a title") {
		t.Errorf("empty title = %d %s", w.Code, w.Body.String())
	}

	invID, err := env.store.AddInvestment(ctx, "u1", core.Investment{Name: "PPF", MinAmount: core.Rupees(500), Invested: core.Rupees(1000)})
	if err != nil {
		t.Fatal(err)
	}
	w = env.do(t, http.MethodPost, "/goals/"+id+"/link", "u1", url.Values{"investment_id": {invID}})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Linked to PPF") {
		t.Fatalf("link = %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/goals/"+id, "u1", url.Values{"title": {"Bike"}, "target": {"40000"}, "saved": {"40000"}})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "100% saved") {
		t.Fatalf("update = %d %s", w.Code, w.Body.String())
	}
	g, _ := env.store.GetGoal(ctx, "u1", id)
	if g.Linked == nil || g.Linked.Name != "PPF" {
		t.Errorf("update dropped the link: %+v", g.Linked)
	}

	w = env.do(t, http.MethodDelete, "/goals/"+id, "u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d", w.Code)
	}
	w = env.do(t, http.MethodDelete, "/goals/"+id, "u1", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d", w.Code)
	}
	w = env.do(t, http.MethodPost, "/goals/missing", "u1", url.Values{"title": {"x"}, "target": {"1"}})
	if w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d", w.Code)
	}
}

func TestInvestEnforcesCatalogMinimum(t *testing.T) {
	env := newTestEnv(t, &fakeInsights{catalog: []insights.CatalogItem{
		{Kind: insights.KindFD, Name: "SBI FD", MinAmount: core.Rupees(1000), Risk: "low"},
	}})
	env.onboard(t, "u1")
	ctx := context.Background()

	w := env.do(t, http.MethodPost, "/investments", "u1", url.Values{"kind": {"fd"}, "name": {"SBI FD"}, "amount": {"999"}})
	if w.Code != http.StatusUnprocessableEntity || !strings.Contains(w.Body.String(), "Minimum investment is ₹1,000") {
		t.Fatalf("below minimum = %d %s", w.Code, w.Body.String())
	}
	if invs, _ := env.store.ListInvestments(ctx, "u1"); len(invs) != 0 {
		t.Fatalf("below-minimum investment was written: %+v", invs)
	}

	w = env.do(t, http.MethodPost, "/investments", "u1", url.Values{"kind": {"fd"}, "name": {"Unknown"}, "amount": {"5000"}})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown product = %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/investments", "u1", url.Values{"kind": {"fd"}, "name": {"SBI FD"}, "amount": {"1000"}})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "₹1,000") {
		t.Fatalf("invest = %d %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Header().Get("HX-Trigger"), EventInvestmentCreated) {
		t.Errorf("HX-Trigger = %q", w.Header().Get("HX-Trigger"))
	}
	invs, _ := env.store.ListInvestments(ctx, "u1")
	if len(invs) != 1 || invs[0].MinAmount != core.Rupees(1000) || invs[0].Type != "fd" {
		t.Errorf("investments = %+v", invs)
	}
}

func TestInvestCatalogDown(t *testing.T) {
	env := newTestEnv(t, &fakeInsights{err: errors.New("timeout")})
	env.onboard(t, "u1")
	w := env.do(t, http.MethodPost, "/investments", "u1", url.Values{"kind": {"fd"}, "name": {"SBI FD"}, "amount": {"5000"}})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("catalog down = %d", w.Code)
	}
}

func TestInvestWithoutCatalogBackend(t *testing.T) {
	env := newTestEnv(t, nil)
	env.onboard(t, "u1")
	w := env.do(t, http.MethodPost, "/investments", "u1", url.Values{"kind": {"fd"}, "name": {"SBI FD"}, "amount": {"5000"}})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("no catalog = %d %s", w.Code, w.Body.String())
	}
	invs, err := env.store.ListInvestments(context.Background(), "u1")
	if err != nil || len(invs) != 0 {
		t.Errorf("investments = %v, %v", invs, err)
	}
}

func TestCatalogRejectsUnknownKind(t *testing.T) {
	env := newTestEnv(t, &fakeInsights{})
	env.onboard(t, "u1")
	if w := env.do(t, http.MethodGet, "/ui/catalog?kind=crypto", "u1", nil); w.Code != http.StatusBadRequest {
		t.Errorf("unknown kind = %d", w.Code)
	}
}

func TestHealthReadyAndMetrics(t *testing.T) {
	env := newTestEnv(t, &fakeInsights{})

	w := env.do(t, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("healthz = %d %s", w.Code, w.Body.String())
	}

	env.srv.ready = func(context.Context) error { return errors.New("firestore unreachable") }
	w = env.do(t, http.MethodGet, "/readyz", "", nil)
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "firestore unreachable") {
		t.Errorf("readyz = %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `route="/healthz"`) {
		t.Errorf("metrics = %d, missing route label", w.Code)
	}
}

func TestWritesAreRateLimited(t *testing.T) {
	env := newTestEnv(t, nil)
	env.onboard(t, "u1")

	limited := 0
	for i := 0; i < 40; i++ {
		w := env.do(t, http.MethodPost, "/chat", "u1", url.Values{"message": {""}})
		if w.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited == 0 {
		t.Error("no write was rate limited")
	}
	if w := env.do(t, http.MethodGet, "/healthz", "", nil); w.Code != http.StatusOK {
		t.Errorf("reads should not be limited, got %d", w.Code)
	}
}
