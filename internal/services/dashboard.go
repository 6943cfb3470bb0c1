package services

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"gigledger/internal/auth"
	"gigledger/internal/core"
	"gigledger/internal/insights"
	"gigledger/internal/log"
	"gigledger/internal/store"
)

// SessionState decides which page a visitor gets.
type SessionState int

const (
	StateUnauthenticated SessionState = iota
	StateOnboarding
	StateDashboard
)

func (s SessionState) String() string {
	switch s {
	case StateOnboarding:
		return "onboarding"
	case StateDashboard:
		return "dashboard"
	default:
		return "unauthenticated"
	}
}

// Session is everything the dashboard renders. Sections whose fetch failed
// are empty and named in Degraded.
type Session struct {
	State       SessionState
	Identity    auth.Identity
	Profile     core.UserProfile
	Entries     []core.LedgerEntry
	Summary     LedgerSummary
	Goals       []core.Goal
	Investments []core.Investment
	Invested    core.Money
	Cashflow    insights.Cashflow
	SmartTip    string
	Opportunity insights.Opportunity
	Degraded    []string
}

type DashboardService struct {
	profiles    *ProfileService
	ledger      store.LedgerStore
	goals       store.GoalStore
	investments store.InvestmentStore
	insights    InsightsSource
	logger      *slog.Logger
}

// NewDashboardService wires the loader. src may be nil when no insights
// backend is configured.
func NewDashboardService(profiles *ProfileService, s store.Store, src InsightsSource, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardService{
		profiles:    profiles,
		ledger:      s,
		goals:       s,
		investments: s,
		insights:    src,
		logger:      logger,
	}
}

// Load resolves the session gate and, for a dashboard session, fetches every
// section. The profile is read first; the rest load concurrently. Only a
// profile failure is returned as an error.
func (d *DashboardService) Load(ctx context.Context, id auth.Identity, now time.Time) (Session, error) {
	if id.UserID == "" {
		return Session{State: StateUnauthenticated}, nil
	}
	profile, err := d.profiles.EnsureProfile(ctx, id)
	if err != nil {
		return Session{}, err
	}
	sess := Session{Identity: id, Profile: profile, State: StateOnboarding}
	if !profile.OnboardingCompleted {
		return sess, nil
	}
	sess.State = StateDashboard

	var (
		cashflowErr error
		degraded    = make(chan string, 6)
	)
	fail := func(section string, err error) {
		d.logger.WarnContext(ctx, "Dashboard section unavailable",
			log.FieldComponent, log.ComponentDashboard, log.FieldUserID, id.UserID, "section", section, log.FieldError, err)
		degraded <- section
	}

	var g errgroup.Group
	g.Go(func() error {
		entries, err := d.ledger.ListEntries(ctx, id.UserID)
		if err != nil {
			fail("ledger", err)
			return nil
		}
		sess.Entries = entries
		return nil
	})
	g.Go(func() error {
		goals, err := d.goals.ListGoals(ctx, id.UserID)
		if err != nil {
			fail("goals", err)
			return nil
		}
		sess.Goals = goals
		return nil
	})
	g.Go(func() error {
		invs, err := d.investments.ListInvestments(ctx, id.UserID)
		if err != nil {
			fail("investments", err)
			return nil
		}
		sess.Investments = invs
		sess.Invested = TotalInvested(invs)
		return nil
	})
	if d.insights != nil {
		g.Go(func() error {
			cf, err := d.insights.Cashflow(ctx, id.UserID)
			if err != nil {
				cashflowErr = err
				return nil
			}
			sess.Cashflow = cf
			return nil
		})
		g.Go(func() error {
			tip, err := d.insights.SmartSpend(ctx, id.UserID)
			if err != nil {
				fail("smart_spend", err)
				return nil
			}
			sess.SmartTip = tip
			return nil
		})
		g.Go(func() error {
			op, err := d.insights.Opportunity(ctx, id.UserID, insights.Location{})
			if err != nil {
				fail("opportunity", err)
				return nil
			}
			sess.Opportunity = op
			return nil
		})
	}
	_ = g.Wait()
	close(degraded)
	for s := range degraded {
		sess.Degraded = append(sess.Degraded, s)
	}
	sort.Strings(sess.Degraded)

	sess.Summary = Summarize(profile, sess.Entries, now)
	if d.insights == nil || cashflowErr != nil {
		if cashflowErr != nil {
			d.logger.WarnContext(ctx, "Cashflow prediction unavailable, using local projection",
				log.FieldComponent, log.ComponentDashboard, log.FieldUserID, id.UserID, log.FieldError, cashflowErr)
		}
		sess.Cashflow = insights.Cashflow{CashflowProjection: sess.Summary.Cashflow, Local: true}
	}
	return sess, nil
}
