// Package http serves the dashboard: full pages, HTMX partials and a small
// JSON API, all scoped to the signed-in user.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"gigledger/internal/auth"
	"gigledger/internal/insights"
	"gigledger/internal/log"
	"gigledger/internal/metrics"
	"gigledger/internal/middleware/ratelimit"
	"gigledger/internal/middleware/security"
	"gigledger/internal/middleware/trace"
	"gigledger/internal/services"
	appweb "gigledger/web"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 30 * time.Second
	idleTimeout     = 60 * time.Second
	readyTimeout    = 5 * time.Second
	staticCacheSecs = 3600
)

// Insights is the part of the insights client the handlers call.
type Insights interface {
	services.InsightsSource
	services.CatalogSource
	Configured() bool
	BreakerState() string
	DreamPlan(ctx context.Context, uid string) (insights.DreamPlan, error)
	Portfolio(ctx context.Context, uid string) (string, error)
	Chat(ctx context.Context, uid, message string) (string, error)
	Loans(ctx context.Context, f insights.LoanFilter) ([]insights.LoanOffer, error)
}

// Deps are the collaborators of the server. Insights, Metrics and Ready may
// be nil.
type Deps struct {
	Profiles    *services.ProfileService
	Ledger      *services.LedgerService
	Goals       *services.GoalService
	Investments *services.InvestmentService
	Dashboard   *services.DashboardService
	Insights    Insights
	Verifier    *auth.Verifier
	Metrics     *metrics.Registry
	Logger      *log.Logger
	Location    *time.Location
	RateLimit   ratelimit.Config
	// Ready reports whether the storage backend answers.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	templates *template.Template

	profiles    *services.ProfileService
	ledger      *services.LedgerService
	goals       *services.GoalService
	investments *services.InvestmentService
	dashboard   *services.DashboardService
	insights    Insights
	verifier    *auth.Verifier
	metrics     *metrics.Registry
	ready       func(ctx context.Context) error

	limiter  *ratelimit.Limiter
	detector *security.Detector
	logger   *log.Logger
	loc      *time.Location
	now      func() time.Time
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and wires routes and middleware.
func NewServer(addr string, d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}

	s := &Server{
		profiles:    d.Profiles,
		ledger:      d.Ledger,
		goals:       d.Goals,
		investments: d.Investments,
		dashboard:   d.Dashboard,
		insights:    d.Insights,
		verifier:    d.Verifier,
		metrics:     d.Metrics,
		ready:       d.Ready,
		limiter:     ratelimit.NewLimiter(d.RateLimit),
		detector:    security.NewDetector(),
		logger:      logger.WithComponent(log.ComponentHTTP),
		loc:         loc,
		now:         time.Now,
		started:     time.Now(),
	}

	t, err := parseTemplates()
	if err != nil {
		s.logger.Error("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	s.detector.OnSuspicious(func(r *http.Request, reason string) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
			log.FieldComponent, log.ComponentSecurity,
			log.FieldPath, r.URL.Path,
			"reason", reason)
		if s.metrics != nil {
			s.metrics.IncSuspicious()
		}
	})

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = auth.Middleware(s.verifier, s.logger.Logger)(h)
	h = s.limiter.Middleware(ratelimit.Options{
		ExtractIP: s.detector.ExtractClientIP,
		Skip:      ratelimit.WritesOnly,
		OnLimit:   s.onRateLimited,
	})(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = trace.NewMiddleware(s.logger, s.detector.ExtractClientIP).Middleware(h)

	s.Server = http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(staticCacheSecs)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	s.handle(mux, "GET /{$}", s.handleIndex)
	s.handle(mux, "GET /onboarding", s.handleOnboardingForm)
	s.handle(mux, "POST /onboarding", s.handleOnboardingSubmit)
	s.handle(mux, "POST /session", s.handleSession)
	s.handle(mux, "POST /logout", s.handleLogout)

	s.handle(mux, "GET /ui/ledger", s.user(s.handleLedgerCard))
	s.handle(mux, "POST /ledger", s.user(s.handleSaveLedger))
	s.handle(mux, "GET /ui/weekly", s.user(s.handleWeekly))
	s.handle(mux, "GET /ui/month", s.user(s.handleMonth))
	s.handle(mux, "GET /ui/categories", s.user(s.handleCategories))
	s.handle(mux, "GET /ui/trend", s.user(s.handleTrend))
	s.handle(mux, "GET /api/summary", s.user(s.handleSummaryJSON))

	s.handle(mux, "GET /ui/cashflow", s.user(s.handleCashflow))
	s.handle(mux, "GET /ui/smart-spend", s.user(s.handleSmartSpend))
	s.handle(mux, "GET /ui/opportunity", s.user(s.handleOpportunity))
	s.handle(mux, "GET /ui/portfolio", s.user(s.handlePortfolio))
	s.handle(mux, "POST /chat", s.user(s.handleChat))

	s.handle(mux, "GET /ui/goals", s.user(s.handleGoals))
	s.handle(mux, "GET /ui/goals/plan", s.user(s.handleGoalPlan))
	s.handle(mux, "POST /goals", s.user(s.handleCreateGoal))
	s.handle(mux, "POST /goals/{id}", s.user(s.handleUpdateGoal))
	s.handle(mux, "POST /goals/{id}/link", s.user(s.handleLinkGoal))
	s.handle(mux, "DELETE /goals/{id}", s.user(s.handleDeleteGoal))

	s.handle(mux, "GET /ui/investments", s.user(s.handleInvestments))
	s.handle(mux, "POST /investments", s.user(s.handleInvest))
	s.handle(mux, "GET /ui/catalog", s.user(s.handleCatalog))
	s.handle(mux, "GET /ui/loans", s.user(s.handleLoans))

	s.handle(mux, "GET /healthz", s.handleHealth)
	s.handle(mux, "GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// handle registers h and records its latency under the route pattern, so
// /goals/{id} is one series however many goals exist.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	method, route, _ := strings.Cut(pattern, " ")
	route = strings.TrimSuffix(route, "{$}")
	mux.Handle(pattern, security.NoStore(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &trace.StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		h(rw, r)
		if s.metrics != nil {
			s.metrics.ObserveRequest(method, route, rw.Status, time.Since(start))
		}
	})))
}

// userHandler receives the verified identity of the caller.
type userHandler func(w http.ResponseWriter, r *http.Request, id auth.Identity)

// user rejects anonymous callers; HTMX follows the redirect to sign-in.
func (s *Server) user(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.FromContext(r.Context())
		if !ok || id.UserID == "" {
			UnauthorizedError().Write(w)
			return
		}
		h(w, r, id)
	}
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldComponent, log.ComponentRateLimit,
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	if s.metrics != nil {
		s.metrics.IncRateLimited()
	}
	ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please slow down.").
		Header("Retry-After", "1").
		Write(w)
}

// clock returns the current time in the ledger's timezone.
func (s *Server) clock() time.Time {
	return s.now().In(s.loc)
}

// Shutdown stops the rate limiter and drains the HTTP server once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady fails when templates are missing or the store does not
// answer. The insights backend is reported but never fails readiness, since
// every insight section degrades on its own.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["store"] = fmt.Sprintf("failed: %v", err)
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}

	switch {
	case s.insights == nil || !s.insights.Configured():
		checks["insights"] = "not_configured"
	default:
		checks["insights"] = "breaker " + s.insights.BreakerState()
	}
	checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.ActiveClients()}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		InternalServerError("Could not encode the response").Write(w)
		return
	}
	NewHTMXResponse().
		Status(code).
		Header("Content-Type", "application/json").
		Body(append(body, '\n')).
		Write(w)
}
