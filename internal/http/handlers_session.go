package http

import (
	"net/http"
	"strings"

	"gigledger/internal/auth"
	"gigledger/internal/core"
	"gigledger/internal/log"
	"gigledger/internal/services"
)

type dashboardPage struct {
	services.Session
	Ledger     ledgerCard
	Categories []Bar
	Trend      []Bar
	GigTitle   string
}

type onboardingPage struct {
	Email    string
	GigTypes []GigType
	Form     services.OnboardingForm
	Error    string
}

type errorPage struct {
	Message string
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// redirect sends HTMX callers an HX-Redirect and everyone else a 303.
func redirect(w http.ResponseWriter, r *http.Request, url string) {
	if isHTMX(r) {
		NewHTMXResponse().Redirect(url).Status(http.StatusNoContent).Write(w)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

func gigTitle(id string) string {
	for _, g := range gigTypes {
		if g.ID == id {
			return g.Title
		}
	}
	if id == "" {
		return "Unspecified"
	}
	return id
}

// handleIndex is the session gate: sign-in for visitors, onboarding for new
// users and the dashboard for everyone else.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := auth.FromContext(ctx)
	now := s.clock()

	sess, err := s.dashboard.Load(ctx, id, now)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to load profile",
			log.FieldComponent, log.ComponentDashboard, log.FieldUserID, id.UserID, log.FieldError, err)
		s.render(w, r, NewHTMXResponse().Status(http.StatusInternalServerError), "error.html",
			errorPage{Message: "We could not load your profile. Please try again in a moment."})
		return
	}

	switch sess.State {
	case services.StateUnauthenticated:
		s.render(w, r, NewHTMXResponse(), "signin.html", nil)
		return
	case services.StateOnboarding:
		http.Redirect(w, r, "/onboarding", http.StatusSeeOther)
		return
	}

	today := core.NewDateKey(now)
	var todayEntry core.LedgerEntry
	for _, e := range sess.Entries {
		if e.Date == today {
			todayEntry = e
			break
		}
	}
	cats, err := s.ledger.Categories(ctx, id.UserID)
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Expense categories unavailable",
			log.FieldComponent, log.ComponentDashboard, log.FieldUserID, id.UserID, log.FieldError, err)
		cats = todayEntry.Categories()
	}

	s.render(w, r, NewHTMXResponse(), "dashboard.html", dashboardPage{
		Session:    sess,
		Ledger:     newLedgerCard(today, today, todayEntry, cats),
		Categories: categoryBars(sess.Summary.Categories),
		Trend:      trendBars(sess.Summary.Trend),
		GigTitle:   gigTitle(sess.Profile.GigType),
	})
}

func (s *Server) handleOnboardingForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := auth.FromContext(ctx)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	p, err := s.profiles.EnsureProfile(ctx, id)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to load profile",
			log.FieldComponent, log.ComponentHTTP, log.FieldUserID, id.UserID, log.FieldError, err)
		s.render(w, r, NewHTMXResponse().Status(http.StatusInternalServerError), "error.html",
			errorPage{Message: "We could not load your profile. Please try again in a moment."})
		return
	}
	if p.OnboardingCompleted {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, NewHTMXResponse(), "onboarding.html", onboardingPage{
		Email:    p.Email,
		GigTypes: gigTypes,
		Form:     services.OnboardingForm{GigType: p.GigType},
	})
}

func (s *Server) handleOnboardingSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := auth.FromContext(ctx)
	if !ok {
		UnauthorizedError().Write(w)
		return
	}
	if !parseFormOrFail(w, r) {
		return
	}

	form, err := ParseOnboardingForm(r.PostForm)
	if err == nil {
		err = s.profiles.CompleteOnboarding(ctx, id.UserID, form)
	}
	if err != nil {
		msg := validationMessage(err)
		if msg == "" {
			log.FromContext(ctx).ErrorContext(ctx, "Onboarding failed",
				log.FieldComponent, log.ComponentHTTP, log.FieldUserID, id.UserID, log.FieldError, err)
			InternalServerError("Could not save your details").Write(w)
			return
		}
		s.render(w, r, NewHTMXResponse().Status(http.StatusUnprocessableEntity), "onboarding_form",
			onboardingPage{GigTypes: gigTypes, Form: form, Error: msg})
		return
	}
	redirect(w, r, "/")
}

// handleSession exchanges a token from the identity provider for the
// session cookie.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !parseFormOrFail(w, r) {
		return
	}
	token := strings.TrimSpace(r.PostForm.Get("token"))
	if token == "" {
		token = auth.ExtractToken(r)
	}
	id, err := s.verifier.Verify(token)
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Sign-in rejected",
			log.FieldComponent, log.ComponentAuth, log.FieldError, err)
		ErrorResponse(http.StatusUnauthorized, "Sign-in failed. Please try again.").Write(w)
		return
	}
	if _, err := s.profiles.EnsureProfile(ctx, id); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to create profile",
			log.FieldComponent, log.ComponentAuth, log.FieldUserID, id.UserID, log.FieldError, err)
		InternalServerError("Could not create your profile").Write(w)
		return
	}
	auth.SetSessionCookie(w, r, token, s.verifier.TTL())
	log.FromContext(ctx).InfoContext(ctx, "Signed in",
		log.FieldComponent, log.ComponentAuth, log.FieldUserID, id.UserID)
	redirect(w, r, "/")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w)
	redirect(w, r, "/")
}
