package http

import (
	"net/http"
	"strings"

	"gigledger/internal/auth"
	"gigledger/internal/insights"
	"gigledger/internal/log"
)

const unavailableMsg = "Insights are unavailable right now. Your ledger still works."

func (s *Server) insightsReady() bool {
	return s.insights != nil && s.insights.Configured()
}

// unavailable answers an insight section whose fetch failed.
func (s *Server) unavailable(w http.ResponseWriter, r *http.Request, section, uid string, err error) {
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Insight unavailable",
			log.FieldComponent, log.ComponentInsights,
			log.FieldEndpoint, section,
			log.FieldUserID, uid,
			log.FieldError, err)
	}
	Placeholder(section, unavailableMsg).Write(w)
}

// handleCashflow prefers the backend prediction and falls back to the
// projection computed from the user's own logs.
func (s *Server) handleCashflow(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	ctx := r.Context()
	if s.insightsReady() {
		cf, err := s.insights.Cashflow(ctx, id.UserID)
		if err == nil {
			s.render(w, r, NewHTMXResponse(), "cashflow", cf)
			return
		}
		log.FromContext(ctx).WarnContext(ctx, "Cashflow prediction unavailable, using local projection",
			log.FieldComponent, log.ComponentInsights, log.FieldUserID, id.UserID, log.FieldError, err)
	}
	sum, err := s.summary(ctx, id.UserID)
	if err != nil {
		s.unavailable(w, r, "cashflow", id.UserID, err)
		return
	}
	s.render(w, r, NewHTMXResponse(), "cashflow", insights.Cashflow{CashflowProjection: sum.Cashflow, Local: true})
}

func (s *Server) handleSmartSpend(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	if !s.insightsReady() {
		s.unavailable(w, r, "smart_spend", id.UserID, nil)
		return
	}
	tip, err := s.insights.SmartSpend(r.Context(), id.UserID)
	if err != nil {
		s.unavailable(w, r, "smart_spend", id.UserID, err)
		return
	}
	s.render(w, r, NewHTMXResponse(), "smart_spend", tip)
}

func (s *Server) handleOpportunity(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	if !s.insightsReady() {
		s.unavailable(w, r, "opportunity", id.UserID, nil)
		return
	}
	op, err := s.insights.Opportunity(r.Context(), id.UserID, ParseLocation(r.URL.Query()))
	if err != nil {
		s.unavailable(w, r, "opportunity", id.UserID, err)
		return
	}
	s.render(w, r, NewHTMXResponse(), "opportunity", op)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	if !s.insightsReady() {
		s.unavailable(w, r, "portfolio", id.UserID, nil)
		return
	}
	advice, err := s.insights.Portfolio(r.Context(), id.UserID)
	if err != nil {
		s.unavailable(w, r, "portfolio", id.UserID, err)
		return
	}
	s.render(w, r, NewHTMXResponse(), "portfolio", advice)
}

type chatView struct {
	Message string
	Reply   string
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	if !parseFormOrFail(w, r) {
		return
	}
	msg := sanitizeInput(r.PostForm.Get("message"))
	if msg == "" {
		UnprocessableEntityError("Type a message first").Write(w)
		return
	}
	if len(msg) > 1000 {
		UnprocessableEntityError("Message is too long").Write(w)
		return
	}
	if !s.insightsReady() {
		s.unavailable(w, r, "chat", id.UserID, nil)
		return
	}
	reply, err := s.insights.Chat(r.Context(), id.UserID, msg)
	if err != nil {
		s.unavailable(w, r, "chat", id.UserID, err)
		return
	}
	if strings.TrimSpace(reply) == "" {
		reply = "I don't have an answer for that yet."
	}
	s.render(w, r, NewHTMXResponse().TriggerFormReset(), "chat_reply", chatView{Message: msg, Reply: reply})
}
