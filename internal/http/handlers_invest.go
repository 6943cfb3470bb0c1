package http

import (
	"errors"
	"net/http"
	"strings"

	"gigledger/internal/auth"
	"gigledger/internal/core"
	"gigledger/internal/insights"
	"gigledger/internal/log"
	"gigledger/internal/services"
)

type investmentsView struct {
	Investments []core.Investment
	Total       core.Money
}

type catalogView struct {
	Kind  insights.CatalogKind
	Kinds []insights.CatalogKind
	Items []insights.CatalogItem
}

type loansView struct {
	Filter insights.LoanFilter
	Offers []insights.LoanOffer
}

func (s *Server) renderInvestments(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, uid string) {
	ctx := r.Context()
	invs, err := s.investments.List(ctx, uid)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to list investments",
			log.FieldComponent, log.ComponentInvest, log.FieldUserID, uid, log.FieldError, err)
		Placeholder("investments", "Your investments could not be loaded.").Write(w)
		return
	}
	s.render(w, r, b, "investments", investmentsView{Investments: invs, Total: services.TotalInvested(invs)})
}

func (s *Server) handleInvestments(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	s.renderInvestments(w, r, NewHTMXResponse(), id.UserID)
}

// handleInvest records an investment in a catalog product. The minimum is
// read from the catalog, so nothing below it reaches the store.
func (s *Server) handleInvest(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	ctx := r.Context()
	if !parseFormOrFail(w, r) {
		return
	}
	kind, err := ParseCatalogKind(r.PostForm.Get("kind"))
	if err != nil {
		UnprocessableEntityError("Pick a product from the list").Write(w)
		return
	}
	amount, err := requiredAmount(r.PostForm, "amount")
	if err != nil {
		UnprocessableEntityError(validationMessage(err)).Write(w)
		return
	}

	item, err := s.investments.Product(ctx, kind, r.PostForm.Get("name"))
	if err != nil {
		if errors.Is(err, services.ErrUnknownProduct) {
			UnprocessableEntityError(validationMessage(err)).Write(w)
			return
		}
		log.FromContext(ctx).WarnContext(ctx, "Catalog unavailable for investment",
			log.FieldComponent, log.ComponentInvest, log.FieldUserID, id.UserID, log.FieldError, err)
		ErrorResponse(http.StatusServiceUnavailable, "The product list is unavailable. Please try again shortly.").Write(w)
		return
	}

	inv, err := s.investments.Invest(ctx, id.UserID, item, amount)
	if err != nil {
		if msg := validationMessage(err); msg != "" {
			UnprocessableEntityError(msg).Write(w)
			return
		}
		log.NewStructuredLogger(log.FromContext(ctx)).
			LogError(ctx, "Failed to record investment", err, log.ComponentInvest, log.OpCreate, log.NewFields().WithUser(id.UserID))
		InternalServerError("Could not record the investment. Please try again.").Write(w)
		return
	}

	s.renderInvestments(w, r, NewHTMXResponse().
		TriggerInvestmentCreated(inv.Name).
		TriggerFormReset().
		TriggerSuccessNotification("Invested "+inv.Invested.String()+" in "+inv.Name),
		id.UserID)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	kind, err := ParseCatalogKind(r.URL.Query().Get("kind"))
	if err != nil {
		BadRequestError("Unknown product type").Write(w)
		return
	}
	if !s.insightsReady() {
		s.unavailable(w, r, "catalog", id.UserID, nil)
		return
	}
	items, err := s.insights.Catalog(r.Context(), kind)
	if err != nil {
		s.unavailable(w, r, "catalog", id.UserID, err)
		return
	}
	s.render(w, r, NewHTMXResponse(), "catalog", catalogView{
		Kind:  kind,
		Kinds: insights.CatalogKinds,
		Items: items,
	})
}

func (s *Server) handleLoans(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	q := r.URL.Query()
	f := insights.LoanFilter{
		Type: sanitizeInput(q.Get("type")),
		Risk: strings.ToLower(sanitizeInput(q.Get("risk"))),
	}
	if !s.insightsReady() {
		s.unavailable(w, r, "loans", id.UserID, nil)
		return
	}
	offers, err := s.insights.Loans(r.Context(), f)
	if err != nil {
		s.unavailable(w, r, "loans", id.UserID, err)
		return
	}
	s.render(w, r, NewHTMXResponse(), "loans", loansView{Filter: f, Offers: offers})
}
