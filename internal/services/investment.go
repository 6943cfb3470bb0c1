package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gigledger/internal/core"
	"gigledger/internal/insights"
	"gigledger/internal/log"
	"gigledger/internal/store"
)

type InvestmentService struct {
	store   store.InvestmentStore
	catalog CatalogSource
	logger  *slog.Logger
}

func NewInvestmentService(s store.InvestmentStore, catalog CatalogSource, logger *slog.Logger) *InvestmentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvestmentService{store: s, catalog: catalog, logger: logger}
}

// Product finds a catalog item by kind and name, so the minimum enforced is
// the catalog's and not whatever the client sent.
func (s *InvestmentService) Product(ctx context.Context, kind insights.CatalogKind, name string) (insights.CatalogItem, error) {
	if s.catalog == nil {
		return insights.CatalogItem{}, ErrNoCatalog
	}
	items, err := s.catalog.Catalog(ctx, kind)
	if err != nil {
		return insights.CatalogItem{}, fmt.Errorf("load catalog: %w", err)
	}
	name = strings.TrimSpace(name)
	for _, it := range items {
		if it.Name == name {
			return it, nil
		}
	}
	return insights.CatalogItem{}, fmt.Errorf("%w: %s", ErrUnknownProduct, name)
}

// Invest records amount against item. Amounts below the item's minimum are
// rejected before anything is written.
func (s *InvestmentService) Invest(ctx context.Context, uid string, item insights.CatalogItem, amount core.Money) (core.Investment, error) {
	inv := core.Investment{
		Name:      item.Name,
		Type:      string(item.Kind),
		MinAmount: item.MinAmount,
		Invested:  amount,
		Risk:      item.Risk,
	}
	if err := inv.Validate(); err != nil {
		return core.Investment{}, err
	}
	id, err := s.store.AddInvestment(ctx, uid, inv)
	if err != nil {
		return core.Investment{}, fmt.Errorf("add investment: %w", err)
	}
	inv.ID = id
	s.logger.InfoContext(ctx, "Investment recorded", log.FieldComponent, log.ComponentInvest,
		log.FieldUserID, uid, "name", inv.Name, "amount", inv.Invested.String())
	return inv, nil
}

func (s *InvestmentService) List(ctx context.Context, uid string) ([]core.Investment, error) {
	invs, err := s.store.ListInvestments(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}
	return invs, nil
}

// TotalInvested sums every recorded investment.
func TotalInvested(invs []core.Investment) core.Money {
	var total core.Money
	for _, inv := range invs {
		total = total.Add(inv.Invested)
	}
	return total
}
