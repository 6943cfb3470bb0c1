// Package services holds the ledger's use cases. Each service depends on
// the store ports and on small interfaces for everything outbound.
package services

import (
	"context"
	"errors"

	"gigledger/internal/core"
	"gigledger/internal/insights"
)

var (
	ErrEmptyPatch     = errors.New("nothing to save")
	ErrUnknownProduct = errors.New("unknown investment product")
	ErrGigTypeMissing = errors.New("gig type is required")
	// ErrNoCatalog means no catalog backend is configured, so no minimum
	// can be confirmed.
	ErrNoCatalog      = errors.New("product catalog not configured")
)

type (
	// LedgerPublisher announces a saved ledger day to the export pipeline.
	LedgerPublisher interface {
		PublishLedgerSync(ctx context.Context, uid string, date core.DateKey) error
	}

	// LedgerInvalidator drops insights derived from a user's ledger.
	LedgerInvalidator interface {
		InvalidateLedger(uid string)
	}

	// PlanInvalidator drops the dream plan derived from a user's goals.
	PlanInvalidator interface {
		InvalidateGoals(uid string)
	}

	// InsightsSource is the part of the insights client the dashboard reads.
	InsightsSource interface {
		Cashflow(ctx context.Context, uid string) (insights.Cashflow, error)
		SmartSpend(ctx context.Context, uid string) (string, error)
		Opportunity(ctx context.Context, uid string, loc insights.Location) (insights.Opportunity, error)
	}

	// CatalogSource lists investable products.
	CatalogSource interface {
		Catalog(ctx context.Context, kind insights.CatalogKind) ([]insights.CatalogItem, error)
	}
)
