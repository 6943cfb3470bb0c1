// Package sheets declares the spreadsheet export port of the ledger.
package sheets

import (
	"context"

	"gigledger/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerExporter writes one row per (user, day). Exporting the same day
	// again replaces its row.
	LedgerExporter interface {
		ExportDay(ctx context.Context, uid string, e core.LedgerEntry) (rowRef string, err error)
	}
)
