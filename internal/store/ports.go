// Package store declares the persistence ports of the ledger. Every record is
// owned by exactly one user and every call is scoped by that user's id.
package store

import (
	"context"
	"errors"

	"gigledger/internal/core"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// Ports for outbound adapters.
type (
	ProfileStore interface {
		GetProfile(ctx context.Context, uid string) (core.UserProfile, error)
		// UpsertProfile creates the profile or merges the patch into it.
		UpsertProfile(ctx context.Context, uid string, p core.ProfilePatch) error
	}

	LedgerStore interface {
		GetEntry(ctx context.Context, uid string, date core.DateKey) (core.LedgerEntry, error)
		ListEntries(ctx context.Context, uid string) ([]core.LedgerEntry, error)
		// UpsertEntry creates the day or merges the patch into it. Fields
		// absent from the patch keep their stored value.
		UpsertEntry(ctx context.Context, uid string, date core.DateKey, p core.LedgerPatch) error
	}

	GoalStore interface {
		ListGoals(ctx context.Context, uid string) ([]core.Goal, error)
		GetGoal(ctx context.Context, uid, id string) (core.Goal, error)
		CreateGoal(ctx context.Context, uid string, g core.Goal) (id string, err error)
		UpdateGoal(ctx context.Context, uid string, g core.Goal) error
		DeleteGoal(ctx context.Context, uid, id string) error
	}

	InvestmentStore interface {
		ListInvestments(ctx context.Context, uid string) ([]core.Investment, error)
		AddInvestment(ctx context.Context, uid string, inv core.Investment) (id string, err error)
	}

	// CategoryReader lists the expense categories offered when logging a day:
	// the configured base set followed by any other category the user has
	// already used.
	CategoryReader interface {
		ExpenseCategories(ctx context.Context, uid string) ([]string, error)
	}

	// SyncRef identifies one version of a ledger day awaiting export.
	SyncRef struct {
		UserID  string
		Date    core.DateKey
		Version int64
	}

	// SyncTracker is implemented by backends that record which ledger days
	// still have to reach the spreadsheet export.
	SyncTracker interface {
		PendingSync(ctx context.Context, limit int) ([]SyncRef, error)
		// MarkSynced is a no-op when the day changed after ref was read.
		MarkSynced(ctx context.Context, ref SyncRef) error
		MarkSyncError(ctx context.Context, ref SyncRef) error
	}

	// Store bundles every port; each backend implements all of them.
	Store interface {
		ProfileStore
		LedgerStore
		GoalStore
		InvestmentStore
		CategoryReader
	}
)

// MergeCategories returns base followed by the extra categories not already
// present, without blanks or duplicates.
func MergeCategories(base []string, extra ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(base))
	add := func(v string) {
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	for _, v := range base {
		add(v)
	}
	for _, list := range extra {
		for _, v := range list {
			add(v)
		}
	}
	return out
}
