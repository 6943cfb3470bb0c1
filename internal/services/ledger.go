package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gigledger/internal/core"
	"gigledger/internal/ledger"
	"gigledger/internal/log"
	"gigledger/internal/store"
)

const trendDays = 14

// LedgerSummary is every aggregation of a user's ledger at one instant.
type LedgerSummary struct {
	Date       core.DateKey
	TodaySpend core.Money
	Month      core.MonthSummary
	Week       core.WeeklySummary
	Categories []core.CategoryAmount
	Trend      []core.DayProfit
	Cashflow   core.CashflowProjection
}

// Summarize aggregates entries as of now. now's location decides which
// calendar day is today.
func Summarize(profile core.UserProfile, entries []core.LedgerEntry, now time.Time) LedgerSummary {
	return LedgerSummary{
		Date:       core.NewDateKey(now),
		TodaySpend: ledger.TodaySpend(entries, now),
		Month:      ledger.MonthToDate(entries, now),
		Week:       ledger.Weekly(entries, now),
		Categories: ledger.CategoryBreakdown(entries),
		Trend:      ledger.Trend(entries, now, trendDays),
		Cashflow:   ledger.Project(profile, entries, now),
	}
}

type LedgerService struct {
	store     store.LedgerStore
	cats      store.CategoryReader
	publisher LedgerPublisher
	insights  LedgerInvalidator
	logger    *slog.Logger
}

// NewLedgerService wires the ledger use cases. publisher and insights may be
// nil.
func NewLedgerService(s store.LedgerStore, cats store.CategoryReader, publisher LedgerPublisher, insights LedgerInvalidator, logger *slog.Logger) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{store: s, cats: cats, publisher: publisher, insights: insights, logger: logger}
}

// SaveDay merges the patch into the day and returns the stored result.
func (s *LedgerService) SaveDay(ctx context.Context, uid string, date core.DateKey, p core.LedgerPatch) (core.LedgerEntry, error) {
	if !date.Valid() {
		return core.LedgerEntry{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, date)
	}
	if p.IsEmpty() {
		return core.LedgerEntry{}, ErrEmptyPatch
	}
	if err := p.Validate(); err != nil {
		return core.LedgerEntry{}, err
	}

	// Save locally first; everything after is best effort.
	if err := s.store.UpsertEntry(ctx, uid, date, p); err != nil {
		return core.LedgerEntry{}, fmt.Errorf("save ledger day: %w", err)
	}
	if s.insights != nil {
		s.insights.InvalidateLedger(uid)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishLedgerSync(ctx, uid, date); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish ledger sync message",
				log.FieldComponent, log.ComponentLedger, log.FieldUserID, uid, log.FieldDate, date, log.FieldError, err)
		}
	}

	return s.Day(ctx, uid, date)
}

// Day returns the stored day, or an empty entry for a day not logged yet.
func (s *LedgerService) Day(ctx context.Context, uid string, date core.DateKey) (core.LedgerEntry, error) {
	e, err := s.store.GetEntry(ctx, uid, date)
	if errors.Is(err, store.ErrNotFound) {
		return core.LedgerEntry{Date: date, Expenses: map[string]core.Money{}}, nil
	}
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("get ledger day: %w", err)
	}
	return e, nil
}

// Entries lists the user's days, newest first.
func (s *LedgerService) Entries(ctx context.Context, uid string) ([]core.LedgerEntry, error) {
	return s.store.ListEntries(ctx, uid)
}

// Categories lists the categories the log form offers.
func (s *LedgerService) Categories(ctx context.Context, uid string) ([]string, error) {
	if s.cats == nil {
		return append([]string(nil), core.DefaultExpenseCategories...), nil
	}
	cats, err := s.cats.ExpenseCategories(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}
