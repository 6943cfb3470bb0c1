package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gigledger/internal/auth"
	"gigledger/internal/core"
	"gigledger/internal/log"
	"gigledger/internal/services"
	"gigledger/internal/store"
)

// summary aggregates the user's ledger as of now. A missing profile only
// disables the declared-value fallback of the cashflow projection.
func (s *Server) summary(ctx context.Context, uid string) (services.LedgerSummary, error) {
	profile, err := s.profiles.Profile(ctx, uid)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return services.LedgerSummary{}, fmt.Errorf("get profile: %w", err)
	}
	entries, err := s.ledger.Entries(ctx, uid)
	if err != nil {
		return services.LedgerSummary{}, fmt.Errorf("list entries: %w", err)
	}
	return services.Summarize(profile, entries, s.clock()), nil
}

func (s *Server) ledgerCard(ctx context.Context, uid string, date core.DateKey) (ledgerCard, error) {
	e, err := s.ledger.Day(ctx, uid, date)
	if err != nil {
		return ledgerCard{}, err
	}
	cats, err := s.ledger.Categories(ctx, uid)
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Expense categories unavailable",
			log.FieldComponent, log.ComponentLedger, log.FieldUserID, uid, log.FieldError, err)
		cats = core.DefaultExpenseCategories
	}
	cats = store.MergeCategories(cats, e.Categories())
	return newLedgerCard(date, core.NewDateKey(s.clock()), e, cats), nil
}

func (s *Server) handleLedgerCard(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	ctx := r.Context()
	date, err := ParseDateParam(r.URL.Query().Get("date"), s.clock())
	if err != nil {
		BadRequestError(validationMessage(err)).Write(w)
		return
	}
	card, err := s.ledgerCard(ctx, id.UserID, date)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to load ledger day",
			log.FieldComponent, log.ComponentLedger, log.FieldUserID, id.UserID, log.FieldDate, date, log.FieldError, err)
		Placeholder("ledger", "Your log for this day could not be loaded.").Write(w)
		return
	}
	s.render(w, r, NewHTMXResponse(), "ledger_card", card)
}

// handleSaveLedger merges the submitted fields into the day. Fields left
// blank keep their stored value.
func (s *Server) handleSaveLedger(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	ctx := r.Context()
	if !parseFormOrFail(w, r) {
		return
	}
	date, err := ParseDateParam(r.PostForm.Get("date"), s.clock())
	if err != nil {
		UnprocessableEntityError(validationMessage(err)).Write(w)
		return
	}

	patch, err := ParseLedgerForm(r.PostForm)
	var saved core.LedgerEntry
	if err == nil {
		saved, err = s.ledger.SaveDay(ctx, id.UserID, date, patch)
	}
	if err != nil {
		msg := validationMessage(err)
		if msg == "" {
			fields := log.NewFields().WithUser(id.UserID)
			fields[log.FieldDate] = string(date)
			log.NewStructuredLogger(log.FromContext(ctx)).
				LogError(ctx, "Failed to save ledger day", err, log.ComponentLedger, log.OpUpsert, fields)
			InternalServerError("Could not save your log. Please try again.").Write(w)
			return
		}
		card, lerr := s.ledgerCard(ctx, id.UserID, date)
		if lerr != nil {
			UnprocessableEntityError(msg).Write(w)
			return
		}
		card.Error = msg
		s.render(w, r, NewHTMXResponse().Status(http.StatusUnprocessableEntity), "ledger_card", card)
		return
	}

	if s.metrics != nil {
		s.metrics.IncLedgerSave()
	}
	log.NewStructuredLogger(log.FromContext(ctx)).
		LogLedgerSaved(ctx, id.UserID, string(date), saved.Income.Cents, len(saved.Expenses))

	card, err := s.ledgerCard(ctx, id.UserID, date)
	if err != nil {
		card = newLedgerCard(date, core.NewDateKey(s.clock()), saved, saved.Categories())
	}
	s.render(w, r, NewHTMXResponse().
		TriggerLedgerSaved(string(date)).
		TriggerSuccessNotification("Saved "+string(date)),
		"ledger_card", card)
}

// summarySection renders one aggregation partial, or a placeholder when the
// ledger cannot be read.
func (s *Server) summarySection(w http.ResponseWriter, r *http.Request, id auth.Identity, section string, view func(services.LedgerSummary) any) {
	ctx := r.Context()
	sum, err := s.summary(ctx, id.UserID)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to summarize ledger",
			log.FieldComponent, log.ComponentLedger, log.FieldUserID, id.UserID, "section", section, log.FieldError, err)
		Placeholder(section, "This summary is unavailable right now.").Write(w)
		return
	}
	s.render(w, r, NewHTMXResponse(), section, view(sum))
}

func (s *Server) handleWeekly(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	s.summarySection(w, r, id, "weekly", func(sum services.LedgerSummary) any { return sum })
}

func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	s.summarySection(w, r, id, "month", func(sum services.LedgerSummary) any { return sum })
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	s.summarySection(w, r, id, "categories", func(sum services.LedgerSummary) any {
		return categoryBars(sum.Categories)
	})
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	s.summarySection(w, r, id, "trend", func(sum services.LedgerSummary) any {
		return trendBars(sum.Trend)
	})
}

type summaryJSON struct {
	Date       string       `json:"date"`
	TodaySpend string       `json:"today_spend"`
	Month      monthJSON    `json:"month"`
	Week       weekJSON     `json:"week"`
	Categories []amountJSON `json:"categories"`
	Trend      []dayJSON    `json:"trend"`
	Cashflow   cashflowJSON `json:"cashflow"`
}

type monthJSON struct {
	Month      string `json:"month"`
	Income     string `json:"income"`
	Expenses   string `json:"expenses"`
	Net        string `json:"net"`
	DaysLogged int    `json:"days_logged"`
}

type weekJSON struct {
	Income            string    `json:"income"`
	Expenses          string    `json:"expenses"`
	Net               string    `json:"net"`
	Hours             string    `json:"hours"`
	BestDay           string    `json:"best_day,omitempty"`
	BestDayIncome     string    `json:"best_day_income"`
	EfficiencyPerHour string    `json:"efficiency_per_hour"`
	Daily             []dayJSON `json:"daily"`
}

type amountJSON struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

type dayJSON struct {
	Date     string `json:"date"`
	Income   string `json:"income"`
	Expenses string `json:"expenses"`
	Profit   string `json:"profit"`
}

type cashflowJSON struct {
	Score    int    `json:"score"`
	Shortage string `json:"shortage"`
	Income   string `json:"income"`
	Expense  string `json:"expense"`
	FromLogs bool   `json:"from_logs"`
}

func daysJSON(days []core.DayProfit) []dayJSON {
	out := make([]dayJSON, 0, len(days))
	for _, d := range days {
		out = append(out, dayJSON{
			Date:     string(d.Date),
			Income:   d.Income.Input(),
			Expenses: d.Expenses.Input(),
			Profit:   d.Profit.Input(),
		})
	}
	return out
}

func newSummaryJSON(sum services.LedgerSummary) summaryJSON {
	cats := make([]amountJSON, 0, len(sum.Categories))
	for _, c := range sum.Categories {
		cats = append(cats, amountJSON{Name: c.Name, Amount: c.Amount.Input()})
	}
	return summaryJSON{
		Date:       string(sum.Date),
		TodaySpend: sum.TodaySpend.Input(),
		Month: monthJSON{
			Month:      fmt.Sprintf("%04d-%02d", sum.Month.Year, int(sum.Month.Month)),
			Income:     sum.Month.Income.Input(),
			Expenses:   sum.Month.Expenses.Input(),
			Net:        sum.Month.Net().Input(),
			DaysLogged: sum.Month.DaysLogged,
		},
		Week: weekJSON{
			Income:            sum.Week.TotalIncome.Input(),
			Expenses:          sum.Week.TotalExpenses.Input(),
			Net:               sum.Week.NetProfit.Input(),
			Hours:             sum.Week.TotalHours.String(),
			BestDay:           string(sum.Week.BestDay),
			BestDayIncome:     sum.Week.BestDayIncome.Input(),
			EfficiencyPerHour: sum.Week.EfficiencyPerHour.Input(),
			Daily:             daysJSON(sum.Week.Daily),
		},
		Categories: cats,
		Trend:      daysJSON(sum.Trend),
		Cashflow: cashflowJSON{
			Score:    sum.Cashflow.Score,
			Shortage: sum.Cashflow.Shortage.Input(),
			Income:   sum.Cashflow.Income.Input(),
			Expense:  sum.Cashflow.Expense.Input(),
			FromLogs: sum.Cashflow.FromLogs,
		},
	}
}

// handleSummaryJSON exposes every aggregation for scripts. Amounts are
// decimal rupee strings.
func (s *Server) handleSummaryJSON(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	ctx := r.Context()
	sum, err := s.summary(ctx, id.UserID)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to summarize ledger",
			log.FieldComponent, log.ComponentLedger, log.FieldUserID, id.UserID, log.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "summary unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, newSummaryJSON(sum))
}
