// Package ledger reduces daily ledger entries into the summaries shown on the
// dashboard. Every function is pure: the caller passes the entries and the
// current time, and the location of that time defines the local calendar.
package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"gigledger/internal/core"
)

// WeekSpan is how many days back the weekly window reaches. The boundary day
// itself is included.
const WeekSpan = 7

// TodaySpend sums the expenses of the entry keyed with today's date.
func TodaySpend(entries []core.LedgerEntry, now time.Time) core.Money {
	today := core.NewDateKey(now)
	for _, e := range entries {
		if e.Date == today {
			return e.TotalExpenses()
		}
	}
	return core.Money{}
}

// InMonth returns the entries dated in now's calendar month. Entries with an
// unparseable date are dropped.
func InMonth(entries []core.LedgerEntry, now time.Time) []core.LedgerEntry {
	var out []core.LedgerEntry
	for _, e := range entries {
		d, err := e.Date.Time(now.Location())
		if err != nil {
			continue
		}
		if d.Year() == now.Year() && d.Month() == now.Month() {
			out = append(out, e)
		}
	}
	return out
}

// InWeek returns the entries dated between WeekSpan days ago and today,
// both ends included.
func InWeek(entries []core.LedgerEntry, now time.Time) []core.LedgerEntry {
	today := core.StartOfDay(now)
	start := today.AddDate(0, 0, -WeekSpan)
	var out []core.LedgerEntry
	for _, e := range entries {
		d, err := e.Date.Time(now.Location())
		if err != nil {
			continue
		}
		if d.Before(start) || d.After(today) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// MonthToDate totals income and expenses of the current calendar month.
func MonthToDate(entries []core.LedgerEntry, now time.Time) core.MonthSummary {
	sum := core.MonthSummary{Year: now.Year(), Month: now.Month()}
	days := make(map[core.DateKey]struct{})
	for _, e := range InMonth(entries, now) {
		sum.Income = sum.Income.Add(e.Income)
		sum.Expenses = sum.Expenses.Add(e.TotalExpenses())
		days[e.Date] = struct{}{}
	}
	sum.DaysLogged = len(days)
	return sum
}

// Weekly summarizes the trailing week. The best day is the first entry, in
// input order, with the strictly highest income.
func Weekly(entries []core.LedgerEntry, now time.Time) core.WeeklySummary {
	var ws core.WeeklySummary
	ws.TotalHours = decimal.Zero
	for _, e := range InWeek(entries, now) {
		expenses := e.TotalExpenses()
		ws.TotalIncome = ws.TotalIncome.Add(e.Income)
		ws.TotalExpenses = ws.TotalExpenses.Add(expenses)
		ws.TotalHours = ws.TotalHours.Add(e.Hours)

		if e.Income.Cents > ws.BestDayIncome.Cents {
			ws.BestDayIncome = e.Income
			ws.BestDay = e.Date
		}
		ws.Daily = append(ws.Daily, core.DayProfit{
			Date:     e.Date,
			Income:   e.Income,
			Expenses: expenses,
			Profit:   e.Income.Sub(expenses),
		})
	}
	ws.NetProfit = ws.TotalIncome.Sub(ws.TotalExpenses)
	ws.EfficiencyPerHour = Efficiency(ws.TotalIncome, ws.TotalHours)

	sort.SliceStable(ws.Daily, func(i, j int) bool {
		return ws.Daily[i].Date > ws.Daily[j].Date
	})
	return ws
}

// Efficiency is income per hour rounded to whole rupees, or zero when no
// hours were logged.
func Efficiency(income core.Money, hours decimal.Decimal) core.Money {
	if !hours.IsPositive() {
		return core.Money{}
	}
	perHour := income.Decimal().Div(hours).Round(0)
	return core.MoneyFromDecimal(perHour)
}

// CategoryBreakdown sums expenses per category over all entries, largest
// first.
func CategoryBreakdown(entries []core.LedgerEntry) []core.CategoryAmount {
	totals := make(map[string]core.Money)
	for _, e := range entries {
		for cat, amt := range e.Expenses {
			totals[cat] = totals[cat].Add(amt)
		}
	}
	out := make([]core.CategoryAmount, 0, len(totals))
	for name, amt := range totals {
		out = append(out, core.CategoryAmount{Name: name, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Trend returns one point per calendar day for the last days days, oldest
// first. Days without an entry are zero.
func Trend(entries []core.LedgerEntry, now time.Time, days int) []core.DayProfit {
	if days <= 0 {
		return nil
	}
	byDay := make(map[core.DateKey]core.LedgerEntry, len(entries))
	for _, e := range entries {
		if d, err := e.Date.Time(now.Location()); err == nil {
			byDay[core.NewDateKey(d)] = e
		}
	}
	today := core.StartOfDay(now)
	out := make([]core.DayProfit, 0, days)
	for i := days - 1; i >= 0; i-- {
		key := core.NewDateKey(today.AddDate(0, 0, -i))
		p := core.DayProfit{Date: key}
		if e, ok := byDay[key]; ok {
			p.Income = e.Income
			p.Expenses = e.TotalExpenses()
			p.Profit = e.Profit()
		}
		out = append(out, p)
	}
	return out
}
