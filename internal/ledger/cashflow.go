package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"gigledger/internal/core"
)

const (
	projectionDays = 30
	healthyScore   = 85
	baseScore      = 75
	minScore       = 5
)

// Project estimates the next 30 days from this month's logs. With nothing
// logged this month it falls back to the profile's declared monthly figures.
func Project(profile core.UserProfile, entries []core.LedgerEntry, now time.Time) core.CashflowProjection {
	month := InMonth(entries, now)

	var p core.CashflowProjection
	if len(month) == 0 {
		p.Income = profile.MonthlyIncome
		p.Expense = profile.MonthlyExpense
	} else {
		var income, expense core.Money
		for _, e := range month {
			income = income.Add(e.Income)
			expense = expense.Add(e.TotalExpenses())
		}
		n := decimal.NewFromInt(int64(len(month)))
		span := decimal.NewFromInt(projectionDays)

		p.FromLogs = true
		p.DaysLogged = len(month)
		p.AvgDailyIncome = core.MoneyFromDecimal(income.Decimal().Div(n))
		p.AvgDailyExpense = core.MoneyFromDecimal(expense.Decimal().Div(n))
		// Scale before dividing so a 30-day total of exact logs stays exact.
		p.Income = wholeRupees(income.Decimal().Mul(span).Div(n))
		p.Expense = wholeRupees(expense.Decimal().Mul(span).Div(n))
	}

	gap := p.Expense.Sub(p.Income)
	if !gap.IsNegative() && !gap.IsZero() {
		p.Shortage = gap
	}
	p.Score = score(p.Income, p.Shortage)
	return p
}

func score(income, shortage core.Money) int {
	if shortage.Cents <= 0 {
		return healthyScore
	}
	base := decimal.Max(income.Decimal(), decimal.NewFromInt(1))
	gapPct := shortage.Decimal().Div(base).Mul(decimal.NewFromInt(100))
	s := decimal.NewFromInt(baseScore).Sub(gapPct)
	if s.LessThan(decimal.NewFromInt(minScore)) {
		return minScore
	}
	return int(s.IntPart())
}

func wholeRupees(d decimal.Decimal) core.Money {
	return core.MoneyFromDecimal(d.Truncate(0))
}
