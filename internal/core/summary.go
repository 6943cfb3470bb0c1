package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents a category total.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthSummary aggregates the current calendar month.
type MonthSummary struct {
	Year       int
	Month      time.Month
	Income     Money
	Expenses   Money
	DaysLogged int
}

// Net is income minus expenses.
func (m MonthSummary) Net() Money { return m.Income.Sub(m.Expenses) }

// DayProfit is one logged day in a summary.
type DayProfit struct {
	Date     DateKey
	Income   Money
	Expenses Money
	Profit   Money
}

// WeeklySummary aggregates the trailing seven days.
type WeeklySummary struct {
	TotalIncome       Money
	TotalExpenses     Money
	NetProfit         Money
	TotalHours        decimal.Decimal
	BestDay           DateKey // empty when no day earned anything
	BestDayIncome     Money
	EfficiencyPerHour Money // whole rupees
	Daily             []DayProfit
}

// CashflowProjection is a 30-day outlook derived from the month's logs.
type CashflowProjection struct {
	Score           int
	Shortage        Money
	Income          Money
	Expense         Money
	DaysLogged      int
	AvgDailyIncome  Money
	AvgDailyExpense Money
	// FromLogs is false when the projection fell back to declared values.
	FromLogs bool
}
