package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// DefaultExpenseCategories are the categories offered by the daily log form.
// Stored entries may carry any other category key.
var DefaultExpenseCategories = []string{"fuel", "food", "misc"}

const (
	maxTextLen  = 500
	maxTitleLen = 120
	maxHours    = 24
)

type (
	UserProfile struct {
		ID                  string
		Email               string
		GigType             string
		MonthlyIncome       Money
		MonthlyExpense      Money
		OnboardingCompleted bool
		CreatedAt           time.Time
		UpdatedAt           time.Time
	}

	// ProfilePatch carries the profile fields to write; nil fields are kept
	// as stored.
	ProfilePatch struct {
		Email               *string
		GigType             *string
		MonthlyIncome       *Money
		MonthlyExpense      *Money
		OnboardingCompleted *bool
	}

	LedgerEntry struct {
		Date      DateKey
		Income    Money
		Hours     decimal.Decimal
		Platform  string
		Expenses  map[string]Money
		Note      string
		UpdatedAt time.Time
	}

	// LedgerPatch is a merge update of one day. Expense categories present in
	// the map overwrite their stored amount; other categories stay.
	LedgerPatch struct {
		Income   *Money
		Hours    *decimal.Decimal
		Platform *string
		Expenses map[string]Money
		Note     *string
	}

	// LinkedInvestment is a snapshot of the investment a goal is tied to.
	LinkedInvestment struct {
		Name      string
		MinAmount Money
	}

	Goal struct {
		ID        string
		Title     string
		Target    Money
		Saved     Money
		Deadline  DateKey
		Linked    *LinkedInvestment
		CreatedAt time.Time
	}

	Investment struct {
		ID        string
		Name      string
		Type      string
		MinAmount Money
		Invested  Money
		Risk      string
		CreatedAt time.Time
	}
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("amount cannot be negative")
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidHours   = errors.New("hours must be between 0 and 24")
	ErrEmptyTitle     = errors.New("empty title")
	ErrEmptyName      = errors.New("empty name")
	ErrEmptyCategory  = errors.New("empty expense category")
	ErrTextTooLong    = errors.New("text too long")
	ErrBelowMinimum   = errors.New("amount below minimum")
)

// BelowMinimumError reports an investment smaller than the product minimum.
type BelowMinimumError struct {
	Min Money
}

func (e *BelowMinimumError) Error() string {
	return "amount must be at least " + e.Min.String()
}

func (e *BelowMinimumError) Is(target error) bool {
	return target == ErrBelowMinimum
}

// ProgressPercent returns how much of goal has been saved, as a whole percent
// in [0, 100]. A zero or negative goal reads as 0%.
func ProgressPercent(saved, goal Money) int {
	if goal.Cents <= 0 || saved.Cents <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(saved.Cents).
		Mul(hundred).
		Div(decimal.NewFromInt(goal.Cents)).
		Round(0).
		IntPart()
	if pct > 100 {
		return 100
	}
	return int(pct)
}

// IsEmpty reports whether the patch would write nothing.
func (p ProfilePatch) IsEmpty() bool {
	return p.Email == nil && p.GigType == nil && p.MonthlyIncome == nil &&
		p.MonthlyExpense == nil && p.OnboardingCompleted == nil
}

func (p ProfilePatch) Validate() error {
	for _, m := range []*Money{p.MonthlyIncome, p.MonthlyExpense} {
		if m != nil && m.IsNegative() {
			return ErrNegativeAmount
		}
	}
	if p.GigType != nil && utf8.RuneCountInString(*p.GigType) > maxTitleLen {
		return fmt.Errorf("gig type: %w", ErrTextTooLong)
	}
	return nil
}

// Apply merges the patch into base.
func (p ProfilePatch) Apply(base UserProfile) UserProfile {
	if p.Email != nil {
		base.Email = *p.Email
	}
	if p.GigType != nil {
		base.GigType = *p.GigType
	}
	if p.MonthlyIncome != nil {
		base.MonthlyIncome = *p.MonthlyIncome
	}
	if p.MonthlyExpense != nil {
		base.MonthlyExpense = *p.MonthlyExpense
	}
	if p.OnboardingCompleted != nil {
		base.OnboardingCompleted = *p.OnboardingCompleted
	}
	return base
}

// TotalExpenses sums every expense category of the day.
func (e LedgerEntry) TotalExpenses() Money {
	var total Money
	for _, amt := range e.Expenses {
		total = total.Add(amt)
	}
	return total
}

// Profit is income minus all expenses.
func (e LedgerEntry) Profit() Money {
	return e.Income.Sub(e.TotalExpenses())
}

// Categories returns the entry's expense categories, sorted.
func (e LedgerEntry) Categories() []string {
	out := make([]string, 0, len(e.Expenses))
	for k := range e.Expenses {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (p LedgerPatch) IsEmpty() bool {
	return p.Income == nil && p.Hours == nil && p.Platform == nil && len(p.Expenses) == 0 && p.Note == nil
}

func (p LedgerPatch) Validate() error {
	if p.Income != nil && p.Income.IsNegative() {
		return fmt.Errorf("income: %w", ErrNegativeAmount)
	}
	if p.Hours != nil && (p.Hours.IsNegative() || p.Hours.GreaterThan(decimal.NewFromInt(maxHours))) {
		return ErrInvalidHours
	}
	for cat, amt := range p.Expenses {
		if strings.TrimSpace(cat) == "" {
			return ErrEmptyCategory
		}
		if amt.IsNegative() {
			return fmt.Errorf("expense %s: %w", cat, ErrNegativeAmount)
		}
	}
	if p.Platform != nil && utf8.RuneCountInString(*p.Platform) > maxTitleLen {
		return fmt.Errorf("platform: %w", ErrTextTooLong)
	}
	if p.Note != nil && utf8.RuneCountInString(*p.Note) > maxTextLen {
		return fmt.Errorf("note: %w", ErrTextTooLong)
	}
	return nil
}

// Apply merges the patch into base. The returned entry never shares its
// expense map with base.
func (p LedgerPatch) Apply(base LedgerEntry) LedgerEntry {
	out := base
	out.Expenses = make(map[string]Money, len(base.Expenses)+len(p.Expenses))
	for k, v := range base.Expenses {
		out.Expenses[k] = v
	}
	for k, v := range p.Expenses {
		out.Expenses[k] = v
	}
	if p.Income != nil {
		out.Income = *p.Income
	}
	if p.Hours != nil {
		out.Hours = *p.Hours
	}
	if p.Platform != nil {
		out.Platform = *p.Platform
	}
	if p.Note != nil {
		out.Note = *p.Note
	}
	return out
}

// Progress is the derived completion percent; it is never stored.
func (g Goal) Progress() int {
	return ProgressPercent(g.Saved, g.Target)
}

// Remaining is what is left to save, never negative.
func (g Goal) Remaining() Money {
	r := g.Target.Sub(g.Saved)
	if r.IsNegative() {
		return Money{}
	}
	return r
}

func (g Goal) Validate() error {
	title := strings.TrimSpace(g.Title)
	if title == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return fmt.Errorf("title: %w", ErrTextTooLong)
	}
	if g.Target.IsNegative() || g.Saved.IsNegative() {
		return ErrNegativeAmount
	}
	if g.Deadline != "" && !g.Deadline.Valid() {
		return ErrInvalidDate
	}
	if g.Linked != nil && strings.TrimSpace(g.Linked.Name) == "" {
		return fmt.Errorf("linked investment: %w", ErrEmptyName)
	}
	return nil
}

// Validate checks the investment before it is written. An amount below the
// product minimum yields a *BelowMinimumError.
func (i Investment) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	if i.MinAmount.IsNegative() {
		return ErrNegativeAmount
	}
	if i.Invested.Cents <= 0 || i.Invested.Cents < i.MinAmount.Cents {
		return &BelowMinimumError{Min: i.MinAmount}
	}
	return nil
}
