package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gigledger/internal/core"
	"gigledger/internal/insights"
	"gigledger/internal/services"
)

// FieldError names the form field that failed to parse.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Err.Error() }
func (e *FieldError) Unwrap() error { return e.Err }

// ParseDateParam reads a YYYY-MM-DD value, defaulting to today when blank.
func ParseDateParam(v string, now time.Time) (core.DateKey, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return core.NewDateKey(now), nil
	}
	t, err := core.ParseDateKey(v, now.Location())
	if err != nil {
		return "", err
	}
	return core.NewDateKey(t), nil
}

// optionalAmount parses a rupee field. A blank field is absent.
func optionalAmount(form url.Values, field string) (*core.Money, error) {
	v := strings.TrimSpace(form.Get(field))
	if v == "" {
		return nil, nil
	}
	m, err := core.ParseAmount(v)
	if err != nil {
		return nil, &FieldError{Field: field, Err: err}
	}
	return &m, nil
}

func requiredAmount(form url.Values, field string) (core.Money, error) {
	m, err := optionalAmount(form, field)
	if err != nil {
		return core.Money{}, err
	}
	if m == nil {
		return core.Money{}, &FieldError{Field: field, Err: core.ErrInvalidAmount}
	}
	return *m, nil
}

func optionalText(form url.Values, field string) *string {
	if _, ok := form[field]; !ok {
		return nil
	}
	v := sanitizeInput(form.Get(field))
	return &v
}

// expenseCategory extracts the category from an "expense[<category>]" key.
func expenseCategory(key string) (string, bool) {
	if !strings.HasPrefix(key, "expense[") || !strings.HasSuffix(key, "]") {
		return "", false
	}
	return strings.TrimSpace(key[len("expense[") : len(key)-1]), true
}

// ParseLedgerForm turns the log-a-day form into a merge patch. Blank fields
// are left out so the stored value stays; a new category comes in through
// new_category and new_amount.
func ParseLedgerForm(form url.Values) (core.LedgerPatch, error) {
	var p core.LedgerPatch
	var err error

	if p.Income, err = optionalAmount(form, "income"); err != nil {
		return p, err
	}
	if v := strings.TrimSpace(form.Get("hours")); v != "" {
		h, err := decimal.NewFromString(v)
		if err != nil {
			return p, &FieldError{Field: "hours", Err: core.ErrInvalidHours}
		}
		p.Hours = &h
	}
	p.Platform = optionalText(form, "platform")
	p.Note = optionalText(form, "note")

	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cat, ok := expenseCategory(k)
		if !ok {
			continue
		}
		amt, err := optionalAmount(form, k)
		if err != nil {
			return p, err
		}
		if amt == nil {
			continue
		}
		if p.Expenses == nil {
			p.Expenses = make(map[string]core.Money)
		}
		p.Expenses[sanitizeInput(cat)] = *amt
	}

	if cat := sanitizeInput(form.Get("new_category")); cat != "" {
		amt, err := requiredAmount(form, "new_amount")
		if err != nil {
			return p, err
		}
		if p.Expenses == nil {
			p.Expenses = make(map[string]core.Money)
		}
		p.Expenses[strings.ToLower(cat)] = amt
	}
	return p, nil
}

// ParseGoalForm reads a goal. The id and creation time are not form fields.
func ParseGoalForm(form url.Values) (core.Goal, error) {
	g := core.Goal{
		Title:    sanitizeInput(form.Get("title")),
		Deadline: core.DateKey(strings.TrimSpace(form.Get("deadline"))),
	}
	var err error
	if g.Target, err = requiredAmount(form, "target"); err != nil {
		return g, err
	}
	saved, err := optionalAmount(form, "saved")
	if err != nil {
		return g, err
	}
	if saved != nil {
		g.Saved = *saved
	}
	return g, nil
}

func ParseOnboardingForm(form url.Values) (services.OnboardingForm, error) {
	f := services.OnboardingForm{GigType: sanitizeInput(form.Get("gig_type"))}
	var err error
	if f.MonthlyIncome, err = requiredAmount(form, "monthly_income"); err != nil {
		return f, err
	}
	if f.MonthlyExpense, err = requiredAmount(form, "monthly_expense"); err != nil {
		return f, err
	}
	return f, nil
}

// ParseCatalogKind defaults to fixed deposits.
func ParseCatalogKind(v string) (insights.CatalogKind, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return insights.KindFD, nil
	}
	k := insights.CatalogKind(v)
	if !k.Valid() {
		return "", fmt.Errorf("unknown catalog kind %q", v)
	}
	return k, nil
}

// ParseLocation reads optional lat/lon query values. Out-of-range or partial
// coordinates mean the location is unknown.
func ParseLocation(q url.Values) insights.Location {
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(q.Get("lat")), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(q.Get("lon")), 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return insights.Location{}
	}
	return insights.Location{Lat: lat, Lon: lon, Known: true}
}

// validationMessage maps an input error to the text shown next to the
// form, or "" when err is not a validation failure.
func validationMessage(err error) string {
	var fe *FieldError
	field := ""
	if errors.As(err, &fe) {
		field = fieldLabel(fe.Field) + ": "
	}
	var below *core.BelowMinimumError
	switch {
	case errors.As(err, &below):
		return "Minimum investment is " + below.Min.String()
	case errors.Is(err, core.ErrInvalidAmount):
		return field + "enter a valid amount"
	case errors.Is(err, core.ErrNegativeAmount):
		return field + "amount cannot be negative"
	case errors.Is(err, core.ErrInvalidHours):
		return "Hours must be between 0 and 24"
	case errors.Is(err, core.ErrInvalidDate):
		return "Enter a valid date (YYYY-MM-DD)"
	case errors.Is(err, core.ErrEmptyTitle):
		return "Give the goal a title"
	case errors.Is(err, core.ErrEmptyName), errors.Is(err, services.ErrUnknownProduct):
		return "Pick a product from the list"
	case errors.Is(err, core.ErrEmptyCategory):
		return "Expense category cannot be empty"
	case errors.Is(err, core.ErrTextTooLong):
		return field + "text is too long"
	case errors.Is(err, services.ErrEmptyPatch):
		return "Nothing to save"
	case errors.Is(err, services.ErrGigTypeMissing):
		return "Tell us what kind of gig work you do"
	}
	return ""
}

func fieldLabel(field string) string {
	if cat, ok := expenseCategory(field); ok {
		return cat
	}
	return strings.ReplaceAll(field, "_", " ")
}

// sanitizeInput trims and drops control characters other than tab and
// newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

func parseFormOrFail(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return false
	}
	return true
}
