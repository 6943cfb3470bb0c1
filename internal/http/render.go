package http

import (
	"bytes"
	"html/template"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"gigledger/internal/core"
	"gigledger/internal/log"
	appweb "gigledger/web"
)

// GigType is one choice on the onboarding form.
type GigType struct {
	ID, Title, Examples string
}

var gigTypes = []GigType{
	{"delivery", "Delivery Partner", "Swiggy, Zomato, Blinkit, Zepto"},
	{"ride", "Ride / Transport", "Uber, Ola, Rapido, BluSmart"},
	{"freelancer", "Freelancer", "Designer, Dev, Creator, Writer"},
	{"local", "Local Services", "Electrician, Urban Company, Tutor"},
}

var templateFuncs = template.FuncMap{
	"money": func(m core.Money) string { return m.String() },
	// input leaves zero amounts blank so placeholders show.
	"input": func(m core.Money) string {
		if m.IsZero() {
			return ""
		}
		return m.Input()
	},
	"hours": func(d decimal.Decimal) string {
		if d.IsZero() {
			return ""
		}
		return d.String()
	},
	"day":      dayLabel,
	"negative": func(m core.Money) bool { return m.IsNegative() },
	"goalsData": func(goals []core.Goal, invs []core.Investment) goalsView {
		return goalsView{Goals: goals, Investments: invs}
	},
	"investmentsData": func(invs []core.Investment, total core.Money) investmentsView {
		return investmentsView{Investments: invs, Total: total}
	},
}

func dayLabel(k core.DateKey) string {
	t, err := k.Time(time.UTC)
	if err != nil {
		return string(k)
	}
	return t.Format("Mon 2 Jan")
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
}

// Bar is one row of a horizontal bar chart; Width is a percent of the
// largest row.
type Bar struct {
	Label    string
	Amount   core.Money
	Width    int
	Negative bool
}

func barWidth(v, top int64) int {
	if v < 0 {
		v = -v
	}
	if top <= 0 || v == 0 {
		return 0
	}
	w := int((v*100 + top/2) / top)
	if w < 2 {
		w = 2
	}
	if w > 100 {
		w = 100
	}
	return w
}

func categoryBars(rows []core.CategoryAmount) []Bar {
	var top int64
	for _, r := range rows {
		if r.Amount.Cents > top {
			top = r.Amount.Cents
		}
	}
	out := make([]Bar, 0, len(rows))
	for _, r := range rows {
		out = append(out, Bar{Label: r.Name, Amount: r.Amount, Width: barWidth(r.Amount.Cents, top)})
	}
	return out
}

func trendBars(days []core.DayProfit) []Bar {
	var top int64
	for _, d := range days {
		c := d.Profit.Cents
		if c < 0 {
			c = -c
		}
		if c > top {
			top = c
		}
	}
	out := make([]Bar, 0, len(days))
	for _, d := range days {
		out = append(out, Bar{
			Label:    dayLabel(d.Date),
			Amount:   d.Profit,
			Width:    barWidth(d.Profit.Cents, top),
			Negative: d.Profit.IsNegative(),
		})
	}
	return out
}

// ExpenseRow is one category input on the ledger card.
type ExpenseRow struct {
	Category string
	Amount   core.Money
}

type ledgerCard struct {
	Date    core.DateKey
	IsToday bool
	Entry   core.LedgerEntry
	Rows    []ExpenseRow
	Error   string
}

func newLedgerCard(date, today core.DateKey, e core.LedgerEntry, cats []string) ledgerCard {
	rows := make([]ExpenseRow, 0, len(cats))
	for _, c := range cats {
		rows = append(rows, ExpenseRow{Category: c, Amount: e.Expenses[c]})
	}
	return ledgerCard{Date: date, IsToday: date == today, Entry: e, Rows: rows}
}

// execute renders name into a string. A render failure is logged and
// reported as ok=false without touching w.
func (s *Server) execute(r *http.Request, name string, data any) (string, bool) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			log.FieldComponent, log.ComponentTemplate, log.FieldPath, r.URL.Path)
		return "", false
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldComponent, log.ComponentTemplate, "template", name, log.FieldError, err)
		return "", false
	}
	return buf.String(), true
}

// render writes template name through b, or a 500 when it cannot render.
func (s *Server) render(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	html, ok := s.execute(r, name, data)
	if !ok {
		InternalServerError("Could not render this section").Write(w)
		return
	}
	b.BodyHTML(html).Write(w)
}
