package insights

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"

	"gigledger/internal/core"
)

// Number decodes any JSON value. Numbers and numeric strings keep their
// value; null, other strings and any other type read as zero.
type Number struct {
	d decimal.Decimal
}

func (n *Number) UnmarshalJSON(b []byte) error {
	n.d = decimal.Zero
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	n.d = core.HoursFrom(v)
	return nil
}

func (n Number) Decimal() decimal.Decimal { return n.d }
func (n Number) Money() core.Money        { return core.MoneyFromDecimal(n.d) }
func (n Number) Int() int                 { return int(n.d.IntPart()) }

// Text decodes a JSON string; any other value reads as "".
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*t = ""
		return nil
	}
	*t = Text(s)
	return nil
}

// Texts decodes a JSON array of strings, skipping non-string items. Any
// other value reads as empty.
type Texts []string

func (ts *Texts) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		*ts = nil
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		var s string
		if json.Unmarshal(r, &s) == nil && s != "" {
			out = append(out, s)
		}
	}
	*ts = out
	return nil
}

// Object decodes a JSON object into T; any other value leaves it unset.
type Object[T any] struct {
	V   T
	Set bool
}

func (o *Object[T]) UnmarshalJSON(b []byte) error {
	*o = Object[T]{}
	if !bytes.HasPrefix(bytes.TrimSpace(b), []byte("{")) {
		return nil
	}
	var v T
	if json.Unmarshal(b, &v) != nil {
		return nil
	}
	o.V, o.Set = v, true
	return nil
}

// List decodes a JSON array of T, skipping items that do not decode. Any
// other value reads as empty.
type List[T any] []T

func (l *List[T]) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		*l = nil
		return nil
	}
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var v T
		if json.Unmarshal(r, &v) == nil {
			out = append(out, v)
		}
	}
	*l = out
	return nil
}

type projectionWire struct {
	Income  Number `json:"income"`
	Expense Number `json:"expense"`
}

type dailyStatsWire struct {
	DaysLogged      Number `json:"daysLogged"`
	AvgDailyIncome  Number `json:"avgDailyIncome"`
	AvgDailyExpense Number `json:"avgDailyExpense"`
}

type cashflowWire struct {
	CashflowScore        Number `json:"cashflowScore"`
	ShortageAmount       Number `json:"shortageAmount"`
	Next30DaysProjection Object[projectionWire] `json:"next30DaysProjection"`
	AITips               Texts                  `json:"aiTips"`
	DailyStats           Object[dailyStatsWire] `json:"dailyStats"`
	UpdatedAt            Text                   `json:"updatedAt"`
}

type smartSpendWire struct {
	Tip Text `json:"tip"`
}

type weatherWire struct {
	Condition Text   `json:"condition"`
	Temp      Number `json:"temp"`
}

type hotspotWire struct {
	Area       Text   `json:"area"`
	Traffic    Text   `json:"traffic"`
	DistanceKM Number `json:"distance_km"`
	Score      Number `json:"score"`
}

type opportunityWire struct {
	BestTime      Text                `json:"bestTime"`
	BestArea      Text                `json:"bestArea"`
	ExpectedBoost Number              `json:"expectedBoost"`
	Weather       Object[weatherWire] `json:"weather"`
	Traffic       Text                `json:"traffic"`
	Hotspots      List[hotspotWire]   `json:"hotspots"`
	Reasons       Texts               `json:"reasons"`
	AIAdvice      Text                `json:"aiAdvice"`
	Action        Text                `json:"action"`
	Why           Text                `json:"why"`
	Confidence    Text                `json:"confidence"`
}

type dreamWire struct {
	Title         Text   `json:"title"`
	MonthlySaving Number `json:"monthlySaving"`
	MonthsLeft    Number `json:"monthsLeft"`
}

type dreamPlanWire struct {
	Plan   Text            `json:"plan"`
	Dreams List[dreamWire] `json:"dreams"`
}

type portfolioWire struct {
	Advice    Text `json:"advice"`
	Portfolio Text `json:"portfolio"`
}

type chatWire struct {
	Reply   Text `json:"reply"`
	Message Text `json:"message"`
}

type fdWire struct {
	Bank         Text   `json:"bank"`
	Type         Text   `json:"type"`
	Tenure       Text   `json:"tenure"`
	InterestRate Text   `json:"interest_rate"`
	MinAmount    Number `json:"min_amount"`
	Risk         Text   `json:"risk"`
}

type bondWire struct {
	BondName      Text   `json:"bond_name"`
	Type          Text   `json:"type"`
	Maturity      Text   `json:"maturity"`
	Coupon        Text   `json:"coupon"`
	MinInvestment Number `json:"min_investment"`
	Risk          Text   `json:"risk"`
}

type savingsWire struct {
	Scheme        Text   `json:"scheme"`
	InterestRate  Text   `json:"interest_rate"`
	Tenure        Text   `json:"tenure"`
	MinInvestment Number `json:"min_investment"`
	Risk          Text   `json:"risk"`
}

type fundWire struct {
	SchemeName Text `json:"scheme_name"`
	Category   Text `json:"category"`
	AMC        Text `json:"amc"`
	NAV        Text `json:"nav"`
	Risk       Text `json:"risk"`
}

type catalogWire struct {
	FDs     List[fdWire]      `json:"fds"`
	Bonds   List[bondWire]    `json:"bonds"`
	Schemes List[savingsWire] `json:"schemes"`
	Results List[fundWire]    `json:"results"`
}

type loanWire struct {
	Type          Text `json:"type"`
	Bank          Text `json:"bank"`
	InterestRate  Text `json:"interest_rate"`
	MaxTenure     Text `json:"max_tenure"`
	ProcessingFee Text `json:"processing_fee"`
	Eligibility   Text `json:"eligibility"`
	Risk          Text `json:"risk"`
	UseCase       Text `json:"use_case"`
}

type loansWire struct {
	Loans List[loanWire] `json:"loans"`
}
