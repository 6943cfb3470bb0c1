package insights

import (
	"strings"

	"gigledger/internal/core"
)

func normalizeCashflow(w cashflowWire) Cashflow {
	out := Cashflow{
		CashflowProjection: core.CashflowProjection{
			Score:    w.CashflowScore.Int(),
			Shortage: w.ShortageAmount.Money(),
		},
		Tips:      []string(w.AITips),
		UpdatedAt: strings.TrimSpace(string(w.UpdatedAt)),
	}
	if p := w.Next30DaysProjection; p.Set {
		out.Income = p.V.Income.Money()
		out.Expense = p.V.Expense.Money()
	}
	if s := w.DailyStats; s.Set {
		out.DaysLogged = s.V.DaysLogged.Int()
		out.AvgDailyIncome = s.V.AvgDailyIncome.Money()
		out.AvgDailyExpense = s.V.AvgDailyExpense.Money()
		out.FromLogs = out.DaysLogged > 0
	}
	if out.Shortage.IsNegative() {
		out.Shortage = core.Money{}
	}
	return out
}

func normalizeOpportunity(w opportunityWire) Opportunity {
	out := Opportunity{
		BestTime:      string(w.BestTime),
		BestArea:      string(w.BestArea),
		ExpectedBoost: w.ExpectedBoost.Money(),
		Traffic:       string(w.Traffic),
		Reasons:       []string(w.Reasons),
		Advice:        string(w.AIAdvice),
		Action:        string(w.Action),
		Why:           string(w.Why),
		Confidence:    string(w.Confidence),
	}
	if w.Weather.Set {
		out.Weather = Weather{Condition: string(w.Weather.V.Condition), TempC: w.Weather.V.Temp.Decimal()}
	}
	for _, h := range w.Hotspots {
		if h.Area == "" {
			continue
		}
		out.Hotspots = append(out.Hotspots, Hotspot{
			Area:       string(h.Area),
			Traffic:    string(h.Traffic),
			DistanceKM: h.DistanceKM.Decimal(),
			Score:      h.Score.Decimal(),
		})
	}
	return out
}

func normalizeDreamPlan(w dreamPlanWire) DreamPlan {
	out := DreamPlan{Plan: strings.TrimSpace(string(w.Plan))}
	for _, d := range w.Dreams {
		out.Dreams = append(out.Dreams, DreamStep{
			Title:         string(d.Title),
			MonthlySaving: d.MonthlySaving.Money(),
			MonthsLeft:    d.MonthsLeft.Int(),
		})
	}
	return out
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func normalizeCatalog(kind CatalogKind, w catalogWire) []CatalogItem {
	var out []CatalogItem
	switch kind {
	case KindFD:
		for _, f := range w.FDs {
			out = append(out, CatalogItem{
				Kind:      kind,
				Name:      joinNonEmpty(" - ", string(f.Bank), string(f.Type)),
				MinAmount: f.MinAmount.Money(),
				Rate:      string(f.InterestRate),
				Term:      string(f.Tenure),
				Risk:      string(f.Risk),
			})
		}
	case KindBond:
		for _, b := range w.Bonds {
			out = append(out, CatalogItem{
				Kind:      kind,
				Name:      string(b.BondName),
				MinAmount: b.MinInvestment.Money(),
				Rate:      string(b.Coupon),
				Term:      string(b.Maturity),
				Risk:      string(b.Risk),
				Detail:    string(b.Type),
			})
		}
	case KindSavings:
		for _, s := range w.Schemes {
			out = append(out, CatalogItem{
				Kind:      kind,
				Name:      string(s.Scheme),
				MinAmount: s.MinInvestment.Money(),
				Rate:      string(s.InterestRate),
				Term:      string(s.Tenure),
				Risk:      string(s.Risk),
			})
		}
	case KindMutualFund:
		for _, f := range w.Results {
			out = append(out, CatalogItem{
				Kind:      kind,
				Name:      string(f.SchemeName),
				MinAmount: MutualFundMinimum,
				Rate:      string(f.NAV),
				Risk:      string(f.Risk),
				Detail:    joinNonEmpty(" · ", string(f.AMC), string(f.Category)),
			})
		}
	}

	// Unnamed rows cannot be invested in.
	kept := out[:0]
	for _, it := range out {
		if it.Name != "" {
			kept = append(kept, it)
		}
	}
	return kept
}

func normalizeLoan(w loanWire) LoanOffer {
	return LoanOffer{
		Type:          string(w.Type),
		Bank:          string(w.Bank),
		InterestRate:  string(w.InterestRate),
		MaxTenure:     string(w.MaxTenure),
		ProcessingFee: string(w.ProcessingFee),
		Eligibility:   string(w.Eligibility),
		Risk:          string(w.Risk),
		UseCase:       string(w.UseCase),
	}
}
