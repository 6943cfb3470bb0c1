package firestore

import (
	"sort"
	"time"

	"gigledger/internal/core"
)

func rupees(m core.Money) float64 { return m.Float() }

func encodeProfilePatch(p core.ProfilePatch) map[string]interface{} {
	data := map[string]interface{}{}
	if p.Email != nil {
		data["email"] = *p.Email
	}
	if p.GigType != nil {
		data["gigType"] = *p.GigType
	}
	if p.MonthlyIncome != nil {
		data["monthlyIncome"] = rupees(*p.MonthlyIncome)
	}
	if p.MonthlyExpense != nil {
		data["monthlyExpense"] = rupees(*p.MonthlyExpense)
	}
	if p.OnboardingCompleted != nil {
		data["onboardingCompleted"] = *p.OnboardingCompleted
	}
	return data
}

func decodeProfile(uid string, data map[string]interface{}) core.UserProfile {
	return core.UserProfile{
		ID:                  uid,
		Email:               core.StringFrom(data["email"]),
		GigType:             core.StringFrom(data["gigType"]),
		MonthlyIncome:       core.AmountFrom(data["monthlyIncome"]),
		MonthlyExpense:      core.AmountFrom(data["monthlyExpense"]),
		OnboardingCompleted: core.BoolFrom(data["onboardingCompleted"]),
	}
}

func encodeLedgerPatch(p core.LedgerPatch) map[string]interface{} {
	data := map[string]interface{}{}
	if p.Income != nil {
		data["income"] = rupees(*p.Income)
	}
	if p.Hours != nil {
		data["hoursWorked"] = p.Hours.InexactFloat64()
	}
	if p.Platform != nil {
		data["platform"] = *p.Platform
	}
	if p.Note != nil {
		data["notes"] = *p.Note
	}
	if len(p.Expenses) > 0 {
		exp := make(map[string]interface{}, len(p.Expenses))
		for k, v := range p.Expenses {
			exp[k] = rupees(v)
		}
		data["expenses"] = exp
	}
	return data
}

func decodeEntry(date core.DateKey, data map[string]interface{}) core.LedgerEntry {
	e := core.LedgerEntry{
		Date:     date,
		Income:   core.AmountFrom(data["income"]),
		Hours:    core.HoursFrom(data["hoursWorked"]),
		Platform: core.StringFrom(data["platform"]),
		Note:     core.StringFrom(data["notes"]),
		Expenses: map[string]core.Money{},
	}
	if exp, ok := data["expenses"].(map[string]interface{}); ok {
		for k, v := range exp {
			e.Expenses[k] = core.AmountFrom(v)
		}
	}
	return e
}

func encodeGoal(g core.Goal) map[string]interface{} {
	data := map[string]interface{}{
		"title":        g.Title,
		"goal_amount":  rupees(g.Target),
		"saved_amount": rupees(g.Saved),
		"deadline":     string(g.Deadline),
	}
	if g.Linked != nil {
		data["linked_investment"] = map[string]interface{}{
			"name":       g.Linked.Name,
			"min_amount": rupees(g.Linked.MinAmount),
		}
	}
	return data
}

func decodeGoal(id string, data map[string]interface{}) core.Goal {
	g := core.Goal{
		ID:        id,
		Title:     core.StringFrom(data["title"]),
		Target:    core.AmountFrom(data["goal_amount"]),
		Saved:     core.AmountFrom(data["saved_amount"]),
		Deadline:  core.DateKey(core.StringFrom(data["deadline"])),
		CreatedAt: timeFrom(data["created_at"]),
	}
	if l, ok := data["linked_investment"].(map[string]interface{}); ok {
		if name := core.StringFrom(l["name"]); name != "" {
			g.Linked = &core.LinkedInvestment{Name: name, MinAmount: core.AmountFrom(l["min_amount"])}
		}
	}
	return g
}

func encodeInvestment(inv core.Investment) map[string]interface{} {
	return map[string]interface{}{
		"name":           inv.Name,
		"type":           inv.Type,
		"min_amount":     rupees(inv.MinAmount),
		"amountInvested": rupees(inv.Invested),
		"risk":           inv.Risk,
	}
}

func decodeInvestment(id string, data map[string]interface{}) core.Investment {
	return core.Investment{
		ID:        id,
		Name:      core.StringFrom(data["name"]),
		Type:      core.StringFrom(data["type"]),
		MinAmount: core.AmountFrom(data["min_amount"]),
		Invested:  core.AmountFrom(data["amountInvested"]),
		Risk:      core.StringFrom(data["risk"]),
		CreatedAt: timeFrom(data["created_at"]),
	}
}

func timeFrom(v interface{}) time.Time {
	t, _ := v.(time.Time)
	return t
}

// Documents without created_at sort first, then by document id.
func sortGoals(goals []core.Goal) {
	sort.SliceStable(goals, func(i, j int) bool {
		if !goals[i].CreatedAt.Equal(goals[j].CreatedAt) {
			return goals[i].CreatedAt.Before(goals[j].CreatedAt)
		}
		return goals[i].ID < goals[j].ID
	})
}

func sortInvestments(invs []core.Investment) {
	sort.SliceStable(invs, func(i, j int) bool {
		if !invs[i].CreatedAt.Equal(invs[j].CreatedAt) {
			return invs[i].CreatedAt.Before(invs[j].CreatedAt)
		}
		return invs[i].ID < invs[j].ID
	})
}
