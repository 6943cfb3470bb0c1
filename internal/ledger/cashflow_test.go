package ledger

import (
	"testing"

	"gigledger/internal/core"
)

func TestProject(t *testing.T) {
	profile := core.UserProfile{MonthlyIncome: core.Rupees(20000), MonthlyExpense: core.Rupees(25000)}

	tests := []struct {
		name    string
		entries []core.LedgerEntry
		want    core.CashflowProjection
	}{
		{
			name:    "falls back to declared figures",
			entries: []core.LedgerEntry{entry("2024-04-30", 5000, "8", nil)},
			want: core.CashflowProjection{
				Score:    50,
				Shortage: core.Rupees(5000),
				Income:   core.Rupees(20000),
				Expense:  core.Rupees(25000),
			},
		},
		{
			name: "projects from this month's logs",
			entries: []core.LedgerEntry{
				entry("2024-05-02", 1000, "8", map[string]int64{"fuel": 200}),
				entry("2024-05-03", 500, "4", map[string]int64{"food": 100}),
			},
			want: core.CashflowProjection{
				Score:           85,
				Income:          core.Rupees(22500),
				Expense:         core.Rupees(4500),
				DaysLogged:      2,
				AvgDailyIncome:  core.Rupees(750),
				AvgDailyExpense: core.Rupees(150),
				FromLogs:        true,
			},
		},
		{
			name:    "score floors at five",
			entries: []core.LedgerEntry{entry("2024-05-02", 0, "0", map[string]int64{"fuel": 1000})},
			want: core.CashflowProjection{
				Score:           5,
				Shortage:        core.Rupees(30000),
				Expense:         core.Rupees(30000),
				DaysLogged:      1,
				AvgDailyExpense: core.Rupees(1000),
				FromLogs:        true,
			},
		},
		{
			name: "truncates to whole rupees",
			entries: []core.LedgerEntry{
				entry("2024-05-02", 100, "1", nil),
				entry("2024-05-03", 100, "1", nil),
				entry("2024-05-04", 101, "1", nil),
			},
			want: core.CashflowProjection{
				Score:          85,
				Income:         core.Rupees(3010),
				DaysLogged:     3,
				AvgDailyIncome: core.Money{Cents: 10033},
				FromLogs:       true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Project(profile, tt.entries, now)
			if got != tt.want {
				t.Fatalf("Project() =\n%+v\nwant\n%+v", got, tt.want)
			}
		})
	}
}
