package storage

import (
	"database/sql"
	"time"
)

type Profile struct {
	UserID              string
	Email               string
	GigType             string
	MonthlyIncomeCents  int64
	MonthlyExpenseCents int64
	OnboardingCompleted bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type LedgerEntry struct {
	UserID      string
	EntryDate   string
	IncomeCents int64
	Hours       string
	Platform    string
	Note        string
	Version     int64
	SyncStatus  string
	SyncedAt    sql.NullTime
	UpdatedAt   time.Time
}

type LedgerExpense struct {
	EntryDate   string
	Category    string
	AmountCents int64
}

type Goal struct {
	ID             string
	UserID         string
	Title          string
	TargetCents    int64
	SavedCents     int64
	Deadline       string
	LinkedName     sql.NullString
	LinkedMinCents sql.NullInt64
	CreatedAt      time.Time
}

type Investment struct {
	ID            string
	UserID        string
	Name          string
	Type          string
	MinCents      int64
	InvestedCents int64
	Risk          string
	CreatedAt     time.Time
}
