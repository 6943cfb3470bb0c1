package storage

import (
	"context"
	"database/sql"
	"time"
)

const getProfile = `
SELECT user_id, email, gig_type, monthly_income_cents, monthly_expense_cents,
       onboarding_completed, created_at, updated_at
FROM profiles WHERE user_id = ?1`

func (q *Queries) GetProfile(ctx context.Context, userID string) (Profile, error) {
	var p Profile
	err := q.db.QueryRowContext(ctx, getProfile, userID).Scan(
		&p.UserID, &p.Email, &p.GigType, &p.MonthlyIncomeCents, &p.MonthlyExpenseCents,
		&p.OnboardingCompleted, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// Nil parameters keep the stored column.
const upsertProfile = `
INSERT INTO profiles (user_id, email, gig_type, monthly_income_cents, monthly_expense_cents,
                      onboarding_completed, created_at, updated_at)
VALUES (?1, COALESCE(?2, ''), COALESCE(?3, ''), COALESCE(?4, 0), COALESCE(?5, 0), COALESCE(?6, 0), ?7, ?7)
ON CONFLICT (user_id) DO UPDATE SET
    email                 = COALESCE(?2, email),
    gig_type              = COALESCE(?3, gig_type),
    monthly_income_cents  = COALESCE(?4, monthly_income_cents),
    monthly_expense_cents = COALESCE(?5, monthly_expense_cents),
    onboarding_completed  = COALESCE(?6, onboarding_completed),
    updated_at            = ?7`

type UpsertProfileParams struct {
	UserID              string
	Email               sql.NullString
	GigType             sql.NullString
	MonthlyIncomeCents  sql.NullInt64
	MonthlyExpenseCents sql.NullInt64
	OnboardingCompleted sql.NullBool
	Now                 time.Time
}

func (q *Queries) UpsertProfile(ctx context.Context, arg UpsertProfileParams) error {
	_, err := q.db.ExecContext(ctx, upsertProfile,
		arg.UserID, arg.Email, arg.GigType, arg.MonthlyIncomeCents,
		arg.MonthlyExpenseCents, arg.OnboardingCompleted, arg.Now,
	)
	return err
}

const ledgerEntryColumns = `user_id, entry_date, income_cents, hours, platform, note,
       version, sync_status, synced_at, updated_at`

func scanLedgerEntry(row interface{ Scan(...any) error }) (LedgerEntry, error) {
	var e LedgerEntry
	err := row.Scan(&e.UserID, &e.EntryDate, &e.IncomeCents, &e.Hours, &e.Platform, &e.Note,
		&e.Version, &e.SyncStatus, &e.SyncedAt, &e.UpdatedAt)
	return e, err
}

const getLedgerEntry = `SELECT ` + ledgerEntryColumns + `
FROM ledger_entries WHERE user_id = ?1 AND entry_date = ?2`

func (q *Queries) GetLedgerEntry(ctx context.Context, userID, date string) (LedgerEntry, error) {
	return scanLedgerEntry(q.db.QueryRowContext(ctx, getLedgerEntry, userID, date))
}

const listLedgerEntries = `SELECT ` + ledgerEntryColumns + `
FROM ledger_entries WHERE user_id = ?1 ORDER BY entry_date DESC`

func (q *Queries) ListLedgerEntries(ctx context.Context, userID string) ([]LedgerEntry, error) {
	rows, err := q.db.QueryContext(ctx, listLedgerEntries, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// Every write bumps the version and queues the day for export again.
const upsertLedgerEntry = `
INSERT INTO ledger_entries (user_id, entry_date, income_cents, hours, platform, note, updated_at)
VALUES (?1, ?2, COALESCE(?3, 0), COALESCE(?4, '0'), COALESCE(?5, ''), COALESCE(?6, ''), ?7)
ON CONFLICT (user_id, entry_date) DO UPDATE SET
    income_cents = COALESCE(?3, income_cents),
    hours        = COALESCE(?4, hours),
    platform     = COALESCE(?5, platform),
    note         = COALESCE(?6, note),
    version      = version + 1,
    sync_status  = 'pending',
    updated_at   = ?7`

type UpsertLedgerEntryParams struct {
	UserID      string
	EntryDate   string
	IncomeCents sql.NullInt64
	Hours       sql.NullString
	Platform    sql.NullString
	Note        sql.NullString
	Now         time.Time
}

func (q *Queries) UpsertLedgerEntry(ctx context.Context, arg UpsertLedgerEntryParams) error {
	_, err := q.db.ExecContext(ctx, upsertLedgerEntry,
		arg.UserID, arg.EntryDate, arg.IncomeCents, arg.Hours, arg.Platform, arg.Note, arg.Now,
	)
	return err
}

const upsertLedgerExpense = `
INSERT INTO ledger_expenses (user_id, entry_date, category, amount_cents)
VALUES (?1, ?2, ?3, ?4)
ON CONFLICT (user_id, entry_date, category) DO UPDATE SET amount_cents = excluded.amount_cents`

func (q *Queries) UpsertLedgerExpense(ctx context.Context, userID, date, category string, cents int64) error {
	_, err := q.db.ExecContext(ctx, upsertLedgerExpense, userID, date, category, cents)
	return err
}

const listLedgerExpenses = `
SELECT entry_date, category, amount_cents FROM ledger_expenses
WHERE user_id = ?1 AND (?2 = '' OR entry_date = ?2)
ORDER BY entry_date, category`

// ListLedgerExpenses returns the user's expense rows; an empty date selects
// every day.
func (q *Queries) ListLedgerExpenses(ctx context.Context, userID, date string) ([]LedgerExpense, error) {
	rows, err := q.db.QueryContext(ctx, listLedgerExpenses, userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LedgerExpense
	for rows.Next() {
		var x LedgerExpense
		if err := rows.Scan(&x.EntryDate, &x.Category, &x.AmountCents); err != nil {
			return nil, err
		}
		items = append(items, x)
	}
	return items, rows.Err()
}

const getPendingSync = `
SELECT user_id, entry_date, version FROM ledger_entries
WHERE sync_status = 'pending'
ORDER BY updated_at, user_id, entry_date
LIMIT ?1`

type PendingSyncRow struct {
	UserID    string
	EntryDate string
	Version   int64
}

func (q *Queries) GetPendingSync(ctx context.Context, limit int64) ([]PendingSyncRow, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSync, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PendingSyncRow
	for rows.Next() {
		var r PendingSyncRow
		if err := rows.Scan(&r.UserID, &r.EntryDate, &r.Version); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const markSynced = `
UPDATE ledger_entries SET sync_status = 'synced', synced_at = ?4
WHERE user_id = ?1 AND entry_date = ?2 AND version = ?3`

func (q *Queries) MarkSynced(ctx context.Context, userID, date string, version int64, now time.Time) error {
	_, err := q.db.ExecContext(ctx, markSynced, userID, date, version, now)
	return err
}

const markSyncError = `
UPDATE ledger_entries SET sync_status = 'error'
WHERE user_id = ?1 AND entry_date = ?2 AND version = ?3`

func (q *Queries) MarkSyncError(ctx context.Context, userID, date string, version int64) error {
	_, err := q.db.ExecContext(ctx, markSyncError, userID, date, version)
	return err
}

const goalColumns = `id, user_id, title, target_cents, saved_cents, deadline,
       linked_name, linked_min_cents, created_at`

func scanGoal(row interface{ Scan(...any) error }) (Goal, error) {
	var g Goal
	err := row.Scan(&g.ID, &g.UserID, &g.Title, &g.TargetCents, &g.SavedCents, &g.Deadline,
		&g.LinkedName, &g.LinkedMinCents, &g.CreatedAt)
	return g, err
}

const listGoals = `SELECT ` + goalColumns + `
FROM goals WHERE user_id = ?1 ORDER BY created_at, id`

func (q *Queries) ListGoals(ctx context.Context, userID string) ([]Goal, error) {
	rows, err := q.db.QueryContext(ctx, listGoals, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	return items, rows.Err()
}

const getGoal = `SELECT ` + goalColumns + `
FROM goals WHERE user_id = ?1 AND id = ?2`

func (q *Queries) GetGoal(ctx context.Context, userID, id string) (Goal, error) {
	return scanGoal(q.db.QueryRowContext(ctx, getGoal, userID, id))
}

const createGoal = `
INSERT INTO goals (id, user_id, title, target_cents, saved_cents, deadline,
                   linked_name, linked_min_cents, created_at)
VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9)`

func (q *Queries) CreateGoal(ctx context.Context, g Goal) error {
	_, err := q.db.ExecContext(ctx, createGoal,
		g.ID, g.UserID, g.Title, g.TargetCents, g.SavedCents, g.Deadline,
		g.LinkedName, g.LinkedMinCents, g.CreatedAt,
	)
	return err
}

const updateGoal = `
UPDATE goals SET title = ?3, target_cents = ?4, saved_cents = ?5, deadline = ?6,
                 linked_name = ?7, linked_min_cents = ?8
WHERE user_id = ?1 AND id = ?2`

func (q *Queries) UpdateGoal(ctx context.Context, g Goal) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateGoal,
		g.UserID, g.ID, g.Title, g.TargetCents, g.SavedCents, g.Deadline,
		g.LinkedName, g.LinkedMinCents,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteGoal = `DELETE FROM goals WHERE user_id = ?1 AND id = ?2`

func (q *Queries) DeleteGoal(ctx context.Context, userID, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteGoal, userID, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listInvestments = `
SELECT id, user_id, name, type, min_cents, invested_cents, risk, created_at
FROM investments WHERE user_id = ?1 ORDER BY created_at, rowid`

func (q *Queries) ListInvestments(ctx context.Context, userID string) ([]Investment, error) {
	rows, err := q.db.QueryContext(ctx, listInvestments, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Investment
	for rows.Next() {
		var i Investment
		if err := rows.Scan(&i.ID, &i.UserID, &i.Name, &i.Type, &i.MinCents,
			&i.InvestedCents, &i.Risk, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createInvestment = `
INSERT INTO investments (id, user_id, name, type, min_cents, invested_cents, risk, created_at)
VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8)`

func (q *Queries) CreateInvestment(ctx context.Context, i Investment) error {
	_, err := q.db.ExecContext(ctx, createInvestment,
		i.ID, i.UserID, i.Name, i.Type, i.MinCents, i.InvestedCents, i.Risk, i.CreatedAt,
	)
	return err
}

const getBaseCategories = `SELECT name FROM expense_categories ORDER BY sort_order, name`

func (q *Queries) GetBaseCategories(ctx context.Context) ([]string, error) {
	return q.strings(ctx, getBaseCategories)
}

const getUsedCategories = `
SELECT DISTINCT category FROM ledger_expenses WHERE user_id = ?1 ORDER BY category`

func (q *Queries) GetUsedCategories(ctx context.Context, userID string) ([]string, error) {
	return q.strings(ctx, getUsedCategories, userID)
}

func (q *Queries) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
