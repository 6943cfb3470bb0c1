package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gigledger/internal/core"
	"gigledger/internal/log"
	"gigledger/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var (
	_ store.Store       = (*SQLiteRepository)(nil)
	_ store.SyncTracker = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time keeps ledger transactions from hitting SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) GetProfile(ctx context.Context, uid string) (core.UserProfile, error) {
	p, err := r.queries.GetProfile(ctx, uid)
	if errors.Is(err, sql.ErrNoRows) {
		return core.UserProfile{}, store.ErrNotFound
	}
	if err != nil {
		return core.UserProfile{}, fmt.Errorf("get profile: %w", err)
	}
	return core.UserProfile{
		ID:                  p.UserID,
		Email:               p.Email,
		GigType:             p.GigType,
		MonthlyIncome:       core.Money{Cents: p.MonthlyIncomeCents},
		MonthlyExpense:      core.Money{Cents: p.MonthlyExpenseCents},
		OnboardingCompleted: p.OnboardingCompleted,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}, nil
}

func (r *SQLiteRepository) UpsertProfile(ctx context.Context, uid string, p core.ProfilePatch) error {
	arg := UpsertProfileParams{
		UserID:              uid,
		Email:               nullString(p.Email),
		GigType:             nullString(p.GigType),
		MonthlyIncomeCents:  nullCents(p.MonthlyIncome),
		MonthlyExpenseCents: nullCents(p.MonthlyExpense),
		Now:                 r.now(),
	}
	if p.OnboardingCompleted != nil {
		arg.OnboardingCompleted = sql.NullBool{Bool: *p.OnboardingCompleted, Valid: true}
	}
	if err := r.queries.UpsertProfile(ctx, arg); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetEntry(ctx context.Context, uid string, date core.DateKey) (core.LedgerEntry, error) {
	row, err := r.queries.GetLedgerEntry(ctx, uid, string(date))
	if errors.Is(err, sql.ErrNoRows) {
		return core.LedgerEntry{}, store.ErrNotFound
	}
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("get ledger entry: %w", err)
	}
	expenses, err := r.queries.ListLedgerExpenses(ctx, uid, string(date))
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("list ledger expenses: %w", err)
	}
	e := toLedgerEntry(row)
	for _, x := range expenses {
		e.Expenses[x.Category] = core.Money{Cents: x.AmountCents}
	}
	return e, nil
}

// ListEntries returns the user's entries, newest date first.
func (r *SQLiteRepository) ListEntries(ctx context.Context, uid string) ([]core.LedgerEntry, error) {
	rows, err := r.queries.ListLedgerEntries(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	expenses, err := r.queries.ListLedgerExpenses(ctx, uid, "")
	if err != nil {
		return nil, fmt.Errorf("list ledger expenses: %w", err)
	}

	out := make([]core.LedgerEntry, len(rows))
	index := make(map[string]int, len(rows))
	for i, row := range rows {
		out[i] = toLedgerEntry(row)
		index[row.EntryDate] = i
	}
	for _, x := range expenses {
		if i, ok := index[x.EntryDate]; ok {
			out[i].Expenses[x.Category] = core.Money{Cents: x.AmountCents}
		}
	}
	return out, nil
}

// UpsertEntry merges the patch into the stored day inside one transaction.
func (r *SQLiteRepository) UpsertEntry(ctx context.Context, uid string, date core.DateKey, p core.LedgerPatch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	arg := UpsertLedgerEntryParams{
		UserID:      uid,
		EntryDate:   string(date),
		IncomeCents: nullCents(p.Income),
		Platform:    nullString(p.Platform),
		Note:        nullString(p.Note),
		Now:         r.now(),
	}
	if p.Hours != nil {
		arg.Hours = sql.NullString{String: p.Hours.String(), Valid: true}
	}
	if err := q.UpsertLedgerEntry(ctx, arg); err != nil {
		return fmt.Errorf("upsert ledger entry: %w", err)
	}
	for cat, amt := range p.Expenses {
		if err := q.UpsertLedgerExpense(ctx, uid, string(date), cat, amt.Cents); err != nil {
			return fmt.Errorf("upsert expense %s: %w", cat, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger entry: %w", err)
	}

	slog.DebugContext(ctx, "Ledger entry saved to SQLite",
		log.FieldUserID, uid,
		log.FieldDate, date,
		"categories", len(p.Expenses))
	return nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, uid string) ([]core.Goal, error) {
	rows, err := r.queries.ListGoals(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	out := make([]core.Goal, len(rows))
	for i, g := range rows {
		out[i] = toGoal(g)
	}
	return out, nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, uid, id string) (core.Goal, error) {
	g, err := r.queries.GetGoal(ctx, uid, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, store.ErrNotFound
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal: %w", err)
	}
	return toGoal(g), nil
}

func (r *SQLiteRepository) CreateGoal(ctx context.Context, uid string, g core.Goal) (string, error) {
	if err := g.Validate(); err != nil {
		return "", err
	}
	g.ID = uuid.NewString()
	g.CreatedAt = r.now()
	if err := r.queries.CreateGoal(ctx, fromGoal(uid, g)); err != nil {
		return "", fmt.Errorf("create goal: %w", err)
	}
	return g.ID, nil
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, uid string, g core.Goal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	n, err := r.queries.UpdateGoal(ctx, fromGoal(uid, g))
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, uid, id string) error {
	n, err := r.queries.DeleteGoal(ctx, uid, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListInvestments(ctx context.Context, uid string) ([]core.Investment, error) {
	rows, err := r.queries.ListInvestments(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}
	out := make([]core.Investment, len(rows))
	for i, inv := range rows {
		out[i] = core.Investment{
			ID:        inv.ID,
			Name:      inv.Name,
			Type:      inv.Type,
			MinAmount: core.Money{Cents: inv.MinCents},
			Invested:  core.Money{Cents: inv.InvestedCents},
			Risk:      inv.Risk,
			CreatedAt: inv.CreatedAt,
		}
	}
	return out, nil
}

func (r *SQLiteRepository) AddInvestment(ctx context.Context, uid string, inv core.Investment) (string, error) {
	if err := inv.Validate(); err != nil {
		return "", err
	}
	row := Investment{
		ID:            uuid.NewString(),
		UserID:        uid,
		Name:          inv.Name,
		Type:          inv.Type,
		MinCents:      inv.MinAmount.Cents,
		InvestedCents: inv.Invested.Cents,
		Risk:          inv.Risk,
		CreatedAt:     r.now(),
	}
	if err := r.queries.CreateInvestment(ctx, row); err != nil {
		return "", fmt.Errorf("create investment: %w", err)
	}
	slog.InfoContext(ctx, "Investment saved to SQLite",
		"id", row.ID,
		log.FieldUserID, uid,
		"amount_cents", row.InvestedCents)
	return row.ID, nil
}

// ExpenseCategories returns the migration-seeded categories followed by the
// ones the user has logged.
func (r *SQLiteRepository) ExpenseCategories(ctx context.Context, uid string) ([]string, error) {
	base, err := r.queries.GetBaseCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("get base categories: %w", err)
	}
	used, err := r.queries.GetUsedCategories(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("get used categories: %w", err)
	}
	return store.MergeCategories(base, used), nil
}

// PendingSync returns ledger days not yet exported, oldest change first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]store.SyncRef, error) {
	rows, err := r.queries.GetPendingSync(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync: %w", err)
	}
	out := make([]store.SyncRef, len(rows))
	for i, row := range rows {
		out[i] = store.SyncRef{UserID: row.UserID, Date: core.DateKey(row.EntryDate), Version: row.Version}
	}
	return out, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, ref store.SyncRef) error {
	if err := r.queries.MarkSynced(ctx, ref.UserID, string(ref.Date), ref.Version, r.now()); err != nil {
		return fmt.Errorf("mark entry synced: %w", err)
	}
	slog.DebugContext(ctx, "Ledger entry marked as synced", log.FieldUserID, ref.UserID, log.FieldDate, ref.Date)
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, ref store.SyncRef) error {
	if err := r.queries.MarkSyncError(ctx, ref.UserID, string(ref.Date), ref.Version); err != nil {
		return fmt.Errorf("mark entry sync error: %w", err)
	}
	slog.WarnContext(ctx, "Ledger entry marked with sync error", log.FieldUserID, ref.UserID, log.FieldDate, ref.Date)
	return nil
}

func toLedgerEntry(row LedgerEntry) core.LedgerEntry {
	hours, err := decimal.NewFromString(row.Hours)
	if err != nil {
		hours = decimal.Zero
	}
	return core.LedgerEntry{
		Date:      core.DateKey(row.EntryDate),
		Income:    core.Money{Cents: row.IncomeCents},
		Hours:     hours,
		Platform:  row.Platform,
		Note:      row.Note,
		Expenses:  map[string]core.Money{},
		UpdatedAt: row.UpdatedAt,
	}
}

func toGoal(g Goal) core.Goal {
	out := core.Goal{
		ID:        g.ID,
		Title:     g.Title,
		Target:    core.Money{Cents: g.TargetCents},
		Saved:     core.Money{Cents: g.SavedCents},
		Deadline:  core.DateKey(g.Deadline),
		CreatedAt: g.CreatedAt,
	}
	if g.LinkedName.Valid {
		out.Linked = &core.LinkedInvestment{
			Name:      g.LinkedName.String,
			MinAmount: core.Money{Cents: g.LinkedMinCents.Int64},
		}
	}
	return out
}

func fromGoal(uid string, g core.Goal) Goal {
	row := Goal{
		ID:          g.ID,
		UserID:      uid,
		Title:       g.Title,
		TargetCents: g.Target.Cents,
		SavedCents:  g.Saved.Cents,
		Deadline:    string(g.Deadline),
		CreatedAt:   g.CreatedAt,
	}
	if g.Linked != nil {
		row.LinkedName = sql.NullString{String: g.Linked.Name, Valid: true}
		row.LinkedMinCents = sql.NullInt64{Int64: g.Linked.MinAmount.Cents, Valid: true}
	}
	return row
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullCents(m *core.Money) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: m.Cents, Valid: true}
}
