package memory

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"gigledger/internal/core"
	"gigledger/internal/store"
	"gigledger/internal/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New(core.DefaultExpenseCategories) })
}

func TestNewFromFilesSeedsAndDedupe(t *testing.T) {
	dir := t.TempDir()
	s := NewFromFiles(dir)
	cats, _ := s.ExpenseCategories(context.Background(), "u1")
	if !reflect.DeepEqual(cats, core.DefaultExpenseCategories) {
		t.Fatalf("expected defaults when file missing, got %v", cats)
	}

	content := "# header\nrent\nfuel\nrent\n\n  toll  \n"
	if err := os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s = NewFromFiles(dir)
	cats, _ = s.ExpenseCategories(context.Background(), "u1")
	if want := []string{"rent", "fuel", "toll"}; !reflect.DeepEqual(cats, want) {
		t.Fatalf("cats = %v, want %v", cats, want)
	}
}

func TestListEntriesDoesNotAlias(t *testing.T) {
	s := New(nil)
	ctx := context.Background()
	_ = s.UpsertEntry(ctx, "u1", "2024-05-15", core.LedgerPatch{Expenses: map[string]core.Money{"fuel": core.Rupees(10)}})
	list, _ := s.ListEntries(ctx, "u1")
	list[0].Expenses["fuel"] = core.Rupees(999)

	e, _ := s.GetEntry(ctx, "u1", "2024-05-15")
	if e.Expenses["fuel"] != core.Rupees(10) {
		t.Fatalf("stored entry mutated through list result: %v", e.Expenses)
	}
}
