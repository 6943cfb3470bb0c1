package memory

import (
	"context"
	"testing"

	"gigledger/internal/core"
)

func TestExportDayReplacesRow(t *testing.T) {
	x := New()
	ctx := context.Background()

	ref1, err := x.ExportDay(ctx, "u1", core.LedgerEntry{Date: "2024-05-15", Income: core.Rupees(100)})
	if err != nil {
		t.Fatal(err)
	}
	ref2, err := x.ExportDay(ctx, "u1", core.LedgerEntry{Date: "2024-05-15", Income: core.Rupees(250)})
	if err != nil {
		t.Fatal(err)
	}
	if ref1 != ref2 {
		t.Fatalf("refs differ: %s vs %s", ref1, ref2)
	}
	if _, err := x.ExportDay(ctx, "u2", core.LedgerEntry{Date: "2024-05-15"}); err != nil {
		t.Fatal(err)
	}

	rows := x.Rows()
	if len(rows) != 2 || rows[0].UserID != "u1" || rows[0].Entry.Income != core.Rupees(250) {
		t.Fatalf("rows = %+v", rows)
	}
	if x.Writes() != 3 {
		t.Fatalf("writes = %d", x.Writes())
	}
	if _, err := x.ExportDay(ctx, "u1", core.LedgerEntry{Date: "bad"}); err == nil {
		t.Fatal("invalid date should fail")
	}
}
